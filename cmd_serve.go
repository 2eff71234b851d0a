package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auto_blog_publisher/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		runTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := server.NewStore()
			coordinator, err := buildCoordinator(cfg, logger, store.SetState)
			if err != nil {
				return err
			}
			srv, err := server.New(coordinator, store, server.Options{RunTimeout: runTimeout, Logger: logger})
			if err != nil {
				return err
			}

			listen := cfg.ServerAddr
			if addr != "" {
				listen = addr
			}
			httpServer := &http.Server{
				Addr:              listen,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting web server", zap.String("addr", listen))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			err = httpServer.Shutdown(shutdownCtx)
			srv.Close()
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides config server_addr)")
	cmd.Flags().DurationVar(&runTimeout, "run-timeout", 10*time.Minute, "upper bound of one pipeline run; 0 disables")
	return cmd
}

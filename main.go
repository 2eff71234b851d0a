package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"auto_blog_publisher/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autoblog",
	Short: "Research a topic and publish an illustrated blog post",
	Long: `autoblog turns a topic into a styled, illustrated long-form post.

It researches the topic on the web and on social media, picks a writing
style, drafts the article section by section with an LLM, renders cover and
section images, and optionally publishes the result to Medium and LinkedIn.

Example usage:
  autoblog run "Tesla Q2 earnings" --out ./post
  autoblog run "Rust in the kernel" --style casual --targets medium,linkedin
  autoblog serve --addr :8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config.yaml (default: built-in mock providers)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	rootCmd.AddCommand(newRunCmd(), newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func initConfig() error {
	var err error
	if cfgFile == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(cfgFile); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err = newLogger(level)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("images_provider", cfg.Images.Provider),
		zap.Int("concurrency", cfg.Pipeline.Concurrency),
		zap.Duration("call_timeout", cfg.Pipeline.CallTimeout))
	return nil
}

// newLogger builds a JSON production logger writing to stderr.
func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	l, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return l, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/pipeline"
)

func newRunCmd() *cobra.Command {
	var (
		style    string
		noImages bool
		targets  []string
		outDir   string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Run the pipeline once for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.Request{
				Topic:      strings.Join(args, " "),
				Style:      blog.Style(style),
				SkipImages: noImages,
			}
			for _, t := range targets {
				req.Targets = append(req.Targets, blog.Platform(strings.ToLower(strings.TrimSpace(t))))
			}

			coordinator, err := buildCoordinator(cfg, logger, func(id string, s pipeline.State) {
				logger.Debug("run state", zap.String("run_id", id), zap.Stringer("state", s))
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := coordinator.Run(ctx, req)
			if err != nil {
				printWarnings(cmd.ErrOrStderr(), result.Warnings)
				return err
			}

			if outDir != "" {
				path, err := writeOutput(outDir, result)
				if err != nil {
					return err
				}
				logger.Info("post written", zap.String("path", path), zap.Int("images", len(result.Images)))
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(cmd.OutOrStdout(), result, outDir == "")
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "force a style (professional, casual, simple) instead of classifying")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "skip image planning and rendering")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "publish targets (medium, linkedin)")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write post.md and images into")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// writeOutput writes post.md plus one file per image under dir and returns
// the markdown path. Markdown image links point at the written files.
func writeOutput(dir string, result blog.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	files := make(map[string]string, len(result.Images))
	for key, asset := range result.Images {
		name := key + imageExtension(asset)
		if err := os.WriteFile(filepath.Join(dir, name), asset.Data, 0o644); err != nil {
			return "", fmt.Errorf("write image %s: %w", key, err)
		}
		files[key] = name
	}
	md := result.Document.Markdown(func(key string) string { return files[key] })
	path := filepath.Join(dir, "post.md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}
	return path, nil
}

func imageExtension(asset blog.ImageAsset) string {
	if m := mimetype.Lookup(asset.MIMEType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return mimetype.Detect(asset.Data).Extension()
}

func printResult(w io.Writer, result blog.Result, withMarkdown bool) {
	if withMarkdown {
		fmt.Fprintln(w, result.Document.Markdown(nil))
	} else {
		fmt.Fprintf(w, "%s (%s, %d sections, %d images)\n",
			result.Document.Title, result.Document.Style, len(result.Document.Sections), len(result.Images))
	}
	for _, r := range result.Receipts {
		if r.Status == blog.StatusOK {
			fmt.Fprintf(w, "published to %s: %s\n", r.Platform, r.RemoteID)
		} else {
			fmt.Fprintf(w, "publish to %s failed: %s\n", r.Platform, r.Error)
		}
	}
	printWarnings(w, result.Warnings)
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "%d warning(s):\n", len(warnings))
	for _, warn := range warnings {
		fmt.Fprintf(w, "  - %s\n", warn)
	}
}

// exitCode maps run errors onto process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, blog.ErrInputInvalid):
		return 2
	case errors.Is(err, blog.ErrCanceled):
		return 130
	default:
		return 1
	}
}

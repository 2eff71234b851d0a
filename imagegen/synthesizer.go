// Package imagegen turns planned image prompts into binary image assets.
package imagegen

import (
	"context"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"auto_blog_publisher/blog"
)

const defaultConcurrency = 3

// ImageGenerator is the single image-generation capability.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt blog.ImagePrompt) ([]byte, error)
}

// Options configures a Synthesizer.
type Options struct {
	Concurrency int
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Synthesizer submits every prompt independently, once, with bounded concurrency.
type Synthesizer struct {
	gen    ImageGenerator
	opts   Options
	logger *zap.Logger
}

func New(gen ImageGenerator, opts Options) *Synthesizer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gen: gen, opts: opts, logger: logger.Named("imagegen")}
}

// Synthesize returns the assets keyed by prompt key. Failed prompts are
// omitted from the mapping and reported as warnings in prompt order.
func (s *Synthesizer) Synthesize(ctx context.Context, prompts []blog.ImagePrompt) (map[string]blog.ImageAsset, []string) {
	assets := make([]blog.ImageAsset, len(prompts))
	errs := make([]error, len(prompts))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, p := range prompts {
		g.Go(func() error {
			assets[i], errs[i] = s.render(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]blog.ImageAsset, len(prompts))
	var warnings blog.Warnings
	for i, p := range prompts {
		if errs[i] != nil {
			s.logger.Warn("image generation failed",
				zap.String("prompt", p.Key()),
				zap.String("kind", blog.Kind(errs[i])),
				zap.Error(errs[i]))
			warnings.Addf("images", "prompt %q failed: %v", p.Key(), errs[i])
			continue
		}
		out[p.Key()] = assets[i]
	}
	s.logger.Info("images rendered", zap.Int("ok", len(out)), zap.Int("failed", len(warnings)))
	return out, warnings
}

func (s *Synthesizer) render(ctx context.Context, p blog.ImagePrompt) (blog.ImageAsset, error) {
	if s.gen == nil {
		return blog.ImageAsset{}, blog.Unavailable(errNoGenerator)
	}
	data, err := blog.WithTimeout(ctx, s.opts.CallTimeout, func(ctx context.Context) ([]byte, error) {
		return s.gen.Generate(ctx, p)
	})
	if err != nil {
		return blog.ImageAsset{}, blog.Unavailable(err)
	}
	if len(data) == 0 {
		return blog.ImageAsset{}, blog.Malformed("empty image")
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return blog.ImageAsset{}, blog.Malformed("image service returned %s", mime.String())
	}
	return blog.ImageAsset{PromptKey: p.Key(), Data: data, MIMEType: mime.String()}, nil
}

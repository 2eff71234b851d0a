// Package publisher pushes a finished document to external platforms.
// Each target is attempted independently and yields exactly one receipt.
package publisher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
)

// Payload is the platform-specific form of a document.
type Payload struct {
	Platform blog.Platform
	Title    string
	// Markdown is the full article; embedded images use AssetScheme URLs.
	Markdown string
	// Summary is the short post text (LinkedIn).
	Summary string
	// Images holds the assets Markdown refers to.
	Images map[string]blog.ImageAsset
	// Cover is the cover image, if one was rendered.
	Cover *blog.ImageAsset
	Tags  []string
}

// Client is the SocialPublish capability of one platform.
type Client interface {
	Publish(ctx context.Context, payload Payload) (remoteID string, err error)
}

// Options configures a Publisher.
type Options struct {
	Clients map[blog.Platform]Client
	// Summarizer writes the LinkedIn summary; nil uses a digest of the document.
	Summarizer generator.LLMClient
	Tags       []string
	// CallTimeout bounds one platform publish, uploads included.
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Publisher is the publishing stage.
type Publisher struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{opts: opts, logger: logger.Named("publisher")}
}

// Publish attempts every distinct target in order. An empty target set
// returns no receipts and makes no calls.
func (p *Publisher) Publish(ctx context.Context, doc blog.Document, images map[string]blog.ImageAsset, targets []blog.Platform) ([]blog.Receipt, []string) {
	receipts := []blog.Receipt{}
	if len(targets) == 0 {
		return receipts, nil
	}

	var warnings blog.Warnings
	var summary *string
	seen := make(map[blog.Platform]bool, len(targets))
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true

		client := p.opts.Clients[target]
		if client == nil {
			err := fmt.Errorf("no %s client configured", target)
			receipts = append(receipts, failed(target, err))
			warnings.Addf("publish", "%s failed: %v", target, err)
			continue
		}

		payload := Payload{Platform: target, Title: doc.Title, Tags: p.opts.Tags}
		switch target {
		case blog.PlatformMedium:
			payload.Markdown, payload.Images = mediumMarkdown(doc, images)
		case blog.PlatformLinkedIn:
			if summary == nil {
				s, warn := p.summarize(ctx, doc)
				warnings.Add(warn...)
				summary = &s
			}
			payload.Summary = *summary
			if cover, ok := images[doc.CoverRef]; ok && doc.CoverRef != "" {
				payload.Cover = &cover
			}
		}

		// clients retry rate-limited requests themselves, one HTTP call at a time
		id, err := blog.WithTimeout(ctx, p.opts.CallTimeout, func(ctx context.Context) (string, error) {
			return client.Publish(ctx, payload)
		})
		if err != nil {
			p.logger.Warn("publish failed",
				zap.String("platform", string(target)),
				zap.String("kind", blog.Kind(err)),
				zap.Error(err))
			receipts = append(receipts, failed(target, err))
			warnings.Addf("publish", "%s failed: %v", target, err)
			continue
		}
		p.logger.Info("published", zap.String("platform", string(target)), zap.String("remote_id", id))
		receipts = append(receipts, blog.Receipt{Platform: target, Status: blog.StatusOK, RemoteID: id})
	}
	return receipts, warnings
}

func failed(target blog.Platform, err error) blog.Receipt {
	return blog.Receipt{Platform: target, Status: blog.StatusFailed, Error: err.Error()}
}

// mediumMarkdown renders the full document, pointing images at AssetScheme URLs
// for the assets that exist. Unresolved refs render without an image.
func mediumMarkdown(doc blog.Document, images map[string]blog.ImageAsset) (string, map[string]blog.ImageAsset) {
	used := make(map[string]blog.ImageAsset)
	md := doc.Markdown(func(key string) string {
		asset, ok := images[key]
		if !ok {
			return ""
		}
		used[key] = asset
		return AssetScheme + key
	})
	return md, used
}

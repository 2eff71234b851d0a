package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/config"
	"auto_blog_publisher/generator"
	"auto_blog_publisher/imagegen"
	"auto_blog_publisher/pipeline"
)

func TestBuildLLM(t *testing.T) {
	cfg := config.Default()
	llm, err := buildLLM(cfg)
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	cfg.LLM = config.LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k"}
	_, err = buildLLM(cfg)
	assert.ErrorContains(t, err, "base_url")

	cfg.LLM.BaseURL = "https://api.deepseek.com"
	llm, err = buildLLM(cfg)
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)

	cfg.LLM.Provider = "gemini"
	_, err = buildLLM(cfg)
	assert.Error(t, err)
}

func TestBuildPublisherRegistersConfiguredPlatforms(t *testing.T) {
	cfg := config.Default()
	cfg.Publish.LinkedIn = config.LinkedInConfig{Token: "t", AuthorURN: "not-a-urn"}
	_, err := buildPublisher(cfg, nil, nil, zap.NewNop())
	assert.Error(t, err)

	cfg.Publish.LinkedIn.AuthorURN = "urn:li:person:1"
	p, err := buildPublisher(cfg, nil, nil, zap.NewNop())
	require.NoError(t, err)
	// medium has no token, so it fails without any network call
	receipts, _ := p.Publish(context.Background(), blog.Document{Title: "x"}, nil, []blog.Platform{blog.PlatformMedium})
	require.Len(t, receipts, 1)
	assert.Contains(t, receipts[0].Error, "no medium client")
}

func TestBuildCoordinatorMock(t *testing.T) {
	cfg := config.Default()
	var states []pipeline.State
	c, err := buildCoordinator(cfg, zap.NewNop(), func(_ string, s pipeline.State) { states = append(states, s) })
	require.NoError(t, err)

	// a canceled context stops before any network access
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Run(ctx, pipeline.Request{Topic: "Go generics"})
	assert.ErrorIs(t, err, blog.ErrCanceled)
	assert.Equal(t, pipeline.Canceled, states[len(states)-1])
}

func TestWriteOutput(t *testing.T) {
	png, err := imagegen.MockImages{}.Generate(context.Background(), blog.ImagePrompt{SectionRef: blog.CoverRef})
	require.NoError(t, err)
	result := blog.Result{
		Document: blog.Document{
			Title:    "Go Generics",
			CoverRef: blog.CoverRef,
			Sections: []blog.Section{{Heading: "Introduction", Body: "Generics landed.", ImageRef: "section-1"}},
		},
		Images: map[string]blog.ImageAsset{blog.CoverRef: {PromptKey: blog.CoverRef, Data: png, MIMEType: "image/png"}},
	}

	dir := filepath.Join(t.TempDir(), "out")
	path, err := writeOutput(dir, result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "post.md"), path)

	md, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(md), "![Go Generics](cover.png)")
	assert.NotContains(t, string(md), "section-1")

	data, err := os.ReadFile(filepath.Join(dir, "cover.png"))
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(fmt.Errorf("%w: topic is empty", blog.ErrInputInvalid)))
	assert.Equal(t, 130, exitCode(fmt.Errorf("%w after researching: %w", blog.ErrCanceled, context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "info", parseLevel("").String())
	l, err := newLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
}

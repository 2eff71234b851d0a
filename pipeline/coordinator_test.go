package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
	"auto_blog_publisher/imagegen"
	"auto_blog_publisher/imageplan"
	"auto_blog_publisher/publisher"
	"auto_blog_publisher/research"
	"auto_blog_publisher/tone"
)

var errDown = errors.New("service down")

type webFake struct {
	results []research.WebResult
	err     error
}

func (w webFake) SearchWeb(context.Context, string, int) ([]research.WebResult, error) {
	return w.results, w.err
}

type socialFake struct {
	posts []research.SocialPost
	err   error
}

func (s socialFake) SearchSocial(context.Context, string, int) ([]research.SocialPost, error) {
	return s.posts, s.err
}

// llmFake answers by prompt kind; a nil func means that kind fails.
type llmFake struct {
	title, label, section func() (string, error)
}

func (l llmFake) Complete(_ context.Context, p generator.Prompt) (string, error) {
	var fn func() (string, error)
	switch {
	case len(p.Constraints.AllowedLabels) > 0:
		fn = l.label
	case strings.Contains(p.System, "titles"):
		fn = l.title
	default:
		fn = l.section
	}
	if fn == nil {
		return "", blog.Unavailable(errDown)
	}
	return fn()
}

type imagesFake struct {
	fail map[string]bool
}

func (f imagesFake) Generate(ctx context.Context, p blog.ImagePrompt) ([]byte, error) {
	if f.fail == nil || f.fail[p.Key()] {
		return nil, blog.Unavailable(errDown)
	}
	return imagegen.MockImages{}.Generate(ctx, p)
}

func words(n int) string {
	var sb strings.Builder
	for i := range n {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("word")
		if (i+1)%10 == 0 {
			sb.WriteString(".")
		}
	}
	return sb.String()
}

func ok(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

type harness struct {
	web         research.WebSearcher
	social      research.SocialSearcher
	llm         generator.LLMClient
	images      imagegen.ImageGenerator
	publisher   Publisher
	researchOpt research.Options

	mu     sync.Mutex
	states []State
}

func (h *harness) coordinator(t *testing.T) *Coordinator {
	t.Helper()
	llm := generator.Guard(h.llm, generator.CallPolicy{RetryDelay: time.Millisecond})
	agent, err := generator.NewAgent(llm, generator.Options{})
	require.NoError(t, err)
	opts := h.researchOpt
	opts.RetryDelay = time.Millisecond
	c, err := New(Stages{
		Researcher:  research.New(h.web, h.social, opts),
		Classifier:  tone.New(llm, tone.Options{}),
		Planner:     imageplan.New(imageplan.Options{}),
		Generator:   agent,
		Synthesizer: imagegen.New(h.images, imagegen.Options{}),
		Publisher:   h.publisher,
	}, Options{OnState: func(_ string, s State) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.states = append(h.states, s)
	}})
	require.NoError(t, err)
	return c
}

func hasWarning(warnings []string, prefix string) bool {
	for _, w := range warnings {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

func TestRunEverythingFailsButTitle(t *testing.T) {
	h := &harness{
		web:    webFake{err: blog.Unavailable(errDown)},
		social: socialFake{err: blog.Unavailable(errDown)},
		llm:    llmFake{title: ok("Tesla Q2 Earnings: What the Numbers Say")},
		images: imagesFake{},
	}
	res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Tesla Q2 earnings"})
	require.NoError(t, err)

	require.Len(t, res.Document.Sections, 1)
	assert.True(t, res.Document.Sections[0].Placeholder)
	assert.NotEmpty(t, res.Document.Sections[0].Body)
	assert.Equal(t, "Tesla Q2 Earnings: What the Numbers Say", res.Document.Title)
	assert.Equal(t, blog.StyleProfessional, res.Document.Style)
	assert.Empty(t, res.Images)
	assert.Empty(t, res.Receipts)

	assert.True(t, hasWarning(res.Warnings, "research: "), res.Warnings)
	assert.True(t, hasWarning(res.Warnings, "classify: "), res.Warnings)
	assert.True(t, hasWarning(res.Warnings, "generate: "), res.Warnings)
	assert.True(t, hasWarning(res.Warnings, "images: "), res.Warnings)
	assert.Equal(t, []State{Researching, ClassifyingStyle, Planning, Generating, RenderingImages, Done}, h.states)
}

func TestRunTotalFailureFallsBackToTopicTitle(t *testing.T) {
	for _, topic := range []string{"x", "Kubernetes autoscaling", "  spaced topic  ", "日本語のトピック"} {
		t.Run(topic, func(t *testing.T) {
			h := &harness{
				web:    webFake{err: blog.Unavailable(errDown)},
				social: socialFake{err: blog.Unavailable(errDown)},
				llm:    llmFake{},
				images: imagesFake{},
			}
			res, err := h.coordinator(t).Run(context.Background(), Request{Topic: topic})
			require.NoError(t, err)
			require.NotEmpty(t, res.Document.Sections)
			assert.NotEmpty(t, strings.TrimSpace(res.Document.Sections[0].Body))
			assert.Equal(t, strings.TrimSpace(topic), res.Document.Title)
			assert.True(t, hasWarning(res.Warnings, "title: "))
		})
	}
}

func TestRunTeslaProfessional(t *testing.T) {
	posts := []research.SocialPost{
		{Text: "Tesla beat delivery estimates", Author: "u/a"},
		{Text: "Margins are the story this quarter", Author: "u/b"},
		{Text: "Energy storage numbers look huge", Author: "u/c"},
	}
	h := &harness{
		web: webFake{results: []research.WebResult{
			{Title: "Q2 report", Text: "Revenue rose 5%", URL: "https://ir.example/q2"},
			{Title: "Analysis", Text: "Automotive margins fell", URL: "https://news.example/a"},
		}},
		social: socialFake{posts: posts},
		llm:    llmFake{title: ok("Tesla Q2 Earnings Review"), label: ok("casual"), section: ok(words(500))},
		images: imagesFake{fail: map[string]bool{}},
	}
	res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Tesla Q2 earnings", Style: blog.StyleProfessional})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	doc := res.Document
	assert.Equal(t, blog.StyleProfessional, doc.Style)
	require.True(t, doc.Sections[0].IsIntro())
	require.Len(t, doc.Sections[0].Snippets, 3)
	for i, p := range posts {
		assert.Equal(t, p.Text, doc.Sections[0].Snippets[i].Text)
		assert.Contains(t, doc.Sections[0].Body, p.Text)
	}

	generated := doc.GeneratedSections()
	require.GreaterOrEqual(t, len(generated), 3)
	band := blog.StyleProfessional.Profile()
	for _, s := range generated {
		n := blog.CountWords(s.Body)
		assert.GreaterOrEqual(t, n, band.MinWords, s.Heading)
		assert.LessOrEqual(t, n, band.MaxWords, s.Heading)
	}
	assert.NoError(t, doc.Validate())
	assert.Len(t, res.Images, imageplan.DefaultMaxImages)
}

func TestRunCoverImageFails(t *testing.T) {
	h := &harness{
		web:    webFake{results: []research.WebResult{{Text: "context"}}},
		social: socialFake{},
		llm:    llmFake{title: ok("Title"), label: ok("simple"), section: ok(words(200))},
		images: imagesFake{fail: map[string]bool{blog.CoverRef: true}},
	}
	clean := &harness{
		web:    h.web,
		social: h.social,
		llm:    h.llm,
		images: imagesFake{fail: map[string]bool{}},
	}
	res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Home espresso"})
	require.NoError(t, err)
	baseline, err := clean.coordinator(t).Run(context.Background(), Request{Topic: "Home espresso"})
	require.NoError(t, err)

	assert.Contains(t, res.Images, "section-1")
	assert.NotContains(t, res.Images, blog.CoverRef)
	for key := range res.Images {
		assert.NotEqual(t, blog.CoverRef, key)
	}
	var imageWarnings []string
	for _, w := range res.Warnings {
		if strings.HasPrefix(w, "images: ") {
			imageWarnings = append(imageWarnings, w)
		}
	}
	require.Len(t, imageWarnings, 1)
	assert.Contains(t, imageWarnings[0], `"cover"`)

	assert.Equal(t, baseline.Document.Sections, res.Document.Sections)
	assert.Equal(t, "section-1", res.Document.Sections[0].ImageRef)
}

func TestRunNoSocialNoIntro(t *testing.T) {
	h := &harness{
		web:    webFake{results: []research.WebResult{{Text: "context"}}},
		social: socialFake{},
		llm:    llmFake{title: ok("Title"), label: ok("casual"), section: ok(words(300))},
		images: imagesFake{fail: map[string]bool{}},
	}
	res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Go generics", SkipImages: true})
	require.NoError(t, err)
	for _, s := range res.Document.Sections {
		assert.False(t, s.IsIntro())
		assert.NotEqual(t, generator.IntroHeading, s.Heading)
	}
	assert.Empty(t, res.Images)
	assert.Equal(t, blog.StyleCasual, res.Document.Style)
}

func TestRunSyntheticSocialIsFlagged(t *testing.T) {
	h := &harness{
		web:         webFake{err: blog.Unavailable(errDown)},
		social:      socialFake{},
		llm:         llmFake{title: ok("Title"), label: ok("simple"), section: ok(words(200))},
		images:      imagesFake{fail: map[string]bool{}},
		researchOpt: research.Options{Fallback: research.SyntheticFallback{MinItems: 3}},
	}
	res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Go generics"})
	require.NoError(t, err)
	intro := res.Document.Sections[0]
	require.True(t, intro.IsIntro())
	for _, s := range intro.Snippets {
		assert.True(t, s.Synthetic)
		assert.True(t, strings.HasPrefix(s.Text, research.SyntheticPrefix))
	}
	assert.True(t, hasWarning(res.Warnings, "research: no social posts found"))
}

func TestRunInvalidInput(t *testing.T) {
	cases := []Request{
		{Topic: ""},
		{Topic: "   \t\n"},
		{Topic: strings.Repeat("a", MaxTopicLength+1)},
		{Topic: "Go\n## Injected heading"},
		{Topic: "Go\x00tabs\tand nulls"},
		{Topic: "ok", Style: "humorous"},
		{Topic: "ok", Targets: []blog.Platform{"myspace"}},
	}
	for i, req := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			h := &harness{llm: llmFake{}, images: imagesFake{}}
			_, err := h.coordinator(t).Run(context.Background(), req)
			assert.ErrorIs(t, err, blog.ErrInputInvalid)
			assert.Equal(t, []State{Failed}, h.states)
		})
	}
}

func TestValidateTopic(t *testing.T) {
	topic, err := ValidateTopic("  Rust vs Go: ünïcode & C++ in 2026 ")
	require.NoError(t, err)
	assert.Equal(t, "Rust vs Go: ünïcode & C++ in 2026", topic)

	for _, bad := range []string{"line\nbreak", "carriage\rreturn", "bell\a", "del\x7f"} {
		_, err := ValidateTopic(bad)
		assert.ErrorIs(t, err, blog.ErrInputInvalid, "%q", bad)
		assert.ErrorContains(t, err, "control characters")
	}
}

func TestRunCanceledBeforeStart(t *testing.T) {
	h := &harness{llm: llmFake{}, images: imagesFake{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.coordinator(t).Run(ctx, Request{Topic: "Go"})
	assert.ErrorIs(t, err, blog.ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []State{Canceled}, h.states)
}

type cancelingWeb struct {
	cancel context.CancelFunc
}

func (c cancelingWeb) SearchWeb(ctx context.Context, _ string, _ int) ([]research.WebResult, error) {
	c.cancel()
	// the stage call itself is not interrupted
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []research.WebResult{{Text: "finished despite cancel"}}, nil
}

func TestRunCanceledAtStageBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := &harness{
		web:    cancelingWeb{cancel: cancel},
		social: socialFake{},
		llm:    llmFake{},
		images: imagesFake{},
	}
	res, err := h.coordinator(t).Run(ctx, Request{Topic: "Go"})
	assert.ErrorIs(t, err, blog.ErrCanceled)
	assert.Equal(t, []State{Researching, Canceled}, h.states)
	// web research drained; only the empty social search warned
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "social search")
}

type recordingPublisher struct {
	targets []blog.Platform
}

func (r *recordingPublisher) Publish(_ context.Context, _ blog.Document, _ map[string]blog.ImageAsset, targets []blog.Platform) ([]blog.Receipt, []string) {
	r.targets = targets
	out := make([]blog.Receipt, len(targets))
	for i, t := range targets {
		out[i] = blog.Receipt{Platform: t, Status: blog.StatusOK, RemoteID: "id-" + string(t)}
	}
	return out, nil
}

func TestRunPublishing(t *testing.T) {
	newHarness := func() *harness {
		return &harness{
			web:    webFake{results: []research.WebResult{{Text: "context"}}},
			social: socialFake{},
			llm:    llmFake{title: ok("Title"), label: ok("simple"), section: ok(words(200))},
			images: imagesFake{fail: map[string]bool{}},
		}
	}

	t.Run("opt in only", func(t *testing.T) {
		pub := &recordingPublisher{}
		h := newHarness()
		h.publisher = pub
		res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Go"})
		require.NoError(t, err)
		assert.Empty(t, res.Receipts)
		assert.Nil(t, pub.targets)
		assert.NotContains(t, h.states, Publishing)
	})
	t.Run("targets", func(t *testing.T) {
		pub := &recordingPublisher{}
		h := newHarness()
		h.publisher = pub
		res, err := h.coordinator(t).Run(context.Background(), Request{
			Topic:   "Go",
			Targets: []blog.Platform{blog.PlatformMedium, blog.PlatformLinkedIn},
		})
		require.NoError(t, err)
		require.Len(t, res.Receipts, 2)
		assert.Equal(t, "id-medium", res.Receipts[0].RemoteID)
		assert.Contains(t, h.states, Publishing)
	})
	t.Run("failing platform", func(t *testing.T) {
		h := newHarness()
		h.publisher = publisher.New(publisher.Options{})
		res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Go", Targets: []blog.Platform{blog.PlatformLinkedIn}})
		require.NoError(t, err)
		require.Len(t, res.Receipts, 1)
		assert.Equal(t, blog.StatusFailed, res.Receipts[0].Status)
		assert.True(t, hasWarning(res.Warnings, "publish: "))
		assert.Equal(t, Done, h.states[len(h.states)-1])
	})
	t.Run("no publisher", func(t *testing.T) {
		h := newHarness()
		res, err := h.coordinator(t).Run(context.Background(), Request{Topic: "Go", Targets: []blog.Platform{blog.PlatformMedium}})
		require.NoError(t, err)
		require.Len(t, res.Receipts, 1)
		assert.Equal(t, blog.StatusFailed, res.Receipts[0].Status)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "classifying_style", ClassifyingStyle.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, Canceled.Terminal())
	assert.False(t, Publishing.Terminal())

	text, err := RenderingImages.MarshalText()
	require.NoError(t, err)
	var back State
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, RenderingImages, back)
	assert.Error(t, back.UnmarshalText([]byte("sleeping")))
}

func TestNewRequiresStages(t *testing.T) {
	_, err := New(Stages{}, Options{})
	assert.Error(t, err)
}

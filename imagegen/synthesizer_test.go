package imagegen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_publisher/blog"
)

type scriptedImages struct {
	mu    sync.Mutex
	fail  map[string]error
	raw   map[string][]byte
	calls map[string]int
}

func (s *scriptedImages) Generate(ctx context.Context, p blog.ImagePrompt) ([]byte, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[p.Key()]++
	err, raw := s.fail[p.Key()], s.raw[p.Key()]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if raw != nil {
		return raw, nil
	}
	return MockImages{}.Generate(ctx, p)
}

func prompts(refs ...string) []blog.ImagePrompt {
	out := make([]blog.ImagePrompt, len(refs))
	for i, r := range refs {
		out[i] = blog.ImagePrompt{SectionRef: r, Text: "prompt for " + r}
	}
	return out
}

func TestSynthesizeCoverFails(t *testing.T) {
	gen := &scriptedImages{fail: map[string]error{blog.CoverRef: blog.RateLimited(errors.New("429"))}}
	assets, warnings := New(gen, Options{}).Synthesize(context.Background(), prompts(blog.CoverRef, "section-1"))

	require.Len(t, assets, 1)
	asset, ok := assets["section-1"]
	require.True(t, ok)
	assert.Equal(t, "section-1", asset.PromptKey)
	assert.Equal(t, "image/png", asset.MIMEType)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `images: prompt "cover" failed`)
	// no retries beyond the single attempt
	assert.Equal(t, 1, gen.calls[blog.CoverRef])
}

func TestSynthesizeRejectsNonImage(t *testing.T) {
	gen := &scriptedImages{raw: map[string][]byte{"section-1": []byte("<html>quota exceeded</html>")}}
	assets, warnings := New(gen, Options{}).Synthesize(context.Background(), prompts("section-1", "section-2"))
	assert.NotContains(t, assets, "section-1")
	assert.Contains(t, assets, "section-2")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "section-1")
}

func TestSynthesizeWarningsInPromptOrder(t *testing.T) {
	gen := &scriptedImages{fail: map[string]error{
		"section-1": errors.New("a"),
		"section-3": errors.New("b"),
	}}
	_, warnings := New(gen, Options{Concurrency: 4}).Synthesize(context.Background(), prompts("cover", "section-1", "section-2", "section-3"))
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "section-1")
	assert.Contains(t, warnings[1], "section-3")
}

func TestSynthesizeNilGenerator(t *testing.T) {
	assets, warnings := New(nil, Options{}).Synthesize(context.Background(), prompts("cover"))
	assert.Empty(t, assets)
	assert.Len(t, warnings, 1)
}

type slowImages struct {
	inFlight, peak atomic.Int32
}

func (s *slowImages) Generate(ctx context.Context, p blog.ImagePrompt) ([]byte, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		old := s.peak.Load()
		if n <= old || s.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return MockImages{}.Generate(ctx, p)
}

func TestSynthesizeBoundsConcurrency(t *testing.T) {
	gen := &slowImages{}
	assets, warnings := New(gen, Options{Concurrency: 2}).
		Synthesize(context.Background(), prompts("cover", "section-1", "section-2", "section-3", "section-4"))
	assert.Len(t, assets, 5)
	assert.Empty(t, warnings)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
}

type blockingImages struct{}

func (blockingImages) Generate(ctx context.Context, _ blog.ImagePrompt) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSynthesizeTimeout(t *testing.T) {
	_, warnings := New(blockingImages{}, Options{CallTimeout: 10 * time.Millisecond}).
		Synthesize(context.Background(), prompts("cover"))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "deadline exceeded")
}

func TestMockImagesDistinctPerKey(t *testing.T) {
	a, err := MockImages{}.Generate(context.Background(), blog.ImagePrompt{SectionRef: "cover"})
	require.NoError(t, err)
	b, err := MockImages{}.Generate(context.Background(), blog.ImagePrompt{SectionRef: "section-1"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

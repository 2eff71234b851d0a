package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_publisher/blog"
)

type scriptedLLM struct {
	replies []reply
	calls   int
}

type reply struct {
	out string
	err error
}

func (s *scriptedLLM) Complete(context.Context, Prompt) (string, error) {
	r := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	return r.out, r.err
}

func TestGuardEnforcesLabels(t *testing.T) {
	llm := Guard(&scriptedLLM{replies: []reply{{out: "  Casual.\n"}}}, CallPolicy{})
	out, err := llm.Complete(context.Background(), Prompt{Constraints: Constraints{AllowedLabels: []string{"professional", "casual"}}})
	require.NoError(t, err)
	assert.Equal(t, "casual", out)

	llm = Guard(&scriptedLLM{replies: []reply{{out: "I would go with casual"}}}, CallPolicy{})
	_, err = llm.Complete(context.Background(), Prompt{Constraints: Constraints{AllowedLabels: []string{"casual"}}})
	assert.ErrorIs(t, err, blog.ErrUpstreamMalformed)
}

func TestGuardEnforcesMaxTokens(t *testing.T) {
	llm := Guard(&scriptedLLM{replies: []reply{{out: "one two\n\nthree four five"}}}, CallPolicy{})
	out, err := llm.Complete(context.Background(), Prompt{Constraints: Constraints{MaxTokens: 3}})
	require.NoError(t, err)
	assert.Equal(t, "one two\n\nthree", out)
}

func TestGuardRejectsEmpty(t *testing.T) {
	llm := Guard(&scriptedLLM{replies: []reply{{out: "   "}}}, CallPolicy{})
	_, err := llm.Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, blog.ErrUpstreamMalformed)
}

func TestGuardRetriesRateLimitOnce(t *testing.T) {
	inner := &scriptedLLM{replies: []reply{{err: blog.RateLimited(nil)}, {out: "fine"}}}
	out, err := Guard(inner, CallPolicy{RetryDelay: time.Millisecond}).Complete(context.Background(), Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardClassifiesUnknownErrors(t *testing.T) {
	inner := &scriptedLLM{replies: []reply{{err: errors.New("connection reset")}}}
	_, err := Guard(inner, CallPolicy{}).Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, blog.ErrUpstreamUnavailable)
	assert.Equal(t, 1, inner.calls)
}

type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, _ Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGuardTimesOut(t *testing.T) {
	start := time.Now()
	_, err := Guard(blockingLLM{}, CallPolicy{Timeout: 10 * time.Millisecond}).Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, blog.ErrUpstreamUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPostProcessSection(t *testing.T) {
	body, err := PostProcessSection("```markdown\n## Intro\nReal body text.\n```", "Intro", blog.StyleSimple)
	require.NoError(t, err)
	assert.Equal(t, "Real body text.", body)

	_, err = PostProcessSection("## Only a heading", "Intro", blog.StyleSimple)
	assert.ErrorIs(t, err, blog.ErrUpstreamMalformed)
}

func TestPostProcessTitle(t *testing.T) {
	cases := map[string]string{
		"# Hello World\n\nbody":    "Hello World",
		"Title: \"Quoted\"":        "Quoted",
		"\n\n  **Bold title**  \n": "Bold title",
	}
	for in, want := range cases {
		got, err := PostProcessTitle(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := PostProcessTitle("  \n ")
	assert.ErrorIs(t, err, blog.ErrUpstreamMalformed)

	long, err := PostProcessTitle(strings.Repeat("word ", 60))
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(long)), maxTitleRunes+1)
}

func TestDigest(t *testing.T) {
	md := "# Title\n\n> quoted post\n\nFirst paragraph line one\nline two.\n\nSecond paragraph."
	assert.Equal(t, "First paragraph line one line two.", Digest(md, 200))
	assert.True(t, strings.HasSuffix(Digest(md, 10), "…"))
}

func TestMockLLM(t *testing.T) {
	ctx := context.Background()
	label, err := MockLLM{}.Complete(ctx, Prompt{Constraints: Constraints{AllowedLabels: []string{"simple"}}})
	require.NoError(t, err)
	assert.Equal(t, "simple", label)

	title, err := MockLLM{}.Complete(ctx, BuildTitlePrompt("Go generics", blog.StyleCasual))
	require.NoError(t, err)
	assert.Equal(t, "A Closer Look at Go generics", title)

	p := BuildSectionPrompt("Go generics", blog.StyleProfessional, blog.StyleProfessional.Outline("Go generics", 0), 0, nil)
	body, err := MockLLM{}.Complete(ctx, p)
	require.NoError(t, err)
	n := blog.CountWords(body)
	assert.GreaterOrEqual(t, n, blog.StyleProfessional.Profile().MinWords)
	assert.LessOrEqual(t, n, blog.StyleProfessional.Profile().MaxWords)
}

func TestClassifyOpenAIError(t *testing.T) {
	assert.ErrorIs(t, ClassifyOpenAIError(errors.New("dial tcp: refused")), blog.ErrUpstreamUnavailable)
}

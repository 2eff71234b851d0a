package tone

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
)

type answerLLM struct {
	out    string
	err    error
	prompt generator.Prompt
}

func (a *answerLLM) Complete(_ context.Context, p generator.Prompt) (string, error) {
	a.prompt = p
	return a.out, a.err
}

func TestClassifyLabels(t *testing.T) {
	cases := map[string]blog.Style{
		"casual":           blog.StyleCasual,
		" Simple.\n":       blog.StyleSimple,
		"**PROFESSIONAL**": blog.StyleProfessional,
	}
	for out, want := range cases {
		style, warnings := New(&answerLLM{out: out}, Options{}).Classify(context.Background(), "Go", nil)
		assert.Equal(t, want, style, out)
		assert.Empty(t, warnings, out)
	}
}

func TestClassifyFallsBack(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		style, warnings := New(&answerLLM{err: blog.Unavailable(errors.New("timeout"))}, Options{}).
			Classify(context.Background(), "Go", nil)
		assert.Equal(t, blog.StyleProfessional, style)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "classify: ")
	})
	t.Run("out of domain", func(t *testing.T) {
		style, warnings := New(&answerLLM{out: "humorous"}, Options{}).Classify(context.Background(), "Go", nil)
		assert.Equal(t, blog.StyleProfessional, style)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "humorous")
	})
	t.Run("nil client", func(t *testing.T) {
		style, warnings := New(nil, Options{}).Classify(context.Background(), "Go", nil)
		assert.Equal(t, blog.StyleProfessional, style)
		assert.Len(t, warnings, 1)
	})
}

func TestClassifyThroughGuard(t *testing.T) {
	llm := generator.Guard(&answerLLM{out: "I would say casual, because..."}, generator.CallPolicy{})
	style, warnings := New(llm, Options{}).Classify(context.Background(), "Go", nil)
	assert.Equal(t, blog.StyleProfessional, style)
	assert.Len(t, warnings, 1)
}

func TestBuildPrompt(t *testing.T) {
	snippets := []blog.Snippet{
		{Source: blog.SourceWeb, Text: "Go 1.25 release notes"},
		{Source: blog.SourceSocial, Text: "loving the new iterators"},
	}
	p := BuildPrompt("Go generics", snippets)
	assert.Equal(t, []string{"professional", "casual", "simple"}, p.Constraints.AllowedLabels)
	assert.Contains(t, p.User, "Topic: Go generics")
	assert.Contains(t, p.User, "(social) loving the new iterators")
	assert.Contains(t, p.User, "(web) Go 1.25 release notes")
}

func FuzzClassify(f *testing.F) {
	for _, seed := range []string{"", "casual", "Simple", "professional\n", "neutral", "casual simple", "\x00\xff"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, out string) {
		for _, llm := range []generator.LLMClient{
			&answerLLM{out: out},
			generator.Guard(&answerLLM{out: out}, generator.CallPolicy{}),
		} {
			style, _ := New(llm, Options{}).Classify(context.Background(), "topic", nil)
			_, ok := blog.ParseStyle(string(style))
			if !ok {
				t.Fatalf("classify returned %q for output %q", style, out)
			}
		}
	})
}

package generator

import (
	"context"
	"strings"
	"time"

	"auto_blog_publisher/blog"
)

// LLMClient abstracts the text generation service so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the base configuration handed to concrete clients.
type LLMSettings struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
}

// CallPolicy bounds every generation call.
type CallPolicy struct {
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Guard wraps llm so each call gets a deadline, one retry when rate limited,
// and enforcement of the prompt constraints the service may have ignored.
func Guard(llm LLMClient, policy CallPolicy) LLMClient {
	if g, ok := llm.(guarded); ok {
		llm = g.next
	}
	return guarded{next: llm, policy: policy}
}

type guarded struct {
	next   LLMClient
	policy CallPolicy
}

func (g guarded) Complete(ctx context.Context, prompt Prompt) (string, error) {
	out, err := blog.CallWithRetry(ctx, g.policy.RetryDelay, func(ctx context.Context) (string, error) {
		return blog.WithTimeout(ctx, g.policy.Timeout, func(ctx context.Context) (string, error) {
			return g.next.Complete(ctx, prompt)
		})
	})
	if err != nil {
		return "", blog.Unavailable(err)
	}
	return enforce(out, prompt.Constraints)
}

// enforce applies hard output limits the service may have ignored.
func enforce(out string, c Constraints) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", blog.Malformed("empty completion")
	}
	if len(c.AllowedLabels) > 0 {
		label := normalizeLabel(out)
		for _, allowed := range c.AllowedLabels {
			if label == strings.ToLower(allowed) {
				return allowed, nil
			}
		}
		return "", blog.Malformed("completion %q is not one of %v", blog.Truncate(out, 40), c.AllowedLabels)
	}
	if c.MaxTokens > 0 && blog.CountWords(out) > c.MaxTokens {
		out = blog.FirstWords(out, c.MaxTokens)
	}
	return out, nil
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(s, " \t\r\n.\"'`*")
}

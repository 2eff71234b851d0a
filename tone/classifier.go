// Package tone infers the writing style of a post from its topic and research.
package tone

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
)

const (
	maxPromptSnippets = 5
	snippetExcerpt    = 200
)

// Options configures a Classifier.
type Options struct {
	Logger *zap.Logger
}

// Classifier delegates style classification to the LLM with a closed label set.
type Classifier struct {
	llm    generator.LLMClient
	logger *zap.Logger
}

func New(llm generator.LLMClient, opts Options) *Classifier {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{llm: llm, logger: logger.Named("tone")}
}

// Classify always returns one of blog.Styles. Any failure or out-of-domain
// answer falls back to professional and is reported as a warning.
func (c *Classifier) Classify(ctx context.Context, topic string, snippets []blog.Snippet) (blog.Style, []string) {
	var warnings blog.Warnings
	if c.llm == nil {
		warnings.Addf("classify", "no text generator configured; using %s", blog.StyleProfessional)
		return blog.StyleProfessional, warnings
	}

	out, err := c.llm.Complete(ctx, BuildPrompt(topic, snippets))
	if err != nil {
		c.logger.Warn("style classification failed", zap.Error(err), zap.String("kind", blog.Kind(err)))
		warnings.Addf("classify", "style classification failed, using %s: %v", blog.StyleProfessional, err)
		return blog.StyleProfessional, warnings
	}
	style, ok := blog.ParseStyle(strings.Trim(out, " \t\r\n.\"'`*"))
	if !ok {
		c.logger.Warn("style outside label set", zap.String("output", blog.Truncate(out, 60)))
		warnings.Addf("classify", "unexpected style %q, using %s", blog.Truncate(out, 40), blog.StyleProfessional)
		return blog.StyleProfessional, warnings
	}
	c.logger.Info("style classified", zap.String("topic", topic), zap.String("style", string(style)))
	return style, nil
}

// BuildPrompt asks for exactly one style label.
func BuildPrompt(topic string, snippets []blog.Snippet) generator.Prompt {
	labels := make([]string, 0, len(blog.Styles()))
	for _, s := range blog.Styles() {
		labels = append(labels, string(s))
	}

	var sb strings.Builder
	sb.WriteString("Analyze the following blog topic and determine the most appropriate writing style.\n\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\n", topic))
	if len(snippets) > 0 {
		sb.WriteString("\nWhat people are currently writing about it:\n")
		for i, s := range snippets {
			if i == maxPromptSnippets {
				break
			}
			sb.WriteString(fmt.Sprintf("- (%s) %s\n", s.Source, blog.Truncate(s.Text, snippetExcerpt)))
		}
	}
	sb.WriteString("\nChoose one of these styles:\n")
	for _, s := range blog.Styles() {
		sb.WriteString(fmt.Sprintf("- %s: %s; %s\n", s, s.Profile().Tone, audience[s]))
	}
	sb.WriteString("\nAnswer with the style name only.")

	return generator.Prompt{
		System: "You classify blog topics by writing style. Reply with exactly one word: " +
			strings.Join(labels, ", ") + ".",
		User:        sb.String(),
		Constraints: generator.Constraints{MaxTokens: 4, AllowedLabels: labels},
	}
}

var audience = map[blog.Style]string{
	blog.StyleProfessional: "structured and technical, suitable for experts",
	blog.StyleCasual:       "conversational and relatable, suitable for general audiences",
	blog.StyleSimple:       "plain language and concise, suitable for beginners",
}

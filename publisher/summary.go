package publisher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"auto_blog_publisher/blog"
	"auto_blog_publisher/generator"
)

// SummaryLimit caps the LinkedIn summary, in characters.
const SummaryLimit = 1000

// summarize writes the short post text in the document's style and falls back
// to a digest of the article when generation is unavailable.
func (p *Publisher) summarize(ctx context.Context, doc blog.Document) (string, []string) {
	md := doc.Markdown(nil)
	digest := generator.Digest(bodyMarkdown(doc), SummaryLimit)
	if p.opts.Summarizer == nil {
		return digest, nil
	}

	out, err := p.opts.Summarizer.Complete(ctx, buildSummaryPrompt(doc, md))
	if err != nil {
		p.logger.Warn("summary generation failed", zap.Error(err), zap.String("kind", blog.Kind(err)))
		var warnings blog.Warnings
		warnings.Addf("publish", "summary generation failed, using article digest: %v", err)
		return digest, warnings
	}
	return blog.Truncate(strings.TrimSpace(out), SummaryLimit), nil
}

// bodyMarkdown skips the introductory block so the digest starts with the article itself.
func bodyMarkdown(doc blog.Document) string {
	var sb strings.Builder
	for _, s := range doc.GeneratedSections() {
		if s.Placeholder {
			continue
		}
		sb.WriteString(strings.TrimSpace(s.Body))
		sb.WriteString("\n\n")
	}
	if sb.Len() == 0 {
		return doc.Title
	}
	return sb.String()
}

func buildSummaryPrompt(doc blog.Document, md string) generator.Prompt {
	profile := doc.Style.Profile()
	return generator.Prompt{
		System: "You write short social media posts that promote a blog article. Output plain text only, no hashtags block, no Markdown headings.",
		User: fmt.Sprintf("Write a %s summary of at most 150 words for this article.\n\n%s",
			profile.SummaryTone, blog.Truncate(md, 6000)),
		Constraints: generator.Constraints{MaxTokens: 150},
	}
}

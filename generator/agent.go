package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"auto_blog_publisher/blog"
)

const (
	// IntroHeading is the heading of the social-media introductory block.
	IntroHeading = "Recent Social Media Updates"
	// MaxIntroSnippets caps the social posts embedded in the introductory block.
	MaxIntroSnippets = 3

	defaultConcurrency = 3
)

// Options configures an Agent.
type Options struct {
	// Concurrency bounds in-flight section calls.
	Concurrency int
	// MaxSections trims the style outline; 0 keeps the full outline.
	MaxSections int
	Logger      *zap.Logger
	// Now is the clock for Document.CreatedAt.
	Now func() time.Time
}

// Request is the input of one document generation.
type Request struct {
	Topic    string
	Snippets []blog.Snippet
	Style    blog.Style
	// Outline overrides the style outline when set.
	Outline []string
	// Images are the planned prompts; their keys become section image refs.
	Images []blog.ImagePrompt
}

// Agent is the document generator: it turns topic, research and style into a Document.
type Agent struct {
	llm    LLMClient
	opts   Options
	logger *zap.Logger
}

func NewAgent(llm LLMClient, opts Options) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{llm: llm, opts: opts, logger: logger.Named("generator")}, nil
}

// Outline returns the ordered section headings for topic in style.
func (a *Agent) Outline(topic string, style blog.Style) []string {
	return style.Outline(topic, a.opts.MaxSections)
}

// Generate always returns a document with at least one non-empty section,
// plus the warnings for every degraded call.
func (a *Agent) Generate(ctx context.Context, req Request) (blog.Document, []string) {
	outline := req.Outline
	if len(outline) == 0 {
		outline = a.Outline(req.Topic, req.Style)
	}

	sections := make([]blog.Section, len(outline))
	sectionWarnings := make([][]string, len(outline))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i := range outline {
		g.Go(func() error {
			sections[i], sectionWarnings[i] = a.writeSection(ctx, req, outline, i)
			return nil
		})
	}
	_ = g.Wait()

	var warnings blog.Warnings
	failed := 0
	for i, s := range sections {
		warnings.Add(sectionWarnings[i]...)
		if s.Placeholder {
			failed++
		}
	}
	if failed == len(sections) {
		a.logger.Warn("all sections failed", zap.Int("sections", len(sections)))
		warnings.Addf("generate", "all %d sections failed; document reduced to a single placeholder section", len(sections))
		sections = []blog.Section{placeholderSection(outline[0], req.Topic)}
	}

	refs := make(map[string]int, len(sections))
	for i := range sections {
		refs[blog.SectionRef(i)] = i
	}
	doc := blog.Document{Style: req.Style, CreatedAt: a.opts.Now()}
	for _, p := range req.Images {
		if p.Key() == blog.CoverRef {
			doc.CoverRef = p.Key()
			continue
		}
		if i, ok := refs[p.Key()]; ok {
			sections[i].ImageRef = p.Key()
		}
	}

	if intro, ok := introSection(req.Snippets); ok {
		sections = append([]blog.Section{intro}, sections...)
	}
	doc.Sections = sections

	title, err := a.Title(ctx, req.Topic, req.Style)
	if err != nil {
		a.logger.Warn("title generation failed", zap.Error(err))
		warnings.Addf("title", "title generation failed, using the topic: %v", err)
		title = req.Topic
	}
	doc.Title = title

	if err := doc.Validate(); err != nil {
		a.logger.Error("generated document is invalid", zap.Error(err))
		warnings.Addf("generate", "document failed validation: %v", err)
	}
	return doc, warnings
}

// Title derives a short title from topic.
func (a *Agent) Title(ctx context.Context, topic string, style blog.Style) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildTitlePrompt(topic, style))
	if err != nil {
		return "", err
	}
	return PostProcessTitle(raw)
}

// writeSection makes one attempt with the full prompt and one with the simplified
// prompt before falling back to a placeholder. A body under the style's word band
// also triggers the second attempt; the longer of the two short bodies is kept.
func (a *Agent) writeSection(ctx context.Context, req Request, outline []string, i int) (blog.Section, []string) {
	heading := outline[i]
	minWords := req.Style.Profile().MinWords
	log := a.logger.With(zap.String("heading", heading), zap.Int("index", i))

	body, err := a.complete(ctx, BuildSectionPrompt(req.Topic, req.Style, outline, i, req.Snippets), heading, req.Style)
	if err == nil && blog.CountWords(body) >= minWords {
		return blog.Section{Heading: heading, Body: body}, nil
	}
	if err != nil {
		log.Info("section call failed, retrying with simplified prompt", zap.Error(err))
	} else {
		log.Info("section below word band, retrying with simplified prompt", zap.Int("words", blog.CountWords(body)))
	}

	retry, retryErr := a.complete(ctx, BuildSimplifiedSectionPrompt(req.Topic, req.Style, heading), heading, req.Style)
	if retryErr == nil && blog.CountWords(retry) >= minWords {
		return blog.Section{Heading: heading, Body: retry}, nil
	}
	if retryErr == nil && blog.CountWords(retry) > blog.CountWords(body) {
		body = retry
	}
	if body == "" {
		log.Warn("section generation failed", zap.Error(retryErr), zap.String("kind", blog.Kind(retryErr)))
		return placeholderSection(heading, req.Topic), []string{
			fmt.Sprintf("generate: section %q replaced by a placeholder: %v", heading, retryErr),
		}
	}
	n := blog.CountWords(body)
	log.Warn("section below word band", zap.Int("words", n), zap.Int("min", minWords))
	return blog.Section{Heading: heading, Body: body}, []string{
		fmt.Sprintf("generate: section %q is %d words, below the %d-word minimum", heading, n, minWords),
	}
}

func (a *Agent) complete(ctx context.Context, prompt Prompt, heading string, style blog.Style) (string, error) {
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return PostProcessSection(raw, heading, style)
}

func placeholderSection(heading, topic string) blog.Section {
	return blog.Section{
		Heading:     heading,
		Body:        fmt.Sprintf("This part of the article about %s could not be generated at this time.", topic),
		Placeholder: true,
	}
}

// introSection embeds up to MaxIntroSnippets social snippets verbatim.
// No snippets means no block.
func introSection(snippets []blog.Snippet) (blog.Section, bool) {
	social := blog.SocialSnippets(snippets)
	if len(social) == 0 {
		return blog.Section{}, false
	}
	if len(social) > MaxIntroSnippets {
		social = social[:MaxIntroSnippets]
	}
	return blog.Section{
		Heading:  IntroHeading,
		Body:     blog.IntroBody(social),
		Snippets: social,
	}, true
}

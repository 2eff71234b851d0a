// Package research gathers topic-relevant web snippets and social posts.
// It never fails its caller: upstream problems degrade to fewer snippets plus warnings.
package research

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"auto_blog_publisher/blog"
)

// WebResult is one hit returned by a web search capability.
type WebResult struct {
	Title string
	Text  string
	URL   string
}

// SocialPost is one hit returned by a social search capability.
type SocialPost struct {
	Text      string
	Author    string
	URL       string
	Timestamp time.Time
}

// WebSearcher searches the web; results come back in the service's relevance order.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string, limit int) ([]WebResult, error)
}

// SocialSearcher searches recent social posts, relevance first.
type SocialSearcher interface {
	SearchSocial(ctx context.Context, query string, limit int) ([]SocialPost, error)
}

// FallbackPolicy decides what to present when no real social posts are available.
type FallbackPolicy interface {
	// Substitute returns the snippets standing in for missing social posts; nil means none.
	Substitute(topic string) []blog.Snippet
}

// NoFallback leaves missing social posts missing.
type NoFallback struct{}

func (NoFallback) Substitute(string) []blog.Snippet { return nil }

// Options configures a Researcher.
type Options struct {
	WebResults    int
	SocialResults int
	CallTimeout   time.Duration
	RetryDelay    time.Duration
	Fallback      FallbackPolicy
	// Articles replaces each web snippet with the full page text when set.
	// A failed fetch keeps the search snippet.
	Articles ArticleFetcher
	Logger   *zap.Logger
}

const articleConcurrency = 3

// Researcher is the content research stage.
type Researcher struct {
	web    WebSearcher
	social SocialSearcher
	opts   Options
	logger *zap.Logger
}

// New builds a Researcher; either searcher may be nil to disable that source.
func New(web WebSearcher, social SocialSearcher, opts Options) *Researcher {
	if opts.WebResults <= 0 {
		opts.WebResults = 5
	}
	if opts.SocialResults <= 0 {
		opts.SocialResults = 5
	}
	if opts.Fallback == nil {
		opts.Fallback = NoFallback{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{web: web, social: social, opts: opts, logger: logger.Named("research")}
}

// Research returns web snippets followed by social snippets, each in upstream order.
func (r *Researcher) Research(ctx context.Context, topic string) ([]blog.Snippet, []string) {
	var (
		webSnippets    []blog.Snippet
		webWarnings    []string
		socialSnippets []blog.Snippet
		webErr         error
		socialErr      error
	)

	var g errgroup.Group
	g.Go(func() error {
		var titles []string
		webSnippets, titles, webErr = r.searchWeb(ctx, topic)
		if webErr == nil && r.opts.Articles != nil {
			webWarnings = r.fetchArticles(ctx, webSnippets, titles)
		}
		return nil
	})
	g.Go(func() error {
		socialSnippets, socialErr = r.searchSocial(ctx, topic)
		return nil
	})
	_ = g.Wait()

	var warnings blog.Warnings
	if webErr != nil {
		r.logger.Warn("web search failed", zap.Error(webErr), zap.String("kind", blog.Kind(webErr)))
		warnings.Addf("research", "web search unavailable: %v", webErr)
	}
	warnings.Add(webWarnings...)
	if socialErr != nil {
		r.logger.Warn("social search failed", zap.Error(socialErr), zap.String("kind", blog.Kind(socialErr)))
		warnings.Addf("research", "social search unavailable: %v", socialErr)
	}
	if len(socialSnippets) == 0 {
		if substitute := r.opts.Fallback.Substitute(topic); len(substitute) > 0 {
			r.logger.Info("using synthetic social posts", zap.Int("count", len(substitute)))
			warnings.Addf("research", "no social posts found; showing %d synthetic sample posts", len(substitute))
			socialSnippets = substitute
		}
	}

	r.logger.Info("research complete",
		zap.String("topic", topic),
		zap.Int("web", len(webSnippets)),
		zap.Int("social", len(socialSnippets)))

	return append(webSnippets, socialSnippets...), warnings
}

// searchWeb returns the web snippets and, in parallel, their result titles.
func (r *Researcher) searchWeb(ctx context.Context, topic string) ([]blog.Snippet, []string, error) {
	if r.web == nil {
		return nil, nil, blog.Unavailable(errNoSearcher("web"))
	}
	results, err := blog.CallWithRetry(ctx, r.opts.RetryDelay, func(ctx context.Context) ([]WebResult, error) {
		return blog.WithTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) ([]WebResult, error) {
			return r.web.SearchWeb(ctx, topic, r.opts.WebResults)
		})
	})
	if err != nil {
		return nil, nil, err
	}
	var (
		out    []blog.Snippet
		titles []string
	)
	for _, res := range results {
		if res.Text == "" && res.Title == "" {
			continue
		}
		text := res.Text
		if res.Title != "" && text != "" {
			text = res.Title + ": " + text
		} else if text == "" {
			text = res.Title
		}
		out = append(out, blog.Snippet{Source: blog.SourceWeb, Text: text, URL: res.URL})
		titles = append(titles, res.Title)
		if len(out) == r.opts.WebResults {
			break
		}
	}
	if len(out) == 0 {
		return nil, nil, errEmpty("web search")
	}
	return out, titles, nil
}

func (r *Researcher) searchSocial(ctx context.Context, topic string) ([]blog.Snippet, error) {
	if r.social == nil {
		return nil, blog.Unavailable(errNoSearcher("social"))
	}
	posts, err := blog.CallWithRetry(ctx, r.opts.RetryDelay, func(ctx context.Context) ([]SocialPost, error) {
		return blog.WithTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) ([]SocialPost, error) {
			return r.social.SearchSocial(ctx, topic, r.opts.SocialResults)
		})
	})
	if err != nil {
		return nil, err
	}
	var out []blog.Snippet
	for _, p := range posts {
		if p.Text == "" {
			continue
		}
		out = append(out, blog.Snippet{
			Source:    blog.SourceSocial,
			Text:      p.Text,
			URL:       p.URL,
			Author:    p.Author,
			Timestamp: p.Timestamp,
		})
		if len(out) == r.opts.SocialResults {
			break
		}
	}
	if len(out) == 0 {
		return nil, errEmpty("social search")
	}
	return out, nil
}

// fetchArticles swaps each snippet's text for its page's article text, in place.
// Warnings come back in snippet order.
func (r *Researcher) fetchArticles(ctx context.Context, snippets []blog.Snippet, titles []string) []string {
	failures := make([]error, len(snippets))
	var g errgroup.Group
	g.SetLimit(articleConcurrency)
	for i := range snippets {
		if snippets[i].URL == "" {
			continue
		}
		g.Go(func() error {
			text, err := blog.WithTimeout(ctx, r.opts.CallTimeout, func(ctx context.Context) (string, error) {
				return r.opts.Articles.FetchArticle(ctx, snippets[i].URL)
			})
			if err != nil {
				failures[i] = err
				return nil
			}
			if titles[i] != "" {
				text = titles[i] + ": " + text
			}
			snippets[i].Text = text
			return nil
		})
	}
	_ = g.Wait()

	var warnings blog.Warnings
	for i, err := range failures {
		if err == nil {
			continue
		}
		r.logger.Warn("article fetch failed", zap.String("url", snippets[i].URL), zap.Error(err))
		warnings.Addf("research", "article fetch failed for %s, using search snippet: %v", snippets[i].URL, err)
	}
	return warnings
}

package research

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"auto_blog_publisher/blog"
)

const (
	maxPageBytes = 4 << 20
	// minArticleChars is the shortest readability output trusted over the paragraph fallback.
	minArticleChars = 200
	// MaxArticleRunes caps the article text kept per web result.
	MaxArticleRunes = 4000
)

// ArticleFetcher returns the readable body text of the page at rawURL.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, rawURL string) (string, error)
}

// Readability downloads a page and extracts its main content with go-readability,
// falling back to the page's paragraphs when readability finds too little.
type Readability struct {
	UserAgent string
	Client    *http.Client
}

func NewReadability(client *http.Client) *Readability {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Readability{UserAgent: defaultUserAgent, Client: client}
}

func (r *Readability) FetchArticle(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return "", fmt.Errorf("%w: not a web url: %q", blog.ErrInputInvalid, rawURL)
	}
	if strings.HasSuffix(strings.ToLower(pageURL.Path), ".pdf") || strings.HasSuffix(strings.ToLower(pageURL.Path), ".mp3") {
		return "", blog.Malformed("article: %s is not an html page", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", blog.Unavailable(err)
	}
	defer resp.Body.Close()
	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", blog.Unavailable(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", blog.StatusError("article", resp.StatusCode, string(page))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", blog.Malformed("article: %s is %s, not html", rawURL, ct)
	}

	text := extractReadable(page, pageURL)
	if text == "" {
		text = extractParagraphs(page)
	}
	if text == "" {
		return "", blog.Malformed("article: no readable text at %s", rawURL)
	}
	return blog.Truncate(text, MaxArticleRunes), nil
}

func extractReadable(page []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return ""
	}
	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return ""
	}
	text := normalizeWhitespace(buf.String())
	if len(text) < minArticleChars {
		return ""
	}
	return text
}

// extractParagraphs joins the non-empty <p> texts of the page.
func extractParagraphs(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := normalizeWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

// normalizeWhitespace collapses runs of spaces inside lines and drops blank lines.
func normalizeWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}

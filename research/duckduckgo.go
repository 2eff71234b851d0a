package research

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"auto_blog_publisher/blog"
)

const (
	defaultDuckDuckGoURL = "https://html.duckduckgo.com"
	defaultUserAgent     = "Mozilla/5.0 (compatible; auto-blog-publisher/1.0)"
)

// DuckDuckGo searches the web through the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &DuckDuckGo{BaseURL: defaultDuckDuckGoURL, UserAgent: defaultUserAgent, Client: client}
}

func (d *DuckDuckGo) SearchWeb(ctx context.Context, query string, limit int) ([]WebResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"/html/", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("q", query)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", d.UserAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, blog.Unavailable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, blog.StatusError("duckduckgo", resp.StatusCode, string(body))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, blog.Malformed("duckduckgo: parse html: %v", err)
	}
	return parseDuckDuckGo(doc, limit), nil
}

func parseDuckDuckGo(doc *goquery.Document, limit int) []WebResult {
	var results []WebResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		res := WebResult{
			Title: strings.TrimSpace(link.Text()),
			Text:  strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " "),
			URL:   resolveDuckDuckGoLink(href),
		}
		if res.Title == "" && res.Text == "" {
			return true
		}
		results = append(results, res)
		return limit <= 0 || len(results) < limit
	})
	return results
}

// resolveDuckDuckGoLink unwraps the //duckduckgo.com/l/?uddg= redirect.
func resolveDuckDuckGoLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasSuffix(u.Path, "/l/") {
		return target
	}
	return href
}

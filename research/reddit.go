package research

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"auto_blog_publisher/blog"
)

const (
	defaultRedditURL = "https://www.reddit.com"
	maxPostRunes     = 280
)

// Reddit searches recent posts through the public reddit search JSON endpoint.
type Reddit struct {
	BaseURL   string
	UserAgent string
	// Window is reddit's time filter: hour, day, week, month, year, all.
	Window string
	Client *http.Client
}

func NewReddit(client *http.Client) *Reddit {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Reddit{BaseURL: defaultRedditURL, UserAgent: defaultUserAgent, Window: "month", Client: client}
}

func (r *Reddit) SearchSocial(ctx context.Context, query string, limit int) ([]SocialPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/search.json", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("sort", "relevance")
	q.Set("t", r.Window)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, blog.Unavailable(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, blog.Unavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, blog.StatusError("reddit", resp.StatusCode, string(body))
	}
	return parseReddit(body, r.BaseURL)
}

func parseReddit(body []byte, base string) ([]SocialPost, error) {
	if !gjson.ValidBytes(body) {
		return nil, blog.Malformed("reddit: response is not json")
	}
	children := gjson.GetBytes(body, "data.children")
	if !children.IsArray() {
		return nil, blog.Malformed("reddit: missing data.children")
	}

	var posts []SocialPost
	children.ForEach(func(_, child gjson.Result) bool {
		data := child.Get("data")
		title := strings.TrimSpace(data.Get("title").String())
		self := strings.Join(strings.Fields(data.Get("selftext").String()), " ")
		text := title
		if self != "" {
			text = title + ": " + self
		}
		if text == "" {
			return true
		}
		post := SocialPost{Text: blog.Truncate(text, maxPostRunes)}
		if author := data.Get("author").String(); author != "" {
			post.Author = "u/" + author
		}
		if link := data.Get("permalink").String(); link != "" {
			post.URL = strings.TrimRight(base, "/") + link
		}
		if created := data.Get("created_utc").Float(); created > 0 {
			post.Timestamp = time.Unix(int64(created), 0).UTC()
		}
		posts = append(posts, post)
		return true
	})
	return posts, nil
}

package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"auto_blog_publisher/blog"
)

const maxResponseBytes = 1 << 20

// apiClient is the shared bearer-token JSON transport of the platform clients.
type apiClient struct {
	service string
	baseURL string
	token   string
	http    *http.Client
	// retryDelay is the pause before resending a rate-limited request.
	retryDelay time.Duration
}

func (c apiClient) newRequest(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

type reply struct {
	body   gjson.Result
	header http.Header
}

// do sends req and returns the body of a 2xx response. A rate-limited
// request is sent once more; its body is rebuilt through req.GetBody.
func (c apiClient) do(req *http.Request) (gjson.Result, http.Header, error) {
	attempt := 0
	out, err := blog.CallWithRetry(req.Context(), c.retryDelay, func(context.Context) (reply, error) {
		attempt++
		send := req
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return reply{}, err
			}
			send = req.Clone(req.Context())
			send.Body = body
		}
		return c.send(send)
	})
	return out.body, out.header, err
}

func (c apiClient) send(req *http.Request) (reply, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return reply{}, blog.Unavailable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return reply{}, blog.Unavailable(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply{}, blog.StatusError(c.service, resp.StatusCode, string(data))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return reply{header: resp.Header}, nil
	}
	if !gjson.ValidBytes(data) {
		return reply{}, blog.Malformed("%s: response is not json", c.service)
	}
	return reply{body: gjson.ParseBytes(data), header: resp.Header}, nil
}

func (c apiClient) postJSON(ctx context.Context, url string, payload any) (gjson.Result, http.Header, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body), "application/json")
	if err != nil {
		return gjson.Result{}, nil, err
	}
	return c.do(req)
}

func (c apiClient) getJSON(ctx context.Context, url string) (gjson.Result, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		return gjson.Result{}, err
	}
	res, _, err := c.do(req)
	return res, err
}

// field reads a required string from a response.
func (c apiClient) field(res gjson.Result, path string) (string, error) {
	v := res.Get(path).String()
	if v == "" {
		return "", blog.Malformed("%s: response missing %s", c.service, path)
	}
	return v, nil
}

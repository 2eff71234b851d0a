package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"auto_blog_publisher/blog"
)

const defaultMediumURL = "https://api.medium.com"

// Medium publishes the full article as a Medium draft.
type Medium struct {
	api  apiClient
	tags []string
}

// MediumConfig configures the Medium client.
type MediumConfig struct {
	Token   string
	BaseURL string
	Tags    []string
	// RetryDelay is the pause before resending a rate-limited request.
	RetryDelay time.Duration
}

func NewMedium(cfg MediumConfig, client *http.Client) (*Medium, error) {
	if cfg.Token == "" {
		return nil, errors.New("medium token missing; provide publish.medium.token or publish.medium.token_env")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultMediumURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Medium{
		api:  apiClient{service: "medium", baseURL: strings.TrimRight(cfg.BaseURL, "/"), token: cfg.Token, http: client, retryDelay: cfg.RetryDelay},
		tags: cfg.Tags,
	}, nil
}

type mediumPost struct {
	Title         string   `json:"title"`
	ContentFormat string   `json:"contentFormat"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags,omitempty"`
	PublishStatus string   `json:"publishStatus"`
}

func (m *Medium) Publish(ctx context.Context, payload Payload) (string, error) {
	me, err := m.api.getJSON(ctx, m.api.baseURL+"/v1/me")
	if err != nil {
		return "", err
	}
	userID, err := m.api.field(me, "data.id")
	if err != nil {
		return "", err
	}

	md, err := replaceAssetImages(ctx, payload.Markdown, payload.Images, m.uploadImage)
	if err != nil {
		return "", err
	}
	content, err := mdToHTML(md)
	if err != nil {
		return "", blog.Malformed("medium: render html: %v", err)
	}

	tags := payload.Tags
	if len(tags) == 0 {
		tags = m.tags
	}
	if len(tags) > 5 {
		tags = tags[:5]
	}
	res, _, err := m.api.postJSON(ctx, fmt.Sprintf("%s/v1/users/%s/posts", m.api.baseURL, userID), mediumPost{
		Title:         payload.Title,
		ContentFormat: "html",
		Content:       content,
		Tags:          tags,
		PublishStatus: "draft",
	})
	if err != nil {
		return "", err
	}
	return m.api.field(res, "data.id")
}

// uploadImage posts one asset to /v1/images and returns its hosted URL.
func (m *Medium) uploadImage(ctx context.Context, asset blog.ImageAsset) (string, error) {
	contentType := asset.MIMEType
	if contentType == "" {
		contentType = mimetype.Detect(asset.Data).String()
	}

	ext := ""
	if mt := mimetype.Lookup(contentType); mt != nil {
		ext = mt.Extension()
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s%s"`, asset.PromptKey, ext))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(asset.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := m.api.newRequest(ctx, http.MethodPost, m.api.baseURL+"/v1/images", &body, writer.FormDataContentType())
	if err != nil {
		return "", err
	}
	res, _, err := m.api.do(req)
	if err != nil {
		return "", err
	}
	return m.api.field(res, "data.url")
}

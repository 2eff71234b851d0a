package publisher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"auto_blog_publisher/blog"
)

const (
	defaultLinkedInURL = "https://api.linkedin.com"
	uploadURLPath      = `value.uploadMechanism.com\.linkedin\.digitalmedia\.uploading\.MediaUploadHttpRequest.uploadUrl`
)

// LinkedIn shares the title, a short summary and the cover image as a UGC post.
type LinkedIn struct {
	api    apiClient
	author string
}

// LinkedInConfig configures the LinkedIn client.
type LinkedInConfig struct {
	Token     string
	AuthorURN string
	BaseURL   string
	// RetryDelay is the pause before resending a rate-limited request.
	RetryDelay time.Duration
}

func NewLinkedIn(cfg LinkedInConfig, client *http.Client) (*LinkedIn, error) {
	if cfg.Token == "" {
		return nil, errors.New("linkedin token missing; provide publish.linkedin.token or publish.linkedin.token_env")
	}
	if !strings.HasPrefix(cfg.AuthorURN, "urn:li:") {
		return nil, errors.New("publish.linkedin.author_urn must look like urn:li:person:<id>")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultLinkedInURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &LinkedIn{
		api:    apiClient{service: "linkedin", baseURL: strings.TrimRight(cfg.BaseURL, "/"), token: cfg.Token, http: client, retryDelay: cfg.RetryDelay},
		author: cfg.AuthorURN,
	}, nil
}

func (l *LinkedIn) Publish(ctx context.Context, payload Payload) (string, error) {
	text := payload.Title
	if payload.Summary != "" {
		text += "\n\n" + payload.Summary
	}

	share := map[string]any{
		"shareCommentary":    map[string]string{"text": text},
		"shareMediaCategory": "NONE",
	}
	if payload.Cover != nil {
		asset, err := l.uploadImage(ctx, *payload.Cover)
		if err != nil {
			return "", err
		}
		share["shareMediaCategory"] = "IMAGE"
		share["media"] = []map[string]any{{
			"status":      "READY",
			"media":       asset,
			"title":       map[string]string{"text": payload.Title},
			"description": map[string]string{"text": blog.Truncate(payload.Summary, 200)},
		}}
	}

	post := map[string]any{
		"author":          l.author,
		"lifecycleState":  "PUBLISHED",
		"specificContent": map[string]any{"com.linkedin.ugc.ShareContent": share},
		"visibility":      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	res, header, err := l.api.postJSON(ctx, l.api.baseURL+"/v2/ugcPosts", post)
	if err != nil {
		return "", err
	}
	if id := res.Get("id").String(); id != "" {
		return id, nil
	}
	if id := header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	return "", blog.Malformed("linkedin: response missing post id")
}

// uploadImage registers an upload, sends the bytes and returns the asset URN.
func (l *LinkedIn) uploadImage(ctx context.Context, asset blog.ImageAsset) (string, error) {
	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   l.author,
			"serviceRelationships": []map[string]string{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}
	res, _, err := l.api.postJSON(ctx, l.api.baseURL+"/v2/assets?action=registerUpload", register)
	if err != nil {
		return "", err
	}
	uploadURL, err := l.api.field(res, uploadURLPath)
	if err != nil {
		return "", err
	}
	assetURN, err := l.api.field(res, "value.asset")
	if err != nil {
		return "", err
	}

	req, err := l.api.newRequest(ctx, http.MethodPut, uploadURL, bytes.NewReader(asset.Data), asset.MIMEType)
	if err != nil {
		return "", err
	}
	if _, _, err := l.api.do(req); err != nil {
		return "", err
	}
	return assetURN, nil
}

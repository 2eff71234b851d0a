package publisher

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"auto_blog_publisher/blog"
)

// AssetScheme prefixes image links that point at an in-memory asset instead of a URL.
const AssetScheme = "asset:"

var (
	imgPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)
	markdown   = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitizer  = bluemonday.UGCPolicy()
)

// uploadFunc stores one asset and returns its public URL.
type uploadFunc func(ctx context.Context, asset blog.ImageAsset) (string, error)

// replaceAssetImages uploads every asset the Markdown links to and rewrites the
// links to the uploaded URLs. Links to unknown assets are dropped.
func replaceAssetImages(ctx context.Context, md string, images map[string]blog.ImageAsset, upload uploadFunc) (string, error) {
	matches := imgPattern.FindAllStringSubmatchIndex(md, -1)
	if len(matches) == 0 {
		return md, nil
	}

	uploaded := make(map[string]string)
	var builder strings.Builder
	last := 0
	for _, match := range matches {
		if len(match) < 4 {
			continue
		}
		ref := strings.TrimSpace(md[match[2]:match[3]])
		key, ok := strings.CutPrefix(ref, AssetScheme)
		if !ok {
			continue
		}
		asset, ok := images[key]
		if !ok {
			builder.WriteString(md[last:match[0]])
			last = match[1]
			continue
		}
		url, done := uploaded[key]
		if !done {
			var err error
			url, err = upload(ctx, asset)
			if err != nil {
				return "", err
			}
			uploaded[key] = url
		}
		builder.WriteString(md[last:match[2]])
		builder.WriteString(url)
		last = match[3]
	}
	builder.WriteString(md[last:])
	return builder.String(), nil
}

// mdToHTML converts Markdown to sanitized HTML.
func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return sanitizer.Sanitize(buf.String()), nil
}

package generator

import (
	"regexp"
	"strings"

	"auto_blog_publisher/blog"
)

const maxTitleRunes = 120

var (
	headingLineRe = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	fenceRe       = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	titlePrefixRe = regexp.MustCompile(`(?i)^(title|headline)\s*:\s*`)
)

// PostProcessSection cleans a section completion and clamps it to the style's word band.
func PostProcessSection(raw, heading string, style blog.Style) (string, error) {
	md := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	// drop a leading heading line that repeats the section heading or the title
	first, rest, _ := strings.Cut(md, "\n")
	if headingLineRe.MatchString(strings.TrimSpace(first)) {
		md = strings.TrimSpace(rest)
	}
	if md == "" {
		return "", blog.Malformed("section %q: model returned empty markdown", heading)
	}

	p := style.Profile()
	return blog.ClampWords(md, p.MinWords, p.MaxWords), nil
}

// PostProcessTitle extracts a single clean title line.
func PostProcessTitle(raw string) (string, error) {
	title := extractTitle(raw)
	if title == "" {
		for _, line := range strings.Split(raw, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				title = line
				break
			}
		}
	}
	title = titlePrefixRe.ReplaceAllString(title, "")
	title = strings.Trim(title, " \t\"'`*")
	if title == "" {
		return "", blog.Malformed("model returned an empty title")
	}
	return blog.Truncate(title, maxTitleRunes), nil
}

func extractTitle(md string) string {
	re := regexp.MustCompile(`(?m)^#\s+(.+)$`)
	m := re.FindStringSubmatch(md)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Digest takes the first paragraph of md, skipping heading lines.
func Digest(md string, limit int) string {
	lines := strings.Split(md, "\n")
	var b strings.Builder
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ">") || strings.HasPrefix(trimmed, "![") {
			if b.Len() > 0 {
				break
			}
			continue
		}
		if trimmed == "" {
			if b.Len() > 0 {
				break
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(trimmed)
	}
	if b.Len() == 0 {
		return blog.Truncate(md, limit)
	}
	return blog.Truncate(b.String(), limit)
}

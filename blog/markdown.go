package blog

import (
	"fmt"
	"strings"
)

// Markdown renders the document. resolve maps an image key to a link target;
// keys it returns "" for are treated as "no image available". resolve may be nil.
func (d Document) Markdown(resolve func(key string) string) string {
	if resolve == nil {
		resolve = func(string) string { return "" }
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", d.Title))
	if d.CoverRef != "" {
		if target := resolve(d.CoverRef); target != "" {
			sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", d.Title, target))
		}
	}

	for _, s := range d.Sections {
		sb.WriteString(fmt.Sprintf("## %s\n\n", s.Heading))
		if s.ImageRef != "" {
			if target := resolve(s.ImageRef); target != "" {
				sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", s.Heading, target))
			}
		}
		sb.WriteString(strings.TrimSpace(s.Body))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// IntroBody formats social snippets verbatim as a quoted feature block.
func IntroBody(snippets []Snippet) string {
	var sb strings.Builder
	for i, s := range snippets {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("> ")
		sb.WriteString(strings.ReplaceAll(strings.TrimSpace(s.Text), "\n", "\n> "))
		var meta []string
		if s.Author != "" {
			meta = append(meta, s.Author)
		}
		if !s.Timestamp.IsZero() {
			meta = append(meta, s.Timestamp.Format("2006-01-02"))
		}
		if s.URL != "" {
			meta = append(meta, s.URL)
		}
		if len(meta) > 0 {
			sb.WriteString("\n>\n> — ")
			sb.WriteString(strings.Join(meta, ", "))
		}
	}
	return sb.String()
}

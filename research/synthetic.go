package research

import (
	"fmt"
	"strings"
	"time"

	"auto_blog_publisher/blog"
)

// SyntheticPrefix flags the text of every synthetic post.
const SyntheticPrefix = "[sample] "

// SyntheticFallback substitutes clearly flagged sample posts so a presentation
// that wants a minimum number of social items still has them.
type SyntheticFallback struct {
	MinItems int
	Now      func() time.Time
}

var syntheticTemplates = []struct {
	author string
	text   string
}{
	{"@tech_watch", "Just read an interesting article about %s. The future looks promising!"},
	{"u/industry_notes", "Our team has been analyzing recent developments in %s. Curious what others are seeing."},
	{"@daily_brief", "The latest advancements in %s are worth paying attention to. Here's why it matters."},
	{"u/conference_goer", "Attended a talk on %s today. So many new possibilities!"},
	{"@newsroom", "Big news around %s today. This could change how the industry thinks about it."},
}

func (s SyntheticFallback) Substitute(topic string) []blog.Snippet {
	n := s.MinItems
	if n <= 0 {
		n = 3
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	clean := strings.NewReplacer("#", "", "@", "").Replace(strings.TrimSpace(topic))

	out := make([]blog.Snippet, 0, n)
	for i := range n {
		tpl := syntheticTemplates[i%len(syntheticTemplates)]
		out = append(out, blog.Snippet{
			Source:    blog.SourceSocial,
			Text:      SyntheticPrefix + fmt.Sprintf(tpl.text, clean),
			Author:    tpl.author,
			Timestamp: now().Add(-time.Duration(i+1) * time.Hour),
			Synthetic: true,
		})
	}
	return out
}

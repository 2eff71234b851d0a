// Package blog holds the data model shared by every pipeline stage.
package blog

import (
	"fmt"
	"strings"
	"time"
)

// Source tells where a research snippet came from.
type Source string

const (
	SourceWeb    Source = "web"
	SourceSocial Source = "social"
)

// Snippet is a short piece of externally sourced text used as generation context.
type Snippet struct {
	Source    Source    `json:"source"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	// Synthetic marks placeholder content produced when no real posts were found.
	Synthetic bool `json:"synthetic,omitempty"`
}

// SocialSnippets returns the social snippets in their original order.
func SocialSnippets(snippets []Snippet) []Snippet {
	var out []Snippet
	for _, s := range snippets {
		if s.Source == SourceSocial {
			out = append(out, s)
		}
	}
	return out
}

// WebSnippets returns the web snippets in their original order.
func WebSnippets(snippets []Snippet) []Snippet {
	var out []Snippet
	for _, s := range snippets {
		if s.Source == SourceWeb {
			out = append(out, s)
		}
	}
	return out
}

// ImagePrompt is one planned image, keyed by the section it illustrates.
type ImagePrompt struct {
	SectionRef string   `json:"section_ref"`
	Text       string   `json:"prompt"`
	StyleHints []string `json:"style_hints,omitempty"`
}

// Key is the prompt key used in the image mapping.
func (p ImagePrompt) Key() string { return p.SectionRef }

// CoverRef is the prompt key of the cover image.
const CoverRef = "cover"

// SectionRef is the prompt key of the i-th (0-based) outline section.
func SectionRef(i int) string { return fmt.Sprintf("section-%d", i+1) }

// Section is one block of a generated document.
type Section struct {
	Heading  string `json:"heading"`
	Body     string `json:"body"`
	ImageRef string `json:"image_ref,omitempty"`
	// Snippets is set on the introductory block only: the social posts it embeds verbatim.
	Snippets []Snippet `json:"snippets,omitempty"`
	// Placeholder marks a section synthesized after generation failed.
	Placeholder bool `json:"placeholder,omitempty"`
}

// IsIntro reports whether the section is the social-media introductory block.
func (s Section) IsIntro() bool { return len(s.Snippets) > 0 }

// Document is the structured long-form article.
type Document struct {
	Title     string    `json:"title"`
	Sections  []Section `json:"sections"`
	Style     Style     `json:"style"`
	CreatedAt time.Time `json:"created_at"`
	// CoverRef is the prompt key of the cover image, traced to the title block.
	CoverRef string `json:"cover_ref,omitempty"`
}

// Headings lists section headings in document order.
func (d Document) Headings() []string {
	out := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		out = append(out, s.Heading)
	}
	return out
}

// GeneratedSections returns the document sections without the introductory block.
func (d Document) GeneratedSections() []Section {
	out := make([]Section, 0, len(d.Sections))
	for _, s := range d.Sections {
		if s.IsIntro() {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Validate checks the structural invariants of a document.
func (d Document) Validate() error {
	if len(d.Sections) == 0 {
		return malformedf("document has no sections")
	}
	seen := make(map[string]bool, len(d.Sections))
	for i, s := range d.Sections {
		key := strings.ToLower(strings.TrimSpace(s.Heading))
		if key == "" {
			return malformedf("section %d has an empty heading", i+1)
		}
		if seen[key] {
			return malformedf("duplicate section heading %q", s.Heading)
		}
		seen[key] = true
		if strings.TrimSpace(s.Body) == "" {
			return malformedf("section %q has an empty body", s.Heading)
		}
	}
	return nil
}

// ImageAsset is a generated binary image.
type ImageAsset struct {
	PromptKey string `json:"prompt_key"`
	Data      []byte `json:"data"`
	MIMEType  string `json:"mime_type"`
}

// Platform is an external publishing target.
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformMedium   Platform = "medium"
)

// ParsePlatform maps a user supplied name onto a known platform.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformLinkedIn:
		return PlatformLinkedIn, true
	case PlatformMedium:
		return PlatformMedium, true
	}
	return "", false
}

// ReceiptStatus is the outcome of one publish attempt.
type ReceiptStatus string

const (
	StatusOK     ReceiptStatus = "ok"
	StatusFailed ReceiptStatus = "failed"
)

// Receipt records the outcome of publishing to one platform.
type Receipt struct {
	Platform Platform      `json:"platform"`
	Status   ReceiptStatus `json:"status"`
	RemoteID string        `json:"remote_id,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Result is everything a pipeline run hands back to its caller.
type Result struct {
	Document Document              `json:"document"`
	Images   map[string]ImageAsset `json:"images"`
	Receipts []Receipt             `json:"receipts"`
	Warnings []string              `json:"warnings"`
}

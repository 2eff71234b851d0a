package blog

import "strings"

// Style is the writing register applied uniformly across a document.
type Style string

const (
	StyleProfessional Style = "professional"
	StyleCasual       Style = "casual"
	StyleSimple       Style = "simple"
)

// Styles lists every style label, in classification prompt order.
func Styles() []Style {
	return []Style{StyleProfessional, StyleCasual, StyleSimple}
}

// ParseStyle accepts only an exact (case-insensitive, trimmed) label.
func ParseStyle(s string) (Style, bool) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleProfessional:
		return StyleProfessional, true
	case StyleCasual:
		return StyleCasual, true
	case StyleSimple:
		return StyleSimple, true
	}
	return "", false
}

// Profile holds everything style-dependent: outline, length band and tone.
type Profile struct {
	Tone        string
	Vocabulary  string
	Structure   string
	Instruction string
	// Headings are outline templates; "{topic}" is replaced with the topic.
	Headings    []string
	MinSections int
	MaxSections int
	MinWords    int
	MaxWords    int
	// SummaryTone steers the short publish summary.
	SummaryTone string
}

var profiles = map[Style]Profile{
	StyleProfessional: {
		Tone:       "formal, authoritative, data-driven",
		Vocabulary: "industry-specific terminology, technical terms, sophisticated language",
		Structure:  "well-structured with clear sections, bullet points, citations",
		Instruction: "Write in a formal, authoritative tone suitable for industry professionals. " +
			"Use accurate technical terminology, include data points and concrete examples, " +
			"and address both benefits and limitations.",
		Headings: []string{
			"Introduction",
			"Technical Deep Dive: What Makes {topic} Different?",
			"Overcoming Previous Limitations",
			"Current Limitations and Challenges",
			"Industry Applications and Impact",
			"Future Implications and Development",
			"Conclusion",
		},
		MinSections: 5,
		MaxSections: 7,
		MinWords:    300,
		MaxWords:    700,
		SummaryTone: "concise and professional, suitable for an industry audience",
	},
	StyleCasual: {
		Tone:       "conversational, personable, engaging",
		Vocabulary: "everyday language, some industry terms explained in an approachable way",
		Structure:  "flowing paragraphs, stories, relatable examples",
		Instruction: "Write in a conversational, personable tone for general readers. " +
			"Use everyday language, short anecdotes and relatable examples.",
		Headings: []string{
			"Why {topic} Caught Our Attention",
			"What It Looks Like in Real Life",
			"The Bits Worth Talking About",
			"Final Thoughts",
		},
		MinSections: 3,
		MaxSections: 4,
		MinWords:    200,
		MaxWords:    450,
		SummaryTone: "friendly and conversational",
	},
	StyleSimple: {
		Tone:       "straightforward, clear, concise",
		Vocabulary: "common words, minimal jargon, plain language",
		Structure:  "short paragraphs, simple explanations, direct points",
		Instruction: "Write in a clear, straightforward tone for beginners. " +
			"Use plain language, short paragraphs and step-by-step explanations.",
		Headings: []string{
			"What Is {topic}?",
			"How It Works",
			"Getting Started",
			"Key Takeaways",
		},
		MinSections: 3,
		MaxSections: 4,
		MinWords:    120,
		MaxWords:    300,
		SummaryTone: "plain and easy to read",
	},
}

// Profile returns the style's profile; unknown styles get the professional one.
func (s Style) Profile() Profile {
	if p, ok := profiles[s]; ok {
		return p
	}
	return profiles[StyleProfessional]
}

// Outline builds the ordered section headings for a topic, at most maxSections long.
// maxSections <= 0 means the profile maximum.
func (s Style) Outline(topic string, maxSections int) []string {
	p := s.Profile()
	limit := p.MaxSections
	if maxSections > 0 && maxSections < limit {
		limit = max(maxSections, p.MinSections)
	}
	limit = min(limit, len(p.Headings))

	headings := make([]string, 0, limit)
	// keep the closing heading when the outline is trimmed
	last := p.Headings[len(p.Headings)-1]
	for _, h := range p.Headings[:limit-1] {
		headings = append(headings, strings.ReplaceAll(h, "{topic}", topic))
	}
	return append(headings, strings.ReplaceAll(last, "{topic}", topic))
}

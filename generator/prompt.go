package generator

import (
	"fmt"
	"strings"

	"auto_blog_publisher/blog"
)

// Prompt is the message set sent to the LLM.
type Prompt struct {
	System      string
	User        string
	History     []Message
	Constraints Constraints
}

// Message is one optional history turn.
type Message struct {
	Role    string
	Content string
}

// Constraints are hard output limits; callers enforce them even if the service ignores them.
type Constraints struct {
	MaxTokens     int
	AllowedLabels []string
}

const researchExcerptLimit = 1000

// BuildSectionPrompt asks for the body of one outline section.
func BuildSectionPrompt(topic string, style blog.Style, outline []string, index int, research []blog.Snippet) Prompt {
	p := style.Profile()
	heading := outline[index]

	var sb strings.Builder
	sb.WriteString("You are an expert technology analyst writing an in-depth blog post. Output Markdown only, no extra commentary.\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- %s\n", p.Instruction))
	sb.WriteString(fmt.Sprintf("- Tone: %s.\n", p.Tone))
	sb.WriteString(fmt.Sprintf("- Vocabulary: %s.\n", p.Vocabulary))
	sb.WriteString(fmt.Sprintf("- Structure: %s.\n", p.Structure))
	sb.WriteString(fmt.Sprintf("- Write between %d and %d words.\n", p.MinWords, p.MaxWords))
	sb.WriteString("- Do not repeat the section heading and do not add a title.\n")
	sb.WriteString("The full outline of the post is:\n")
	for i, h := range outline {
		marker := " "
		if i == index {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s\n", marker, i+1, h))
	}

	var user strings.Builder
	user.WriteString(fmt.Sprintf("Topic: %s\nWrite the section %q (marked * above).\n", topic, heading))
	if web := blog.WebSnippets(research); len(web) > 0 {
		user.WriteString("\nUse the following research material:\n")
		for i, s := range web {
			user.WriteString(fmt.Sprintf("\nSource %d (%s):\n%s\n", i+1, s.URL, blog.Truncate(s.Text, researchExcerptLimit)))
		}
	}

	return Prompt{
		System:      sb.String(),
		User:        user.String(),
		Constraints: Constraints{MaxTokens: sectionTokenBudget(p)},
	}
}

// BuildSimplifiedSectionPrompt is the retry prompt after a failed section call.
func BuildSimplifiedSectionPrompt(topic string, style blog.Style, heading string) Prompt {
	p := style.Profile()
	return Prompt{
		System: "Write plain Markdown paragraphs only.",
		User: fmt.Sprintf("Write %d to %d words for the section %q of a blog post about %s. Tone: %s.",
			p.MinWords, p.MaxWords, heading, topic, p.Tone),
		Constraints: Constraints{MaxTokens: sectionTokenBudget(p)},
	}
}

// BuildTitlePrompt asks for a short article title.
func BuildTitlePrompt(topic string, style blog.Style) Prompt {
	return Prompt{
		System: "You write compelling, SEO-friendly blog titles. Reply with the title only.",
		User: fmt.Sprintf("Create one %s blog title (at most 12 words) for a post about: %s",
			style.Profile().Tone, topic),
		Constraints: Constraints{MaxTokens: 24},
	}
}

// sectionTokenBudget leaves headroom above the word band for formatting.
func sectionTokenBudget(p blog.Profile) int {
	return p.MaxWords * 2
}

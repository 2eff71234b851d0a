package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is a local stand-in that never calls an external model.
// Label prompts get the first allowed label; everything else gets filler text
// sized from the token budget.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if len(prompt.Constraints.AllowedLabels) > 0 {
		return prompt.Constraints.AllowedLabels[0], nil
	}
	subject := firstLine(prompt.User)
	if prompt.Constraints.MaxTokens > 0 && prompt.Constraints.MaxTokens < 64 {
		if _, about, ok := strings.Cut(subject, "about: "); ok {
			subject = about
		}
		return "A Closer Look at " + subject, nil
	}

	words := prompt.Constraints.MaxTokens / 3
	if words <= 0 {
		words = 120
	}
	sentence := fmt.Sprintf("This placeholder paragraph was produced locally for %s.", subject)
	perSentence := len(strings.Fields(sentence))

	var sb strings.Builder
	for n := 0; n+perSentence <= words; n += perSentence {
		if n > 0 && n%(perSentence*6) == 0 {
			sb.WriteString("\n\n")
		} else if n > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
	}
	return sb.String(), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	line = strings.TrimPrefix(line, "Topic: ")
	return strings.TrimSpace(line)
}

package blog

import (
	"fmt"
	"strings"
)

// CountWords counts whitespace separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// ClampWords shortens s to at most maxWords words. It prefers to cut after the
// last sentence end that still leaves at least minWords words.
func ClampWords(s string, minWords, maxWords int) string {
	words := strings.Fields(s)
	if maxWords <= 0 || len(words) <= maxWords {
		return s
	}
	cut := maxWords
	for i := maxWords; i > minWords && i > 0; i-- {
		if endsSentence(words[i-1]) {
			cut = i
			break
		}
	}
	return FirstWords(s, cut)
}

// FirstWords keeps the first n words of s with their original spacing and line breaks.
func FirstWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	inWord := false
	for i, r := range s {
		space := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		switch {
		case !space && !inWord:
			inWord = true
		case space && inWord:
			inWord = false
			count++
			if count == n {
				return s[:i]
			}
		}
	}
	return strings.TrimRight(s, " \n\t\r")
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')”’*`)
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}

// Truncate shortens s to at most limit runes, ellipsis included, on a word boundary.
func Truncate(s string, limit int) string {
	compact := strings.Join(strings.Fields(s), " ")
	runes := []rune(compact)
	if limit <= 0 || len(runes) <= limit {
		return compact
	}
	if limit == 1 {
		return "…"
	}
	cut := string(runes[:limit-1])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

// Warnings collects stage-prefixed degradation notes in order.
type Warnings []string

// Addf appends a warning for stage.
func (w *Warnings) Addf(stage, format string, args ...any) {
	*w = append(*w, stage+": "+fmt.Sprintf(format, args...))
}

// Add appends already formatted warnings.
func (w *Warnings) Add(warnings ...string) {
	*w = append(*w, warnings...)
}

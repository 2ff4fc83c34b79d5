package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	studentInputRegex = regexp.MustCompile(`(?i)</?\s*student-input\b[^>]*>`)
	systemTagRegex    = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxInputRunes = 10000

// SanitizeInput prepares untrusted student text for inclusion in a prompt:
// strips tag markers the prompts use as delimiters and truncates runaway
// input.
func SanitizeInput(text string) string {
	text = studentInputRegex.ReplaceAllString(text, "")
	text = systemTagRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return "[no input provided]"
	}

	if utf8.RuneCountInString(text) > maxInputRunes {
		runes := []rune(text)
		text = string(runes[:maxInputRunes]) + "\n\n[input truncated due to length]"
	}
	return text
}

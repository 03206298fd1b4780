package llm

import (
	"encoding/json"
	"strings"
)

// WordWrap wraps text at the specified width.
func WordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLineLength := 0
		for j, word := range words {
			if j > 0 {
				if currentLineLength+len(word)+1 > width {
					result.WriteString("\n")
					currentLineLength = 0
				} else {
					result.WriteString(" ")
					currentLineLength++
				}
			}
			result.WriteString(word)
			currentLineLength += len(word)
		}
	}

	return result.String()
}

// StripCodeFences removes every "```json" and "```" marker and trims the
// result. Applying it twice gives the same output as applying it once.
func StripCodeFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// DecodeJSON strips code fences from text and unmarshals it into target.
// Failures are reported as *MalformedResponseError carrying the raw text.
func DecodeJSON(text string, target any) error {
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return &MalformedResponseError{Raw: text, Err: err}
	}
	return nil
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

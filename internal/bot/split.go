package bot

import (
	"strings"
	"unicode/utf8"
)

// splitMessage splits msg into chunks of at most maxLen runes, preferring to
// cut after a newline in the second half of a chunk.
func splitMessage(msg string, maxLen int) []string {
	if utf8.RuneCountInString(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	runes := []rune(msg)
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(string(runes[:maxLen]), "\n"); idx >= 0 {
			if n := utf8.RuneCountInString(string(runes[:maxLen])[:idx]); n > maxLen/2 {
				cut = n + 1
			}
		}

		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}

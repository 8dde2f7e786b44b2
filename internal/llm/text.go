package llm

import "unicode/utf8"

// Truncate cuts s to at most limit bytes without splitting a multi-byte
// rune: the cut backs off to the nearest rune boundary. Prompt text must
// stay valid UTF-8 after truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

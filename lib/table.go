package lib

import (
	"strings"
	"unicode/utf8"
)

// NormalizeTableNumber uppercases raw, drops every character outside
// [A-Z0-9-] and truncates the result to maxLen. An empty result means nothing
// usable was supplied.
func NormalizeTableNumber(raw string, maxLen int) string {
	normalized := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return -1
	}, strings.ToUpper(raw))

	// Only ASCII survives the map, so byte length equals rune count.
	if maxLen > 0 && utf8.RuneCountInString(normalized) > maxLen {
		normalized = normalized[:maxLen]
	}
	return normalized
}

// SanitizeTableNumber never fails: anything that normalizes to nothing becomes
// the placeholder.
func SanitizeTableNumber(raw string, maxLen int, placeholder string) string {
	if normalized := NormalizeTableNumber(raw, maxLen); normalized != "" {
		return normalized
	}
	return placeholder
}

package util

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// TitleCase uppercases the first letter of each space-separated word and
// lowercases the rest, matching how tag names are canonicalized before they
// become matrix columns ("hip hop" and "Hip Hop" must be the same column).
func TitleCase(s string) string {
	parts := strings.Fields(strings.ToLower(s))
	for i, p := range parts {
		r := []rune(p)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// EqualFold reports case-insensitive equality after whitespace normalization.
func EqualFold(a, b string) bool {
	return strings.EqualFold(NormalizeWhitespace(a), NormalizeWhitespace(b))
}

// ContainsFold reports whether text contains needle, case-insensitive.
func ContainsFold(text, needle string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}

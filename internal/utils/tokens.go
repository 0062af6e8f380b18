package utils

import (
	"strings"
	"unicode"
)

// Words lowercases text and splits it into letter/digit runs
func Words(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// CountWords counts whitespace-separated words
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// FirstKeyword returns the first keyword contained in any of the texts, ignoring case.
// Matching is by substring, so "quick" also matches "quickly".
func FirstKeyword(keywords []string, texts ...string) (string, bool) {
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}

	for _, keyword := range keywords {
		k := strings.ToLower(keyword)
		for _, t := range lowered {
			if strings.Contains(t, k) {
				return keyword, true
			}
		}
	}
	return "", false
}

// TruncateRunes shortens s to at most n runes
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

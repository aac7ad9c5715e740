package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Squash lowercases text and drops every whitespace character, so "Access
// Token" and "accesstoken" compare equal.
func Squash(text string) string {
	text = strings.ToLower(text)
	return whitespaceRegex.ReplaceAllString(text, "")
}

// ContainsAny reports whether the squashed text contains any of the words,
// words are expected to already be squashed.
func ContainsAny(text string, words []string) bool {
	text = Squash(text)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// CollapseSpaces trims text and turns every run of whitespace into a single space.
func CollapseSpaces(text string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
}

package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

const maxSanitizePasses = 4

// SanitizeText strips all markup from caller-supplied free text and trims it.
// Entities are decoded before stripping, and the pass repeats until the text
// is stable so encoded or split tags cannot survive as markup.
func SanitizeText(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		clean := html.UnescapeString(strictPolicy.Sanitize(html.UnescapeString(s)))
		if clean == s {
			return strings.TrimSpace(clean)
		}
		s = clean
	}
	// Still changing: keep the escaped form
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// SanitizeValues sanitizes attribute values, dropping blanks and duplicates
// while keeping order
func SanitizeValues(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = SanitizeText(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

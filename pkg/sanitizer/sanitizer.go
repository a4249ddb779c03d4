package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

const maxPasses = 8

// Text strips every HTML tag from s and returns plain, trimmed text.
// Entity-encoded markup is decoded and stripped again until the output is stable.
func Text(s string) string {
	if s == "" {
		return s
	}
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(html.UnescapeString(s)))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	// Still changing: keep the escaped form so nothing decodes into markup.
	return strings.TrimSpace(strict.Sanitize(s))
}

// Texts applies Text to each entry, dropping entries that end up empty.
func Texts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if clean := Text(s); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

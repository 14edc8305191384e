package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Text strips every HTML tag and trims surrounding space. Entities are decoded
// so plain text like "A & B" survives unchanged.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// Texts applies Text to each element and drops the ones left empty.
func Texts(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = Text(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

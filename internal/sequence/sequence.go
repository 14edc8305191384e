package sequence

import (
	"fmt"
	"strings"
)

const (
	PrefixLC    = "LC"
	PrefixOther = "XX"
)

var lcMarkers = []string{"LC", "Zoning", "Development"}

// Prefix picks the application number prefix for a document title.
// Matching is case-sensitive.
func Prefix(title string) string {
	for _, marker := range lcMarkers {
		if strings.Contains(title, marker) {
			return PrefixLC
		}
	}
	return PrefixOther
}

// Format renders PREFIX-YEAR-NNNN.
func Format(prefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, value)
}

package file

import (
	"strings"
	"unicode/utf8"
)

// MaxSuggestions caps the autosuggest result.
const MaxSuggestions = 10

const (
	FieldName          = "name"
	FieldDocumentTitle = "document_title"
)

// Suggestion is one autosuggest hit. Start and End are rune offsets of the
// match inside the field named by Field.
type Suggestion struct {
	FileID        int64  `json:"file_id"`
	DocumentID    int64  `json:"document_id"`
	Name          string `json:"name"`
	DocumentTitle string `json:"document_title"`
	Field         string `json:"field"`
	Start         int    `json:"start"`
	End           int    `json:"end"`
}

// matchFold returns the rune span of q inside s under Unicode case folding.
// Offsets count runes of s itself, so they stay valid when lowercasing would
// change the rune count.
func matchFold(s, q string) (int, int, bool) {
	n := utf8.RuneCountInString(q)
	if n == 0 {
		return 0, 0, false
	}
	start := 0
	for i := range s {
		end := i
		for k := 0; k < n && end < len(s); k++ {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
		}
		if strings.EqualFold(s[i:end], q) {
			return start, start + n, true
		}
		start++
	}
	return 0, 0, false
}

func (e *Entry) MatchesQuery(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	if _, _, ok := matchFold(e.Name, q); ok {
		return true
	}
	_, _, ok := matchFold(e.DocumentTitle, q)
	return ok
}

func (e *Entry) InYear(year int) bool {
	return e.dated && e.canonical.Year() == year
}

// Filter keeps entries matching query and year, preserving their order.
func Filter(entries []*Entry, query string, year *int) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if year != nil && !e.InYear(*year) {
			continue
		}
		if !e.MatchesQuery(query) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Suggest returns up to MaxSuggestions entries whose name or parent title
// contains query. A name match wins over a title match.
func Suggest(entries []*Entry, query string) []Suggestion {
	q := strings.TrimSpace(query)
	out := make([]Suggestion, 0, MaxSuggestions)
	if q == "" {
		return out
	}
	for _, e := range entries {
		if len(out) == MaxSuggestions {
			break
		}
		s := Suggestion{
			FileID:        e.ID,
			DocumentID:    e.DocumentID,
			Name:          e.Name,
			DocumentTitle: e.DocumentTitle,
		}
		if start, end, ok := matchFold(e.Name, q); ok {
			s.Field, s.Start, s.End = FieldName, start, end
		} else if start, end, ok := matchFold(e.DocumentTitle, q); ok {
			s.Field, s.Start, s.End = FieldDocumentTitle, start, end
		} else {
			continue
		}
		out = append(out, s)
	}
	return out
}

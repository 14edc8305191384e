package document

import (
	"sort"
	"strings"
	"time"

	"github.com/cpdo/zoning-tracker/internal/schedule"
)

var epoch = time.Unix(0, 0).UTC()

// CanonicalTime is the instant a document orders by: date_sort, then date_added,
// then epoch zero. ok is false when neither date parses.
func (d *Document) CanonicalTime() (time.Time, bool) {
	if t, ok := parseInstant(d.DateSort); ok {
		return t, true
	}
	if t, ok := parseInstant(d.DateAdded); ok {
		return t, true
	}
	return epoch, false
}

func parseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := schedule.ParseDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NewestFirst reports whether a sorts before b.
func NewestFirst(a, b *Document) bool {
	ta, _ := a.CanonicalTime()
	tb, _ := b.CanonicalTime()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID > b.ID
}

// SortNewestFirst orders docs in place by canonical time descending, ties by id descending.
func SortNewestFirst(docs []*Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return NewestFirst(docs[i], docs[j])
	})
}

// FormatDateSort renders t as a canonical date_sort value.
func FormatDateSort(t time.Time) string {
	return t.UTC().Format(DateSortLayout)
}

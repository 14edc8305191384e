package document

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxRecentMonths caps month buckets when no year is selected.
const MaxRecentMonths = 12

// SearchableValues is every field value of the document as text.
func (d *Document) SearchableValues() []string {
	values := []string{
		d.Title,
		d.ProjectType,
		d.ZoningApplicationNumber,
		d.Zoning,
		d.DateOfApplication,
		d.DueDate,
		d.ReceivedBy,
		d.AssistedBy,
		d.ApplicantName,
		strings.Join(d.RoutedTo, ", "),
		d.Location,
		d.Landmark,
		d.FloorArea,
		d.LotArea,
		d.Storey,
		d.Mezanine,
		d.OIC,
		d.DateAdded,
		d.DateSort,
	}
	for _, f := range d.AttachedFiles {
		values = append(values, f.Name)
	}
	return values
}

// MatchesQuery reports a case-insensitive substring match on any field value.
func (d *Document) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, v := range d.SearchableValues() {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// InYear reports whether the canonical date falls in year. Undated documents never match.
func (d *Document) InYear(year int) bool {
	t, ok := d.CanonicalTime()
	return ok && t.Year() == year
}

// Filter keeps documents matching query and, when year is set, that year.
// The result is always newest first.
func Filter(docs []*Document, query string, year *int) []*Document {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if year != nil && !d.InYear(*year) {
			continue
		}
		if !d.MatchesQuery(query) {
			continue
		}
		out = append(out, d)
	}
	SortNewestFirst(out)
	return out
}

type MonthBucket struct {
	Label     string      `json:"label"`
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Count     int         `json:"count"`
	Documents []*Document `json:"-"`
	start     time.Time
}

// GroupByMonth buckets dated documents by "{Month} {Year}", newest bucket first.
// Without a year the result keeps only the most recent MaxRecentMonths buckets.
func GroupByMonth(docs []*Document, year *int) []MonthBucket {
	index := make(map[string]int)
	var buckets []MonthBucket

	sorted := make([]*Document, len(docs))
	copy(sorted, docs)
	SortNewestFirst(sorted)

	for _, d := range sorted {
		t, ok := d.CanonicalTime()
		if !ok {
			continue
		}
		if year != nil && t.Year() != *year {
			continue
		}
		label := fmt.Sprintf("%s %d", t.Month().String(), t.Year())
		i, exists := index[label]
		if !exists {
			buckets = append(buckets, MonthBucket{
				Label: label,
				Year:  t.Year(),
				Month: int(t.Month()),
				start: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC),
			})
			i = len(buckets) - 1
			index[label] = i
		}
		buckets[i].Count++
		buckets[i].Documents = append(buckets[i].Documents, d)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].start.After(buckets[j].start)
	})

	if year == nil && len(buckets) > MaxRecentMonths {
		buckets = buckets[:MaxRecentMonths]
	}
	return buckets
}

// Years lists the distinct canonical years after 1970, newest first.
func Years(docs []*Document) []int {
	seen := make(map[int]struct{})
	years := []int{}
	for _, d := range docs {
		t, ok := d.CanonicalTime()
		if !ok || t.Year() <= 1970 {
			continue
		}
		if _, dup := seen[t.Year()]; dup {
			continue
		}
		seen[t.Year()] = struct{}{}
		years = append(years, t.Year())
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

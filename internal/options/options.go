package options

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	ZoningGroupField   = "ZONING"
	ZoningItemField    = "Type of Project"
	BarangayGroupField = "BARANGAY"
	BarangayItemField  = "PUROK"

	// noNumberRank is used by NaturalLess for strings without digits.
	noNumberRank = 999
)

// DocumentTitles are the selectable document titles, kept exactly as the office enters them.
var DocumentTitles = []string{
	"LC Area",
	"LC Buildin",
	"LC Subdivision",
	"LC LZBA Area",
	"LC LZBA Building",
	"LC LZBA Subdivision",
	"Zoning Clearance ",
	"Development Permit",
}

// Row is one object of a flat option table.
type Row map[string]interface{}

func (r Row) value(field string) string {
	raw, ok := r[field]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}

// Groups maps a group name to its ordered, de-duplicated items.
type Groups map[string][]string

// ParseGroups folds an ordered flat table into groups. A row with a group value
// opens that group; following rows with an empty group append to it. Rows that
// cannot attach to a group are dropped.
func ParseGroups(rows []Row, groupField, itemField string) Groups {
	groups := make(Groups)
	current := ""

	for _, row := range rows {
		group := row.value(groupField)
		item := row.value(itemField)

		switch {
		case group != "":
			current = group
			if _, ok := groups[current]; !ok {
				groups[current] = []string{}
			}
			if item != "" {
				groups.add(current, item)
			}
		case item != "" && current != "":
			groups.add(current, item)
		}
	}

	return groups
}

func (g Groups) add(group, item string) {
	for _, existing := range g[group] {
		if existing == item {
			return
		}
	}
	g[group] = append(g[group], item)
}

// Keys returns the group names in alphabetical order.
func (g Groups) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns a copy of the items for group in source order.
func (g Groups) Items(group string) ([]string, bool) {
	items, ok := g[group]
	if !ok {
		return nil, false
	}
	out := make([]string, len(items))
	copy(out, items)
	return out, true
}

// SortedItems returns the items for group, ordered by NaturalLess when natural is set
// and alphabetically otherwise.
func (g Groups) SortedItems(group string, natural bool) ([]string, bool) {
	items, ok := g.Items(group)
	if !ok {
		return nil, false
	}
	if natural {
		NaturalSort(items)
	} else {
		sort.Strings(items)
	}
	return items, true
}

var (
	firstDigits = regexp.MustCompile(`\d+`)

	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

func numberRank(s string) int {
	m := firstDigits.FindString(s)
	if m == "" {
		return noNumberRank
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return noNumberRank
	}
	return n
}

func localeCompare(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// NaturalLess orders by the first run of digits, then by locale collation.
func NaturalLess(a, b string) bool {
	na, nb := numberRank(a), numberRank(b)
	if na != nb {
		return na < nb
	}
	return localeCompare(a, b) < 0
}

func NaturalSort(items []string) {
	sort.SliceStable(items, func(i, j int) bool {
		return NaturalLess(items[i], items[j])
	})
}

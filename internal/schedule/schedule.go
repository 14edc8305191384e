package schedule

import (
	"fmt"
	"strings"
	"time"
)

// ReviewWorkingDays is the number of working days allotted to an application.
const ReviewWorkingDays = 12

// LongDateLayout renders dates like "January 15, 2025".
const LongDateLayout = "January 2, 2006"

var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	LongDateLayout,
	"Jan 2, 2006",
	"01/02/2006",
}

// AddWorkingDays advances start one calendar day at a time and counts only
// Monday through Friday; start itself never counts.
func AddWorkingDays(start time.Time, n int) time.Time {
	d := start
	counted := 0
	for counted < n {
		d = d.AddDate(0, 0, 1)
		if IsWorkingDay(d) {
			counted++
		}
	}
	return d
}

func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// DueDate is the review deadline for an application filed on start.
func DueDate(start time.Time) time.Time {
	return AddWorkingDays(start, ReviewWorkingDays)
}

func FormatLongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}

// ParseDate accepts ISO dates, RFC 3339 instants and the long display form.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

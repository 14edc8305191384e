package dashboard

import (
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/internal/file"
)

// RecentFileCount is how many files the dashboard shows.
const RecentFileCount = 5

type MonthCard struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Count int    `json:"count"`
}

type Summary struct {
	Year           *int          `json:"year"`
	TotalDocuments int           `json:"total_documents"`
	Months         []MonthCard   `json:"months"`
	RecentFiles    []*file.Entry `json:"recent_files"`
	Years          []int         `json:"years"`
}

// Summarize builds the dashboard from documents sorted newest first.
// The total and the recent files honor the year filter; Years never does.
func Summarize(docs []*document.Document, year *int) *Summary {
	scoped := document.Filter(docs, "", year)

	buckets := document.GroupByMonth(scoped, year)
	months := make([]MonthCard, 0, len(buckets))
	for _, b := range buckets {
		months = append(months, MonthCard{Label: b.Label, Year: b.Year, Month: b.Month, Count: b.Count})
	}

	return &Summary{
		Year:           year,
		TotalDocuments: len(scoped),
		Months:         months,
		RecentFiles:    file.Recent(file.Flatten(scoped), RecentFileCount),
		Years:          document.Years(docs),
	}
}

package auditlog

import (
	"strings"
	"time"

	auditDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/auditlog"
	"github.com/cpdo/zoning-tracker/internal/core/events"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

const dateLayout = "2006-01-02"

type Entry struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	Username    string    `json:"username"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	EntityID    *int64    `json:"entity_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows the log listing. Zero values mean no constraint.
type Filter struct {
	Page     int
	Limit    int
	UserID   *int64
	Username string
	Module   string
	Action   string
	DateFrom *time.Time
	// DateTo is exclusive; ParseDateTo moves a calendar day to the next midnight.
	DateTo *time.Time
	Search string
}

type ListResponse struct {
	Logs  []*Entry `json:"logs"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Total int64    `json:"total"`
}

// Normalize clamps paging to 1..MaxLimit and trims text filters.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	f.Username = strings.TrimSpace(f.Username)
	f.Module = strings.ToLower(strings.TrimSpace(f.Module))
	f.Action = strings.ToLower(strings.TrimSpace(f.Action))
	f.Search = strings.TrimSpace(f.Search)
}

func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ParseDateFrom reads a YYYY-MM-DD day as its first instant in UTC.
func ParseDateFrom(raw string) (*time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	return &t, true
}

// ParseDateTo reads a YYYY-MM-DD day as the start of the following day.
func ParseDateTo(raw string) (*time.Time, bool) {
	t, ok := ParseDateFrom(raw)
	if !ok {
		return nil, false
	}
	next := t.AddDate(0, 0, 1)
	return &next, true
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// FromEvent turns a published activity into a row ready to insert.
func FromEvent(e *events.ActivityEvent) *auditDatamodel.Entry {
	return &auditDatamodel.Entry{
		UserID:      optionalID(e.UserID),
		Username:    e.Username,
		Module:      e.Module,
		Action:      e.Action,
		Description: e.Description,
		EntityID:    optionalID(e.EntityID),
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
		CreatedAt:   e.OccurredAt(),
	}
}

func FromDataModel(row *auditDatamodel.Entry) *Entry {
	return &Entry{
		ID:          row.ID,
		UserID:      row.UserID,
		Username:    row.Username,
		Module:      row.Module,
		Action:      row.Action,
		Description: row.Description,
		EntityID:    row.EntityID,
		IPAddress:   row.IPAddress,
		UserAgent:   row.UserAgent,
		CreatedAt:   row.CreatedAt,
	}
}

func FromDataModelSlice(rows []*auditDatamodel.Entry) []*Entry {
	out := make([]*Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}

package file

import (
	"time"

	"github.com/cpdo/zoning-tracker/internal/document"
)

// Entry is an attached file flattened out of its parent document.
type Entry struct {
	ID             int64     `json:"id"`
	DocumentID     int64     `json:"document_id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mime_type"`
	Size           int64     `json:"size"`
	Available      bool      `json:"available"`
	CreatedAt      time.Time `json:"created_at"`
	DocumentTitle  string    `json:"document_title"`
	DocumentNumber string    `json:"zoning_application_number"`
	DateAdded      string    `json:"date_added"`
	DateSort       string    `json:"date_sort"`

	storageKey string
	canonical  time.Time
	dated      bool
}

type ListQuery struct {
	Query string
	Year  *int
}

type ListResponse struct {
	Files []*Entry `json:"files"`
	Total int      `json:"total"`
	Years []int    `json:"years"`
}

func newEntry(doc *document.Document, f document.AttachedFile) *Entry {
	t, ok := doc.CanonicalTime()
	return &Entry{
		ID:             f.ID,
		DocumentID:     doc.ID,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		Available:      f.Available,
		CreatedAt:      f.CreatedAt,
		DocumentTitle:  doc.Title,
		DocumentNumber: doc.ZoningApplicationNumber,
		DateAdded:      doc.DateAdded,
		DateSort:       doc.DateSort,
		storageKey:     f.StorageKey,
		canonical:      t,
		dated:          ok,
	}
}

// Flatten lists the files of docs ordered by their parent, newest first.
// Files of one document keep their stored order.
func Flatten(docs []*document.Document) []*Entry {
	sorted := make([]*document.Document, len(docs))
	copy(sorted, docs)
	document.SortNewestFirst(sorted)

	entries := make([]*Entry, 0, len(sorted))
	for _, doc := range sorted {
		for _, f := range doc.AttachedFiles {
			entries = append(entries, newEntry(doc, f))
		}
	}
	return entries
}

// Recent returns the first n entries of an already sorted list.
func Recent(entries []*Entry, n int) []*Entry {
	if n < 0 {
		n = 0
	}
	if len(entries) < n {
		n = len(entries)
	}
	out := make([]*Entry, n)
	copy(out, entries[:n])
	return out
}

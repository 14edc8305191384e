package document

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/pkg/export"
)

var exportHeaders = []string{
	"Date Added",
	"Zoning Application No.",
	"Title",
	"Type of Project",
	"Zoning",
	"Applicant",
	"Location",
	"Date of Application",
	"Due Date",
	"Received By",
	"Routed To",
	"OIC",
	"Files",
}

// ExportDataset flattens docs into export rows in their current order.
func ExportDataset(docs []*Document) export.Dataset {
	rows := make([]map[string]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, map[string]string{
			"Date Added":             d.DateAdded,
			"Zoning Application No.": d.ZoningApplicationNumber,
			"Title":                  strings.TrimSpace(d.Title),
			"Type of Project":        d.ProjectType,
			"Zoning":                 d.Zoning,
			"Applicant":              d.ApplicantName,
			"Location":               d.Location,
			"Date of Application":    d.DateOfApplication,
			"Due Date":               d.DueDate,
			"Received By":            d.ReceivedBy,
			"Routed To":              strings.Join(d.RoutedTo, "; "),
			"OIC":                    d.OIC,
			"Files":                  strconv.Itoa(len(d.AttachedFiles)),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders the filtered listing as csv or pdf.
func (s *Service) Export(ctx context.Context, q ListQuery, format string) (*ExportResult, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, internal.NewValidationFieldError("format", err.Error(), internal.ErrCodeValidationFailed)
	}
	list, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(ExportDataset(list.Documents), "Zoning Documents")
	if err != nil {
		s.logger.Error("failed to render document export", "error", err, "format", format)
		return nil, internal.NewInternalError("failed to render export", err)
	}

	suffix := "all"
	if q.Year != nil {
		suffix = strconv.Itoa(*q.Year)
	}
	s.logger.Info("documents exported", "format", renderer.Extension(), "count", len(list.Documents))
	return &ExportResult{
		Filename:    fmt.Sprintf("documents-%s-%s.%s", suffix, s.now().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

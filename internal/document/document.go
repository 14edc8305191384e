package document

import (
	"strings"
	"time"

	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
)

// DateSortLayout matches the canonical instant format stored in date_sort.
const DateSortLayout = "2006-01-02T15:04:05.000Z07:00"

// ISODateLayout is the wire and storage format of calendar dates.
const ISODateLayout = "2006-01-02"

type Document struct {
	ID                      int64          `json:"id"`
	Title                   string         `json:"title"`
	ProjectType             string         `json:"project_type"`
	ZoningApplicationNumber string         `json:"zoning_application_number"`
	Zoning                  string         `json:"zoning"`
	DateOfApplication       string         `json:"date_of_application"`
	DueDate                 string         `json:"due_date"`
	ReceivedBy              string         `json:"received_by"`
	AssistedBy              string         `json:"assisted_by"`
	ApplicantName           string         `json:"applicant_name"`
	RoutedTo                []string       `json:"routed_to"`
	Location                string         `json:"location"`
	Barangay                string         `json:"barangay"`
	Purok                   string         `json:"purok"`
	Landmark                string         `json:"landmark"`
	FloorArea               string         `json:"floor_area"`
	LotArea                 string         `json:"lot_area"`
	Storey                  string         `json:"storey"`
	Mezanine                string         `json:"mezanine"`
	OIC                     string         `json:"oic"`
	AttachedFiles           []AttachedFile `json:"attached_files"`
	DateAdded               string         `json:"date_added"`
	DateSort                string         `json:"date_sort"`
	CreatedBy               int64          `json:"created_by"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// AttachedFile is a single file record. An empty StorageKey marks a placeholder
// row that lists normally but has no downloadable content.
type AttachedFile struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"-"`
	Available  bool      `json:"available"`
	CreatedAt  time.Time `json:"created_at"`
}

// ComposeLocation joins barangay and purok the way the location column stores them.
func ComposeLocation(barangay, purok string) string {
	return barangay + ", " + purok
}

// SplitLocation is the inverse of ComposeLocation.
func SplitLocation(location string) (barangay, purok string) {
	parts := strings.SplitN(location, ",", 2)
	barangay = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		purok = strings.TrimSpace(parts[1])
	}
	return barangay, purok
}

func (d *Document) FileByID(id int64) (*AttachedFile, bool) {
	for i := range d.AttachedFiles {
		if d.AttachedFiles[i].ID == id {
			return &d.AttachedFiles[i], true
		}
	}
	return nil, false
}

func ToDataModel(d *Document) *documentDatamodel.Document {
	files := make([]documentDatamodel.File, len(d.AttachedFiles))
	for i, f := range d.AttachedFiles {
		files[i] = *FileToDataModel(&f)
	}
	return &documentDatamodel.Document{
		ID:                      d.ID,
		Title:                   d.Title,
		ProjectType:             d.ProjectType,
		ZoningApplicationNumber: d.ZoningApplicationNumber,
		Zoning:                  d.Zoning,
		DateOfApplication:       d.DateOfApplication,
		DueDate:                 d.DueDate,
		ReceivedBy:              d.ReceivedBy,
		AssistedBy:              d.AssistedBy,
		ApplicantName:           d.ApplicantName,
		RoutedTo:                d.RoutedTo,
		Location:                d.Location,
		Barangay:                d.Barangay,
		Purok:                   d.Purok,
		Landmark:                d.Landmark,
		FloorArea:               d.FloorArea,
		LotArea:                 d.LotArea,
		Storey:                  d.Storey,
		Mezanine:                d.Mezanine,
		OIC:                     d.OIC,
		DateAdded:               d.DateAdded,
		DateSort:                d.DateSort,
		CreatedBy:               d.CreatedBy,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
		Files:                   files,
	}
}

func FromDataModel(d *documentDatamodel.Document) *Document {
	files := make([]AttachedFile, len(d.Files))
	for i := range d.Files {
		files[i] = *FileFromDataModel(&d.Files[i])
	}
	routedTo := d.RoutedTo
	if routedTo == nil {
		routedTo = []string{}
	}
	barangay, purok := d.Barangay, d.Purok
	if barangay == "" && purok == "" && d.Location != "" {
		barangay, purok = SplitLocation(d.Location)
	}
	return &Document{
		ID:                      d.ID,
		Title:                   d.Title,
		ProjectType:             d.ProjectType,
		ZoningApplicationNumber: d.ZoningApplicationNumber,
		Zoning:                  d.Zoning,
		DateOfApplication:       d.DateOfApplication,
		DueDate:                 d.DueDate,
		ReceivedBy:              d.ReceivedBy,
		AssistedBy:              d.AssistedBy,
		ApplicantName:           d.ApplicantName,
		RoutedTo:                routedTo,
		Location:                d.Location,
		Barangay:                barangay,
		Purok:                   purok,
		Landmark:                d.Landmark,
		FloorArea:               d.FloorArea,
		LotArea:                 d.LotArea,
		Storey:                  d.Storey,
		Mezanine:                d.Mezanine,
		OIC:                     d.OIC,
		AttachedFiles:           files,
		DateAdded:               d.DateAdded,
		DateSort:                d.DateSort,
		CreatedBy:               d.CreatedBy,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
}

func FromDataModelSlice(docs []*documentDatamodel.Document) []*Document {
	result := make([]*Document, len(docs))
	for i, d := range docs {
		result[i] = FromDataModel(d)
	}
	return result
}

func FileToDataModel(f *AttachedFile) *documentDatamodel.File {
	return &documentDatamodel.File{
		ID:         f.ID,
		DocumentID: f.DocumentID,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		StorageKey: f.StorageKey,
		CreatedAt:  f.CreatedAt,
	}
}

func FileFromDataModel(f *documentDatamodel.File) *AttachedFile {
	return &AttachedFile{
		ID:         f.ID,
		DocumentID: f.DocumentID,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		StorageKey: f.StorageKey,
		Available:  f.StorageKey != "",
		CreatedAt:  f.CreatedAt,
	}
}

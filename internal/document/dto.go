package document

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/core/common/sanitize"
	"github.com/cpdo/zoning-tracker/internal/core/common/validation"
	"github.com/cpdo/zoning-tracker/internal/schedule"
)

// MaxFileBytes bounds a single decoded attachment.
const MaxFileBytes = 25 << 20

var (
	ErrDocumentNotFound  = internal.NewNotFoundError("document not found", internal.ErrCodeDocumentNotFound)
	ErrAttachmentMissing = internal.NewValidationError("at least one attached file is required", internal.ErrCodeAttachmentMissing)
	ErrLastAttachment    = internal.NewValidationError("a document must keep at least one attached file", internal.ErrCodeLastAttachment)
	ErrInsufficientRole  = internal.NewForbiddenError("your role cannot modify documents", internal.ErrCodeInsufficientRole)
)

// FileUploadDTO is an attachment sent inline with a document request.
type FileUploadDTO struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Content  string `json:"content"`
}

// Decode returns the raw bytes of a base64 payload. Data URLs are accepted.
func (f FileUploadDTO) Decode() ([]byte, error) {
	content := f.Content
	if i := strings.Index(content, ";base64,"); i >= 0 && strings.HasPrefix(content, "data:") {
		content = content[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return data, nil
}

// DetectedMimeType prefers the declared type and falls back to the data URL header.
func (f FileUploadDTO) DetectedMimeType() string {
	if f.MimeType != "" {
		return f.MimeType
	}
	if strings.HasPrefix(f.Content, "data:") {
		if i := strings.Index(f.Content, ";"); i > len("data:") {
			return f.Content[len("data:"):i]
		}
	}
	return "application/octet-stream"
}

// FieldsDTO carries the editable document fields shared by create and update.
type FieldsDTO struct {
	Title                   string   `json:"title"`
	ProjectType             string   `json:"project_type"`
	ZoningApplicationNumber string   `json:"zoning_application_number"`
	Zoning                  string   `json:"zoning"`
	DateOfApplication       string   `json:"date_of_application"`
	DueDate                 string   `json:"due_date"`
	ReceivedBy              string   `json:"received_by"`
	AssistedBy              string   `json:"assisted_by"`
	ApplicantName           string   `json:"applicant_name"`
	RoutedTo                []string `json:"routed_to"`
	Location                string   `json:"location"`
	Barangay                string   `json:"barangay"`
	Purok                   string   `json:"purok"`
	Landmark                string   `json:"landmark"`
	FloorArea               string   `json:"floor_area"`
	LotArea                 string   `json:"lot_area"`
	Storey                  string   `json:"storey"`
	Mezanine                string   `json:"mezanine"`
	OIC                     string   `json:"oic"`
}

type CreateDocumentDTO struct {
	FieldsDTO
	AttachedFiles []FileUploadDTO `json:"attached_files"`
}

type UpdateDocumentDTO struct {
	FieldsDTO
	AttachedFiles []FileUploadDTO `json:"attached_files"`
	RemoveFileIDs []int64         `json:"remove_file_ids"`
}

// Normalize sanitizes free text, splits a composite location and rewrites dates to ISO form.
func (f *FieldsDTO) Normalize() {
	f.Title = sanitizeTitle(f.Title)
	f.ProjectType = sanitize.Text(f.ProjectType)
	f.ZoningApplicationNumber = sanitize.Text(f.ZoningApplicationNumber)
	f.Zoning = sanitize.Text(f.Zoning)
	f.DateOfApplication = normalizeDate(f.DateOfApplication)
	f.DueDate = normalizeDate(f.DueDate)
	f.ReceivedBy = sanitize.Text(f.ReceivedBy)
	f.AssistedBy = sanitize.Text(f.AssistedBy)
	f.ApplicantName = sanitize.Text(f.ApplicantName)
	f.RoutedTo = sanitize.Texts(f.RoutedTo)
	f.Barangay = sanitize.Text(f.Barangay)
	f.Purok = sanitize.Text(f.Purok)
	if f.Barangay == "" && f.Purok == "" && f.Location != "" {
		f.Barangay, f.Purok = SplitLocation(sanitize.Text(f.Location))
	}
	f.Location = ""
	if f.Barangay != "" || f.Purok != "" {
		f.Location = ComposeLocation(f.Barangay, f.Purok)
	}
	f.Landmark = sanitize.Text(f.Landmark)
	f.FloorArea = sanitize.Text(f.FloorArea)
	f.LotArea = sanitize.Text(f.LotArea)
	f.Storey = sanitize.Text(f.Storey)
	f.Mezanine = sanitize.Text(f.Mezanine)
	f.OIC = sanitize.Text(f.OIC)
}

// sanitizeTitle keeps one trailing space; "Zoning Clearance " is a listed title.
func sanitizeTitle(s string) string {
	clean := sanitize.Text(s)
	if clean != "" && strings.HasSuffix(s, " ") {
		return clean + " "
	}
	return clean
}

func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := schedule.ParseDate(raw)
	if err != nil {
		return raw
	}
	return t.Format(ISODateLayout)
}

func (f *FieldsDTO) validate(v *validation.ValidationBuilder) {
	v.Field("title", f.Title).Required().MaxLength(200)
	v.Field("zoning", f.Zoning).Required()
	v.Field("project_type", f.ProjectType).Required()
	v.Field("date_of_application", f.DateOfApplication).Required().Custom(isoDate("date_of_application"))
	v.Field("due_date", f.DueDate).Custom(isoDate("due_date"))
	v.Field("received_by", f.ReceivedBy).Required()
	v.Field("applicant_name", f.ApplicantName).Required().MaxLength(200)
	v.Field("routed_to", f.RoutedTo).MinItems(1)
	v.Field("barangay", f.Barangay).Required()
	v.Field("purok", f.Purok).Required()
	v.Field("oic", f.OIC).Required()
}

func isoDate(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := schedule.ParseDate(s); err != nil {
			return internal.NewValidationFieldError(field, field+" is not a valid date", internal.ErrCodeInvalidDate)
		}
		return nil
	}
}

func validateUploads(v *validation.ValidationBuilder, files []FileUploadDTO) {
	for i, f := range files {
		field := fmt.Sprintf("attached_files[%d]", i)
		v.Field(field+".name", f.Name).Required().MaxLength(255)
		v.Field(field+".content", f.Content).Custom(func(interface{}) *internal.AppError {
			data, err := f.Decode()
			if err != nil {
				return internal.NewValidationFieldError(field+".content", "content must be base64 encoded", internal.ErrCodeInvalidPayload)
			}
			if len(data) > MaxFileBytes {
				return internal.NewValidationFieldError(field+".content", "file exceeds the size limit", internal.ErrCodeInvalidPayload)
			}
			return nil
		})
	}
}

// Validate rejects a create request without attachments before any other check.
func (d *CreateDocumentDTO) Validate() error {
	if len(d.AttachedFiles) == 0 {
		return ErrAttachmentMissing
	}
	v := validation.NewValidator()
	d.FieldsDTO.validate(v)
	validateUploads(v, d.AttachedFiles)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d *UpdateDocumentDTO) Validate() error {
	v := validation.NewValidator()
	d.FieldsDTO.validate(v)
	validateUploads(v, d.AttachedFiles)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ListQuery filters document listings.
type ListQuery struct {
	Query string
	Year  *int
}

type ListResponse struct {
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
	Years     []int       `json:"years"`
}

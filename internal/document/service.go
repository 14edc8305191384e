package document

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/core/common/sanitize"
	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/schedule"
	"github.com/cpdo/zoning-tracker/pkg/storage"
)

// AttachFunc stores the uploads of a document once its id is known and returns the file rows.
type AttachFunc func(documentID int64) ([]documentDatamodel.File, error)

type RepositoryAPI interface {
	// Create inserts doc, then calls attach and inserts the returned files, in one transaction.
	Create(ctx context.Context, doc *documentDatamodel.Document, attach AttachFunc) error
	// Update saves doc fields, removes removedFileIDs and adds the files from attach atomically.
	// It fails with ErrLastAttachment when the document would be left without files.
	Update(ctx context.Context, doc *documentDatamodel.Document, removedFileIDs []int64, attach AttachFunc) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*documentDatamodel.Document, error)
	List(ctx context.Context) ([]*documentDatamodel.Document, error)
}

type NumberGenerator interface {
	Next(ctx context.Context, title string) (string, error)
}

type BlobStore interface {
	Save(key string, data []byte) (string, error)
	Delete(key string) error
	DeletePrefix(prefix string) error
}

type Service struct {
	repo      RepositoryAPI
	numbers   NumberGenerator
	blobs     BlobStore
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, numbers NumberGenerator, blobs BlobStore, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		numbers:   numbers,
		blobs:     blobs,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func requireEditor(ctx context.Context) error {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok || !p.CanEdit() {
		return ErrInsufficientRole
	}
	return nil
}

// All returns every document, newest first.
func (s *Service) All(ctx context.Context) ([]*Document, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		return nil, err
	}
	docs := FromDataModelSlice(rows)
	SortNewestFirst(docs)
	return docs, nil
}

// Search filters all documents by q. Years covers the unfiltered collection.
func (s *Service) Search(ctx context.Context, q ListQuery) (*ListResponse, error) {
	docs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	filtered := Filter(docs, q.Query, q.Year)
	return &ListResponse{
		Documents: filtered,
		Total:     len(filtered),
		Years:     Years(docs),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Document, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

// Create persists a new document with its attachments. Validation runs before any write,
// so a rejected request leaves no trace.
func (s *Service) Create(ctx context.Context, dto CreateDocumentDTO) (*Document, error) {
	if err := requireEditor(ctx); err != nil {
		return nil, err
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		s.logger.Warn("document validation failed", "error", err)
		return nil, err
	}

	now := s.now()
	doc := &Document{CreatedBy: internal.UserIDFromContext(ctx)}
	applyFields(doc, dto.FieldsDTO)
	doc.DateAdded = schedule.FormatLongDate(now)
	doc.DateSort = FormatDateSort(now)

	if doc.DueDate == "" {
		doc.DueDate = dueDateFor(doc.DateOfApplication)
	}
	if doc.ZoningApplicationNumber == "" {
		number, err := s.numbers.Next(ctx, doc.Title)
		if err != nil {
			s.logger.Error("failed to generate zoning application number", "error", err, "title", doc.Title)
			return nil, err
		}
		doc.ZoningApplicationNumber = number
	}

	row := ToDataModel(doc)
	var saved []string
	err := s.repo.Create(ctx, row, func(documentID int64) ([]documentDatamodel.File, error) {
		files, keys, err := s.storeUploads(documentID, dto.AttachedFiles)
		saved = keys
		return files, err
	})
	if err != nil {
		s.discardBlobs(saved)
		s.logger.Error("failed to create document", "error", err, "title", doc.Title)
		return nil, err
	}

	created := FromDataModel(row)
	s.logger.Info("document created",
		"document_id", created.ID,
		"number", created.ZoningApplicationNumber,
		"files", len(created.AttachedFiles))
	s.publish(ctx, events.EventTypeDocumentCreated, events.ActionCreate, created.ID,
		fmt.Sprintf("Created document %s (%s)", created.ZoningApplicationNumber, created.Title))
	return created, nil
}

// Update replaces the editable fields. date_sort, date_added and the creator are kept.
func (s *Service) Update(ctx context.Context, id int64, dto UpdateDocumentDTO) (*Document, error) {
	if err := requireEditor(ctx); err != nil {
		return nil, err
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		s.logger.Warn("document validation failed", "error", err, "document_id", id)
		return nil, err
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	removed := make(map[int64]AttachedFile, len(dto.RemoveFileIDs))
	for _, fid := range dto.RemoveFileIDs {
		f, ok := existing.FileByID(fid)
		if !ok {
			return nil, internal.NewNotFoundError(fmt.Sprintf("file %d does not belong to document %d", fid, id), internal.ErrCodeFileNotFound)
		}
		removed[fid] = *f
	}
	if len(existing.AttachedFiles)-len(removed)+len(dto.AttachedFiles) < 1 {
		return nil, ErrLastAttachment
	}

	previousDate := existing.DateOfApplication
	previousDue := existing.DueDate
	previousNumber := existing.ZoningApplicationNumber

	doc := *existing
	applyFields(&doc, dto.FieldsDTO)
	if doc.ZoningApplicationNumber == "" {
		doc.ZoningApplicationNumber = previousNumber
	}
	if doc.DueDate == "" {
		if doc.DateOfApplication != previousDate {
			doc.DueDate = dueDateFor(doc.DateOfApplication)
		} else {
			doc.DueDate = previousDue
		}
	}
	doc.AttachedFiles = nil

	removedIDs := make([]int64, 0, len(removed))
	for fid := range removed {
		removedIDs = append(removedIDs, fid)
	}

	row := ToDataModel(&doc)
	var saved []string
	err = s.repo.Update(ctx, row, removedIDs, func(documentID int64) ([]documentDatamodel.File, error) {
		files, keys, err := s.storeUploads(documentID, dto.AttachedFiles)
		saved = keys
		return files, err
	})
	if err != nil {
		s.discardBlobs(saved)
		s.logger.Error("failed to update document", "error", err, "document_id", id)
		return nil, err
	}

	for _, f := range removed {
		if f.StorageKey != "" {
			s.discardBlobs([]string{f.StorageKey})
		}
	}

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document updated",
		"document_id", id,
		"files_added", len(dto.AttachedFiles),
		"files_removed", len(removed))
	s.publish(ctx, events.EventTypeDocumentUpdated, events.ActionUpdate, id,
		fmt.Sprintf("Updated document %s (%s)", updated.ZoningApplicationNumber, updated.Title))
	return updated, nil
}

// Delete removes the document, its file rows and every stored blob.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := requireEditor(ctx); err != nil {
		return err
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete document", "error", err, "document_id", id)
		return err
	}

	var keys []string
	for _, f := range existing.AttachedFiles {
		if f.StorageKey != "" {
			keys = append(keys, f.StorageKey)
		}
	}
	s.discardBlobs(keys)
	if err := s.blobs.DeletePrefix(fmt.Sprintf("documents/%d", id)); err != nil {
		s.logger.Warn("failed to remove document blob directory", "error", err, "document_id", id)
	}

	s.logger.Info("document deleted", "document_id", id)
	s.publish(ctx, events.EventTypeDocumentDeleted, events.ActionDelete, id,
		fmt.Sprintf("Deleted document %s (%s)", existing.ZoningApplicationNumber, existing.Title))
	return nil
}

func applyFields(doc *Document, f FieldsDTO) {
	doc.Title = f.Title
	doc.ProjectType = f.ProjectType
	doc.ZoningApplicationNumber = f.ZoningApplicationNumber
	doc.Zoning = f.Zoning
	doc.DateOfApplication = f.DateOfApplication
	doc.DueDate = f.DueDate
	doc.ReceivedBy = f.ReceivedBy
	doc.AssistedBy = f.AssistedBy
	doc.ApplicantName = f.ApplicantName
	doc.RoutedTo = f.RoutedTo
	doc.Location = f.Location
	doc.Barangay = f.Barangay
	doc.Purok = f.Purok
	doc.Landmark = f.Landmark
	doc.FloorArea = f.FloorArea
	doc.LotArea = f.LotArea
	doc.Storey = f.Storey
	doc.Mezanine = f.Mezanine
	doc.OIC = f.OIC
}

func dueDateFor(dateOfApplication string) string {
	start, err := schedule.ParseDate(dateOfApplication)
	if err != nil {
		return ""
	}
	return schedule.DueDate(start).Format(ISODateLayout)
}

func (s *Service) storeUploads(documentID int64, uploads []FileUploadDTO) ([]documentDatamodel.File, []string, error) {
	files := make([]documentDatamodel.File, 0, len(uploads))
	keys := make([]string, 0, len(uploads))
	for _, u := range uploads {
		data, err := u.Decode()
		if err != nil {
			return nil, keys, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidPayload)
		}
		mime := u.DetectedMimeType()
		if mime == "application/octet-stream" && len(data) > 0 {
			mime = http.DetectContentType(data)
		}
		key, err := s.blobs.Save(storage.DocumentKey(documentID, u.Name), data)
		if err != nil {
			return nil, keys, fmt.Errorf("store %s: %w", u.Name, err)
		}
		keys = append(keys, key)
		files = append(files, documentDatamodel.File{
			DocumentID: documentID,
			Name:       displayName(u.Name),
			MimeType:   mime,
			Size:       int64(len(data)),
			StorageKey: key,
		})
	}
	return files, keys, nil
}

// displayName keeps the client's file name minus any directory part.
func displayName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if clean := sanitize.Text(base); clean != "" && clean != "." && clean != "/" {
		return clean
	}
	return storage.SafeName(name)
}

func (s *Service) discardBlobs(keys []string) {
	for _, key := range keys {
		if err := s.blobs.Delete(key); err != nil {
			s.logger.Warn("failed to remove blob", "key", key, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, eventType, action string, entityID int64, description string) {
	event := events.NewActivityEvent(ctx, eventType, events.ModuleDocuments, action, entityID, description)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish document event", "event_type", eventType, "error", err)
	}
}

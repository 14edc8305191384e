package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/pkg/storage"
)

var (
	ErrFileNotFound     = internal.NewNotFoundError("file not found", internal.ErrCodeFileNotFound)
	ErrFileUnavailable  = internal.NewNotFoundError("file content is not available", internal.ErrCodeFileUnavailable)
	ErrLinkInvalid      = internal.NewUnauthorizedError("invalid download link", internal.ErrCodeInvalidToken)
	ErrLinkExpired      = internal.NewUnauthorizedError("download link expired", internal.ErrCodeTokenExpired)
	ErrInsufficientRole = internal.NewForbiddenError("your role cannot modify files", internal.ErrCodeInsufficientRole)
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*documentDatamodel.File, error)
	// Delete removes the file row unless it is the last one of its document.
	Delete(ctx context.Context, id int64) error
}

// DocumentSource supplies the parent documents, already sorted.
type DocumentSource interface {
	All(ctx context.Context) ([]*document.Document, error)
	GetByID(ctx context.Context, id int64) (*document.Document, error)
}

type BlobStore interface {
	Open(key string) (*os.File, error)
	Delete(key string) error
}

type LinkSigner interface {
	Generate(subject, key string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

// Download is an open blob ready to stream. The caller closes Content.
type Download struct {
	Entry   *Entry
	Content *os.File
}

type SignedLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	repo      RepositoryAPI
	documents DocumentSource
	blobs     BlobStore
	signer    LinkSigner
	publisher events.Publisher
	linkBase  string
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, documents DocumentSource, blobs BlobStore, signer LinkSigner, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		documents: documents,
		blobs:     blobs,
		signer:    signer,
		publisher: publisher,
		linkBase:  "/api/v1/files/signed/",
		logger:    logger,
	}
}

// WithLinkBase sets the URL prefix signed tokens are appended to.
func (s *Service) WithLinkBase(base string) *Service {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	s.linkBase = base
	return s
}

// All returns every attached file, newest parent first.
func (s *Service) All(ctx context.Context) ([]*Entry, error) {
	docs, err := s.documents.All(ctx)
	if err != nil {
		return nil, err
	}
	return Flatten(docs), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResponse, error) {
	docs, err := s.documents.All(ctx)
	if err != nil {
		s.logger.Error("failed to load documents for file list", "error", err)
		return nil, err
	}
	files := Filter(Flatten(docs), q.Query, q.Year)
	return &ListResponse{
		Files: files,
		Total: len(files),
		Years: document.Years(docs),
	}, nil
}

func (s *Service) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Suggest(entries, query), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.GetByID(ctx, row.DocumentID)
	if err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return newEntry(doc, *document.FileFromDataModel(row)), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok || !p.CanEdit() {
		return ErrInsufficientRole
	}
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete file", "error", err, "file_id", id)
		return err
	}
	if entry.storageKey != "" {
		if err := s.blobs.Delete(entry.storageKey); err != nil {
			s.logger.Warn("failed to remove blob", "key", entry.storageKey, "error", err)
		}
	}

	s.logger.Info("file deleted", "file_id", id, "document_id", entry.DocumentID)
	s.publish(ctx, events.EventTypeFileDeleted, events.ActionDelete, id,
		fmt.Sprintf("Deleted file %s from %s", entry.Name, entry.DocumentNumber))
	return nil
}

// Open returns the blob of file id for streaming.
func (s *Service) Open(ctx context.Context, id int64) (*Download, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, entry)
}

func (s *Service) open(ctx context.Context, entry *Entry) (*Download, error) {
	if entry.storageKey == "" {
		return nil, ErrFileUnavailable
	}
	f, err := s.blobs.Open(entry.storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("blob missing for file", "file_id", entry.ID, "key", entry.storageKey)
			return nil, ErrFileUnavailable
		}
		return nil, err
	}
	s.publish(ctx, events.EventTypeFileDownloaded, events.ActionDownload, entry.ID,
		fmt.Sprintf("Downloaded file %s", entry.Name))
	return &Download{Entry: entry, Content: f}, nil
}

// Link issues a signed URL that downloads file id without a bearer token.
func (s *Service) Link(ctx context.Context, id int64) (*SignedLink, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.storageKey == "" {
		return nil, ErrFileUnavailable
	}
	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(id, 10), entry.storageKey)
	if err != nil {
		s.logger.Error("failed to sign download link", "error", err, "file_id", id)
		return nil, err
	}
	return &SignedLink{URL: s.linkBase + token, Token: token, ExpiresAt: expiresAt}, nil
}

// OpenSigned validates token and opens the file it names.
func (s *Service) OpenSigned(ctx context.Context, token string) (*Download, error) {
	subject, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, ErrLinkExpired
		}
		return nil, ErrLinkInvalid
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, ErrLinkInvalid
	}
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// the blob may have been replaced since the link was issued
	if entry.storageKey != key {
		return nil, ErrLinkInvalid
	}
	return s.open(ctx, entry)
}

func (s *Service) publish(ctx context.Context, eventType, action string, entityID int64, description string) {
	event := events.NewActivityEvent(ctx, eventType, events.ModuleFiles, action, entityID, description)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish file event", "event_type", eventType, "error", err)
	}
}

package postgres

import (
	"context"
	"errors"

	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
	"github.com/cpdo/zoning-tracker/internal/document"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// updatableColumns excludes date_sort, date_added and the creator, which never change.
var updatableColumns = []string{
	"title",
	"project_type",
	"zoning_application_number",
	"zoning",
	"date_of_application",
	"due_date",
	"received_by",
	"assisted_by",
	"applicant_name",
	"routed_to",
	"location",
	"barangay",
	"purok",
	"landmark",
	"floor_area",
	"lot_area",
	"storey",
	"mezanine",
	"oic",
	"updated_at",
}

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) document.RepositoryAPI {
	return &DocumentRepository{db: db}
}

func orderedFiles(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *DocumentRepository) Create(ctx context.Context, doc *documentDatamodel.Document, attach document.AttachFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc.Files = nil
		if err := tx.Omit(clause.Associations).Create(doc).Error; err != nil {
			return err
		}

		files, err := attach(doc.ID)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return document.ErrAttachmentMissing
		}
		if err := tx.Create(&files).Error; err != nil {
			return err
		}
		doc.Files = files
		return nil
	})
}

func (r *DocumentRepository) Update(ctx context.Context, doc *documentDatamodel.Document, removedFileIDs []int64, attach document.AttachFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&documentDatamodel.Document{ID: doc.ID}).
			Select(updatableColumns).
			Omit(clause.Associations).
			Updates(doc)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return document.ErrDocumentNotFound
		}

		if len(removedFileIDs) > 0 {
			if err := tx.Where("document_id = ? AND id IN ?", doc.ID, removedFileIDs).
				Delete(&documentDatamodel.File{}).Error; err != nil {
				return err
			}
		}

		files, err := attach(doc.ID)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			if err := tx.Create(&files).Error; err != nil {
				return err
			}
		}

		var remaining int64
		if err := tx.Model(&documentDatamodel.File{}).Where("document_id = ?", doc.ID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining < 1 {
			return document.ErrLastAttachment
		}
		return nil
	})
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&documentDatamodel.File{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&documentDatamodel.Document{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return document.ErrDocumentNotFound
		}
		return nil
	})
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*documentDatamodel.Document, error) {
	var doc documentDatamodel.Document
	err := r.db.WithContext(ctx).Preload("Files", orderedFiles).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, document.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]*documentDatamodel.Document, error) {
	var docs []*documentDatamodel.Document
	err := r.db.WithContext(ctx).
		Preload("Files", orderedFiles).
		Order("date_sort DESC, id DESC").
		Find(&docs).Error
	return docs, err
}

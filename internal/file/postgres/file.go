package postgres

import (
	"context"
	"errors"

	documentDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/document"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/internal/file"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) file.RepositoryAPI {
	return &FileRepository{db: db}
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*documentDatamodel.File, error) {
	var f documentDatamodel.File
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, file.ErrFileNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f documentDatamodel.File
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&f).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return file.ErrFileNotFound
			}
			return err
		}

		var siblings int64
		if err := tx.Model(&documentDatamodel.File{}).Where("document_id = ?", f.DocumentID).Count(&siblings).Error; err != nil {
			return err
		}
		if siblings <= 1 {
			return document.ErrLastAttachment
		}
		return tx.Delete(&documentDatamodel.File{}, id).Error
	})
}

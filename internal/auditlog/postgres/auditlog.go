package postgres

import (
	"context"
	"strings"

	"github.com/cpdo/zoning-tracker/internal/auditlog"
	auditDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/auditlog"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) auditlog.RepositoryAPI {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *auditDatamodel.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditLogRepository) filtered(ctx context.Context, f auditlog.Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&auditDatamodel.Entry{})

	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Username != "" {
		q = q.Where("LOWER(username) = ?", strings.ToLower(f.Username))
	}
	if f.Module != "" {
		q = q.Where("module = ?", f.Module)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at < ?", *f.DateTo)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(description) LIKE ? OR LOWER(username) LIKE ?)", like, like)
	}
	return q
}

func (r *AuditLogRepository) List(ctx context.Context, f auditlog.Filter) ([]*auditDatamodel.Entry, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*auditDatamodel.Entry
	err := r.filtered(ctx, f).
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset(f.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

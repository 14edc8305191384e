package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/cpdo/zoning-tracker/internal/auth"
	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
	"github.com/cpdo/zoning-tracker/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.UserRepository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByLogin(ctx context.Context, login string) (*userDatamodel.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))

	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", login, login).
		Order("id ASC").
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

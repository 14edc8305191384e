package postgres

import (
	"context"
	"errors"
	"strings"

	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
	"github.com/cpdo/zoning-tracker/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return r.translateConflict(ctx, u, err)
	}
	return nil
}

// translateConflict maps a unique index violation to the taken sentinel of
// the column that collided. Requires gorm's TranslateError.
func (r *UserRepository) translateConflict(ctx context.Context, u *userDatamodel.User, err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if taken, lookupErr := r.UsernameExists(ctx, u.Username, u.ID); lookupErr == nil && taken {
		return user.ErrUsernameTaken
	}
	return user.ErrEmailTaken
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{ID: u.ID}).
		Select("username", "email", "password_hash", "name", "first_name", "last_name", "designation", "section", "role", "updated_at").
		Updates(u)
	if res.Error != nil {
		return r.translateConflict(ctx, u, res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{ID: id}).Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&userDatamodel.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) exists(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("LOWER("+column+") = ?", strings.ToLower(strings.TrimSpace(value)))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, "username", username, excludeID)
}

func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "email", email, excludeID)
}

package user

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cpdo/zoning-tracker/internal"
	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
	"github.com/cpdo/zoning-tracker/internal/core/events"
)

var (
	ErrUserNotFound     = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	ErrUsernameTaken    = internal.NewConflictError("username is already taken", internal.ErrCodeUsernameTaken)
	ErrEmailTaken       = internal.NewConflictError("email is already registered", internal.ErrCodeEmailTaken)
	ErrCannotDeleteSelf = internal.NewValidationError("you cannot delete your own account", internal.ErrCodeCannotDeleteSelf)
	ErrAdminRequired    = internal.NewForbiddenError("administrator role required", internal.ErrCodeInsufficientRole)
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, u *userDatamodel.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	List(ctx context.Context) ([]*userDatamodel.User, error)
	// UsernameExists and EmailExists compare case-insensitively and ignore excludeID.
	UsernameExists(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
}

type Service struct {
	repo       RepositoryAPI
	bcryptCost int
	publisher  events.Publisher
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, bcryptCost int, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		publisher:  publisher,
		logger:     logger,
	}
}

func requireAdmin(ctx context.Context) (*internal.Principal, error) {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok || !p.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return p, nil
}

func (s *Service) ensureUnique(ctx context.Context, username, email string, excludeID int64) error {
	taken, err := s.repo.UsernameExists(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	taken, err = s.repo.EmailExists(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

// Get is the admin view of a single account.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, dto.Username, dto.Email, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	row := &userDatamodel.User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: hash,
		Name:         FullName(dto.FirstName, dto.LastName),
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		Designation:  dto.Designation,
		Section:      dto.Section,
		Role:         dto.Role,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create user", "error", err, "username", dto.Username)
		return nil, err
	}

	created := FromDataModel(row)
	s.logger.Info("user created", "user_id", created.ID, "username", created.Username, "role", created.Role)
	s.publish(ctx, events.ModuleUsers, events.EventTypeUserCreated, events.ActionCreate, created.ID,
		fmt.Sprintf("Created user %s (%s)", created.Username, created.Role))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, dto.Username, dto.Email, id); err != nil {
		return nil, err
	}

	row.FirstName = dto.FirstName
	row.LastName = dto.LastName
	row.Name = FullName(dto.FirstName, dto.LastName)
	row.Username = dto.Username
	row.Email = dto.Email
	row.Role = dto.Role
	if dto.Designation != "" {
		row.Designation = dto.Designation
	}
	if dto.Section != "" {
		row.Section = dto.Section
	}
	if dto.Password != "" {
		hash, err := HashPassword(dto.Password, s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		row.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}

	updated := FromDataModel(row)
	s.publish(ctx, events.ModuleUsers, events.EventTypeUserUpdated, events.ActionUpdate, id,
		fmt.Sprintf("Updated user %s", updated.Username))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if admin.ID == id {
		return ErrCannotDeleteSelf
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return err
	}

	s.logger.Info("user deleted", "user_id", id, "by", admin.ID)
	s.publish(ctx, events.ModuleUsers, events.EventTypeUserDeleted, events.ActionDelete, id,
		fmt.Sprintf("Deleted user %s", row.Username))
	return nil
}

// Directory lists name and email of every account, sorted by name.
func (s *Service) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DirectoryEntry, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if name == "" {
			name = r.Username
		}
		out = append(out, DirectoryEntry{ID: r.ID, Name: name, Email: r.Email})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// UpdateProfile changes the caller's own username and email.
func (s *Service) UpdateProfile(ctx context.Context, dto UpdateProfileDTO) (*User, error) {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok {
		return nil, internal.ErrInvalidToken
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, dto.Username, dto.Email, p.ID); err != nil {
		return nil, err
	}

	row.Username = dto.Username
	row.Email = dto.Email
	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", p.ID)
		return nil, err
	}

	s.publish(ctx, events.ModuleSettings, events.EventTypeSettingsChanged, events.ActionUpdate, p.ID,
		"Updated profile settings")
	return FromDataModel(row), nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, dto ChangePasswordDTO) error {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok {
		return internal.ErrInvalidToken
	}
	if err := dto.Validate(); err != nil {
		return err
	}
	row, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(row.PasswordHash, dto.CurrentPassword); err != nil {
		s.logger.Warn("password change rejected", "user_id", p.ID)
		return internal.NewValidationFieldError("current_password", "current password is incorrect", internal.ErrCodeWrongPassword)
	}

	hash, err := HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, p.ID, hash); err != nil {
		s.logger.Error("failed to store password", "error", err, "user_id", p.ID)
		return err
	}

	s.publish(ctx, events.ModuleSettings, events.EventTypePasswordChanged, events.ActionUpdate, p.ID,
		"Changed password")
	return nil
}

func (s *Service) publish(ctx context.Context, module, eventType, action string, entityID int64, description string) {
	event := events.NewActivityEvent(ctx, eventType, module, action, entityID, description)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish user event", "event_type", eventType, "error", err)
	}
}

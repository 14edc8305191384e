package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cpdo/zoning-tracker/internal"
	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/user"
)

// UserRepository looks up accounts for login and token refresh.
type UserRepository interface {
	// GetByLogin matches username or email case-insensitively.
	GetByLogin(ctx context.Context, login string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	Me(ctx context.Context) (*user.User, error)
}

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	publisher      events.Publisher
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, tokenGen TokenGenerator, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		publisher:      publisher,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.userRepo.GetByLogin(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.logger.Warn("login failed: unknown account", "login", dto.Username)
			return nil, internal.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := user.VerifyPassword(row.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login failed: wrong password", "user_id", row.ID)
		return nil, internal.ErrInvalidCredentials
	}

	account := user.FromDataModel(row)
	tokens, err := s.issue(account.Principal())
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", account.ID, "role", account.Role)
	event := events.NewActivityEventFor(ctx, events.EventTypeUserLoggedIn, events.ModuleAuth, events.ActionLogin,
		account.ID, account.Username, account.ID, fmt.Sprintf("User %s logged in", account.Username))
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish login event", "error", err)
	}

	return &LoginResponse{AuthTokens: tokens, User: account}, nil
}

// RefreshTokens validates the refresh token and returns a new pair. The
// account is reloaded so a changed role or a deleted user takes effect.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	row, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return AuthTokens{}, internal.ErrInvalidToken
		}
		return AuthTokens{}, err
	}

	return s.issue(user.FromDataModel(row).Principal())
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// Me returns the profile of the authenticated caller.
func (s *Service) Me(ctx context.Context) (*user.User, error) {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok {
		return nil, internal.ErrInvalidToken
	}
	row, err := s.userRepo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return user.FromDataModel(row), nil
}

func (s *Service) issue(p *internal.Principal) (AuthTokens, error) {
	accessToken, expiresAt, err := s.tokenGenerator.GenerateAccessToken(p)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign access token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(p)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to sign refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

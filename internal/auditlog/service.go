package auditlog

import (
	"context"
	"log/slog"

	"github.com/cpdo/zoning-tracker/internal"
	auditDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/auditlog"
)

type RepositoryAPI interface {
	Create(ctx context.Context, entry *auditDatamodel.Entry) error
	List(ctx context.Context, filter Filter) ([]*auditDatamodel.Entry, int64, error)
}

type ServiceAPI interface {
	List(ctx context.Context, filter Filter) (*ListResponse, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns one page of entries, newest first. Admin only.
func (s *Service) List(ctx context.Context, filter Filter) (*ListResponse, error) {
	p, ok := internal.PrincipalFromContext(ctx)
	if !ok || !p.IsAdmin() {
		return nil, internal.ErrInsufficientRole
	}

	filter.Normalize()
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		return nil, err
	}

	return &ListResponse{
		Logs:  FromDataModelSlice(rows),
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	}, nil
}

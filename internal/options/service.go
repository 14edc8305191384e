package options

import (
	"fmt"
	"log/slog"

	"github.com/cpdo/zoning-tracker/internal"
)

var (
	ErrZoningNotFound   = internal.NewNotFoundError("zoning not found", internal.ErrCodeOptionNotFound)
	ErrBarangayNotFound = internal.NewNotFoundError("barangay not found", internal.ErrCodeOptionNotFound)
)

type Service struct {
	zoning    Groups
	barangays Groups
	logger    *slog.Logger
}

func NewService(zoning, barangays Groups, logger *slog.Logger) *Service {
	if zoning == nil {
		zoning = Groups{}
	}
	if barangays == nil {
		barangays = Groups{}
	}
	return &Service{
		zoning:    zoning,
		barangays: barangays,
		logger:    logger,
	}
}

// LoadService reads both option tables named in cfg.
func LoadService(cfg internal.OptionsConfig, logger *slog.Logger) (*Service, error) {
	zoning, err := LoadGroupsFromFile(cfg.ZoningFile, ZoningGroupField, ZoningItemField)
	if err != nil {
		return nil, fmt.Errorf("load zoning table: %w", err)
	}
	barangays, err := LoadGroupsFromFile(cfg.BarangayFile, BarangayGroupField, BarangayItemField)
	if err != nil {
		return nil, fmt.Errorf("load barangay table: %w", err)
	}

	logger.Info("option tables loaded", "zonings", len(zoning), "barangays", len(barangays))
	return NewService(zoning, barangays, logger), nil
}

func (s *Service) Titles() []string {
	out := make([]string, len(DocumentTitles))
	copy(out, DocumentTitles)
	return out
}

func (s *Service) Zonings() []string {
	return s.zoning.Keys()
}

func (s *Service) ProjectTypes(zoning string) ([]string, error) {
	items, ok := s.zoning.Items(zoning)
	if !ok {
		return nil, ErrZoningNotFound
	}
	return items, nil
}

func (s *Service) Barangays() []string {
	return s.barangays.Keys()
}

func (s *Service) Puroks(barangay string) ([]string, error) {
	items, ok := s.barangays.SortedItems(barangay, true)
	if !ok {
		return nil, ErrBarangayNotFound
	}
	return items, nil
}

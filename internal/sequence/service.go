package sequence

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type RepositoryAPI interface {
	// Increment atomically bumps the (prefix, year) counter and returns the new value.
	Increment(ctx context.Context, prefix string, year int) (int64, error)
	Current(ctx context.Context, prefix string, year int) (int64, error)
}

type Generator struct {
	repo   RepositoryAPI
	now    func() time.Time
	logger *slog.Logger
}

func NewGenerator(repo RepositoryAPI, logger *slog.Logger) *Generator {
	return &Generator{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Next consumes and returns the next zoning application number for title.
func (g *Generator) Next(ctx context.Context, title string) (string, error) {
	prefix := Prefix(title)
	year := g.now().Year()

	value, err := g.repo.Increment(ctx, prefix, year)
	if err != nil {
		g.logger.Error("failed to increment sequence counter", "prefix", prefix, "year", year, "error", err)
		return "", fmt.Errorf("increment sequence %s-%d: %w", prefix, year, err)
	}

	number := Format(prefix, year, value)
	g.logger.Info("zoning application number issued", "number", number)
	return number, nil
}

// Peek returns the number Next would issue without consuming it.
func (g *Generator) Peek(ctx context.Context, title string) (string, error) {
	prefix := Prefix(title)
	year := g.now().Year()

	value, err := g.repo.Current(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("read sequence %s-%d: %w", prefix, year, err)
	}
	return Format(prefix, year, value+1), nil
}

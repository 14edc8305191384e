package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/pkg/cache"
)

type DocumentSource interface {
	All(ctx context.Context) ([]*document.Document, error)
}

// Subscriber registers handlers that run before Publish returns.
type Subscriber interface {
	SubscribeSync(eventType string, handler events.Handler)
}

type Service struct {
	documents DocumentSource
	cache     cache.Cache
	ttl       time.Duration
	logger    *slog.Logger

	// generation moves on every Invalidate. A summary computed under an
	// older generation is returned but never cached.
	mu         sync.Mutex
	generation uint64
}

// NewService builds the dashboard service. A nil cache computes every summary.
func NewService(documents DocumentSource, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		documents: documents,
		cache:     c,
		ttl:       ttl,
		logger:    logger,
	}
}

func cacheKey(year *int) string {
	if year == nil {
		return "summary:all"
	}
	return "summary:" + strconv.Itoa(*year)
}

func (s *Service) Summary(ctx context.Context, year *int) (*Summary, error) {
	key := cacheKey(year)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var cached Summary
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return &cached, nil
			}
			s.logger.Warn("discarding unreadable dashboard cache entry", "key", key)
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn("dashboard cache read failed", "key", key, "error", err)
		}
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	docs, err := s.documents.All(ctx)
	if err != nil {
		s.logger.Error("failed to load documents for dashboard", "error", err)
		return nil, err
	}
	summary := Summarize(docs, year)

	if s.cache != nil {
		s.store(ctx, key, gen, summary)
	}
	return summary, nil
}

func (s *Service) store(ctx context.Context, key string, gen uint64, summary *Summary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("skipping stale dashboard cache write", "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("dashboard cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", "error", err)
		return err
	}
	s.logger.Debug("dashboard cache invalidated")
	return nil
}

// SubscribeInvalidation clears the cache whenever documents or files change,
// before the mutating request returns.
func (s *Service) SubscribeInvalidation(bus Subscriber) {
	for _, eventType := range events.DocumentMutationTypes {
		bus.SubscribeSync(eventType, func(ctx context.Context, _ events.Event) error {
			return s.Invalidate(ctx)
		})
	}
}

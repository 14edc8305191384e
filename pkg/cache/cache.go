package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys. Implementations are safe for concurrent use.
type Cache interface {
	// Get returns ErrCacheMiss when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a zero ttl uses the default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key owned by this cache.
	Clear(ctx context.Context) error
	Close() error
}

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrCacheMiss   Error = "cache miss"
	ErrCacheClosed Error = "cache closed"
)

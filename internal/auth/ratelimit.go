package auth

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/transport"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

var ErrRateLimited = internal.NewTooManyRequestsError("too many login attempts, try again later", internal.ErrCodeRateLimited)

// LoginRateLimiter keeps one token bucket per client IP. Once maxClients
// addresses are tracked, idle buckets are evicted and any further newcomers
// share a single overflow bucket, so a flood of new addresses never resets
// an existing client's budget.
type LoginRateLimiter struct {
	*transport.BaseHandler
	limiters   map[string]*rate.Limiter
	overflow   *rate.Limiter
	mu         sync.RWMutex
	rate       rate.Limit
	burst      int
	maxClients int
}

func NewLoginRateLimiter(rps float64, burst int, logger *slog.Logger) *LoginRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LoginRateLimiter{
		BaseHandler: transport.NewBaseHandler(logger),
		limiters:    make(map[string]*rate.Limiter),
		overflow:    rate.NewLimiter(rate.Limit(rps), burst),
		rate:        rate.Limit(rps),
		burst:       burst,
		maxClients:  maxTrackedClients,
	}
}

func (l *LoginRateLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists = l.limiters[key]; exists {
		return limiter
	}

	if len(l.limiters) >= l.maxClients {
		l.evictIdle()
		if len(l.limiters) >= l.maxClients {
			return l.overflow
		}
	}
	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}

// evictIdle drops buckets that have refilled completely. Callers hold mu.
func (l *LoginRateLimiter) evictIdle() {
	for key, limiter := range l.limiters {
		if limiter.Tokens() >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}

// Allow reports whether ip may attempt another login now.
func (l *LoginRateLimiter) Allow(ip string) bool {
	if l.rate <= 0 {
		return true
	}
	return l.get(ip).Allow()
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr only; forwarded headers count once RealIP has vetted them
		ip := transport.ClientIP(r)
		if !l.Allow(ip) {
			l.Logger.Warn("login rate limit exceeded", "ip", ip)
			w.Header().Set("Retry-After", "1")
			l.HandleServiceError(w, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

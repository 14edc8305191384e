package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserKey        ctxKey = "principal"
	ContextRequestMetaKey ctxKey = "request_meta"
)

const (
	RoleAdmin  = "Admin"
	RoleUser   = "User"
	RoleViewer = "Viewer"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// CanEdit reports whether the principal may create, edit or delete documents.
func (p *Principal) CanEdit() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleUser)
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextUserKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextUserKey).(*Principal)
	return p, ok && p != nil
}

func UserIDFromContext(ctx context.Context) int64 {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.ID
	}
	return 0
}

// RequestMeta describes the client behind a request, for audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, ContextRequestMetaKey, meta)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	meta, _ := ctx.Value(ContextRequestMetaKey).(RequestMeta)
	return meta
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

package middleware

import (
	"net/http"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/cpdo/zoning-tracker/pkg/logger"
)

// RequestMeta records the client address and agent for audit entries.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := internal.ContextWithRequestMeta(r.Context(), internal.RequestMeta{
			IPAddress: transport.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserContext tags the request logger with the authenticated user. Mount it after the auth middleware.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if p, ok := internal.PrincipalFromContext(ctx); ok {
			ctx = logger.With(ctx, "userID", p.ID, "role", p.Role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

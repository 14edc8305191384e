package auth

import (
	"log/slog"
	"net/http"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
	}
}

// Check lets the request through when allow accepts the caller.
func (ra *RBACAuthorization) Check(next http.HandlerFunc, name string, allow func(*internal.Principal) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			ra.Logger.Warn("authorization check failed: user not found in context")
			ra.HandleServiceError(w, internal.ErrInvalidToken)
			return
		}

		if !allow(p) {
			ra.Logger.WarnContext(r.Context(), "access denied: insufficient role",
				"user_id", p.ID,
				"required", name,
				"role", p.Role)
			ra.HandleServiceError(w, internal.ErrInsufficientRole)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(name string, allow func(*internal.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, name, allow)
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.Middleware(internal.RoleAdmin, (*internal.Principal).IsAdmin)
}

// RequireEditor admits Admin and User.
func (ra *RBACAuthorization) RequireEditor() func(http.Handler) http.Handler {
	return ra.Middleware("editor", (*internal.Principal).CanEdit)
}

package rest

import (
	"log/slog"
	"net/http"

	"github.com/cpdo/zoning-tracker/internal/auditlog"
	"github.com/cpdo/zoning-tracker/internal/auth"
	"github.com/cpdo/zoning-tracker/internal/dashboard"
	"github.com/cpdo/zoning-tracker/internal/document"
	"github.com/cpdo/zoning-tracker/internal/file"
	"github.com/cpdo/zoning-tracker/internal/options"
	"github.com/cpdo/zoning-tracker/internal/sequence"
	"github.com/cpdo/zoning-tracker/internal/transport/middleware"
	"github.com/cpdo/zoning-tracker/internal/transport/swagger"
	"github.com/cpdo/zoning-tracker/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything RegisterAllRoutes mounts. Nil handlers are skipped.
type Handlers struct {
	Health       *HealthHandler
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	LoginLimiter *auth.LoginRateLimiter
	User         *user.Handler
	Document     *document.Handler
	File         *file.Handler
	Dashboard    *dashboard.Handler
	Options      *options.Handler
	Sequence     *sequence.Handler
	AuditLog     *auditlog.Handler
	Metrics      *middleware.Metrics
}

type RouterConfig struct {
	AllowedOrigins []string
	OpenAPIPath    string
	MetricsPath    string
	MaxBodyBytes   int64
	// TrustProxy takes the client address from X-Real-IP / X-Forwarded-For.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RequestID)
	if cfg.TrustProxy {
		router.Use(chiMiddleware.RealIP)
	}
	router.Use(middleware.RequestMeta)
	router.Use(middleware.RecoveryMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Middleware)
	}
	if cfg.MaxBodyBytes > 0 {
		router.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	}
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	if cfg.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, cfg.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	if h.Metrics != nil && cfg.MetricsPath != "" {
		router.Method(http.MethodGet, cfg.MetricsPath, h.Metrics.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Group(func(lr chi.Router) {
				if h.LoginLimiter != nil {
					lr.Use(h.LoginLimiter.Middleware)
				}
				lr.Post("/login", h.Auth.Login)
			})
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// signed links carry their own authorization
		if h.File != nil {
			r.Get("/files/signed/{token}", h.File.DownloadSigned)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			pr.Get("/auth/me", h.Auth.Me)

			if h.Document != nil {
				pr.Route("/documents", func(dr chi.Router) {
					dr.Get("/", h.Document.ListDocuments)
					dr.Get("/export", h.Document.ExportDocuments)
					dr.Get("/{id}", h.Document.GetDocument)

					dr.Group(func(er chi.Router) {
						er.Use(h.RBAC.RequireEditor())
						er.Post("/", h.Document.CreateDocument)
						er.Put("/{id}", h.Document.UpdateDocument)
						er.Delete("/{id}", h.Document.DeleteDocument)
					})
				})
			}

			if h.File != nil {
				pr.Route("/files", func(fr chi.Router) {
					fr.Get("/", h.File.ListFiles)
					fr.Get("/suggest", h.File.SuggestFiles)
					fr.Get("/{id}", h.File.GetFile)
					fr.Get("/{id}/download", h.File.DownloadFile)
					fr.Get("/{id}/link", h.File.CreateLink)

					fr.With(h.RBAC.RequireEditor()).Delete("/{id}", h.File.DeleteFile)
				})
			}

			if h.Dashboard != nil {
				pr.Get("/dashboard", h.Dashboard.GetSummary)
			}

			if h.Options != nil {
				pr.Route("/options", func(or chi.Router) {
					or.Get("/titles", h.Options.GetTitles)
					or.Get("/zonings", h.Options.GetZonings)
					or.Get("/project-types", h.Options.GetProjectTypes)
					or.Get("/barangays", h.Options.GetBarangays)
					or.Get("/puroks", h.Options.GetPuroks)
				})
			}

			if h.Sequence != nil {
				pr.Get("/sequence/preview", h.Sequence.Preview)
			}

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/directory", h.User.GetDirectory)

					ur.Group(func(ar chi.Router) {
						ar.Use(h.RBAC.RequireAdmin())
						ar.Get("/", h.User.ListUsers)
						ar.Post("/", h.User.CreateUser)
						ar.Get("/{id}", h.User.GetUser)
						ar.Put("/{id}", h.User.UpdateUser)
						ar.Delete("/{id}", h.User.DeleteUser)
					})
				})

				pr.Route("/settings", func(sr chi.Router) {
					sr.Put("/profile", h.User.UpdateProfile)
					sr.Put("/password", h.User.ChangePassword)
					sr.Post("/password/strength", h.User.CheckPasswordStrength)
				})
			}

			if h.AuditLog != nil {
				pr.With(h.RBAC.RequireAdmin()).Get("/logs", h.AuditLog.ListLogs)
			}
		})
	})
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/auditlog"
	auditlogPostgres "github.com/cpdo/zoning-tracker/internal/auditlog/postgres"
	"github.com/cpdo/zoning-tracker/internal/auth"
	authPostgres "github.com/cpdo/zoning-tracker/internal/auth/postgres"
	"github.com/cpdo/zoning-tracker/internal/core/events"
	"github.com/cpdo/zoning-tracker/internal/dashboard"
	"github.com/cpdo/zoning-tracker/internal/document"
	documentPostgres "github.com/cpdo/zoning-tracker/internal/document/postgres"
	"github.com/cpdo/zoning-tracker/internal/file"
	filePostgres "github.com/cpdo/zoning-tracker/internal/file/postgres"
	"github.com/cpdo/zoning-tracker/internal/options"
	"github.com/cpdo/zoning-tracker/internal/sequence"
	sequencePostgres "github.com/cpdo/zoning-tracker/internal/sequence/postgres"
	"github.com/cpdo/zoning-tracker/internal/transport"
	"github.com/cpdo/zoning-tracker/internal/transport/middleware"
	"github.com/cpdo/zoning-tracker/internal/transport/rest"
	"github.com/cpdo/zoning-tracker/internal/transport/swagger"
	"github.com/cpdo/zoning-tracker/internal/user"
	userPostgres "github.com/cpdo/zoning-tracker/internal/user/postgres"
	"github.com/cpdo/zoning-tracker/pkg/cache"
	"github.com/cpdo/zoning-tracker/pkg/logger"
	"github.com/cpdo/zoning-tracker/pkg/storage"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Gorm        *gorm.DB
	Router      *chi.Mux
	Logger      *slog.Logger
	EventBus    *events.EventBus
	AuditWriter *auditlog.Writer
	Cache       cache.Cache
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("Failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

// close releases resources in reverse order of creation. Pending audit
// entries are flushed before the database goes away.
func (d *Dependencies) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.EventBus.Drain(ctx); err != nil {
		d.Logger.Warn("Event handlers still running at shutdown", "error", err)
	}
	if d.AuditWriter != nil {
		d.AuditWriter.Shutdown()
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Logger.Error("Cache close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)

	if cfg.Server.OpenAPIPath != "" {
		if _, err := swagger.LoadSpec(context.Background(), cfg.Server.OpenAPIPath); err != nil {
			return err
		}
	}

	// storage
	blobs, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Security.DownloadSecret, cfg.Security.DownloadLinkTTL)

	optionService, err := options.LoadService(cfg.Options, lg)
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}

	// repositories
	userRepo := userPostgres.NewUserRepository(deps.Gorm)
	authRepo := authPostgres.NewRepository(deps.Gorm)
	documentRepo := documentPostgres.NewDocumentRepository(deps.Gorm)
	fileRepo := filePostgres.NewFileRepository(deps.Gorm)
	auditRepo := auditlogPostgres.NewAuditLogRepository(deps.Gorm)
	counterRepo := sequencePostgres.NewCounterRepository(deps.DB)

	// audit trail
	deps.AuditWriter = auditlog.NewWriter(auditRepo, auditlog.WriterConfig{
		MaxWorkers:   cfg.Audit.Workers,
		QueueSize:    cfg.Audit.QueueSize,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}, lg)
	auditlog.NewRecorder(deps.AuditWriter, lg).SubscribeAll(deps.EventBus)

	// services
	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, deps.EventBus, lg)
	userService := user.NewService(userRepo, cfg.Security.BCryptCost, deps.EventBus, lg)
	generator := sequence.NewGenerator(counterRepo, lg)
	documentService := document.NewService(documentRepo, generator, blobs, deps.EventBus, lg)
	fileService := file.NewService(fileRepo, documentService, blobs, signer, deps.EventBus, lg).
		WithLinkBase(cfg.Server.BaseURL + "/api/v1/files/signed/")
	auditService := auditlog.NewService(auditRepo, lg)

	dashboardService := dashboard.NewService(documentService, deps.Cache, cfg.Cache.TTL, lg)
	dashboardService.SubscribeInvalidation(deps.EventBus)

	health := rest.NewHealthHandler(deps.DB)
	if redisCache, ok := deps.Cache.(*cache.RedisCache); ok {
		health.WithCheck("redis", rest.PingFunc(redisCache.Ping))
	}

	var metrics *middleware.Metrics
	if cfg.Observability.Metrics.Enabled {
		metrics = middleware.NewMetrics()
	}

	rest.RegisterAllRoutes(deps.Router, rest.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOriginList(),
		OpenAPIPath:    cfg.Server.OpenAPIPath,
		MetricsPath:    cfg.Observability.Metrics.Path,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TrustProxy:     cfg.Server.TrustProxy,
	}, rest.Handlers{
		Health:       health,
		Auth:         auth.NewHandler(base, authService),
		RBAC:         auth.NewRBACAuthorization(lg),
		LoginLimiter: auth.NewLoginRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst, lg),
		User:         user.NewHandler(base, userService),
		Document:     document.NewHandler(base, documentService),
		File:         file.NewHandler(base, fileService),
		Dashboard:    dashboard.NewHandler(base, dashboardService),
		Options:      options.NewHandler(base, optionService),
		Sequence:     sequence.NewHandler(base, generator),
		AuditLog:     auditlog.NewHandler(base, auditService),
		Metrics:      metrics,
	}, lg)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Configure(logger.Options{
		Env:    config.Env,
		Level:  config.Observability.Logging.Level,
		Format: config.Observability.Logging.Format,
	})

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	summaryCache, err := initCache(config.Cache, lg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(lg),
		Cache:    summaryCache,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}

// initCache returns the Redis cache when enabled, otherwise an in-process one.
func initCache(cfg internal.CacheConfig, lg *slog.Logger) (cache.Cache, error) {
	if !cfg.Enabled {
		return cache.NewMemoryCache(cfg.TTL), nil
	}
	redisCache, err := cache.DialRedisCache(cache.RedisOptions{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		Prefix:     "zoning:dashboard:",
		DefaultTTL: cfg.TTL,
	})
	if err != nil {
		return nil, err
	}
	lg.Info("dashboard cache connected", "addr", cfg.Addr)
	return redisCache, nil
}

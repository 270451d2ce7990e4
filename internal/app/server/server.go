package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"leavelite/internal/domain/auth"
	"leavelite/internal/domain/leave"
	"leavelite/internal/platform/config"
	"leavelite/internal/platform/db"
	"leavelite/internal/platform/docstore"
	"leavelite/internal/platform/metrics"
	"leavelite/internal/transport/http/api"
	authhandler "leavelite/internal/transport/http/handlers/auth"
	documenthandler "leavelite/internal/transport/http/handlers/documents"
	leavehandler "leavelite/internal/transport/http/handlers/leave"
	"leavelite/internal/transport/http/middleware"
)

type AuthService interface {
	authhandler.Service
	middleware.Authenticator
}

// Deps is everything the router needs. Tests build it from stubs.
type Deps struct {
	Config    config.Config
	Logger    *zap.Logger
	Auth      AuthService
	Leave     leavehandler.Service
	Documents documenthandler.Store
	Metrics   *metrics.Collector
	// Ready reports the applied migration version, or an error when the database is unreachable.
	Ready func(ctx context.Context) (int64, error)
}

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
	Logger *zap.Logger
}

// New connects to the database, applies migrations and the admin seed when enabled,
// and wires the HTTP router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL, cfg.Policy.DefaultAvailableLeave, logger)
	leaveService := leave.NewService(leave.NewStore(pool), cfg.Policy, logger)
	documents := docstore.New(cfg.DocStore, cfg.Policy.MaxDocumentBytes, logger)

	router := NewRouter(Deps{
		Config:    cfg,
		Logger:    logger,
		Auth:      authService,
		Leave:     leaveService,
		Documents: documents,
		Metrics:   metrics.New(),
		Ready: func(ctx context.Context) (int64, error) {
			if err := pool.Ping(ctx); err != nil {
				return 0, err
			}
			return db.MigrationVersion(ctx, pool)
		},
	})

	return &App{Config: cfg, DB: pool, Router: router, Logger: logger}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.New()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.Auth(deps.Auth))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", middleware.GetRequestID(r.Context()))
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		if deps.Ready == nil {
			api.Success(w, map[string]any{"status": "ready"}, requestID)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		version, err := deps.Ready(ctx)
		if err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			api.Fail(w, http.StatusServiceUnavailable, "not_ready", "database not ready", requestID)
			return
		}
		api.Success(w, map[string]any{"status": "ready", "migrationVersion": version}, requestID)
	})

	rateLimitOpts := []middleware.RateLimitOption{middleware.WithLogger(logger)}
	if proxies, err := cfg.TrustedProxyPrefixes(); err != nil {
		logger.Warn("ignoring invalid trusted proxies", zap.Error(err))
	} else if len(proxies) > 0 {
		rateLimitOpts = append(rateLimitOpts, middleware.WithTrustedProxies(proxies))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, rateLimitOpts...))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, rateLimitOpts...))

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
			authhandler.NewHandler(deps.Auth, cfg.IsProduction()).RegisterRoutes(r)
			leavehandler.NewHandler(deps.Leave).RegisterRoutes(r)

			r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/admin/metrics", func(w http.ResponseWriter, r *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
			})
		})

		// Uploads carry their own limit sized to the document policy.
		documenthandler.NewHandler(deps.Documents, cfg.Policy.MaxDocumentBytes).RegisterRoutes(r)
	})

	return router
}

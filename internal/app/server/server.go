package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/auth"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/evaluation"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/domain/notifications"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/platform/config"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/platform/db"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/platform/email"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/platform/metrics"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/api"
	authhandler "github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/handlers/auth"
	evaluationhandler "github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/handlers/evaluation"
	notificationshandler "github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/handlers/notifications"
	"github.com/weerawatman/frappe-performance-pulse-sub001/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// New assembles the application: storage, domain services, workflow wiring
// and the HTTP router. The caller owns the pool's lifetime via Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	collector := metrics.New()
	userStore := auth.NewStore(pool)

	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom, cfg.EmailEnabled)

	evalStore := evaluation.NewPGStore(pool)
	machine := evaluation.NewMachine(
		evalStore,
		evaluation.DirectoryFunc(func(ctx context.Context, actorID string) (evaluation.Actor, error) {
			user, err := userStore.UserByID(ctx, actorID)
			if err != nil {
				return evaluation.Actor{}, err
			}
			return evaluation.Actor{ID: user.ID, Name: user.Name, Role: user.Role}, nil
		}),
		evaluation.NotifierFunc(func(ctx context.Context, notice evaluation.TransitionNotice) {
			notifyService.EvaluationMoved(ctx, string(notice.RecordType), notice.RecordID, notice.EmployeeID, string(notice.Status), notice.ActorRole, notice.Feedback)
		}),
	)
	evalService := evaluation.NewService(evalStore, machine)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermSystemAdmin)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(userStore, cfg.JWTSecret)
		r.With(middleware.RateLimit(max(cfg.RateLimitPerMinute/4, 1), time.Minute, middleware.WithKeyFunc(middleware.AuthEmailOrIPKey("email")))).
			Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/auth/me", authHandler.HandleMe)

		evaluationhandler.NewHandler(evalService, machine, userStore, collector).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Metrics: collector,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run builds the app from the environment and serves until the listener
// fails.
func Run() {
	cfg := config.Load()

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	log.Printf("performance server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

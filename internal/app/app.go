package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/isokoinfo/marketplace/internal/auth"
	"github.com/isokoinfo/marketplace/internal/config"
	"github.com/isokoinfo/marketplace/internal/event"
	handler "github.com/isokoinfo/marketplace/internal/handler/http"
	"github.com/isokoinfo/marketplace/internal/repository/postgres"
	redisrepo "github.com/isokoinfo/marketplace/internal/repository/redis"
	"github.com/isokoinfo/marketplace/internal/service"
	"github.com/isokoinfo/marketplace/internal/view"
	"github.com/isokoinfo/marketplace/migrations"
	"github.com/isokoinfo/marketplace/pkg/database"
	"github.com/isokoinfo/marketplace/pkg/health"
	pkgkafka "github.com/isokoinfo/marketplace/pkg/kafka"
	"github.com/isokoinfo/marketplace/pkg/tracing"
)

// startupTimeout bounds connecting to every dependency, including the
// postgres retry loop.
const startupTimeout = 60 * time.Second

// App wires together all dependencies and runs the marketplace server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	media          *mediaBackend
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// OpenDatabase connects to PostgreSQL with the configured pool settings.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	return pool, nil
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.Tracing(handler.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	a.pool, err = OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, handler.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	applied, err := database.RunMigrations(ctx, a.pool, migrations.FS, logger)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed", slog.Int("applied", applied))

	// Configure slow query logging.
	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	// Session revocation is optional; without redis, logout only clears the
	// cookie.
	var revoked auth.RevocationStore
	if cfg.RedisEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		revoked = redisrepo.NewSessionStore(a.redis)
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
	}

	// Kafka events are optional.
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	a.media, err = newMediaBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init media store: %w", err)
	}
	logger.Info("media store initialized", slog.String("backend", cfg.MediaBackend))

	views, err := view.New()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	// Build the dependency graph.
	store := postgres.NewStore(a.pool)
	repos := store.Repositories()
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	eventProducer := event.NewProducer(a.producer, logger)

	ledger := service.NewReviewLedger(repos, store, eventProducer, logger, nil)
	catalog := service.NewCatalogService(repos, store, ledger, a.media.store, service.CatalogConfig{
		ImageFolder:   cfg.ImageFolder(),
		MaxImageBytes: cfg.MaxUploadBytes,
	}, eventProducer, logger)
	accounts := service.NewAccountService(repos, store, sessions, revoked, a.media.store, eventProducer, logger)

	h := handler.NewHandler(accounts, catalog, ledger, views, handler.Config{
		CookieSecure:   cfg.SessionCookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AdminUser:      cfg.AdminUser,
		AdminPassword:  cfg.AdminPassword,
		FlashSecret:    auth.DeriveKey(cfg.SessionSecret, "isokoinfo flash cookie"),
	}, logger)
	if !cfg.AdminEnabled() {
		logger.Info("market administration disabled; set ADMIN_PASSWORD to enable it")
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}
	if a.media.ping != nil {
		healthHandler.RegisterNonCritical("media", a.media.ping)
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.NewRouter(h, healthHandler, logger),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, media store, Redis and the PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	// 3. Release the remaining clients.
	if err := a.release(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes every client that was opened. It is also used to unwind
// a partially built App.
func (a *App) release() error {
	var errs []error

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.media != nil {
		if err := a.media.close(); err != nil {
			a.logger.Error("media store close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.media = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
		a.tracerShutdown = nil
	}
	return errors.Join(errs...)
}

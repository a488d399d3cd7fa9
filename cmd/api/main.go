// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/carterperez-dev/templates/license-gate/internal/admin"
	"github.com/carterperez-dev/templates/license-gate/internal/auth"
	"github.com/carterperez-dev/templates/license-gate/internal/chat"
	"github.com/carterperez-dev/templates/license-gate/internal/config"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/health"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
	"github.com/carterperez-dev/templates/license-gate/internal/middleware"
	"github.com/carterperez-dev/templates/license-gate/internal/relay"
	"github.com/carterperez-dev/templates/license-gate/internal/server"
	"github.com/carterperez-dev/templates/license-gate/internal/store"
)

var errOpenAIKeyMissing = errors.New("OPENAI_API_KEY not set")

const (
	drainDelay    = 5 * time.Second
	sweepInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// backend is the persistence the license store runs on, plus the optional
// connections that health and stats report on.
type backend struct {
	store license.Store
	db    *core.Database
	redis *core.Redis
}

func (b *backend) close(logger *slog.Logger) {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close(logger)

	jwtManager, err := newJWTManager(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	tiers, err := license.NewTiers(cfg.License.Tiers)
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	metrics := core.NewMetrics("license_gate")

	manager := license.NewManager(license.ManagerConfig{
		Store:              be.store,
		Tiers:              tiers,
		Clock:              clock,
		Logger:             logger,
		Recorder:           metrics,
		RequireProvisioned: cfg.License.RequireProvisioned,
		SingleHolder:       cfg.Store.Driver == config.StoreFile,
	})
	gate := license.NewGate(manager, cfg.License.ConsumeDelay)

	sessions := license.NewSessions(clock, cfg.License.SessionTTL)
	sessions.OnSizeChange(metrics.SetSessions)
	go sessions.Run(ctx, sweepInterval)

	licenseHandler := license.NewHandler(gate, sessions, jwtManager)

	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, chat requests will fail upstream")
	}
	chatHandler := chat.NewHandler(chat.HandlerConfig{
		Gate:      gate,
		Sessions:  licenseHandler.Session,
		Completer: relay.NewOpenAI(cfg.OpenAI),
		OpenAI:    cfg.OpenAI,
		Observer:  metrics,
		Logger:    logger,
	})

	authHandler := auth.NewHandler(
		auth.NewService(jwtManager, cfg.Admin.PasswordHash, logger),
	)

	adminCfg := admin.HandlerConfig{
		Service:  admin.NewService(be.store, tiers, clock, logger),
		Sessions: sessions.Len,
		Driver:   cfg.Store.Driver,
	}
	healthHandler := health.NewHandler()
	healthHandler.RegisterAdvisory("openai_configured", openAIConfigured(cfg.OpenAI))
	if be.db != nil {
		adminCfg.DBStats = be.db.Stats
		adminCfg.Ping = be.db.Ping
		healthHandler.Register("database", be.db)
	}
	if be.redis != nil {
		adminCfg.RedisStats = be.redis.PoolStats
		if adminCfg.Ping == nil {
			adminCfg.Ping = be.redis.Ping
		}
		healthHandler.Register("redis", be.redis)
	}
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	rdb := redisClient(be)

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(chimw.RequestSize(core.MaxRequestBodyBytes))
	router.Use(
		middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())
	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	optionalAuth := middleware.OptionalAuth(jwtManager)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		licenseHandler.RegisterRoutes(r, optionalAuth)

		chatHandler.RegisterRoutes(r,
			authenticator,
			middleware.RequireSession,
			middleware.TieredRateLimiter(rdb, middleware.DefaultTierLimits),
		)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	sessions.CloseAll()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

func openBackend(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*backend, error) {
	be := &backend{}

	if cfg.Redis.URL != "" {
		rdb, err := core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		be.redis = rdb
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	switch cfg.Store.Driver {
	case config.StoreMemory:
		be.store = store.NewMemory()

	case config.StoreFile:
		be.store = store.NewFile(afero.NewOsFs(), cfg.Store.FilePath, logger)

	case config.StorePostgres:
		db, err := core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			be.close(logger)
			return nil, err
		}
		be.db = db
		logger.Info("database connected",
			"max_open_conns", cfg.Database.MaxOpenConns,
			"max_idle_conns", cfg.Database.MaxIdleConns,
		)

		if err := db.Migrate(ctx, store.Schema...); err != nil {
			be.close(logger)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		be.store = store.NewPostgres(db.DB)

	case config.StoreRedis:
		be.store = store.NewRedis(be.redis.Client, cfg.Redis.KeyPrefix+":")

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return be, nil
}

// openAIConfigured reports whether completions can reach the upstream at
// all. A missing key leaves licensing usable, so it never fails readiness.
func openAIConfigured(cfg config.OpenAIConfig) health.Checker {
	return health.CheckerFunc(func(context.Context) error {
		if cfg.APIKey == "" {
			return errOpenAIKeyMissing
		}
		return nil
	})
}

func redisClient(be *backend) *redis.Client {
	if be.redis == nil {
		return nil
	}
	return be.redis.Client
}

// newJWTManager loads the signing key. Outside production a missing key
// file falls back to an ephemeral key.
func newJWTManager(cfg *config.Config, logger *slog.Logger) (*auth.JWTManager, error) {
	m, err := auth.NewJWTManager(cfg.JWT)
	if err == nil {
		return m, nil
	}

	if cfg.IsProduction() || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	logger.Warn("JWT key file missing, using an ephemeral signing key",
		"path", cfg.JWT.PrivateKeyPath,
	)
	return auth.NewEphemeralJWTManager(cfg.JWT)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

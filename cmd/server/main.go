// Command server runs the authcore HTTP service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/turtacn/authcore/internal/application/bus"
	app "github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/audit"
	"github.com/turtacn/authcore/internal/infrastructure/cache"
	"github.com/turtacn/authcore/internal/infrastructure/kms"
	"github.com/turtacn/authcore/internal/infrastructure/monitoring"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/memory"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/authcore/internal/infrastructure/persistence/redis"
	"github.com/turtacn/authcore/internal/infrastructure/ratelimit"
	authhttp "github.com/turtacn/authcore/internal/interfaces/http"
	"github.com/turtacn/authcore/internal/interfaces/http/handlers"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "path to the configuration file")
	pflag.Parse()

	if err := run(*configFile); err != nil {
		log.Fatalf("authcore: %v", err)
	}
}

// closer is released in reverse order on shutdown.
type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func run(configFile string) error {
	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		return err
	}

	loader := config.NewLoader(configFile, startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLogger, err := monitoring.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetGlobalLogger(appLogger)
	ctx := context.Background()

	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].fn(shutdownCtx); err != nil {
				appLogger.Warn(shutdownCtx, "Failed to release resource", logger.String("resource", closers[i].name), logger.Error(err))
			}
		}
	}()

	// Metrics and tracing
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	tracing, err := monitoring.NewTracingManager(cfg.Tracing, appLogger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	closers = append(closers, closer{"tracing", tracing.Shutdown})

	// Key-value store
	store, storeCheck, err := buildStore(ctx, cfg, appLogger, &closers)
	if err != nil {
		return err
	}

	// Database
	db, err := postgres.NewDBConnection(ctx, cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	closers = append(closers, closer{"database", func(context.Context) error { return db.Close() }})

	users := postgres.NewUserRepository(db.DB(), appLogger)
	if cfg.Database.AutoMigrate {
		if err := users.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate users: %w", err)
		}
	}

	// Signing secret
	secret, err := signingSecret(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(service.TokenServiceConfig{
		Secret:     secret,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
	}, service.WithTokenMetrics(metrics), service.WithTokenLogger(appLogger))
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	// Audit
	sink, err := buildAuditSink(ctx, cfg, db, appLogger, &closers)
	if err != nil {
		return err
	}

	// Limiter, cache, resolver
	limiter, err := ratelimit.NewSlidingWindowLimiter(store, cfg.RateLimit.Policies(),
		ratelimit.WithMetrics(metrics),
		ratelimit.WithAudit(sink),
		ratelimit.WithLogger(appLogger))
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	permissionCache := cache.NewPermissionCache(store, cache.TTLsFrom(cfg.Cache), metrics, sink, appLogger)
	resolver := service.NewUsernameResolver(users, sink, metrics, appLogger)

	// Buses
	commands, queries, err := app.RegisterAll(app.Dependencies{
		Tokens:                tokens,
		Usernames:             resolver,
		Limiter:               limiter,
		Cache:                 permissionCache,
		Permissions:           users,
		Users:                 users,
		Credentials:           users,
		Audit:                 sink,
		Logger:                appLogger,
		FailOnCacheWriteError: cfg.Cache.FailOnWriteError,
	},
		bus.WithTracer(tracing.Tracer()),
		bus.WithMetrics(metrics),
		bus.WithLogger(appLogger))
	if err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}

	// Hot-reloadable rate-limit policies
	loader.Watch(func(rl config.RateLimitConfig) {
		if err := limiter.SetPolicies(rl.Policies()); err != nil {
			appLogger.Warn(ctx, "Rejected rate-limit policies", logger.Error(err))
		}
	})

	router := authhttp.NewRouter(authhttp.RouterDeps{
		Config:   cfg.Server,
		Logger:   appLogger,
		Tracer:   tracing.Tracer(),
		Metrics:  metrics,
		Gatherer: registry,
		Commands: commands,
		Queries:  queries,
		Tokens:   tokens,
		Checkers: map[string]handlers.Checker{
			"database": db.Ping,
			"store":    storeCheck,
		},
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- router.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-quit:
		appLogger.Info(ctx, "Shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLogger.Info(ctx, "Server exited")
	return nil
}

// buildStore connects Redis when enabled and falls back to the in-process store otherwise.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger, closers *[]closer) (service.KeyValueStore, handlers.Checker, error) {
	if !cfg.Redis.Enabled {
		log.Warn(ctx, "Redis disabled, using in-memory store; state is not shared between instances")
		store := memory.NewStore(cfg.Cache.CleanupInterval)
		return store, func(context.Context) error { return nil }, nil
	}

	conn := redis.NewConnection(redis.ConfigFrom(cfg.Redis), log)
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	*closers = append(*closers, closer{"redis", func(context.Context) error { return conn.Close() }})
	return redis.NewStore(conn.Client()), conn.Ping, nil
}

// signingSecret reads the HMAC secret from Vault when enabled, creating it on first start,
// and from configuration otherwise.
func signingSecret(ctx context.Context, cfg *config.Config, log logger.Logger) ([]byte, error) {
	if !cfg.Vault.Enabled {
		return []byte(cfg.JWT.Secret), nil
	}
	client, err := kms.NewVaultClient(cfg.Vault)
	if err != nil {
		return nil, err
	}
	source := kms.NewVaultSecretSource(cfg.Vault, client, log)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	secret, err := source.EnsureSigningSecret(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInfrastructure, errors.CodeInfrastructure, "load signing secret from vault")
	}
	return secret, nil
}

// buildAuditSink picks the configured sink and puts it behind the asynchronous buffer.
func buildAuditSink(ctx context.Context, cfg *config.Config, db *postgres.DBConnection, log logger.Logger, closers *[]closer) (service.AuditSink, error) {
	var next service.AuditSink
	switch strings.ToLower(cfg.Audit.Sink) {
	case "kafka":
		kafkaSink, err := audit.NewKafkaSink(cfg.Audit, log)
		if err != nil {
			return nil, fmt.Errorf("audit kafka sink: %w", err)
		}
		*closers = append(*closers, closer{"audit kafka", func(context.Context) error { return kafkaSink.Close() }})
		next = kafkaSink
	case "database":
		gormSink := audit.NewGormSink(db.DB())
		if cfg.Database.AutoMigrate {
			if err := gormSink.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate audit table: %w", err)
			}
		}
		next = gormSink
	default:
		next = audit.NewLogSink(log)
	}

	async := audit.NewAsyncSink(next, cfg.Audit.BufferSize, log)
	*closers = append(*closers, closer{"audit buffer", func(context.Context) error {
		async.Close()
		if dropped := async.Dropped(); dropped > 0 {
			log.Warn(context.Background(), "Audit events dropped", logger.Int64("dropped", int64(dropped)))
		}
		return nil
	}})
	return async, nil
}

//Personal.AI order the ending

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/tasktrack/pkg/api"
	"github.com/platinummonkey/tasktrack/pkg/async"
	"github.com/platinummonkey/tasktrack/pkg/auth"
	"github.com/platinummonkey/tasktrack/pkg/config"
	"github.com/platinummonkey/tasktrack/pkg/middleware"
	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/storage/memory"
	mongostore "github.com/platinummonkey/tasktrack/pkg/storage/mongo"
	"github.com/platinummonkey/tasktrack/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const warmUpTimeout = 15 * time.Second

// closableStore is a backend the process owns and must close on shutdown
type closableStore interface {
	api.Store
	Close() error
}

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file (overrides CONFIG_FILE)")
	flag.Parse()

	if *configFile != "" {
		os.Setenv("CONFIG_FILE", *configFile)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Auth.JWTSecret == auth.DefaultSecret {
		logger.Warn("JWT_SECRET is not set, tokens are signed with the built-in default secret")
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}

	// Warm the connection in the background. A failure is not fatal, the
	// readiness middleware retries per request.
	async.SafeGo(observability.WithLogger(ctx, logger), warmUpTimeout, "store warm-up", func(ctx context.Context) error {
		if err := store.Ready(ctx); err != nil {
			return err
		}
		logger.Infof("Connected to %s store", cfg.Storage.Type)
		return nil
	})

	redisClient, err := storage.NewRedisClient(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, rate limiting falls back to process memory")
		redisClient = nil
	}

	tp, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	srv := api.NewServer(store, api.Options{
		Tokens:       auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Hasher:       auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Logger:       logger,
		Metrics:      metrics,
		Registry:     registry,
		Limiter:      newLimiter(cfg.RateLimit, redisClient, logger),
		Redis:        redisClient,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Tracing:      tp != nil,
		Version:      version,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("store", func(context.Context) error {
		return store.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}
	if tp != nil {
		shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, tp)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"addr":    httpServer.Addr,
			"storage": cfg.Storage.Type,
			"version": version,
		}).Info("Starting Todo App server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown(gctx)
	})

	return g.Wait()
}

func openStore(cfg storage.Config) (closableStore, error) {
	switch cfg.Type {
	case storage.TypeMongo:
		store, err := mongostore.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure mongo store: %w", err)
		}
		return store, nil
	case storage.TypePostgres:
		return postgres.New(cfg), nil
	case storage.TypeMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// newLimiter picks the shared redis limiter when redis is available and the
// per-process bucket otherwise. Returns nil when rate limiting is disabled.
func newLimiter(cfg config.RateLimitConfig, client *redis.Client, logger *observability.Logger) middleware.Limiter {
	if !cfg.Enabled {
		logger.Info("Rate limiting disabled")
		return nil
	}

	limits := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Requests,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.Burst,
	}
	if client != nil {
		return middleware.NewDistributedRateLimiter(client, limits, "")
	}
	return middleware.NewRateLimiter(limits)
}

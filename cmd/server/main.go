package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/handler"
	"github.com/ad-tracker/youtube-caption-api-go/internal/metrics"
	"github.com/ad-tracker/youtube-caption-api-go/internal/middleware"
	"github.com/ad-tracker/youtube-caption-api-go/internal/repository"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/metadata"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/quota"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/ratelimit"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/strategy"
	"github.com/ad-tracker/youtube-caption-api-go/internal/validation"
	"github.com/ad-tracker/youtube-caption-api-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	identities, err := identity.New(cfg.Identity.Proxies, cfg.Identity.Cookies, cfg.Extraction.StrategyTimeout)
	if err != nil {
		return fmt.Errorf("failed to configure identities: %w", err)
	}
	logger.Log.Info("Request identities configured",
		zap.Int("proxies", identities.ProxyCount()),
		zap.Int("cookies", identities.Cookies().Len()),
	)

	recorder := metrics.New()
	resolver := metadata.NewResolver(cfg.Extraction.MetadataTimeout, metadataSources(ctx, cfg, identities)...)

	strategies := strategy.Build(cfg, identities)
	if len(strategies) == 0 {
		return errors.New("no extraction strategies enabled")
	}

	orchestrator := extraction.NewOrchestrator(strategies,
		extraction.WithLimiter(ratelimit.New(cfg.Extraction.MinRequestInterval)),
		extraction.WithResolver(resolver),
		extraction.WithRecorder(recorder),
		extraction.WithRetryPolicy(extraction.RetryPolicy{
			MaxAttempts:   cfg.Extraction.MaxAttempts,
			RateLimitBase: cfg.Extraction.RateLimitBaseDelay,
			RateLimitMax:  cfg.Extraction.RateLimitMaxDelay,
			JitterMin:     cfg.Extraction.JitterMin,
			JitterMax:     cfg.Extraction.JitterMax,
		}),
		extraction.WithLanguagePolicy(extraction.LanguagePolicy{
			EnglishFallback: cfg.Extraction.EnglishFallback,
			AnyFallback:     cfg.Extraction.AnyLanguageFallback,
		}),
		extraction.WithAttemptTimeout(cfg.Extraction.StrategyTimeout),
		extraction.WithLogger(logger.Named("extraction")),
	)
	logger.Log.Info("Extraction chain configured", zap.Strings("strategies", orchestrator.Strategies()))

	opts := []service.Option{service.WithCacheObserver(recorder)}
	var checks []handler.Check

	var repo *repository.Repository
	if cfg.Database.Enabled {
		pool, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo = repository.New(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		opts = append(opts, service.WithAuditLog(repo))
		checks = append(checks, handler.Check{Name: "database", Probe: repo.Ping})
		logger.Log.Info("Extraction audit log enabled")
	}

	if cfg.RabbitMQ.Enabled {
		publisher, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()

		opts = append(opts, service.WithPublisher(publisher))
		checks = append(checks, handler.Check{Name: "rabbitmq", Probe: func(context.Context) error {
			if !publisher.IsHealthy() {
				return errors.New("rabbitmq connection is closed")
			}
			return nil
		}})
	}

	if cfg.Cache.RedisURL != "" {
		client, err := service.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		cache := service.NewCaptionCache(client, cfg.Cache.TTL)
		defer func() { _ = cache.Close() }()

		opts = append(opts, service.WithCache(cache))
		checks = append(checks, handler.Check{Name: "redis", Probe: cache.Ping})
		logger.Log.Info("Caption cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	captionService := service.NewCaptionService(orchestrator, resolver, validation.New(cfg.Extraction.DefaultLanguage), opts...)

	auth := middleware.NewAPIKeyAuth(cfg.Auth.APIKeys, logger.Named("auth"))
	if !auth.Enabled() {
		logger.Log.Warn("No API keys configured, caption endpoints are open")
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		Captions: handler.NewCaptionHandler(captionService, cfg.Server.RequestTimeout),
		Health:   handler.NewHealthHandler(cfg.Server.Version, orchestrator.Strategies(), checks...),
		Auth:     auth,
		Metrics:  recorder.Handler(),
		Logger:   logger.Named("http"),
		AuditLog: repo != nil,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("version", cfg.Server.Version),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("Failed to close server", zap.Error(err))
			}
			return err
		}

		logger.Log.Info("Server stopped gracefully")
	}

	return nil
}

// metadataSources lists the metadata fallbacks in lookup order. The Data API
// is used only when a key is configured.
func metadataSources(ctx context.Context, cfg *config.Config, identities *identity.Provider) []metadata.Source {
	var sources []metadata.Source

	if cfg.YouTube.APIKey != "" {
		api, err := metadata.NewDataAPI(ctx, cfg.YouTube.APIKey)
		if err != nil {
			logger.Log.Warn("YouTube Data API unavailable, using page sources for metadata", zap.Error(err))
		} else {
			sources = append(sources, api.WithQuota(quota.NewManager(cfg.YouTube.DailyQuota, cfg.YouTube.QuotaThresholdPercent)))
		}
	} else {
		logger.Log.Info("YouTube API key not configured, metadata comes from player and page lookups")
	}

	return append(sources,
		metadata.NewPlayer(nil, identities.Next().Client),
		metadata.NewPage(identities, ""),
	)
}

// initDatabase initializes the database connection pool.
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

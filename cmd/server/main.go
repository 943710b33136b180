package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4d4r5h/text-search-api/internal/analytics"
	"github.com/4d4r5h/text-search-api/internal/auth/apikey"
	"github.com/4d4r5h/text-search-api/internal/auth/ratelimit"
	"github.com/4d4r5h/text-search-api/internal/index"
	"github.com/4d4r5h/text-search-api/internal/ingest"
	"github.com/4d4r5h/text-search-api/internal/search"
	searchcache "github.com/4d4r5h/text-search-api/internal/search/cache"
	"github.com/4d4r5h/text-search-api/internal/server/handler"
	"github.com/4d4r5h/text-search-api/internal/server/router"
	"github.com/4d4r5h/text-search-api/pkg/config"
	"github.com/4d4r5h/text-search-api/pkg/health"
	"github.com/4d4r5h/text-search-api/pkg/kafka"
	"github.com/4d4r5h/text-search-api/pkg/logger"
	"github.com/4d4r5h/text-search-api/pkg/metrics"
	"github.com/4d4r5h/text-search-api/pkg/postgres"
	pkgredis "github.com/4d4r5h/text-search-api/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting text search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := index.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare index schema", "error", err)
		os.Exit(1)
	}
	validator := apikey.NewValidator(db)
	if err := validator.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare api key schema", "error", err)
		os.Exit(1)
	}
	slog.Info("index store ready", "database", cfg.Postgres.Database)

	var resultCache *searchcache.ResultCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		resultCache = searchcache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL.Std())
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer producer.Close()
	collector := analytics.NewCollector(producer, 10000)
	collector.Start(ctx)
	defer collector.Close()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.HandleMessage)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	var cacheInvalidator ingest.CacheInvalidator
	if resultCache != nil {
		cacheInvalidator = resultCache
	}
	ingestSvc := ingest.New(store, cacheInvalidator, m)

	var searchCache search.ResultCache
	if resultCache != nil {
		searchCache = resultCache
	}
	searchSvc := search.New(store, searchCache, m)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := store.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(ingestSvc, searchSvc, resultCache, collector, validator)
	limiter := ratelimit.New(time.Minute)
	chain := router.New(h, validator, limiter, router.Config{
		Metrics:        m,
		Analytics:      analytics.NewHandler(aggregator),
		Checker:        checker,
		RequestTimeout: cfg.Search.RequestTimeout.Std(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("text search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("text search service stopped")
}

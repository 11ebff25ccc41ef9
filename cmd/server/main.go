// Package main is the entrypoint for the ReviewPulse API server.
package main

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

	"github.com/kiranshivaraju/reviewpulse/internal/api"
	"github.com/kiranshivaraju/reviewpulse/internal/api/handler"
	mw "github.com/kiranshivaraju/reviewpulse/internal/api/middleware"
	"github.com/kiranshivaraju/reviewpulse/internal/cache"
	"github.com/kiranshivaraju/reviewpulse/internal/classifier"
	"github.com/kiranshivaraju/reviewpulse/internal/config"
	"github.com/kiranshivaraju/reviewpulse/internal/events"
	"github.com/kiranshivaraju/reviewpulse/internal/ingest"
	"github.com/kiranshivaraju/reviewpulse/internal/insights"
	"github.com/kiranshivaraju/reviewpulse/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.SetDefault(newLogger("info"))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"classifier", cfg.Classifier.BaseURL,
		"kafka_enabled", cfg.Kafka.Enabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Classifier client. An unreachable classifier is not fatal:
	// ingestion degrades locally until it comes back.
	cls := classifier.NewHTTPClient(cfg.Classifier, logger)
	if err := cls.Ready(ctx); err != nil {
		slog.Warn("classifier not ready, reviews will be degraded until it recovers", "error", err)
	}

	// 6. Event publisher
	publisher := events.New(cfg.Kafka, logger)
	defer publisher.Close()

	// 7. Services
	pgStore := store.NewPostgresStore(pool)
	ingestSvc := ingest.NewService(cls, pgStore, redisCache, publisher, cfg.Ingest, logger)
	engine := insights.NewEngine(pgStore, redisCache, cfg.Insights.CacheTTL, logger)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),

		HealthHandler:        handler.NewHealthHandler(pgStore, redisCache, handler.PingerFunc(cls.Ready)),
		UploadHandler:        handler.NewUploadHandler(ingestSvc, cfg.Ingest.MaxUploadBytes),
		AnalyzeTextHandler:   handler.NewAnalyzeTextHandler(ingestSvc),
		RecentReviewsHandler: handler.NewRecentReviewsHandler(engine),
		ReviewStatsHandler:   handler.NewReviewStatsHandler(engine),
		InsightsHandler:      handler.NewInsightsHandler(engine),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server. Uploads fan out to the classifier, so writes get
	// more headroom than reads.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newLogger returns a JSON logger at the named level. Unknown names fall
// back to info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

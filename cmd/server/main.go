// Command server starts the FutureBlink AI HTTP server.
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

	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/futureblink-ai/internal/adapter/ai/openrouter"
	"github.com/fairyhunter13/futureblink-ai/internal/adapter/ai/tokencount"
	cacheredis "github.com/fairyhunter13/futureblink-ai/internal/adapter/cache/redis"
	httpserver "github.com/fairyhunter13/futureblink-ai/internal/adapter/httpserver"
	"github.com/fairyhunter13/futureblink-ai/internal/adapter/observability"
	"github.com/fairyhunter13/futureblink-ai/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/futureblink-ai/internal/app"
	"github.com/fairyhunter13/futureblink-ai/internal/config"
	"github.com/fairyhunter13/futureblink-ai/internal/domain"
	"github.com/fairyhunter13/futureblink-ai/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI and history instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infra: DB pool
	pool, err := postgres.Connect(ctx, cfg.DBURL, cfg.DBConnectMaxElapsed)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	promptRepo := postgres.NewPromptRepo(pool)

	// Optional history page cache. Redis trouble at startup only disables caching.
	var (
		rdb   goredis.UniversalClient
		cache domain.PageCache
	)
	if cfg.RedisURL != "" {
		client, err := cacheredis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, history cache disabled", slog.Any("error", err))
		} else {
			rdb = client
			cache = cacheredis.NewPageCache(client, cfg.HistoryCacheTTL)
			defer func() { _ = client.Close() }()
		}
	}

	// Start cleanup service for data retention
	cleanupSvc := postgres.NewCleanupService(promptRepo, cfg.DataRetentionDays)
	if cleanupSvc.Enabled() {
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	// AI transport and orchestrator
	completer := openrouter.New(openrouter.Options{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Referer: cfg.ClientURL,
		Title:   cfg.OpenRouterTitle,
	})
	askSvc := usecase.NewAskService(completer, usecase.AskOptions{
		Models:          cfg.Models,
		AttemptTimeout:  cfg.AttemptTimeout,
		RequestDeadline: cfg.RequestDeadline,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		Policy:          usecase.FailurePolicy{UnexpectedIsFatal: cfg.FailFastOnUnexpected},
		Observer:        observability.NewAskObserver(tokencount.NewCounter()),
	})
	slog.Info("AI orchestrator initialized",
		slog.Int("models", len(cfg.Models)),
		slog.String("primary_model", cfg.Models[0]),
		slog.Duration("attempt_timeout", cfg.AttemptTimeout),
		slog.Duration("request_deadline", cfg.RequestDeadline),
	)

	historySvc := usecase.NewHistoryService(promptRepo, cache)

	// Readiness checks
	dbCheck, redisCheck := app.BuildReadinessChecks(pool, rdb)

	// HTTP server
	srv := httpserver.NewServer(cfg, askSvc, historySvc, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

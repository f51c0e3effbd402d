// Package main runs the ingestion HTTP API.
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

	"github.com/heptiolabs/healthcheck"
	"github.com/redis/go-redis/v9"

	"github.com/chiphi-ai/inbound/internal/api"
	"github.com/chiphi-ai/inbound/internal/codestore"
	"github.com/chiphi-ai/inbound/internal/config"
	"github.com/chiphi-ai/inbound/internal/extract"
	"github.com/chiphi-ai/inbound/internal/ingest"
	"github.com/chiphi-ai/inbound/internal/orgstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("FATAL: Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)

	store, err := orgstore.Open(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.Error("FATAL: Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if err := store.AutoMigrate(); err != nil {
		logger.Error("FATAL: Failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Error("FATAL: Failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cancel()

	codes := codestore.New(redisClient, cfg.Inbox.CodeTTL)
	notifier := extract.NewLogNotifier(logger)
	service := ingest.NewService(store, store, codes, notifier, logger)

	health := healthcheck.NewHandler()
	health.AddReadinessCheck("postgres", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Ping(ctx)
	})
	health.AddReadinessCheck("redis", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return redisClient.Ping(ctx).Err()
	})

	metrics := api.NewMetrics()
	handlers := api.NewHandlers(service, metrics, logger)
	router := api.NewRouter(handlers, health, cfg.Auth.SharedSecret, metrics, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Ingestion API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("FATAL: Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", slog.String("error", err.Error()))
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

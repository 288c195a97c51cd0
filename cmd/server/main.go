package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/spa-platform/internal/adapter/api"
	"github.com/user/spa-platform/internal/adapter/api/middleware"
	"github.com/user/spa-platform/internal/adapter/auth"
	"github.com/user/spa-platform/internal/adapter/metrics"
	"github.com/user/spa-platform/internal/adapter/repository/postgres"
	redisrepo "github.com/user/spa-platform/internal/adapter/repository/redis"
	"github.com/user/spa-platform/internal/pkg/config"
	"github.com/user/spa-platform/internal/pkg/logger"
	"github.com/user/spa-platform/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewSyncMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisOpts := &redis.Options{Addr: cfg.RedisAddr}
	if parsed, err := redis.ParseURL(cfg.RedisAddr); err == nil {
		redisOpts = parsed
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("could not reach redis on startup, event ingress will retry", "error", err)
	}
	defer redisClient.Close()

	// --- Core Components ---
	resolver := usecase.NewTenantResolver(cfg.PlatformDomain)
	directory := postgres.NewTenantDirectory(db, logger, cfg.DirectoryCacheTTL, m)
	bookingRepo := postgres.NewBookingRepository(db, logger)
	validator := auth.NewTokenValidator(cfg.JWTSecret)
	bus := usecase.NewBookingEventBus(logger, m)
	defer bus.Close()

	// --- Event Ingress ---
	eventSource := redisrepo.NewEventSource(redisClient, bus, logger, m)
	go func() {
		if err := eventSource.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event source stopped", "error", err)
			stop()
		}
	}()

	// --- HTTP Server ---
	router := api.NewRouter(cfg, logger, resolver, directory, bus, validator, bookingRepo, m)
	server := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     middleware.Logging(logger)(router),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /realtime responses are long-lived WebSocket
		// streams.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting sync server",
			"addr", server.Addr, "platform_domain", cfg.PlatformDomain)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("sync server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("sync server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/fixhub/realtime-backend/internal/adapters/primary/http"
	mw "github.com/fixhub/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/fixhub/realtime-backend/internal/adapters/secondary/postgres"
	"github.com/fixhub/realtime-backend/internal/auth"
	"github.com/fixhub/realtime-backend/internal/config"
	"github.com/fixhub/realtime-backend/internal/core/realtime"
	"github.com/fixhub/realtime-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Repositories (Secondary Adapters)
	statsRepo := postgres.NewStatsRepository(pool)
	credentialRepo := postgres.NewCredentialRepository(pool)

	// 5. Authentication
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	verifier := auth.NewVerifier(tokenManager, credentialRepo)

	// 6. Realtime Core
	registry := realtime.NewRegistry(logger)
	router := realtime.NewRouter(logger)
	aggregator := realtime.NewAggregator(statsRepo, registry, realtime.AggregatorConfig{
		SourceTimeout:         cfg.Metrics.SourceTimeout,
		MaxRecentTransactions: cfg.Metrics.MaxRecentTransactions,
		OwnerRecentCap:        cfg.Metrics.OwnerRecentCap,
	}, logger)
	publisher := realtime.NewPublisher(registry, router, logger)
	presence := realtime.NewPresence(registry, publisher, logger)
	gateway := realtime.NewGateway(registry, router, aggregator, publisher, presence, verifier, statsRepo, realtime.GatewayConfig{
		AuthTimeout:       cfg.WebSocket.AuthTimeout,
		MessagesPerSecond: cfg.WebSocket.MessageRPS,
		MessageBurst:      cfg.WebSocket.MessageBurst,
	}, logger)

	scheduler := realtime.NewScheduler(cfg.Scheduler.Interval, aggregator, router, publisher, logger)
	scheduler.Start()

	// 7. Rate Limiters
	var generalRateLimiter, upgradeRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalCfg := mw.DefaultRateLimiterConfig()
		generalCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		generalCfg.BurstSize = cfg.RateLimit.BurstSize
		generalRateLimiter = mw.NewRateLimiter(generalCfg)

		upgradeCfg := mw.UpgradeRateLimiterConfig()
		upgradeCfg.RequestsPerSecond = cfg.RateLimit.UpgradeRPS
		upgradeCfg.BurstSize = cfg.RateLimit.UpgradeBurst
		upgradeRateLimiter = mw.NewRateLimiter(upgradeCfg)
	}

	// 8. Handlers (Primary Adapters)
	wsHandler := httpAdapter.NewWebSocketHandler(gateway, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, gateway, cfg.App.Version)

	// 9. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (authentication is in-band after the upgrade)
		r.Group(func(r chi.Router) {
			if upgradeRateLimiter != nil {
				r.Use(upgradeRateLimiter.Middleware)
			}
			r.Get("/ws", wsHandler.ServeHTTP)
		})
	})

	// 10. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

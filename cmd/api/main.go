package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-payment-gateway/config"
	bankClient "card-payment-gateway/internal/adapter/bank"
	httpHandler "card-payment-gateway/internal/adapter/http/handler"
	memStorage "card-payment-gateway/internal/adapter/storage/memory"
	pgStorage "card-payment-gateway/internal/adapter/storage/postgres"
	redisStorage "card-payment-gateway/internal/adapter/storage/redis"
	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/internal/service"
	"card-payment-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting Card Payment Gateway")

	ctx := context.Background()

	// Select the persistence backend.
	var (
		paymentRepo     ports.PaymentRepository
		idempotencyRepo ports.IdempotencyRepository
		healthCheckers  []ports.HealthChecker
	)
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		paymentRepo = pgStorage.NewPaymentRepo(pool)
		idempotencyRepo = pgStorage.NewIdempotencyRepo(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	default:
		paymentRepo = memStorage.NewPaymentStore()
		idempotencyRepo = memStorage.NewIdempotencyStore()
	}

	// Redis is optional: result cache and rate limiting.
	var (
		resultCache    ports.ResultCache
		rateLimitStore *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		resultCache = redisStorage.NewResultCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Build the authorization pipeline: bank client at the bottom, the
	// idempotency guard wrapped around it.
	bank := bankClient.NewClient(cfg.Bank.BaseURL, cfg.Bank.Timeout)
	authorizeSvc := service.NewAuthorizeService(bank, paymentRepo, encSvc, log)
	guardedSvc := service.NewGuardedAuthorizeService(authorizeSvc, idempotencyRepo, resultCache, log)
	querySvc := service.NewPaymentQueryService(paymentRepo, encSvc, log)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Authorizer:     guardedSvc,
		QuerySvc:       querySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

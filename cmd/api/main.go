package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kipu-bank/config"
	httpHandler "kipu-bank/internal/adapter/http/handler"
	"kipu-bank/internal/adapter/settlement"
	pgStorage "kipu-bank/internal/adapter/storage/postgres"
	redisStorage "kipu-bank/internal/adapter/storage/redis"
	"kipu-bank/internal/core/ports"
	"kipu-bank/internal/service"
	"kipu-bank/pkg/logger"
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
		Int64("bank_cap", cfg.Vault.BankCap).
		Int64("withdrawal_limit", cfg.Vault.WithdrawalLimit).
		Msg("Starting Kipu Bank")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	vaultRepo := pgStorage.NewVaultRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	movementRepo := pgStorage.NewMovementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Settlement gateway: an empty URL selects the local no-op gateway.
	var gateway ports.TransferGateway
	if cfg.Settlement.URL != "" {
		gateway = settlement.NewHTTPGateway(
			cfg.Settlement.URL,
			&http.Client{Timeout: cfg.Settlement.Timeout},
			log,
		)
		log.Info().Str("url", cfg.Settlement.URL).Msg("Settlement gateway configured")
	} else {
		gateway = settlement.NewNoopGateway()
		log.Info().Msg("No settlement URL configured, releases succeed locally")
	}

	// Event publisher (Redis streams)
	eventPublisher := redisStorage.NewEventPublisher(rdb)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc)
	vaultSvc := service.NewVaultService(
		service.LedgerLimits{
			BankCap:         cfg.Vault.BankCap,
			WithdrawalLimit: cfg.Vault.WithdrawalLimit,
		},
		vaultRepo,
		ledgerRepo,
		movementRepo,
		transactor,
		gateway,
		eventPublisher,
		log,
	)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		VaultSvc:       vaultSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
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

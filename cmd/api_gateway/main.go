package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/claimpay/claims-core/internal/api_gateway"
	"github.com/claimpay/claims-core/internal/api_gateway/service"
	"github.com/claimpay/claims-core/internal/config"
	"github.com/claimpay/claims-core/internal/data/mongo"
	"github.com/claimpay/claims-core/internal/data/postgres"
	"github.com/claimpay/claims-core/internal/logger"
	"github.com/claimpay/claims-core/internal/platform/messaging/producers"
	"github.com/claimpay/claims-core/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Run database migrations before opening the pool
	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers (claim submissions and on-demand sync requests)
	claimProducer, err := producers.NewClaimSubmissionProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize claim submission producer", "error", err)
		os.Exit(1)
	}

	syncProducer, err := producers.NewSyncRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sync request producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	claimRepo := postgres.NewClaimRepository(log, postgresDB)
	providerRepo := postgres.NewProviderRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize services
	claimService := service.NewClaimService(log, claimRepo, providerRepo, transactionRepo, auditRepo, claimProducer)
	providerService := service.NewProviderService(log, providerRepo)
	syncService := service.NewSyncService(log, providerRepo, syncProducer)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, claimService, providerService, syncService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = claimProducer.Close(); err != nil {
		log.Error("Error closing claim submission producer", "error", err)
	}

	if err = syncProducer.Close(); err != nil {
		log.Error("Error closing sync request producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

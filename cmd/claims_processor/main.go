package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/claimpay/claims-core/internal/claims_processor/consumer"
	"github.com/claimpay/claims-core/internal/claims_processor/ehrsync"
	"github.com/claimpay/claims-core/internal/claims_processor/payment"
	"github.com/claimpay/claims-core/internal/claims_processor/pipeline"
	"github.com/claimpay/claims-core/internal/claims_processor/risk"
	"github.com/claimpay/claims-core/internal/config"
	"github.com/claimpay/claims-core/internal/data/mongo"
	"github.com/claimpay/claims-core/internal/data/postgres"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/logger"
	"github.com/claimpay/claims-core/internal/platform/achgateway"
	"github.com/claimpay/claims-core/internal/platform/aicoding"
	"github.com/claimpay/claims-core/internal/platform/ehrsource"
	"github.com/claimpay/claims-core/internal/platform/messaging/consumers"
	"github.com/claimpay/claims-core/internal/platform/messaging/producers"
	"github.com/claimpay/claims-core/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("claims_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Claims Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	claimRepo := postgres.NewClaimRepository(log, postgresDB)
	providerRepo := postgres.NewProviderRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Kafka consumers, one per topic sharing the consumer group
	claimConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.ClaimTopic)
	syncConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.SyncTopic)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize external capability clients
	coder := aicoding.NewClient(log, &cfg.Coding)
	achClient := achgateway.NewClient(log, &cfg.ACHGateway)

	// Initialize risk scoring with the cached provider-history source
	history := risk.NewCachedHistorySource(log, claimRepo, redisClient, cfg.Risk.HistoryCacheTTL)
	var scorer risk.Scorer = risk.NewDeterministicScorer(log, history)
	if cfg.Risk.AIEnabled {
		scorer = risk.NewAIScorer(log, &cfg.Risk, scorer)
	}

	// Initialize the payment executor and the claim pipeline
	executor := payment.NewGatewayExecutor(log, transactionRepo, achClient, cfg.Sync.ExternalCallTimeout)
	pipe := pipeline.New(
		log,
		claimRepo,
		providerRepo,
		auditRepo,
		coder,
		scorer,
		executor,
		history,
		pipeline.Config{
			ApprovalThreshold:   cfg.Risk.ApprovalThreshold,
			ManualRateBps:       cfg.Payout.ManualRateBps,
			ExternalCallTimeout: cfg.Sync.ExternalCallTimeout,
		},
	)

	processor, err := pipeline.NewWorkerPoolProcessor(pipe, pipeline.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize the EHR sync orchestrator
	orchestrator := ehrsync.NewOrchestrator(
		log,
		providerRepo,
		claimRepo,
		processor,
		map[string]ehrsource.Source{
			provider.EHRSystemFHIR:     ehrsource.NewFHIRSource(log, &cfg.EHR),
			provider.EHRSystemEmulator: ehrsource.NewEmulatorSource(),
		},
		ehrsync.Config{
			InitialDelay:           cfg.Sync.InitialDelay,
			Interval:               cfg.Sync.Interval,
			LookbackWindow:         cfg.Sync.LookbackWindow,
			AdvanceCursorOnFailure: cfg.Sync.AdvanceCursorOnFailure,
		},
	)

	// Initialize event handlers
	claimEventHandler := consumer.NewClaimEventHandler(log, processor, dlqProducer)
	syncEventHandler := consumer.NewSyncEventHandler(log, orchestrator)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start claim submission consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting claim submission consumer",
			"topic", cfg.Kafka.ClaimTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := claimConsumer.Subscribe(appCtx, claimEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("claim consumer error: %w", err)
		}
	}()

	// Start sync request consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting sync request consumer",
			"topic", cfg.Kafka.SyncTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := syncConsumer.Subscribe(appCtx, syncEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("sync consumer error: %w", err)
		}
	}()

	// Start the EHR sync orchestrator in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting EHR sync orchestrator",
			"initial_delay", cfg.Sync.InitialDelay.String(),
			"interval", cfg.Sync.Interval.String(),
		)
		orchestrator.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", processor.Running())
	processor.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumers
	if err = claimConsumer.Close(); err != nil {
		log.Error("Error closing claim consumer", "error", err)
	}
	if err = syncConsumer.Close(); err != nil {
		log.Error("Error closing sync consumer", "error", err)
	}

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Claims Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Claims Processor shutdown completed with errors")
	} else {
		log.Info("Claims Processor shutdown completed successfully")
	}
}

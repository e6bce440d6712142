// Package config provides configuration structures and validation for the
// ClaimPay claims core. It handles environment-based configuration for all
// major components: HTTP server, databases, message queues, external
// capability clients, and the EHR sync scheduler.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all
// components. Each field represents a major subsystem's configuration and is
// validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	WorkerPool  WorkerPoolConfig
	Sync        SyncConfig
	Risk        RiskConfig
	Payout      PayoutConfig
	Coding      CodingConfig
	ACHGateway  ACHGatewayConfig
	EHR         EHRConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	ClaimTopic        string // Manual claim submissions awaiting processing
	SyncTopic         string // On-demand single-provider EHR sync requests
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for unprocessable claim submissions
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration for the claim audit trail
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the provider-history cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WorkerPoolConfig contains worker pool configuration for Kafka-driven
// claim processing
type WorkerPoolConfig struct {
	Size int
}

// SyncConfig contains EHR sync scheduler configuration.
//
// AdvanceCursorOnFailure is a deliberate, named policy choice: when true
// (the default), a provider's sync cursor advances past a sweep window even
// if some encounters in it failed, so failed encounters are never retried.
// When false, the cursor only advances after a fully clean provider pass,
// which re-scans the window on the next sweep and can create duplicate
// claims for encounters that did succeed.
type SyncConfig struct {
	InitialDelay           time.Duration // Delay before the first sweep after startup
	Interval               time.Duration // Fixed interval between sweeps
	LookbackWindow         time.Duration // Window for providers that have never synced
	ExternalCallTimeout    time.Duration // Per-call ceiling for coding/scoring/payment/fetch
	AdvanceCursorOnFailure bool
}

// RiskConfig contains risk scoring configuration
type RiskConfig struct {
	ApprovalThreshold int           // Minimum score for approval, inclusive
	HistoryCacheTTL   time.Duration // TTL for cached provider acceptance history
	AIEnabled         bool          // Use the AI-enhanced scorer instead of the deterministic one
	AIBaseURL         string
	AIAPIKey          string
	AIModel           string
	AITimeout         time.Duration
}

// PayoutConfig contains payout rate configuration for manually submitted
// claims. EHR-sourced claims use the provider's commission rate instead.
type PayoutConfig struct {
	ManualRateBps int64 // Basis points of claim amount paid out (9500 = 95%)
}

// CodingConfig contains configuration for the AI medical-coding client
type CodingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ACHGatewayConfig contains configuration for the instant-ACH payment gateway
type ACHGatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// EHRConfig contains OAuth client-credentials settings for the FHIR
// encounter source
type EHRConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ClaimTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_CLAIM_TOPIC is required")
	}
	if c.Kafka.SyncTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SYNC_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Sync config
	if c.Sync.InitialDelay <= 0 {
		validationErrors = append(validationErrors, "SYNC_INITIAL_DELAY must be greater than 0")
	}
	if c.Sync.Interval <= 0 {
		validationErrors = append(validationErrors, "SYNC_INTERVAL must be greater than 0")
	}
	if c.Sync.LookbackWindow <= 0 {
		validationErrors = append(validationErrors, "SYNC_LOOKBACK_WINDOW must be greater than 0")
	}
	if c.Sync.ExternalCallTimeout <= 0 {
		validationErrors = append(validationErrors, "SYNC_EXTERNAL_CALL_TIMEOUT must be greater than 0")
	}

	// Validate Risk config
	if c.Risk.ApprovalThreshold <= 0 || c.Risk.ApprovalThreshold > 100 {
		validationErrors = append(validationErrors, "RISK_APPROVAL_THRESHOLD must be in (0, 100]")
	}
	if c.Risk.HistoryCacheTTL <= 0 {
		validationErrors = append(validationErrors, "RISK_HISTORY_CACHE_TTL must be greater than 0")
	}
	if c.Risk.AIEnabled && c.Risk.AIBaseURL == "" {
		validationErrors = append(validationErrors, "RISK_AI_BASE_URL is required when RISK_AI_ENABLED is true")
	}

	// Validate Payout config
	if c.Payout.ManualRateBps <= 0 || c.Payout.ManualRateBps > 10000 {
		validationErrors = append(validationErrors, "PAYOUT_MANUAL_RATE_BPS must be in (0, 10000]")
	}

	// Validate external client configs
	if c.Coding.BaseURL == "" {
		validationErrors = append(validationErrors, "CODING_API_BASE_URL is required")
	}
	if c.Coding.Timeout <= 0 {
		validationErrors = append(validationErrors, "CODING_TIMEOUT must be greater than 0")
	}
	if c.ACHGateway.BaseURL == "" {
		validationErrors = append(validationErrors, "ACH_GATEWAY_BASE_URL is required")
	}
	if c.ACHGateway.Timeout <= 0 {
		validationErrors = append(validationErrors, "ACH_GATEWAY_TIMEOUT must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

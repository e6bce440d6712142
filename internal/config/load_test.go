package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "claim_submissions", cfg.Kafka.ClaimTopic)
	assert.Equal(t, "ehr_sync_requests", cfg.Kafka.SyncTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	// Sweep scheduler defaults
	assert.Equal(t, time.Minute, cfg.Sync.InitialDelay)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Sync.LookbackWindow)
	assert.True(t, cfg.Sync.AdvanceCursorOnFailure)

	// Risk and payout defaults
	assert.Equal(t, 80, cfg.Risk.ApprovalThreshold)
	assert.Equal(t, int64(9500), cfg.Payout.ManualRateBps)

	cfgWithName, err := LoadConfigWithName("configs/test_happy") // Viper will look for configs/test_happy.env
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	// Test LoadConfigWithNameAndType
	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{
		Application: ApplicationConfig{Env: v.GetString("APP_ENV"), Name: v.GetString("APP_NAME")},
		Logging:     LoggingConfig{Level: v.GetString("LOG_LEVEL")},
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers:           v.GetString("KAFKA_BROKERS"),
			ClaimTopic:        v.GetString("KAFKA_CLAIM_TOPIC"),
			SyncTopic:         v.GetString("KAFKA_SYNC_TOPIC"),
			NumPartitions:     v.GetInt("KAFKA_NUM_PARTITIONS"),
			ReplicationFactor: v.GetInt("KAFKA_REPLICATION_FACTOR"),
			ConsumerGroup:     v.GetString("KAFKA_CONSUMER_GROUP"),
			MinBytes:          v.GetInt("KAFKA_CONSUMER_MIN_BYTES"),
			MaxBytes:          v.GetInt("KAFKA_CONSUMER_MAX_BYTES"),
			MaxWait:           v.GetDuration("KAFKA_CONSUMER_MAX_WAIT"),
			StartOffset:       v.GetInt64("KAFKA_CONSUMER_START_OFFSET"),
			DLQTopic:          v.GetString("KAFKA_DLQ_TOPIC"),
		},
		Postgres: PostgresConfig{
			URL:             v.GetString("POSTGRES_URL"),
			MaxConns:        int32(v.GetInt("POSTGRES_MAX_CONNS")),
			MinConns:        int32(v.GetInt("POSTGRES_MIN_CONNS")),
			ConnMaxLifetime: v.GetDuration("POSTGRES_MAX_CONN_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("POSTGRES_MAX_CONN_IDLE_TIME"),
			MigrationsPath:  v.GetString("POSTGRES_MIGRATIONS_PATH"),
		},
		MongoDB: MongoDBConfig{
			URI:             v.GetString("MONGO_URI"),
			Database:        v.GetString("MONGO_DATABASE"),
			Timeout:         v.GetDuration("MONGO_TIMEOUT"),
			MaxPoolSize:     uint64(v.GetInt("MONGO_MAX_POOL_SIZE")),
			MinPoolSize:     uint64(v.GetInt("MONGO_MIN_POOL_SIZE")),
			MaxConnIdleTime: v.GetDuration("MONGO_MAX_CONN_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		WorkerPool: WorkerPoolConfig{
			Size: v.GetInt("WORKER_POOL_SIZE"),
		},
		Sync: SyncConfig{
			InitialDelay:           v.GetDuration("SYNC_INITIAL_DELAY"),
			Interval:               v.GetDuration("SYNC_INTERVAL"),
			LookbackWindow:         v.GetDuration("SYNC_LOOKBACK_WINDOW"),
			ExternalCallTimeout:    v.GetDuration("SYNC_EXTERNAL_CALL_TIMEOUT"),
			AdvanceCursorOnFailure: v.GetBool("SYNC_ADVANCE_CURSOR_ON_FAILURE"),
		},
		Risk: RiskConfig{
			ApprovalThreshold: v.GetInt("RISK_APPROVAL_THRESHOLD"),
			HistoryCacheTTL:   v.GetDuration("RISK_HISTORY_CACHE_TTL"),
			AIEnabled:         v.GetBool("RISK_AI_ENABLED"),
			AIBaseURL:         v.GetString("RISK_AI_BASE_URL"),
			AIAPIKey:          v.GetString("RISK_AI_API_KEY"),
			AIModel:           v.GetString("RISK_AI_MODEL"),
			AITimeout:         v.GetDuration("RISK_AI_TIMEOUT"),
		},
		Payout: PayoutConfig{
			ManualRateBps: v.GetInt64("PAYOUT_MANUAL_RATE_BPS"),
		},
		Coding: CodingConfig{
			BaseURL: v.GetString("CODING_API_BASE_URL"),
			APIKey:  v.GetString("CODING_API_KEY"),
			Model:   v.GetString("CODING_MODEL"),
			Timeout: v.GetDuration("CODING_TIMEOUT"),
		},
		ACHGateway: ACHGatewayConfig{
			BaseURL: v.GetString("ACH_GATEWAY_BASE_URL"),
			APIKey:  v.GetString("ACH_GATEWAY_API_KEY"),
			Timeout: v.GetDuration("ACH_GATEWAY_TIMEOUT"),
		},
		EHR: EHRConfig{
			TokenURL:     v.GetString("EHR_TOKEN_URL"),
			ClientID:     v.GetString("EHR_CLIENT_ID"),
			ClientSecret: v.GetString("EHR_CLIENT_SECRET"),
		},
	}
	err := cfg.validate()
	assert.NoError(t, err, "Default config should be valid")
}

func TestConfig_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ThresholdTooHigh", func(c *Config) { c.Risk.ApprovalThreshold = 101 }, "RISK_APPROVAL_THRESHOLD"},
		{"ZeroPayoutRate", func(c *Config) { c.Payout.ManualRateBps = 0 }, "PAYOUT_MANUAL_RATE_BPS"},
		{"MissingClaimTopic", func(c *Config) { c.Kafka.ClaimTopic = "" }, "KAFKA_CLAIM_TOPIC"},
		{"MissingSyncInterval", func(c *Config) { c.Sync.Interval = 0 }, "SYNC_INTERVAL"},
		{"MissingRedisAddr", func(c *Config) { c.Redis.Addr = "" }, "REDIS_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultTestConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// defaultTestConfig builds a valid config from the declared defaults
func defaultTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       "localhost:9092",
			ClaimTopic:    "claim_submissions",
			SyncTopic:     "ehr_sync_requests",
			ConsumerGroup: "claims-processor-group",
			MinBytes:      10240,
			MaxBytes:      10485760,
			MaxWait:       time.Second,
			DLQTopic:      "claim_submissions_dlq",
		},
		Postgres: PostgresConfig{
			URL:             "postgres://localhost:5432/claimpay",
			MaxConns:        20,
			MinConns:        5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
		},
		MongoDB: MongoDBConfig{
			URI:             "mongodb://localhost:27017",
			Database:        "claimpay",
			Timeout:         10 * time.Second,
			MaxPoolSize:     100,
			MinPoolSize:     10,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Redis:      RedisConfig{Addr: "localhost:6379"},
		WorkerPool: WorkerPoolConfig{Size: 10},
		Sync: SyncConfig{
			InitialDelay:           time.Minute,
			Interval:               15 * time.Minute,
			LookbackWindow:         24 * time.Hour,
			ExternalCallTimeout:    30 * time.Second,
			AdvanceCursorOnFailure: true,
		},
		Risk: RiskConfig{
			ApprovalThreshold: 80,
			HistoryCacheTTL:   5 * time.Minute,
		},
		Payout: PayoutConfig{ManualRateBps: 9500},
		Coding: CodingConfig{
			BaseURL: "https://api.openai.com",
			Timeout: 20 * time.Second,
		},
		ACHGateway: ACHGatewayConfig{
			BaseURL: "http://localhost:9090",
			Timeout: 15 * time.Second,
		},
	}
}

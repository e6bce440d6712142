package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claimpay/claims-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// SyncRequestProducer publishes on-demand single-provider EHR sync requests.
// Unlike claim submissions these are written synchronously: the caller is a
// manual trigger and should learn immediately if the request was not queued.
type SyncRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSyncRequestProducer creates the producer and ensures the topic exists
func NewSyncRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SyncRequestProducer, error) {
	if cfg.SyncTopic == "" {
		return nil, fmt.Errorf("kafka sync topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for sync request producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.SyncTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure sync topic %s exists: %w", cfg.SyncTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SyncTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &SyncRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SyncTopic,
	}, nil
}

func (p *SyncRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal sync request message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish sync request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish sync request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published sync request", "topic", p.topic, "key", key)
	return nil
}

func (p *SyncRequestProducer) Close() error {
	p.logger.Info("Closing sync request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close sync request writer for topic %s: %w", p.topic, err)
	}
	return nil
}

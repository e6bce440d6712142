// Package producers provides Kafka producers for the claim submission,
// EHR sync request, and dead-letter topics.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claimpay/claims-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// ClaimSubmissionProducer publishes claim submissions from the API gateway
// to the processor. Writes are async for submission throughput; a lost
// message only delays processing, the claim row itself is already durable.
type ClaimSubmissionProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewClaimSubmissionProducer creates the producer and ensures the topic exists
func NewClaimSubmissionProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ClaimSubmissionProducer, error) {
	if cfg.ClaimTopic == "" {
		return nil, fmt.Errorf("kafka claim topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for claim submission producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ClaimTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure claim topic %s exists: %w", cfg.ClaimTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ClaimTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.ClaimTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.ClaimTopic, "count", len(messages))
			}
		},
	}

	return &ClaimSubmissionProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ClaimTopic,
	}, nil
}

func (p *ClaimSubmissionProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal claim submission message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish claim submission",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish claim submission to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published claim submission",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ClaimSubmissionProducer) Close() error {
	p.logger.Info("Closing claim submission producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close claim submission writer for topic %s: %w", p.topic, err)
	}
	return nil
}

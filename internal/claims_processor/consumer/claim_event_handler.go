// Package consumer adapts Kafka messages into processor calls: claim
// submissions feed the pipeline, sync requests feed the orchestrator.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claimpay/claims-core/internal/claims_processor/pipeline"
	"github.com/claimpay/claims-core/internal/domain/shared"
	"github.com/claimpay/claims-core/internal/platform/messaging/producers"
)

// ClaimEventHandler handles incoming claim submission messages from Kafka
type ClaimEventHandler struct {
	processor pipeline.Processor
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewClaimEventHandler creates a new handler
func NewClaimEventHandler(
	logger *slog.Logger,
	processor pipeline.Processor,
	producer producers.DeadLetterPublisher,
) *ClaimEventHandler {
	return &ClaimEventHandler{
		processor: processor,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage processes Kafka messages
func (h *ClaimEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var submission shared.ClaimSubmission
	if err := json.Unmarshal(value, &submission); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal claim submission from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if submission.CorrelationID != "" {
		logger = h.logger.With("correlation_id", submission.CorrelationID)
	}

	logger.Info("Received claim submission for processing",
		"claim_id", submission.ClaimID.String(),
		"provider_id", submission.ProviderID.String(),
	)

	if err := h.processor.Process(ctx, submission.ClaimID, submission.CorrelationID); err != nil {
		logger.Error("Failed to process claim",
			"claim_id", submission.ClaimID.String(),
			"provider_id", submission.ProviderID.String(),
			"error", err,
		)
		return fmt.Errorf("processing claim %s failed: %w", submission.ClaimID.String(), err)
	}

	logger.Info("Successfully processed claim", "claim_id", submission.ClaimID.String())
	return nil // Success, commit offset
}

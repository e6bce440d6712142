package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claimpay/claims-core/internal/claims_processor/ehrsync"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/shared"
	"github.com/google/uuid"
)

// ProviderSyncer runs an on-demand EHR sync for one provider.
type ProviderSyncer interface {
	SyncProvider(ctx context.Context, providerID uuid.UUID) (ehrsync.ProviderSync, error)
}

// SyncEventHandler handles on-demand EHR sync request messages from Kafka
type SyncEventHandler struct {
	syncer ProviderSyncer
	logger *slog.Logger
}

// NewSyncEventHandler creates a new handler
func NewSyncEventHandler(logger *slog.Logger, syncer ProviderSyncer) *SyncEventHandler {
	return &SyncEventHandler{
		syncer: syncer,
		logger: logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SyncEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SyncRequest
	if err := json.Unmarshal(value, &request); err != nil {
		// A malformed sync request is not worth a DLQ round-trip; the
		// recurring sweep covers the provider regardless.
		h.logger.Error("Failed to unmarshal sync request, dropping message",
			"error", err,
			"message_key", string(key),
		)
		return nil
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received on-demand sync request", "provider_id", request.ProviderID.String())

	sync, err := h.syncer.SyncProvider(ctx, request.ProviderID)
	if err != nil {
		// Precondition failures are permanent for this message; only
		// transient errors earn a redelivery.
		if errors.Is(err, provider.ErrProviderNotFound{}) ||
			errors.Is(err, provider.ErrEHRNotEnabled) ||
			errors.Is(err, provider.ErrUnknownEHRSystem) ||
			errors.Is(err, provider.ErrMissingEHRBaseURL) {
			logger.Warn("Sync request rejected by precondition, dropping message",
				"provider_id", request.ProviderID.String(),
				"error", err,
			)
			return nil
		}
		logger.Error("On-demand sync failed",
			"provider_id", request.ProviderID.String(),
			"error", err,
		)
		return fmt.Errorf("sync for provider %s failed: %w", request.ProviderID.String(), err)
	}

	logger.Info("On-demand sync complete",
		"provider_id", request.ProviderID.String(),
		"encounters", sync.Fetched,
		"claims_created", sync.Processed,
		"claims_paid", sync.Paid,
	)
	return nil
}

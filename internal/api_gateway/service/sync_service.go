package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/shared"
	"github.com/claimpay/claims-core/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// SyncServiceImpl implements the SyncService interface
type SyncServiceImpl struct {
	providerRepo provider.Repository
	producer     producers.MessagePublisher
	logger       *slog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(logger *slog.Logger, providerRepo provider.Repository, producer producers.MessagePublisher) SyncService {
	return &SyncServiceImpl{
		providerRepo: providerRepo,
		producer:     producer,
		logger:       logger,
	}
}

// RequestSync publishes an on-demand sync request for the provider. EHR
// preconditions are checked upfront so the caller gets an immediate error
// instead of a silently dropped message.
func (s *SyncServiceImpl) RequestSync(ctx context.Context, providerID uuid.UUID, correlationID string) error {
	p, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return err
	}
	if !p.EHREnabled {
		return provider.ErrEHRNotEnabled
	}

	request := shared.SyncRequest{
		ProviderID:    providerID,
		CorrelationID: correlationID,
		RequestedAt:   time.Now(),
	}
	if err := s.producer.Publish(ctx, providerID.String(), request); err != nil {
		s.logger.Error("Failed to publish sync request",
			"provider_id", providerID.String(),
			"error", err,
		)
		return err
	}

	s.logger.Info("Sync requested", "provider_id", providerID.String())
	return nil
}

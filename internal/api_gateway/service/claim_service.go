package service

import (
	"context"
	"log/slog"

	"github.com/claimpay/claims-core/internal/domain/audit"
	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/shared"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/claimpay/claims-core/internal/platform/messaging/producers"
	"github.com/google/uuid"
)

// ClaimServiceImpl implements the ClaimService interface
type ClaimServiceImpl struct {
	claimRepo       claim.Repository
	providerRepo    provider.Repository
	transactionRepo transaction.Repository
	auditRepo       audit.Repository
	producer        producers.MessagePublisher
	logger          *slog.Logger
}

// NewClaimService creates a new claim service
func NewClaimService(
	logger *slog.Logger,
	claimRepo claim.Repository,
	providerRepo provider.Repository,
	transactionRepo transaction.Repository,
	auditRepo audit.Repository,
	producer producers.MessagePublisher,
) ClaimService {
	return &ClaimServiceImpl{
		claimRepo:       claimRepo,
		providerRepo:    providerRepo,
		transactionRepo: transactionRepo,
		auditRepo:       auditRepo,
		producer:        producer,
		logger:          logger,
	}
}

// SubmitClaim persists a new manual claim and publishes a submission message.
// The claim row is created first so the processor can always load it; the
// message carries only the claim's identity.
func (s *ClaimServiceImpl) SubmitClaim(ctx context.Context, providerID uuid.UUID, patientRef string, amountCents int64, notes string, correlationID string) (*claim.Claim, error) {
	if _, err := s.providerRepo.GetByID(ctx, providerID); err != nil {
		return nil, err
	}

	c, err := claim.NewClaim(providerID, patientRef, amountCents, notes, claim.SourceManual)
	if err != nil {
		return nil, err
	}

	if err := s.claimRepo.Create(ctx, c); err != nil {
		s.logger.Error("Failed to persist claim",
			"provider_id", providerID.String(),
			"error", err,
		)
		return nil, err
	}

	submission := shared.ClaimSubmission{
		ClaimID:       c.ID,
		ProviderID:    c.ProviderID,
		CorrelationID: correlationID,
		SubmittedAt:   c.SubmittedAt,
	}
	if err := s.producer.Publish(ctx, c.ID.String(), submission); err != nil {
		s.logger.Error("Failed to publish claim submission",
			"claim_id", c.ID.String(),
			"provider_id", providerID.String(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Claim submitted",
		"claim_id", c.ID.String(),
		"provider_id", providerID.String(),
		"amount_cents", amountCents,
	)

	return c, nil
}

// GetClaimByID retrieves a claim by its ID
func (s *ClaimServiceImpl) GetClaimByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	return s.claimRepo.GetByID(ctx, id)
}

// GetClaimsByProvider retrieves a paginated list of claims for a provider.
// Returns claims, total count, and any error
func (s *ClaimServiceImpl) GetClaimsByProvider(ctx context.Context, providerID uuid.UUID, page, perPage int) ([]*claim.Claim, int64, error) {
	offset := (page - 1) * perPage

	claims, err := s.claimRepo.ListByProvider(ctx, providerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.claimRepo.CountByProvider(ctx, providerID)
	if err != nil {
		return nil, 0, err
	}

	return claims, total, nil
}

// GetClaimHistory retrieves the claim's status transition trail, oldest first
func (s *ClaimServiceImpl) GetClaimHistory(ctx context.Context, claimID uuid.UUID, page, perPage int) ([]*audit.Entry, int64, error) {
	if _, err := s.claimRepo.GetByID(ctx, claimID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	entries, err := s.auditRepo.ListByClaim(ctx, claimID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditRepo.CountByClaim(ctx, claimID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetClaimTransactions retrieves the payout attempts recorded for a claim
func (s *ClaimServiceImpl) GetClaimTransactions(ctx context.Context, claimID uuid.UUID) ([]*transaction.Transaction, error) {
	if _, err := s.claimRepo.GetByID(ctx, claimID); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListByClaim(ctx, claimID)
}

package service

import (
	"context"

	"github.com/claimpay/claims-core/internal/domain/audit"
	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/google/uuid"
)

// ClaimService defines the interface for claim operations exposed by the gateway
type ClaimService interface {
	// SubmitClaim persists a new manual claim and hands it to the processor
	// via Kafka. The returned claim is in status submitted; processing is
	// asynchronous.
	SubmitClaim(ctx context.Context, providerID uuid.UUID, patientRef string, amountCents int64, notes string, correlationID string) (*claim.Claim, error)

	// GetClaimByID retrieves a claim by its ID
	// Returns ErrClaimNotFound if the claim doesn't exist
	GetClaimByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error)

	// GetClaimsByProvider retrieves a paginated list of claims for a provider
	// Returns claims, total count, and any error
	GetClaimsByProvider(ctx context.Context, providerID uuid.UUID, page, perPage int) ([]*claim.Claim, int64, error)

	// GetClaimHistory retrieves the claim's status transition trail, oldest first
	GetClaimHistory(ctx context.Context, claimID uuid.UUID, page, perPage int) ([]*audit.Entry, int64, error)

	// GetClaimTransactions retrieves the payout attempts recorded for a claim
	GetClaimTransactions(ctx context.Context, claimID uuid.UUID) ([]*transaction.Transaction, error)
}

// ProviderService defines the interface for provider operations
type ProviderService interface {
	// CreateProvider registers a provider with the given commission
	CreateProvider(ctx context.Context, name string, commissionBps int64) (*provider.Provider, error)

	// GetProviderByID retrieves a provider by its ID
	// Returns ErrProviderNotFound if the provider doesn't exist
	GetProviderByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error)

	// UpdateEHRSettings updates the provider's EHR connection settings
	UpdateEHRSettings(ctx context.Context, id uuid.UUID, enabled bool, system, baseURL string) (*provider.Provider, error)
}

// SyncService defines the interface for on-demand EHR sync triggers
type SyncService interface {
	// RequestSync publishes an on-demand sync request for the provider.
	// The sync itself runs asynchronously in the claims processor.
	RequestSync(ctx context.Context, providerID uuid.UUID, correlationID string) error
}

// Package provider defines the EHR-relevant subset of a healthcare
// provider: ownership of claims, EHR connection settings, the sync cursor,
// and the commission taken out of EHR-sourced payouts.
package provider

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyName         = errors.New("provider name cannot be empty")
	ErrInvalidCommission = errors.New("commission must be in [0, 10000) basis points")
	ErrEHRNotEnabled     = errors.New("EHR integration is not enabled for provider")
	ErrUnknownEHRSystem  = errors.New("unknown EHR system")
	ErrMissingEHRBaseURL = errors.New("EHR base URL is not configured for provider")
)

// EHR system identifiers understood by the sync orchestrator
const (
	EHRSystemFHIR     = "fhir"
	EHRSystemEmulator = "emulator"
)

// Provider owns claims and holds EHR sync cursor state
type Provider struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	EHREnabled    bool       `json:"ehr_enabled"`
	EHRSystem     string     `json:"ehr_system,omitempty"`
	EHRBaseURL    string     `json:"ehr_base_url,omitempty"`
	EHRLastSync   *time.Time `json:"ehr_last_sync,omitempty"` // Only ever advances
	CommissionBps int64      `json:"commission_bps"`          // Subtracted from EHR payouts
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// History summarizes a provider's assessed-claim outcomes for risk scoring
type History struct {
	AcceptedClaims int64 `json:"accepted_claims"`
	TotalClaims    int64 `json:"total_claims"`
}

// AcceptanceRate returns the acceptance percentage in [0, 100].
// Zero total means no history, reported as 0.
func (h History) AcceptanceRate() float64 {
	if h.TotalClaims == 0 {
		return 0
	}
	return float64(h.AcceptedClaims) / float64(h.TotalClaims) * 100
}

// NewProvider creates a provider with EHR integration disabled
func NewProvider(name string, commissionBps int64) (*Provider, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if commissionBps < 0 || commissionBps >= 10000 {
		return nil, ErrInvalidCommission
	}

	now := time.Now()
	return &Provider{
		ID:            uuid.New(),
		Name:          name,
		CommissionBps: commissionBps,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// PayoutRateBps is the payout rate applied to this provider's EHR-sourced
// claims: the full amount minus commission.
func (p *Provider) PayoutRateBps() int64 {
	return 10000 - p.CommissionBps
}

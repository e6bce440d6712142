// Package transaction defines payout transaction records: one per payment
// attempt against an approved claim. A claim only reaches paid after one of
// its transactions reaches COMPLETED.
package transaction

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes the upfront payout from a later insurance reimbursement
type Type string

const (
	TypePayout        Type = "PAYOUT"
	TypeReimbursement Type = "REIMBURSEMENT"
)

// Status is the gateway outcome for one payment attempt
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Transaction records one payment attempt. Amounts in cents/minor units.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	ClaimID     uuid.UUID  `json:"claim_id"`
	ProviderID  uuid.UUID  `json:"provider_id"`
	AmountCents int64      `json:"amount_cents"`
	Type        Type       `json:"type"`
	Status      Status     `json:"status"`
	GatewayRef  string     `json:"gateway_ref,omitempty"` // External payment-gateway reference
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewPayout creates a pending payout transaction for a claim
func NewPayout(claimID, providerID uuid.UUID, amountCents int64) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		ClaimID:     claimID,
		ProviderID:  providerID,
		AmountCents: amountCents,
		Type:        TypePayout,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

// Complete marks the transaction completed with the gateway reference
func (t *Transaction) Complete(gatewayRef string) {
	now := time.Now()
	t.Status = StatusCompleted
	t.GatewayRef = gatewayRef
	t.CompletedAt = &now
}

// Fail marks the transaction failed, keeping any reference the gateway returned
func (t *Transaction) Fail(gatewayRef string) {
	t.Status = StatusFailed
	t.GatewayRef = gatewayRef
}

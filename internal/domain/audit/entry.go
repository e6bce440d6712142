// Package audit defines the append-only trail of claim status transitions.
// The pipeline writes one entry per transition; the API exposes them as the
// claim's history. Entries are never updated or deleted.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry records a single claim status transition with a snapshot of the
// fields that transition set.
type Entry struct {
	ClaimID       uuid.UUID `json:"claim_id" bson:"claim_id"`
	ProviderID    uuid.UUID `json:"provider_id" bson:"provider_id"`
	FromStatus    string    `json:"from_status" bson:"from_status"`
	ToStatus      string    `json:"to_status" bson:"to_status"`
	Detail        Detail    `json:"detail,omitempty" bson:"detail,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	RecordedAt    time.Time `json:"recorded_at" bson:"recorded_at"`
}

// Detail captures what the transition decided, when applicable
type Detail struct {
	DiagnosisCodes  []string `json:"diagnosis_codes,omitempty" bson:"diagnosis_codes,omitempty"`
	ProcedureCodes  []string `json:"procedure_codes,omitempty" bson:"procedure_codes,omitempty"`
	RiskScore       *int     `json:"risk_score,omitempty" bson:"risk_score,omitempty"`
	PayoutCents     *int64   `json:"payout_cents,omitempty" bson:"payout_cents,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	GatewayRef      string   `json:"gateway_ref,omitempty" bson:"gateway_ref,omitempty"`
}

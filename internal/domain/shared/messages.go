// Package shared holds the Kafka message contracts exchanged between the
// API gateway and the claims processor.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// ClaimSubmission asks the processor to run a persisted claim through the
// processing pipeline. The claim row is the source of truth; the message
// only carries its identity.
type ClaimSubmission struct {
	ClaimID       uuid.UUID `json:"claim_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SyncRequest asks the processor to run an on-demand EHR sync for a single
// provider, outside the recurring sweep.
type SyncRequest struct {
	ProviderID    uuid.UUID `json:"provider_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

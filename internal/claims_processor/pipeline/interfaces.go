package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Processor drives one claim through the lifecycle.
type Processor interface {
	Process(ctx context.Context, claimID uuid.UUID, correlationID string) error
}

// HistoryInvalidator drops cached provider history after a claim reaches a
// terminal assessment, so the next score sees the new outcome.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, providerID uuid.UUID)
}

package audit

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages audit trail persistence. Writes are append-only.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByClaim(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByClaim(ctx context.Context, claimID uuid.UUID) (int64, error)
}

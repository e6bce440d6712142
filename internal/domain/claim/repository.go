package claim

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines claim persistence operations. The pipeline persists a
// claim after every state transition; there is no multi-write transaction
// spanning transitions, so each Update must be individually durable.
type Repository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Claim, error)
	CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error)

	// OutcomeCounts returns how many of the provider's assessed claims were
	// accepted (approved or paid) and how many were assessed in total.
	// Feeds the risk scorer's provider-history adjustment.
	OutcomeCounts(ctx context.Context, providerID uuid.UUID) (accepted, total int64, err error)
}

// ErrClaimNotFound indicates a missing claim
type ErrClaimNotFound struct {
	ClaimID uuid.UUID
}

func (e ErrClaimNotFound) Error() string {
	return "claim not found: " + e.ClaimID.String()
}

// Is matches any ErrClaimNotFound when the target carries the nil UUID
func (e ErrClaimNotFound) Is(target error) bool {
	t, ok := target.(ErrClaimNotFound)
	if !ok {
		return false
	}
	if t.ClaimID == uuid.Nil {
		return true
	}
	return e.ClaimID == t.ClaimID
}

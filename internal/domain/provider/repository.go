package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines provider persistence operations
type Repository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	ListEHREnabled(ctx context.Context) ([]*Provider, error)

	// UpdateLastSync advances the provider's EHR sync cursor. Implementations
	// must never move the cursor backwards.
	UpdateLastSync(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
}

// ErrProviderNotFound indicates a missing provider
type ErrProviderNotFound struct {
	ProviderID uuid.UUID
}

func (e ErrProviderNotFound) Error() string {
	return "provider not found: " + e.ProviderID.String()
}

// Is matches any ErrProviderNotFound when the target carries the nil UUID
func (e ErrProviderNotFound) Is(target error) bool {
	t, ok := target.(ErrProviderNotFound)
	if !ok {
		return false
	}
	if t.ProviderID == uuid.Nil {
		return true
	}
	return e.ProviderID == t.ProviderID
}

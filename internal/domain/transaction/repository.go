package transaction

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines payout transaction persistence operations
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Transaction, error)
}

// ErrTransactionNotFound indicates a missing transaction record
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

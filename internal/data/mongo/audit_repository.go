// Package mongo provides the MongoDB implementation of the claim audit
// trail. Postgres holds current claim state; Mongo holds the append-only
// history of how each claim got there.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/claimpay/claims-core/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "claim_audit_entries"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new audit entry. Entries are append-only; there is no
// update path.
func (r *AuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			"claim_id", entry.ClaimID.String(),
			"to_status", entry.ToStatus,
			"error", err)
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByClaim retrieves paginated audit entries for a claim in transition
// order (oldest first), so the result reads as the claim's history.
func (r *AuditRepository) ListByClaim(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"claim_id": claimID}
	opts := options.Find().
		SetSort(bson.M{"recorded_at": 1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"claim_id", claimID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"claim_id", claimID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// CountByClaim counts the total number of audit entries for a claim
func (r *AuditRepository) CountByClaim(ctx context.Context, claimID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"claim_id": claimID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count audit entries",
			"claim_id", claimID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}

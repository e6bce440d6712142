// Package postgres provides PostgreSQL implementations of the domain
// repositories. Claims, providers and payout transactions live here; the
// claim audit trail lives in MongoDB.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClaimRepository implements the claim.Repository interface for PostgreSQL
type ClaimRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewClaimRepository creates a new PostgreSQL claim repository
func NewClaimRepository(logger *slog.Logger, db *persistence.PostgresDB) claim.Repository {
	return &ClaimRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const claimColumns = `id, provider_id, patient_ref, patient_display, amount_cents, status, source,
		notes, diagnosis_codes, procedure_codes, risk_score, payout_cents, rejection_reason,
		submitted_at, coded_at, assessed_at, paid_at, created_at, updated_at`

// Create stores a new claim in the database
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.ProviderID,
		c.PatientRef,
		c.PatientDisplay,
		c.AmountCents,
		c.Status,
		c.Source,
		c.Notes,
		c.DiagnosisCodes,
		c.ProcedureCodes,
		c.RiskScore,
		c.PayoutCents,
		c.RejectionReason,
		c.SubmittedAt,
		c.CodedAt,
		c.AssessedAt,
		c.PaidAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", "error", err)
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetByID retrieves a claim by its ID
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	c, err := scanClaim(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, claim.ErrClaimNotFound{ClaimID: id}
		}
		r.logger.Error("Failed to get claim", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return c, nil
}

// Update persists the claim's current state. The pipeline calls this after
// every status transition, so each update must be individually durable.
func (r *ClaimRepository) Update(ctx context.Context, c *claim.Claim) error {
	query := `
		UPDATE claims
		SET status = $1, notes = $2, diagnosis_codes = $3, procedure_codes = $4,
			risk_score = $5, payout_cents = $6, rejection_reason = $7,
			coded_at = $8, assessed_at = $9, paid_at = $10, updated_at = $11
		WHERE id = $12
	`

	result, err := r.querier.Exec(ctx, query,
		c.Status,
		c.Notes,
		c.DiagnosisCodes,
		c.ProcedureCodes,
		c.RiskScore,
		c.PayoutCents,
		c.RejectionReason,
		c.CodedAt,
		c.AssessedAt,
		c.PaidAt,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", "id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update claim: %w", err)
	}

	if result.RowsAffected() == 0 {
		return claim.ErrClaimNotFound{ClaimID: c.ID}
	}

	return nil
}

// ListByProvider retrieves a page of the provider's claims, newest first
func (r *ClaimRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*claim.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE provider_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, providerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list claims", "provider_id", providerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim row: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim rows: %w", err)
	}

	return claims, nil
}

// CountByProvider returns the provider's total claim count
func (r *ClaimRepository) CountByProvider(ctx context.Context, providerID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM claims WHERE provider_id = $1`, providerID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count claims", "provider_id", providerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}

// OutcomeCounts returns the provider's accepted and total assessed claim
// counts. Accepted means the claim survived risk assessment (approved or
// paid); assessed excludes claims still moving through the pipeline.
func (r *ClaimRepository) OutcomeCounts(ctx context.Context, providerID uuid.UUID) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('approved', 'paid')),
			COUNT(*)
		FROM claims
		WHERE provider_id = $1 AND status IN ('approved', 'paid', 'rejected')
	`

	var accepted, total int64
	err := r.querier.QueryRow(ctx, query, providerID).Scan(&accepted, &total)
	if err != nil {
		r.logger.Error("Failed to get claim outcome counts", "provider_id", providerID.String(), "error", err)
		return 0, 0, fmt.Errorf("failed to get claim outcome counts: %w", err)
	}

	return accepted, total, nil
}

// scanClaim scans one claim row from either a Row or Rows
func scanClaim(row pgx.Row) (*claim.Claim, error) {
	var c claim.Claim
	err := row.Scan(
		&c.ID,
		&c.ProviderID,
		&c.PatientRef,
		&c.PatientDisplay,
		&c.AmountCents,
		&c.Status,
		&c.Source,
		&c.Notes,
		&c.DiagnosisCodes,
		&c.ProcedureCodes,
		&c.RiskScore,
		&c.PayoutCents,
		&c.RejectionReason,
		&c.SubmittedAt,
		&c.CodedAt,
		&c.AssessedAt,
		&c.PaidAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

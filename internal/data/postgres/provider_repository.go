package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProviderRepository implements the provider.Repository interface for PostgreSQL
type ProviderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProviderRepository creates a new PostgreSQL provider repository
func NewProviderRepository(logger *slog.Logger, db *persistence.PostgresDB) provider.Repository {
	return &ProviderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const providerColumns = `id, name, ehr_enabled, ehr_system, ehr_base_url, ehr_last_sync,
		commission_bps, created_at, updated_at`

// Create stores a new provider in the database
func (r *ProviderRepository) Create(ctx context.Context, p *provider.Provider) error {
	query := `
		INSERT INTO providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.Name,
		p.EHREnabled,
		p.EHRSystem,
		p.EHRBaseURL,
		p.EHRLastSync,
		p.CommissionBps,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create provider", "error", err)
		return fmt.Errorf("failed to create provider: %w", err)
	}

	return nil
}

// GetByID retrieves a provider by its ID
func (r *ProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	p, err := scanProvider(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, provider.ErrProviderNotFound{ProviderID: id}
		}
		r.logger.Error("Failed to get provider", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	return p, nil
}

// Update updates an existing provider in the database
func (r *ProviderRepository) Update(ctx context.Context, p *provider.Provider) error {
	query := `
		UPDATE providers
		SET name = $1, ehr_enabled = $2, ehr_system = $3, ehr_base_url = $4,
			commission_bps = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		p.Name,
		p.EHREnabled,
		p.EHRSystem,
		p.EHRBaseURL,
		p.CommissionBps,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update provider", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to update provider: %w", err)
	}

	if result.RowsAffected() == 0 {
		return provider.ErrProviderNotFound{ProviderID: p.ID}
	}

	return nil
}

// ListEHREnabled retrieves all providers with EHR integration enabled,
// in stable order for the sweep
func (r *ProviderRepository) ListEHREnabled(ctx context.Context) ([]*provider.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE ehr_enabled = TRUE ORDER BY created_at`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list EHR-enabled providers", "error", err)
		return nil, fmt.Errorf("failed to list EHR-enabled providers: %w", err)
	}
	defer rows.Close()

	var providers []*provider.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider row: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider rows: %w", err)
	}

	return providers, nil
}

// UpdateLastSync advances the provider's EHR sync cursor. The GREATEST
// guard keeps a slow concurrent sweep from moving the cursor backwards.
func (r *ProviderRepository) UpdateLastSync(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	query := `
		UPDATE providers
		SET ehr_last_sync = GREATEST(COALESCE(ehr_last_sync, 'epoch'::timestamptz), $1), updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, syncedAt, id)
	if err != nil {
		r.logger.Error("Failed to update provider sync cursor", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update provider sync cursor: %w", err)
	}

	if result.RowsAffected() == 0 {
		return provider.ErrProviderNotFound{ProviderID: id}
	}

	return nil
}

func scanProvider(row pgx.Row) (*provider.Provider, error) {
	var p provider.Provider
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.EHREnabled,
		&p.EHRSystem,
		&p.EHRBaseURL,
		&p.EHRLastSync,
		&p.CommissionBps,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

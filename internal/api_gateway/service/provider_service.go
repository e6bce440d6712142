package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/google/uuid"
)

// ProviderServiceImpl implements the ProviderService interface
type ProviderServiceImpl struct {
	providerRepo provider.Repository
	logger       *slog.Logger
}

// NewProviderService creates a new provider service
func NewProviderService(logger *slog.Logger, providerRepo provider.Repository) ProviderService {
	return &ProviderServiceImpl{
		providerRepo: providerRepo,
		logger:       logger,
	}
}

// CreateProvider registers a provider with the given commission
func (s *ProviderServiceImpl) CreateProvider(ctx context.Context, name string, commissionBps int64) (*provider.Provider, error) {
	p, err := provider.NewProvider(name, commissionBps)
	if err != nil {
		return nil, err
	}

	if err := s.providerRepo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to persist provider", "name", name, "error", err)
		return nil, err
	}

	s.logger.Info("Provider created",
		"provider_id", p.ID.String(),
		"name", p.Name,
		"commission_bps", p.CommissionBps,
	)
	return p, nil
}

// GetProviderByID retrieves a provider by its ID
func (s *ProviderServiceImpl) GetProviderByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	return s.providerRepo.GetByID(ctx, id)
}

// UpdateEHRSettings updates the provider's EHR connection settings. The sync
// cursor is left untouched so re-enabling a provider resumes from where its
// last sweep left off.
func (s *ProviderServiceImpl) UpdateEHRSettings(ctx context.Context, id uuid.UUID, enabled bool, system, baseURL string) (*provider.Provider, error) {
	p, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if enabled {
		switch system {
		case provider.EHRSystemFHIR, provider.EHRSystemEmulator:
		default:
			return nil, provider.ErrUnknownEHRSystem
		}
		if system == provider.EHRSystemFHIR && baseURL == "" {
			return nil, provider.ErrMissingEHRBaseURL
		}
	}

	p.EHREnabled = enabled
	p.EHRSystem = system
	p.EHRBaseURL = baseURL
	p.UpdatedAt = time.Now()

	if err := s.providerRepo.Update(ctx, p); err != nil {
		s.logger.Error("Failed to update provider EHR settings", "provider_id", id.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Provider EHR settings updated",
		"provider_id", p.ID.String(),
		"ehr_enabled", p.EHREnabled,
		"ehr_system", p.EHRSystem,
	)
	return p, nil
}

package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/api_gateway/middleware"
	"github.com/claimpay/claims-core/internal/api_gateway/service"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/gin-gonic/gin"
)

// ProviderHandler handles HTTP requests for provider operations
type ProviderHandler struct {
	providerService service.ProviderService
	syncService     service.SyncService
	logger          *slog.Logger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(logger *slog.Logger, providerService service.ProviderService, syncService service.SyncService) *ProviderHandler {
	return &ProviderHandler{
		providerService: providerService,
		syncService:     syncService,
		logger:          logger,
	}
}

// Create handles registration of a new provider
func (h *ProviderHandler) Create(c *gin.Context) {
	var req CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.providerService.CreateProvider(c.Request.Context(), req.Name, req.CommissionBps)
	if err != nil {
		if errors.Is(err, provider.ErrEmptyName) || errors.Is(err, provider.ErrInvalidCommission) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create provider", "name", req.Name, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapProviderToResponse(p))
}

// GetByID retrieves a provider by its ID, returning 404 if not found
func (h *ProviderHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "Invalid provider ID")
	if !ok {
		return
	}

	p, err := h.providerService.GetProviderByID(c.Request.Context(), id)
	if err != nil {
		var providerNotFound provider.ErrProviderNotFound
		if errors.As(err, &providerNotFound) {
			RespondNotFound(c, "Provider not found")
			return
		}
		h.logger.Error("Failed to get provider", "provider_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapProviderToResponse(p))
}

// UpdateEHRSettings updates the provider's EHR connection settings
func (h *ProviderHandler) UpdateEHRSettings(c *gin.Context) {
	id, ok := parseIDParam(c, "Invalid provider ID")
	if !ok {
		return
	}

	var req UpdateEHRSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.providerService.UpdateEHRSettings(c.Request.Context(), id, req.EHREnabled, req.EHRSystem, req.EHRBaseURL)
	if err != nil {
		var providerNotFound provider.ErrProviderNotFound
		if errors.As(err, &providerNotFound) {
			RespondNotFound(c, "Provider not found")
			return
		}
		if errors.Is(err, provider.ErrUnknownEHRSystem) || errors.Is(err, provider.ErrMissingEHRBaseURL) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to update EHR settings", "provider_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapProviderToResponse(p))
}

// TriggerSync requests an on-demand EHR sync for the provider. Returns 202:
// the sync runs asynchronously in the claims processor.
func (h *ProviderHandler) TriggerSync(c *gin.Context) {
	id, ok := parseIDParam(c, "Invalid provider ID")
	if !ok {
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	err := h.syncService.RequestSync(c.Request.Context(), id, correlationID)
	if err != nil {
		var providerNotFound provider.ErrProviderNotFound
		if errors.As(err, &providerNotFound) {
			RespondNotFound(c, "Provider not found")
			return
		}
		if errors.Is(err, provider.ErrEHRNotEnabled) {
			RespondConflict(c, "EHR integration is not enabled for this provider")
			return
		}
		h.logger.Error("Failed to request sync", "provider_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{"provider_id": id.String(), "status": "sync_requested"})
}

// mapProviderToResponse maps a provider entity to a provider response DTO
func mapProviderToResponse(p *provider.Provider) ProviderResponse {
	return ProviderResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		EHREnabled:    p.EHREnabled,
		EHRSystem:     p.EHRSystem,
		EHRBaseURL:    p.EHRBaseURL,
		EHRLastSync:   formatOptionalTime(p.EHRLastSync),
		CommissionBps: p.CommissionBps,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

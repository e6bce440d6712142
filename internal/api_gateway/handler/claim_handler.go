package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/api_gateway/middleware"
	"github.com/claimpay/claims-core/internal/api_gateway/service"
	"github.com/claimpay/claims-core/internal/domain/audit"
	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClaimHandler handles HTTP requests for claim operations
type ClaimHandler struct {
	claimService service.ClaimService
	logger       *slog.Logger
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(logger *slog.Logger, claimService service.ClaimService) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		logger:       logger,
	}
}

// Submit handles submission of a new claim. Returns 202: the claim is
// accepted for asynchronous processing, not yet assessed.
func (h *ClaimHandler) Submit(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		RespondBadRequest(c, "Invalid provider ID")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	cl, err := h.claimService.SubmitClaim(c.Request.Context(), providerID, req.PatientRef, req.AmountCents, req.Notes, correlationID)
	if err != nil {
		var providerNotFound provider.ErrProviderNotFound
		if errors.As(err, &providerNotFound) {
			RespondNotFound(c, "Provider not found")
			return
		}
		if errors.Is(err, claim.ErrInvalidAmount) || errors.Is(err, claim.ErrEmptyPatientRef) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to submit claim", "provider_id", req.ProviderID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, mapClaimToResponse(cl))
}

// GetByID retrieves a claim by its ID, returning 404 if not found
func (h *ClaimHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "Invalid claim ID")
	if !ok {
		return
	}

	cl, err := h.claimService.GetClaimByID(c.Request.Context(), id)
	if err != nil {
		var claimNotFound claim.ErrClaimNotFound
		if errors.As(err, &claimNotFound) {
			RespondNotFound(c, "Claim not found")
			return
		}
		h.logger.Error("Failed to get claim", "claim_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapClaimToResponse(cl))
}

// ListByProvider retrieves a paginated list of claims for a provider
func (h *ClaimHandler) ListByProvider(c *gin.Context) {
	providerID, ok := parseIDParam(c, "Invalid provider ID")
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	claims, total, err := h.claimService.GetClaimsByProvider(c.Request.Context(), providerID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list claims", "provider_id", providerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := ClaimListResponse{Claims: make([]ClaimResponse, 0, len(claims))}
	for _, cl := range claims {
		response.Claims = append(response.Claims, mapClaimToResponse(cl))
	}

	RespondWithPaginatedData(c, 200, response, params.Page, params.PerPage, int(total))
}

// GetHistory retrieves the claim's status transition trail
func (h *ClaimHandler) GetHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "Invalid claim ID")
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.claimService.GetClaimHistory(c.Request.Context(), id, params.Page, params.PerPage)
	if err != nil {
		var claimNotFound claim.ErrClaimNotFound
		if errors.As(err, &claimNotFound) {
			RespondNotFound(c, "Claim not found")
			return
		}
		h.logger.Error("Failed to get claim history", "claim_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := HistoryListResponse{Entries: make([]HistoryEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		response.Entries = append(response.Entries, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, 200, response, params.Page, params.PerPage, int(total))
}

// GetTransactions retrieves the payout attempts recorded for a claim
func (h *ClaimHandler) GetTransactions(c *gin.Context) {
	id, ok := parseIDParam(c, "Invalid claim ID")
	if !ok {
		return
	}

	transactions, err := h.claimService.GetClaimTransactions(c.Request.Context(), id)
	if err != nil {
		var claimNotFound claim.ErrClaimNotFound
		if errors.As(err, &claimNotFound) {
			RespondNotFound(c, "Claim not found")
			return
		}
		h.logger.Error("Failed to get claim transactions", "claim_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	response := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(transactions))}
	for _, tx := range transactions {
		response.Transactions = append(response.Transactions, mapTransactionToResponse(tx))
	}

	RespondOK(c, response)
}

// parseIDParam parses the :id path parameter as a UUID, responding 400 itself
// when the value is malformed.
func parseIDParam(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// mapClaimToResponse maps a claim entity to a claim response DTO
func mapClaimToResponse(cl *claim.Claim) ClaimResponse {
	return ClaimResponse{
		ID:              cl.ID.String(),
		ProviderID:      cl.ProviderID.String(),
		PatientDisplay:  cl.PatientDisplay,
		AmountCents:     cl.AmountCents,
		Status:          string(cl.Status),
		Source:          string(cl.Source),
		DiagnosisCodes:  cl.DiagnosisCodes,
		ProcedureCodes:  cl.ProcedureCodes,
		RiskScore:       cl.RiskScore,
		PayoutCents:     cl.PayoutCents,
		RejectionReason: cl.RejectionReason,
		SubmittedAt:     cl.SubmittedAt.Format(time.RFC3339),
		CodedAt:         formatOptionalTime(cl.CodedAt),
		AssessedAt:      formatOptionalTime(cl.AssessedAt),
		PaidAt:          formatOptionalTime(cl.PaidAt),
	}
}

// mapEntryToResponse maps an audit entry to a history response DTO
func mapEntryToResponse(entry *audit.Entry) HistoryEntryResponse {
	return HistoryEntryResponse{
		FromStatus:      entry.FromStatus,
		ToStatus:        entry.ToStatus,
		DiagnosisCodes:  entry.Detail.DiagnosisCodes,
		ProcedureCodes:  entry.Detail.ProcedureCodes,
		RiskScore:       entry.Detail.RiskScore,
		PayoutCents:     entry.Detail.PayoutCents,
		RejectionReason: entry.Detail.RejectionReason,
		GatewayRef:      entry.Detail.GatewayRef,
		CorrelationID:   entry.CorrelationID,
		RecordedAt:      entry.RecordedAt.Format(time.RFC3339),
	}
}

// mapTransactionToResponse maps a transaction entity to a transaction response DTO
func mapTransactionToResponse(tx *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID.String(),
		ClaimID:     tx.ClaimID.String(),
		AmountCents: tx.AmountCents,
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		GatewayRef:  tx.GatewayRef,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		CompletedAt: formatOptionalTime(tx.CompletedAt),
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

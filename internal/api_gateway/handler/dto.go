package handler

// SubmitClaimRequest represents a request to submit a new claim for payment
type SubmitClaimRequest struct {
	ProviderID  string `json:"provider_id" binding:"required,uuid"`
	PatientRef  string `json:"patient_ref" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Notes       string `json:"notes,omitempty"`
}

// ClaimResponse represents a claim in API responses. The patient appears
// only in anonymized display form.
type ClaimResponse struct {
	ID              string   `json:"id"`
	ProviderID      string   `json:"provider_id"`
	PatientDisplay  string   `json:"patient_display"`
	AmountCents     int64    `json:"amount_cents"`
	Status          string   `json:"status"`
	Source          string   `json:"source"`
	DiagnosisCodes  []string `json:"diagnosis_codes,omitempty"`
	ProcedureCodes  []string `json:"procedure_codes,omitempty"`
	RiskScore       *int     `json:"risk_score,omitempty"`
	PayoutCents     *int64   `json:"payout_cents,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	SubmittedAt     string   `json:"submitted_at"`
	CodedAt         string   `json:"coded_at,omitempty"`
	AssessedAt      string   `json:"assessed_at,omitempty"`
	PaidAt          string   `json:"paid_at,omitempty"`
}

// ClaimListResponse represents a list of claims in API responses
type ClaimListResponse struct {
	Claims []ClaimResponse `json:"claims"`
}

// HistoryEntryResponse represents one claim status transition in API responses
type HistoryEntryResponse struct {
	FromStatus      string   `json:"from_status"`
	ToStatus        string   `json:"to_status"`
	DiagnosisCodes  []string `json:"diagnosis_codes,omitempty"`
	ProcedureCodes  []string `json:"procedure_codes,omitempty"`
	RiskScore       *int     `json:"risk_score,omitempty"`
	PayoutCents     *int64   `json:"payout_cents,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	GatewayRef      string   `json:"gateway_ref,omitempty"`
	CorrelationID   string   `json:"correlation_id,omitempty"`
	RecordedAt      string   `json:"recorded_at"`
}

// HistoryListResponse represents a claim's transition history in API responses
type HistoryListResponse struct {
	Entries []HistoryEntryResponse `json:"entries"`
}

// TransactionResponse represents a payout transaction in API responses
type TransactionResponse struct {
	ID          string `json:"id"`
	ClaimID     string `json:"claim_id"`
	AmountCents int64  `json:"amount_cents"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	GatewayRef  string `json:"gateway_ref,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// TransactionListResponse represents a list of payout transactions in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// CreateProviderRequest represents a request to register a provider
type CreateProviderRequest struct {
	Name          string `json:"name" binding:"required"`
	CommissionBps int64  `json:"commission_bps" binding:"min=0,max=9999"`
}

// UpdateEHRSettingsRequest represents a request to update EHR connection settings
type UpdateEHRSettingsRequest struct {
	EHREnabled bool   `json:"ehr_enabled"`
	EHRSystem  string `json:"ehr_system,omitempty"`
	EHRBaseURL string `json:"ehr_base_url,omitempty"`
}

// ProviderResponse represents a provider in API responses
type ProviderResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	EHREnabled    bool   `json:"ehr_enabled"`
	EHRSystem     string `json:"ehr_system,omitempty"`
	EHRBaseURL    string `json:"ehr_base_url,omitempty"`
	EHRLastSync   string `json:"ehr_last_sync,omitempty"`
	CommissionBps int64  `json:"commission_bps"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

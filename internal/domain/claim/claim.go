// Package claim defines the central Claim entity: a provider's request for
// same-day payment against a patient encounter, driven from submission to a
// terminal outcome by the processing pipeline.
package claim

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount     = errors.New("claim amount must be positive")
	ErrEmptyPatientRef   = errors.New("patient reference cannot be empty")
	ErrInvalidTransition = errors.New("invalid claim status transition")
)

// Status is the claim lifecycle state. The lifecycle is strictly linear:
// submitted -> coding -> coded -> risk_check -> approved|rejected, and
// approved -> paid. There are no cycles and no transitions out of paid or
// rejected.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusCoding    Status = "coding"
	StatusCoded     Status = "coded"
	StatusRiskCheck Status = "risk_check"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPaid      Status = "paid"
)

// Source identifies how a claim entered the system
type Source string

const (
	SourceManual      Source = "manual"
	SourceEHRAuto     Source = "ehr_auto"
	SourceEHREmulator Source = "ehr_emulator"
)

// nextStatuses encodes the legal transitions of the lifecycle
var nextStatuses = map[Status][]Status{
	StatusSubmitted: {StatusCoding},
	StatusCoding:    {StatusCoded},
	StatusCoded:     {StatusRiskCheck},
	StatusRiskCheck: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusPaid},
}

// CanTransition reports whether moving from one status to another is legal
func CanTransition(from, to Status) bool {
	for _, s := range nextStatuses[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
// An approved-but-unpaid claim is deliberately not terminal: it is the
// recoverable stuck state left by a gateway failure.
func IsTerminal(s Status) bool {
	return s == StatusPaid || s == StatusRejected
}

// Claim is a request for same-day payment against a patient encounter.
// Amounts are stored in cents/minor units.
type Claim struct {
	ID              uuid.UUID  `json:"id"`
	ProviderID      uuid.UUID  `json:"provider_id"`
	PatientRef      string     `json:"patient_ref"`
	PatientDisplay  string     `json:"patient_display"` // Anonymized display form
	AmountCents     int64      `json:"amount_cents"`
	Status          Status     `json:"status"`
	Source          Source     `json:"source"`
	Notes           string     `json:"notes,omitempty"`
	DiagnosisCodes  []string   `json:"diagnosis_codes,omitempty"` // ICD-10, set when coded
	ProcedureCodes  []string   `json:"procedure_codes,omitempty"` // CPT, set when coded
	RiskScore       *int       `json:"risk_score,omitempty"`      // 0-100, set when assessed
	PayoutCents     *int64     `json:"payout_cents,omitempty"`    // Set only on approval
	RejectionReason string     `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	CodedAt         *time.Time `json:"coded_at,omitempty"`
	AssessedAt      *time.Time `json:"assessed_at,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewClaim creates a submitted claim. The patient display form is derived
// here so the raw identity never has to leave the record store with the
// claim's list views.
func NewClaim(providerID uuid.UUID, patientRef string, amountCents int64, notes string, source Source) (*Claim, error) {
	if patientRef == "" {
		return nil, ErrEmptyPatientRef
	}
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Claim{
		ID:             uuid.New(),
		ProviderID:     providerID,
		PatientRef:     patientRef,
		PatientDisplay: AnonymizePatient(patientRef),
		AmountCents:    amountCents,
		Status:         StatusSubmitted,
		Source:         source,
		Notes:          notes,
		SubmittedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AnonymizePatient reduces a patient name or reference to initials for
// display ("Jane Doe" -> "J. D."). References with no word content come
// back as "Patient".
func AnonymizePatient(ref string) string {
	fields := strings.Fields(ref)
	if len(fields) == 0 {
		return "Patient"
	}
	initials := make([]string, 0, len(fields))
	for _, f := range fields {
		r := []rune(f)
		initials = append(initials, strings.ToUpper(string(r[0]))+".")
	}
	return strings.Join(initials, " ")
}

// HasCodableInput reports whether the pipeline can take this claim past
// submitted: either raw notes to code, or codes already supplied by the
// encounter source.
func (c *Claim) HasCodableInput() bool {
	return strings.TrimSpace(c.Notes) != "" || c.HasCodes()
}

// HasCodes reports whether either code list is non-empty
func (c *Claim) HasCodes() bool {
	return len(c.DiagnosisCodes) > 0 || len(c.ProcedureCodes) > 0
}

// Transition moves the claim to the given status, enforcing the lifecycle
func (c *Claim) Transition(to Status) error {
	if !CanTransition(c.Status, to) {
		return ErrInvalidTransition
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return nil
}

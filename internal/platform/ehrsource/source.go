// Package ehrsource provides encounter sources for the EHR sync
// orchestrator. A source fetches billable encounters recorded in an external
// EHR system since a given cursor time; the orchestrator turns them into
// claims. Two implementations exist: a FHIR R4 client and an in-memory
// emulator for development and tests.
package ehrsource

import (
	"context"
	"time"

	"github.com/claimpay/claims-core/internal/domain/provider"
)

// Encounter is a billable clinical encounter as reported by an EHR system.
type Encounter struct {
	// ExternalID is the encounter's identifier in the source EHR system.
	ExternalID     string
	PatientRef     string
	PatientDisplay string
	AmountCents    int64
	Notes          string
	// DiagnosisCodes and ProcedureCodes are populated when the EHR
	// already carries structured billing codes. Claims created from such
	// encounters skip the coding stage.
	DiagnosisCodes []string
	ProcedureCodes []string
	OccurredAt     time.Time
}

// Source fetches new encounters for a provider from its EHR system.
type Source interface {
	// FetchNewEncounters returns encounters recorded after since,
	// oldest first.
	FetchNewEncounters(ctx context.Context, p *provider.Provider, since time.Time) ([]Encounter, error)
}

package ehrsource

import (
	"context"
	"sync"
	"time"

	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/google/uuid"
)

// EmulatorSource is an in-memory encounter source for local development and
// tests. Encounters are seeded through Record and served per provider,
// filtered by the sync cursor like a real EHR would.
type EmulatorSource struct {
	mu         sync.Mutex
	encounters map[uuid.UUID][]Encounter
}

func NewEmulatorSource() *EmulatorSource {
	return &EmulatorSource{
		encounters: make(map[uuid.UUID][]Encounter),
	}
}

// Record seeds an encounter for a provider.
func (s *EmulatorSource) Record(providerID uuid.UUID, enc Encounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enc.OccurredAt.IsZero() {
		enc.OccurredAt = time.Now().UTC()
	}
	s.encounters[providerID] = append(s.encounters[providerID], enc)
}

// FetchNewEncounters returns seeded encounters recorded after since.
func (s *EmulatorSource) FetchNewEncounters(_ context.Context, p *provider.Provider, since time.Time) ([]Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Encounter
	for _, enc := range s.encounters[p.ID] {
		if enc.OccurredAt.After(since) {
			result = append(result, enc)
		}
	}
	return result, nil
}

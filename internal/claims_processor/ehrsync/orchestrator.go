// Package ehrsync periodically pulls new encounters from providers' EHR
// systems and feeds them into the claims pipeline. One sweep visits every
// EHR-enabled provider; providers are isolated from each other's failures,
// and a guard keeps sweeps from overlapping.
package ehrsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/claimpay/claims-core/internal/claims_processor/pipeline"
	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/platform/ehrsource"
	"github.com/google/uuid"
)

// Config carries the sweep scheduler settings.
type Config struct {
	// InitialDelay postpones the first sweep after startup so the
	// processor's consumers are up before EHR traffic starts.
	InitialDelay time.Duration
	// Interval is the fixed time between sweep starts.
	Interval time.Duration
	// LookbackWindow bounds the first sync of a provider that has never
	// synced before.
	LookbackWindow time.Duration
	// AdvanceCursorOnFailure controls whether a provider's cursor moves
	// past a window containing failed encounters. True trades retries for
	// duplicate-safety; false trades duplicates for completeness.
	AdvanceCursorOnFailure bool
}

// ProviderSync summarizes one provider's pass: how many encounters came
// back, how many became claims, and how many of those were carried all the
// way through to a completed payment.
type ProviderSync struct {
	ProviderID uuid.UUID
	Fetched    int
	Processed  int
	Paid       int
	Failed     int
}

// SweepReport summarizes one sweep across all EHR-enabled providers.
type SweepReport struct {
	Providers     int
	Succeeded     int
	Failed        int
	ClaimsCreated int
	ClaimsPaid    int
	ProviderSyncs []ProviderSync
	StartedAt     time.Time
	Duration      time.Duration
}

// Orchestrator runs the periodic EHR sync.
type Orchestrator struct {
	logger    *slog.Logger
	providers provider.Repository
	claims    claim.Repository
	processor pipeline.Processor
	sources   map[string]ehrsource.Source
	cfg       Config

	// Guards against overlapping sweeps, whether from the ticker or a
	// concurrent manual trigger.
	sweeping atomic.Bool

	// now is swappable for tests.
	now func() time.Time
}

func NewOrchestrator(
	logger *slog.Logger,
	providers provider.Repository,
	claims claim.Repository,
	processor pipeline.Processor,
	sources map[string]ehrsource.Source,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		logger:    logger,
		providers: providers,
		claims:    claims,
		processor: processor,
		sources:   sources,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start blocks, running sweeps on the configured schedule until the context
// is canceled. The first sweep waits out the initial delay.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Info("EHR sync scheduler starting",
		"initial_delay", o.cfg.InitialDelay.String(),
		"interval", o.cfg.Interval.String(),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(o.cfg.InitialDelay):
	}

	o.SweepAll(ctx)

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("EHR sync scheduler stopping")
			return
		case <-ticker.C:
			o.SweepAll(ctx)
		}
	}
}

// SweepAll syncs every EHR-enabled provider once. Providers are visited
// sequentially; one provider's failure never blocks the rest. If a sweep is
// already in progress the call is a no-op.
func (o *Orchestrator) SweepAll(ctx context.Context) SweepReport {
	if !o.sweeping.CompareAndSwap(false, true) {
		o.logger.Warn("Sweep already in progress, skipping")
		return SweepReport{}
	}
	defer o.sweeping.Store(false)

	start := o.now()
	report := SweepReport{StartedAt: start}

	providers, err := o.providers.ListEHREnabled(ctx)
	if err != nil {
		o.logger.Error("Failed to list EHR-enabled providers, skipping sweep", "error", err)
		report.Duration = o.now().Sub(start)
		return report
	}

	report.Providers = len(providers)
	for _, p := range providers {
		sync, err := o.syncProvider(ctx, p)
		report.ProviderSyncs = append(report.ProviderSyncs, sync)
		report.ClaimsCreated += sync.Processed
		report.ClaimsPaid += sync.Paid
		if err != nil {
			report.Failed++
			o.logger.Error("Provider sync failed",
				"provider_id", p.ID.String(),
				"provider_name", p.Name,
				"error", err,
			)
			continue
		}
		report.Succeeded++
	}

	report.Duration = o.now().Sub(start)
	o.logger.Info("EHR sweep finished",
		"providers", report.Providers,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"claims_created", report.ClaimsCreated,
		"claims_paid", report.ClaimsPaid,
		"duration", report.Duration.String(),
	)
	return report
}

// SyncProvider syncs a single provider on demand. Unlike the sweep it
// reports precondition failures to the caller.
func (o *Orchestrator) SyncProvider(ctx context.Context, providerID uuid.UUID) (ProviderSync, error) {
	p, err := o.providers.GetByID(ctx, providerID)
	if err != nil {
		return ProviderSync{}, err
	}
	return o.syncProvider(ctx, p)
}

// syncProvider pulls new encounters for one provider and runs each through
// the pipeline. Encounters are isolated from each other: one bad encounter
// is logged and skipped, not allowed to abort the batch.
func (o *Orchestrator) syncProvider(ctx context.Context, p *provider.Provider) (ProviderSync, error) {
	sync := ProviderSync{ProviderID: p.ID}

	if !p.EHREnabled {
		return sync, provider.ErrEHRNotEnabled
	}
	source, ok := o.sources[p.EHRSystem]
	if !ok {
		return sync, fmt.Errorf("%w: %q", provider.ErrUnknownEHRSystem, p.EHRSystem)
	}

	sweepStart := o.now()
	since := sweepStart.Add(-o.cfg.LookbackWindow)
	if p.EHRLastSync != nil {
		since = *p.EHRLastSync
	}

	encounters, err := source.FetchNewEncounters(ctx, p, since)
	if err != nil {
		o.advanceCursor(ctx, p, sweepStart, 1)
		return sync, fmt.Errorf("failed to fetch encounters: %w", err)
	}
	sync.Fetched = len(encounters)

	for _, enc := range encounters {
		paid, err := o.ingestEncounter(ctx, p, enc)
		if err != nil {
			sync.Failed++
			o.logger.Error("Failed to ingest encounter",
				"provider_id", p.ID.String(),
				"encounter_id", enc.ExternalID,
				"error", err,
			)
			continue
		}
		sync.Processed++
		if paid {
			sync.Paid++
		}
	}

	o.advanceCursor(ctx, p, sweepStart, sync.Failed)

	if len(encounters) > 0 {
		o.logger.Info("Provider sync complete",
			"provider_id", p.ID.String(),
			"encounters", sync.Fetched,
			"claims_created", sync.Processed,
			"claims_paid", sync.Paid,
			"failed", sync.Failed,
		)
	}
	return sync, nil
}

// advanceCursor moves the provider's sync cursor to the sweep start, not the
// last encounter, so encounters recorded mid-fetch are picked up next time.
// When failures occurred (a failed fetch counts as one) the cursor still
// advances under the default policy; disabling it re-scans the window on the
// next sweep instead, at the cost of duplicate claims for the encounters
// that did succeed.
func (o *Orchestrator) advanceCursor(ctx context.Context, p *provider.Provider, sweepStart time.Time, failures int) {
	if failures > 0 && !o.cfg.AdvanceCursorOnFailure {
		o.logger.Warn("Holding sync cursor after failures; window will be re-scanned",
			"provider_id", p.ID.String(),
			"failures", failures,
		)
		return
	}
	if err := o.providers.UpdateLastSync(ctx, p.ID, sweepStart); err != nil {
		o.logger.Error("Failed to advance sync cursor",
			"provider_id", p.ID.String(),
			"error", err,
		)
	}
}

// ingestEncounter creates a claim from the encounter and drives it through
// the pipeline synchronously. It reports whether the claim came out the
// other side paid.
func (o *Orchestrator) ingestEncounter(ctx context.Context, p *provider.Provider, enc ehrsource.Encounter) (bool, error) {
	source := claim.SourceEHRAuto
	if p.EHRSystem == provider.EHRSystemEmulator {
		source = claim.SourceEHREmulator
	}

	c, err := claim.NewClaim(p.ID, enc.PatientRef, enc.AmountCents, enc.Notes, source)
	if err != nil {
		return false, fmt.Errorf("invalid encounter: %w", err)
	}
	if enc.PatientDisplay != "" {
		c.PatientDisplay = claim.AnonymizePatient(enc.PatientDisplay)
	}
	c.DiagnosisCodes = enc.DiagnosisCodes
	c.ProcedureCodes = enc.ProcedureCodes

	if err := o.claims.Create(ctx, c); err != nil {
		return false, fmt.Errorf("failed to create claim: %w", err)
	}

	if err := o.processor.Process(ctx, c.ID, ""); err != nil {
		return false, fmt.Errorf("failed to process claim %s: %w", c.ID, err)
	}

	// Reload for the terminal status; the pipeline persisted its own copy.
	processed, err := o.claims.GetByID(ctx, c.ID)
	if err != nil {
		o.logger.Warn("Could not reload claim after processing",
			"claim_id", c.ID.String(),
			"error", err,
		)
		return false, nil
	}
	return processed.Status == claim.StatusPaid, nil
}

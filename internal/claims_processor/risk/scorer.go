// Package risk scores claims for approval. The deterministic scorer applies
// weighted rules over the claim amount, assigned codes, and the provider's
// historical acceptance rate; an optional AI scorer can wrap it and defer to
// it on any failure. Scores land in [0, 100]; claims at or above the
// configured threshold are approved.
package risk

import (
	"context"
	"log/slog"

	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/google/uuid"
)

// Scoring weights. The base starts every claim at 50 and each rule adds or
// subtracts from there before clamping.
const (
	baseScore = 50

	// Amount bands, in cents.
	smallAmountLimit = 1_000_000 // < $10,000
	largeAmountLimit = 5_000_000 // >= $50,000 draws a penalty

	smallAmountBonus   = 20
	mediumAmountBonus  = 10
	largeAmountPenalty = -10

	codePresenceBonus = 15 // Per non-empty code list

	strongHistoryBonus  = 20  // Acceptance rate > 90%
	goodHistoryBonus    = 10  // Acceptance rate > 70%
	weakHistoryPenalty  = -15 // Acceptance rate < 50%
	strongHistoryCutoff = 90.0
	goodHistoryCutoff   = 70.0
	weakHistoryCutoff   = 50.0
)

// Input carries everything the deterministic scorer looks at.
type Input struct {
	AmountCents    int64
	DiagnosisCodes []string
	ProcedureCodes []string
	History        provider.History
}

// Scorer produces a risk score in [0, 100] for a claim.
type Scorer interface {
	ScoreClaim(ctx context.Context, providerID uuid.UUID, in Input) (int, error)
}

// Score applies the deterministic weighted rules. It is a pure function:
// the same input always produces the same score.
func Score(in Input) int {
	score := baseScore

	switch {
	case in.AmountCents <= 0:
		// Nothing to add; invalid amounts are rejected upstream.
	case in.AmountCents < smallAmountLimit:
		score += smallAmountBonus
	case in.AmountCents < largeAmountLimit:
		score += mediumAmountBonus
	default:
		score += largeAmountPenalty
	}

	if len(in.DiagnosisCodes) > 0 {
		score += codePresenceBonus
	}
	if len(in.ProcedureCodes) > 0 {
		score += codePresenceBonus
	}

	// A provider with no assessed claims gets no history adjustment: zero
	// total reports a 0% rate, but penalizing a new provider would block
	// every first claim.
	if in.History.TotalClaims > 0 {
		rate := in.History.AcceptanceRate()
		switch {
		case rate > strongHistoryCutoff:
			score += strongHistoryBonus
		case rate > goodHistoryCutoff:
			score += goodHistoryBonus
		case rate < weakHistoryCutoff:
			score += weakHistoryPenalty
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// HistorySource resolves a provider's claim-outcome history.
type HistorySource interface {
	History(ctx context.Context, providerID uuid.UUID) (provider.History, error)
}

// DeterministicScorer is the rule-based Scorer implementation. It resolves
// provider history itself so callers only hand it the claim facts.
type DeterministicScorer struct {
	logger  *slog.Logger
	history HistorySource
}

func NewDeterministicScorer(logger *slog.Logger, history HistorySource) *DeterministicScorer {
	return &DeterministicScorer{
		logger:  logger,
		history: history,
	}
}

// ScoreClaim resolves the provider's history and applies the weighted rules.
// A history lookup failure scores the claim without the history adjustment
// rather than blocking the pipeline.
func (s *DeterministicScorer) ScoreClaim(ctx context.Context, providerID uuid.UUID, in Input) (int, error) {
	if s.history != nil {
		history, err := s.history.History(ctx, providerID)
		if err != nil {
			s.logger.Warn("Provider history lookup failed, scoring without history adjustment",
				"provider_id", providerID.String(),
				"error", err,
			)
		} else {
			in.History = history
		}
	}
	return Score(in), nil
}

// Package pipeline drives claims through their lifecycle: coding, risk
// assessment, and payment. Each transition is persisted and audited
// individually, so a crash leaves the claim resumable from its last
// recorded state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/claims_processor/risk"
	"github.com/claimpay/claims-core/internal/domain/audit"
	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/claimpay/claims-core/internal/platform/aicoding"
	"github.com/google/uuid"
)

// Executor pays out an approved claim. Mirrors payment.Executor; declared
// here so the pipeline depends only on what it calls.
type Executor interface {
	Execute(ctx context.Context, c *claim.Claim) (*transaction.Transaction, error)
}

// Config carries the pipeline's decision knobs.
type Config struct {
	// ApprovalThreshold is the minimum risk score for approval, inclusive.
	ApprovalThreshold int
	// ManualRateBps is the payout rate for manually submitted claims, in
	// basis points. EHR-sourced claims use the provider's commission
	// instead.
	ManualRateBps int64
	// ExternalCallTimeout bounds each coding, scoring and payment call.
	ExternalCallTimeout time.Duration
}

// Pipeline is the claim state machine.
type Pipeline struct {
	logger     *slog.Logger
	claims     claim.Repository
	providers  provider.Repository
	auditTrail audit.Repository
	coder      aicoding.Coder
	scorer     risk.Scorer
	executor   Executor
	history    HistoryInvalidator
	cfg        Config
}

func New(
	logger *slog.Logger,
	claims claim.Repository,
	providers provider.Repository,
	auditTrail audit.Repository,
	coder aicoding.Coder,
	scorer risk.Scorer,
	executor Executor,
	history HistoryInvalidator,
	cfg Config,
) *Pipeline {
	return &Pipeline{
		logger:     logger,
		claims:     claims,
		providers:  providers,
		auditTrail: auditTrail,
		coder:      coder,
		scorer:     scorer,
		executor:   executor,
		history:    history,
		cfg:        cfg,
	}
}

// Process drives the claim forward from whatever state it is in. Submitted
// claims run the full pipeline; a claim parked mid-stage by an earlier
// failure resumes there; approved claims retry payment only; terminal
// claims are acknowledged without action. Errors are returned only when
// redelivering the message could help.
func (p *Pipeline) Process(ctx context.Context, claimID uuid.UUID, correlationID string) error {
	logger := p.logger
	if correlationID != "" {
		logger = p.logger.With("correlation_id", correlationID)
	}

	c, err := p.claims.GetByID(ctx, claimID)
	if err != nil {
		return fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}

	for {
		switch c.Status {
		case claim.StatusSubmitted:
			// A claim with neither notes nor pre-assigned codes has
			// nothing the coding stage can work with. It stays
			// submitted until the provider amends it; retrying the
			// message would change nothing.
			if !c.HasCodableInput() {
				logger.Warn("Claim has no notes or codes, leaving in submitted",
					"claim_id", c.ID.String(),
				)
				return nil
			}
			if err := p.transition(ctx, c, claim.StatusCoding, correlationID, audit.Detail{}); err != nil {
				return err
			}

		case claim.StatusCoding:
			if err := p.code(ctx, logger, c, correlationID); err != nil {
				return err
			}

		case claim.StatusCoded:
			if err := p.transition(ctx, c, claim.StatusRiskCheck, correlationID, audit.Detail{}); err != nil {
				return err
			}

		case claim.StatusRiskCheck:
			if err := p.assess(ctx, logger, c, correlationID); err != nil {
				return err
			}

		case claim.StatusApproved:
			return p.pay(ctx, logger, c, correlationID)

		default:
			logger.Info("Claim already processed, nothing to do",
				"claim_id", c.ID.String(),
				"status", string(c.Status),
			)
			return nil
		}
	}
}

// code assigns codes and moves the claim coding -> coded. Claims that
// arrived with structured codes (EHR sources) keep them and skip the
// model call.
func (p *Pipeline) code(ctx context.Context, logger *slog.Logger, c *claim.Claim, correlationID string) error {
	if !c.HasCodes() {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.ExternalCallTimeout)
		result := p.coder.Code(callCtx, c.Notes)
		cancel()

		c.DiagnosisCodes = result.DiagnosisCodes
		c.ProcedureCodes = result.ProcedureCodes
		if result.FromFallback {
			logger.Warn("Coding used fallback codes", "claim_id", c.ID.String())
		}
	}

	now := time.Now()
	c.CodedAt = &now

	return p.transition(ctx, c, claim.StatusCoded, correlationID, audit.Detail{
		DiagnosisCodes: c.DiagnosisCodes,
		ProcedureCodes: c.ProcedureCodes,
	})
}

// assess scores the claim and moves it risk_check -> approved|rejected.
func (p *Pipeline) assess(ctx context.Context, logger *slog.Logger, c *claim.Claim, correlationID string) error {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.ExternalCallTimeout)
	score, err := p.scorer.ScoreClaim(callCtx, c.ProviderID, risk.Input{
		AmountCents:    c.AmountCents,
		DiagnosisCodes: c.DiagnosisCodes,
		ProcedureCodes: c.ProcedureCodes,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to score claim %s: %w", c.ID, err)
	}

	now := time.Now()
	c.RiskScore = &score
	c.AssessedAt = &now

	if score >= p.cfg.ApprovalThreshold {
		payout, err := p.payoutAmount(ctx, c)
		if err != nil {
			return err
		}
		c.PayoutCents = &payout

		if err := p.transition(ctx, c, claim.StatusApproved, correlationID, audit.Detail{
			RiskScore:   c.RiskScore,
			PayoutCents: c.PayoutCents,
		}); err != nil {
			return err
		}
		logger.Info("Claim approved",
			"claim_id", c.ID.String(),
			"risk_score", score,
			"payout_cents", payout,
		)
	} else {
		c.RejectionReason = fmt.Sprintf("risk score %d below approval threshold %d", score, p.cfg.ApprovalThreshold)

		if err := p.transition(ctx, c, claim.StatusRejected, correlationID, audit.Detail{
			RiskScore:       c.RiskScore,
			RejectionReason: c.RejectionReason,
		}); err != nil {
			return err
		}
		logger.Info("Claim rejected",
			"claim_id", c.ID.String(),
			"risk_score", score,
			"threshold", p.cfg.ApprovalThreshold,
		)
	}

	// The provider's acceptance rate just changed.
	if p.history != nil {
		p.history.Invalidate(ctx, c.ProviderID)
	}
	return nil
}

// payoutAmount computes the payout for an approved claim. Manual claims pay
// at the configured flat rate; EHR-sourced claims pay the full amount minus
// the provider's commission.
func (p *Pipeline) payoutAmount(ctx context.Context, c *claim.Claim) (int64, error) {
	rateBps := p.cfg.ManualRateBps
	if c.Source != claim.SourceManual {
		prov, err := p.providers.GetByID(ctx, c.ProviderID)
		if err != nil {
			return 0, fmt.Errorf("failed to load provider for payout rate: %w", err)
		}
		rateBps = prov.PayoutRateBps()
	}
	return c.AmountCents * rateBps / 10000, nil
}

// pay executes the payout and, on success, moves the claim to paid. A
// gateway failure leaves the claim approved and acknowledges the message:
// the failed attempt is recorded on its transaction, and a later retry
// resumes from approved.
func (p *Pipeline) pay(ctx context.Context, logger *slog.Logger, c *claim.Claim, correlationID string) error {
	tx, err := p.executor.Execute(ctx, c)
	if err != nil {
		logger.Error("Payment failed, claim remains approved",
			"claim_id", c.ID.String(),
			"error", err,
		)
		return nil
	}

	now := time.Now()
	c.PaidAt = &now

	if err := p.transition(ctx, c, claim.StatusPaid, correlationID, audit.Detail{
		PayoutCents: c.PayoutCents,
		GatewayRef:  tx.GatewayRef,
	}); err != nil {
		return err
	}

	logger.Info("Claim paid",
		"claim_id", c.ID.String(),
		"payout_cents", *c.PayoutCents,
		"gateway_ref", tx.GatewayRef,
	)
	return nil
}

// transition moves the claim to the next status, persists it, and appends
// an audit entry. The claim row is the source of truth; an audit write
// failure is logged but does not undo the transition.
func (p *Pipeline) transition(ctx context.Context, c *claim.Claim, to claim.Status, correlationID string, detail audit.Detail) error {
	from := c.Status
	if err := c.Transition(to); err != nil {
		return fmt.Errorf("claim %s cannot move from %s to %s: %w", c.ID, from, to, err)
	}

	if err := p.claims.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to persist claim %s at %s: %w", c.ID, to, err)
	}

	entry := &audit.Entry{
		ClaimID:       c.ID,
		ProviderID:    c.ProviderID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		Detail:        detail,
		CorrelationID: correlationID,
		RecordedAt:    time.Now(),
	}
	if err := p.auditTrail.Append(ctx, entry); err != nil {
		p.logger.Error("Failed to append audit entry",
			"claim_id", c.ID.String(),
			"from_status", string(from),
			"to_status", string(to),
			"error", err,
		)
	}

	return nil
}

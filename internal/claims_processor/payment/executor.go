// Package payment executes payouts for approved claims. Every payment
// attempt is recorded as a transaction before the gateway is called, so a
// crash mid-payout leaves an auditable PENDING record rather than silence.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/claimpay/claims-core/internal/platform/achgateway"
)

// Executor pays out an approved claim.
type Executor interface {
	Execute(ctx context.Context, c *claim.Claim) (*transaction.Transaction, error)
}

// GatewayExecutor implements Executor against the ACH gateway.
type GatewayExecutor struct {
	logger       *slog.Logger
	transactions transaction.Repository
	gateway      achgateway.Gateway
	callTimeout  time.Duration
}

func NewGatewayExecutor(
	logger *slog.Logger,
	transactions transaction.Repository,
	gateway achgateway.Gateway,
	callTimeout time.Duration,
) *GatewayExecutor {
	return &GatewayExecutor{
		logger:       logger,
		transactions: transactions,
		gateway:      gateway,
		callTimeout:  callTimeout,
	}
}

// Execute creates a PENDING payout transaction, calls the gateway, and
// records the outcome. On gateway failure the transaction is marked FAILED
// and an error is returned; the claim itself is the caller's to leave in
// approved, where a later retry can pick it up.
func (e *GatewayExecutor) Execute(ctx context.Context, c *claim.Claim) (*transaction.Transaction, error) {
	if c.PayoutCents == nil || *c.PayoutCents <= 0 {
		return nil, fmt.Errorf("claim %s has no payout amount", c.ID)
	}

	tx := transaction.NewPayout(c.ID, c.ProviderID, *c.PayoutCents)
	if err := e.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record payout transaction: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	resp, gatewayErr := e.gateway.Payout(callCtx, &achgateway.PayoutRequest{
		ClaimID:        c.ID,
		ProviderID:     c.ProviderID,
		AmountCents:    tx.AmountCents,
		IdempotencyKey: tx.ID.String(),
	})

	if gatewayErr != nil {
		gatewayRef := ""
		if resp != nil {
			gatewayRef = resp.Reference
		}
		tx.Fail(gatewayRef)
		if err := e.transactions.Update(ctx, tx); err != nil {
			e.logger.Error("Failed to record payout failure",
				"transaction_id", tx.ID.String(),
				"claim_id", c.ID.String(),
				"error", err,
			)
		}
		e.logger.Error("Payout failed",
			"transaction_id", tx.ID.String(),
			"claim_id", c.ID.String(),
			"amount_cents", tx.AmountCents,
			"error", gatewayErr,
		)
		return tx, fmt.Errorf("payout for claim %s failed: %w", c.ID, gatewayErr)
	}

	tx.Complete(resp.Reference)
	if err := e.transactions.Update(ctx, tx); err != nil {
		// The money moved; the record must catch up. Surface the error so
		// the claim is not marked paid on top of a stale PENDING row.
		return tx, fmt.Errorf("failed to record payout completion: %w", err)
	}

	e.logger.Info("Payout completed",
		"transaction_id", tx.ID.String(),
		"claim_id", c.ID.String(),
		"amount_cents", tx.AmountCents,
		"gateway_ref", resp.Reference,
	)
	return tx, nil
}

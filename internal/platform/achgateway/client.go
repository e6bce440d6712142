// Package achgateway wraps the instant-ACH payment gateway used to pay
// approved claims out to providers.
package achgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/claimpay/claims-core/internal/config"
	"github.com/google/uuid"
)

// Gateway initiates provider payouts.
type Gateway interface {
	Payout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error)
}

// PayoutRequest describes a single ACH payout.
type PayoutRequest struct {
	ClaimID     uuid.UUID `json:"claim_id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	// IdempotencyKey lets the gateway dedupe retried payouts for the
	// same transaction.
	IdempotencyKey string `json:"idempotency_key"`
}

// PayoutResponse is the gateway's acknowledgement.
type PayoutResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(logger *slog.Logger, cfg *config.ACHGatewayConfig) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// Payout submits an ACH payout and returns the gateway reference. A non-2xx
// response or an "accepted=false" style status is returned as an error so the
// caller can mark the transaction failed.
func (c *Client) Payout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error) {
	if req.Currency == "" {
		req.Currency = "USD"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ach/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create payout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payout request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payout request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var payoutResp PayoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&payoutResp); err != nil {
		return nil, fmt.Errorf("failed to decode payout response: %w", err)
	}
	if payoutResp.Reference == "" {
		return nil, fmt.Errorf("payout response missing gateway reference")
	}
	if payoutResp.Status == "failed" || payoutResp.Status == "rejected" {
		return &payoutResp, fmt.Errorf("gateway declined payout: status %q, reference %s", payoutResp.Status, payoutResp.Reference)
	}

	c.logger.Debug("Payout accepted by gateway",
		"claim_id", req.ClaimID.String(),
		"reference", payoutResp.Reference,
		"status", payoutResp.Status,
	)
	return &payoutResp, nil
}

// Package aicoding assigns ICD-10 diagnosis codes and CPT procedure codes
// to claims by calling a chat-completions style model API. Coding never
// blocks the pipeline: any failure falls back to conservative default codes.
package aicoding

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
)

// Default codes assigned when the model is unavailable or returns an
// unusable answer. Z00.00 is a general encounter, 99213 an office visit.
var (
	fallbackDiagnosisCodes = []string{"Z00.00"}
	fallbackProcedureCodes = []string{"99213"}
)

// Result holds the assigned code sets for a single claim.
type Result struct {
	DiagnosisCodes []string
	ProcedureCodes []string
	FromFallback   bool
}

// Coder assigns medical codes to free-text clinical notes.
type Coder interface {
	Code(ctx context.Context, notes string) Result
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	enabled    bool
}

func NewClient(logger *slog.Logger, cfg *config.CodingConfig) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		// No API key means coding runs in fallback-only mode.
		enabled: cfg.APIKey != "",
	}
}

const systemPrompt = "You are a medical coding assistant. Given clinical notes, respond with JSON only: " +
	`{"diagnosis_codes": ["<ICD-10>", ...], "procedure_codes": ["<CPT>", ...]}. No prose.`

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type codeAssignment struct {
	DiagnosisCodes []string `json:"diagnosis_codes"`
	ProcedureCodes []string `json:"procedure_codes"`
}

// Code assigns codes to the given notes. It never returns an error: when the
// model call fails for any reason the fallback code sets are returned so the
// claim keeps moving.
func (c *Client) Code(ctx context.Context, notes string) Result {
	if !c.enabled {
		return fallbackResult()
	}

	assignment, err := c.requestCodes(ctx, notes)
	if err != nil {
		c.logger.Warn("Model coding failed, using fallback codes", "error", err)
		return fallbackResult()
	}
	if len(assignment.DiagnosisCodes) == 0 || len(assignment.ProcedureCodes) == 0 {
		c.logger.Warn("Model returned incomplete code assignment, using fallback codes",
			"diagnosis_count", len(assignment.DiagnosisCodes),
			"procedure_count", len(assignment.ProcedureCodes),
		)
		return fallbackResult()
	}

	return Result{
		DiagnosisCodes: assignment.DiagnosisCodes,
		ProcedureCodes: assignment.ProcedureCodes,
	}
}

func (c *Client) requestCodes(ctx context.Context, notes string) (*codeAssignment, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: notes},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("chat response contained no choices")
	}

	return parseAssignment(chatResp.Choices[0].Message.Content)
}

// parseAssignment extracts the JSON code assignment from the model answer.
// Models sometimes wrap JSON in markdown fences, so the first brace-delimited
// object is parsed rather than the raw content.
func parseAssignment(content string) (*codeAssignment, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model answer")
	}

	var assignment codeAssignment
	if err := json.Unmarshal([]byte(content[start:end+1]), &assignment); err != nil {
		return nil, fmt.Errorf("failed to parse code assignment: %w", err)
	}
	return &assignment, nil
}

func fallbackResult() Result {
	return Result{
		DiagnosisCodes: append([]string(nil), fallbackDiagnosisCodes...),
		ProcedureCodes: append([]string(nil), fallbackProcedureCodes...),
		FromFallback:   true,
	}
}

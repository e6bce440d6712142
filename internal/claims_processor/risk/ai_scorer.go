package risk

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

// AIScorer asks a model to assess the claim and falls back to the
// deterministic scorer on any failure or out-of-range answer. The model
// never gets the last word on an invalid score.
type AIScorer struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	fallback   Scorer
}

func NewAIScorer(logger *slog.Logger, cfg *config.RiskConfig, fallback Scorer) *AIScorer {
	return &AIScorer{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.AITimeout},
		baseURL:    strings.TrimRight(cfg.AIBaseURL, "/"),
		apiKey:     cfg.AIAPIKey,
		model:      cfg.AIModel,
		fallback:   fallback,
	}
}

const scoringPrompt = "You are a healthcare claims risk assessor. Given claim facts, respond with JSON only: " +
	`{"score": <integer 0-100>}. Higher means lower risk. No prose.`

type scoreAnswer struct {
	Score *int `json:"score"`
}

// ScoreClaim asks the model for a score, deferring to the deterministic
// scorer whenever the model is unreachable or answers outside [0, 100].
func (s *AIScorer) ScoreClaim(ctx context.Context, providerID uuid.UUID, in Input) (int, error) {
	score, err := s.requestScore(ctx, in)
	if err != nil {
		s.logger.Warn("AI scoring failed, using deterministic scorer",
			"provider_id", providerID.String(),
			"error", err,
		)
		return s.fallback.ScoreClaim(ctx, providerID, in)
	}
	return score, nil
}

func (s *AIScorer) requestScore(ctx context.Context, in Input) (int, error) {
	facts := map[string]interface{}{
		"amount_cents":    in.AmountCents,
		"diagnosis_codes": in.DiagnosisCodes,
		"procedure_codes": in.ProcedureCodes,
		"provider_history": map[string]int64{
			"accepted_claims": in.History.AcceptedClaims,
			"total_claims":    in.History.TotalClaims,
		},
	}
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal claim facts: %w", err)
	}

	payload := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": scoringPrompt},
			{"role": "user", "content": string(factsJSON)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scoring request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("scoring request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return 0, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return 0, fmt.Errorf("scoring response contained no choices")
	}

	content := chatResp.Choices[0].Message.Content
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return 0, fmt.Errorf("no JSON object in scoring answer")
	}

	var answer scoreAnswer
	if err := json.Unmarshal([]byte(content[start:end+1]), &answer); err != nil {
		return 0, fmt.Errorf("failed to parse scoring answer: %w", err)
	}
	if answer.Score == nil {
		return 0, fmt.Errorf("scoring answer missing score")
	}
	if *answer.Score < 0 || *answer.Score > 100 {
		return 0, fmt.Errorf("scoring answer out of range: %d", *answer.Score)
	}

	return *answer.Score, nil
}

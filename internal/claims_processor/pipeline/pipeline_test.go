package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claimpay/claims-core/internal/claims_processor/risk"
	"github.com/claimpay/claims-core/internal/domain/audit"
	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/claimpay/claims-core/internal/platform/aicoding"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory fakes. The pipeline only needs Get/Update on claims, GetByID on
// providers, and Append on the audit trail.

type fakeClaimRepo struct {
	claims map[uuid.UUID]*claim.Claim
}

func newFakeClaimRepo(cs ...*claim.Claim) *fakeClaimRepo {
	r := &fakeClaimRepo{claims: make(map[uuid.UUID]*claim.Claim)}
	for _, c := range cs {
		copied := *c
		r.claims[c.ID] = &copied
	}
	return r
}

func (r *fakeClaimRepo) Create(_ context.Context, c *claim.Claim) error {
	copied := *c
	r.claims[c.ID] = &copied
	return nil
}

func (r *fakeClaimRepo) GetByID(_ context.Context, id uuid.UUID) (*claim.Claim, error) {
	c, ok := r.claims[id]
	if !ok {
		return nil, claim.ErrClaimNotFound{ClaimID: id}
	}
	copied := *c
	return &copied, nil
}

func (r *fakeClaimRepo) Update(_ context.Context, c *claim.Claim) error {
	if _, ok := r.claims[c.ID]; !ok {
		return claim.ErrClaimNotFound{ClaimID: c.ID}
	}
	copied := *c
	r.claims[c.ID] = &copied
	return nil
}

func (r *fakeClaimRepo) ListByProvider(_ context.Context, _ uuid.UUID, _, _ int) ([]*claim.Claim, error) {
	return nil, nil
}

func (r *fakeClaimRepo) CountByProvider(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *fakeClaimRepo) OutcomeCounts(_ context.Context, _ uuid.UUID) (int64, int64, error) {
	return 0, 0, nil
}

type fakeProviderRepo struct {
	providers map[uuid.UUID]*provider.Provider
}

func (r *fakeProviderRepo) Create(_ context.Context, _ *provider.Provider) error { return nil }
func (r *fakeProviderRepo) Update(_ context.Context, _ *provider.Provider) error { return nil }
func (r *fakeProviderRepo) ListEHREnabled(_ context.Context) ([]*provider.Provider, error) {
	return nil, nil
}
func (r *fakeProviderRepo) UpdateLastSync(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (r *fakeProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, provider.ErrProviderNotFound{ProviderID: id}
	}
	return p, nil
}

type fakeAuditRepo struct {
	entries []*audit.Entry
}

func (r *fakeAuditRepo) Append(_ context.Context, e *audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) ListByClaim(_ context.Context, _ uuid.UUID, _, _ int) ([]*audit.Entry, error) {
	return r.entries, nil
}

func (r *fakeAuditRepo) CountByClaim(_ context.Context, _ uuid.UUID) (int64, error) {
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) transitions() []string {
	var ts []string
	for _, e := range r.entries {
		ts = append(ts, e.FromStatus+"->"+e.ToStatus)
	}
	return ts
}

type fakeCoder struct {
	result aicoding.Result
	calls  int
}

func (c *fakeCoder) Code(_ context.Context, _ string) aicoding.Result {
	c.calls++
	return c.result
}

type fakeScorer struct {
	score int
	err   error
}

func (s *fakeScorer) ScoreClaim(_ context.Context, _ uuid.UUID, _ risk.Input) (int, error) {
	return s.score, s.err
}

type fakeExecutor struct {
	err   error
	calls int
}

func (e *fakeExecutor) Execute(_ context.Context, c *claim.Claim) (*transaction.Transaction, error) {
	e.calls++
	if e.err != nil {
		tx := transaction.NewPayout(c.ID, c.ProviderID, *c.PayoutCents)
		tx.Fail("")
		return tx, e.err
	}
	tx := transaction.NewPayout(c.ID, c.ProviderID, *c.PayoutCents)
	tx.Complete("ach_ok")
	return tx, nil
}

type testHarness struct {
	pipeline   *Pipeline
	claims     *fakeClaimRepo
	providers  *fakeProviderRepo
	auditTrail *fakeAuditRepo
	coder      *fakeCoder
	scorer     *fakeScorer
	executor   *fakeExecutor
}

func newHarness(c *claim.Claim, scorer *fakeScorer) *testHarness {
	claims := newFakeClaimRepo(c)
	providers := &fakeProviderRepo{providers: make(map[uuid.UUID]*provider.Provider)}
	auditTrail := &fakeAuditRepo{}
	coder := &fakeCoder{result: aicoding.Result{
		DiagnosisCodes: []string{"J10.1"},
		ProcedureCodes: []string{"99214"},
	}}
	executor := &fakeExecutor{}

	p := New(
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
		claims,
		providers,
		auditTrail,
		coder,
		scorer,
		executor,
		nil,
		Config{
			ApprovalThreshold:   80,
			ManualRateBps:       9500,
			ExternalCallTimeout: 30 * time.Second,
		},
	)

	return &testHarness{
		pipeline:   p,
		claims:     claims,
		providers:  providers,
		auditTrail: auditTrail,
		coder:      coder,
		scorer:     scorer,
		executor:   executor,
	}
}

func submittedClaim(amountCents int64, notes string) *claim.Claim {
	c, err := claim.NewClaim(uuid.New(), "Jane Doe", amountCents, notes, claim.SourceManual)
	if err != nil {
		panic(err)
	}
	return c
}

func TestProcess_HighScoreClaimIsPaid(t *testing.T) {
	// $5,000 flu claim with both code lists scores 50+20+15+15 = 100.
	c := submittedClaim(500_000, "Patient presented with flu symptoms")
	h := newHarness(c, &fakeScorer{score: 100})

	err := h.pipeline.Process(context.Background(), c.ID, "corr-1")
	require.NoError(t, err)

	got, err := h.claims.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.StatusPaid, got.Status)
	require.NotNil(t, got.RiskScore)
	assert.Equal(t, 100, *got.RiskScore)
	require.NotNil(t, got.PayoutCents)
	assert.Equal(t, int64(475_000), *got.PayoutCents) // 95% of $5,000.00
	assert.Equal(t, []string{"J10.1"}, got.DiagnosisCodes)
	assert.NotNil(t, got.CodedAt)
	assert.NotNil(t, got.AssessedAt)
	assert.NotNil(t, got.PaidAt)

	assert.Equal(t, []string{
		"submitted->coding",
		"coding->coded",
		"coded->risk_check",
		"risk_check->approved",
		"approved->paid",
	}, h.auditTrail.transitions())
}

func TestProcess_LowScoreClaimIsRejected(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	h := newHarness(c, &fakeScorer{score: 79})

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err)

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusRejected, got.Status)
	assert.Nil(t, got.PayoutCents)
	assert.Contains(t, got.RejectionReason, "79")
	assert.Contains(t, got.RejectionReason, "80")
	assert.Equal(t, 0, h.executor.calls)

	assert.Equal(t, []string{
		"submitted->coding",
		"coding->coded",
		"coded->risk_check",
		"risk_check->rejected",
	}, h.auditTrail.transitions())
}

func TestProcess_ScoreAtThresholdIsApproved(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	h := newHarness(c, &fakeScorer{score: 80})

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err)

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusPaid, got.Status)
}

func TestProcess_PreCodedClaimSkipsCoder(t *testing.T) {
	c := submittedClaim(500_000, "")
	c.DiagnosisCodes = []string{"E11.9"}
	c.ProcedureCodes = []string{"99213"}
	h := newHarness(c, &fakeScorer{score: 100})

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err)

	assert.Equal(t, 0, h.coder.calls)

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusPaid, got.Status)
	assert.Equal(t, []string{"E11.9"}, got.DiagnosisCodes)
}

func TestProcess_ClaimWithoutCodableInputStaysSubmitted(t *testing.T) {
	c := submittedClaim(500_000, "")
	h := newHarness(c, &fakeScorer{score: 100})

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err) // Acknowledged; retrying would not help

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusSubmitted, got.Status)
	assert.Empty(t, h.auditTrail.entries)
	assert.Equal(t, 0, h.coder.calls)
}

func TestProcess_PaymentFailureLeavesClaimApproved(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	h := newHarness(c, &fakeScorer{score: 100})
	h.executor.err = errors.New("gateway down")

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err) // Message acknowledged; claim stays recoverable

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusApproved, got.Status)
	assert.Nil(t, got.PaidAt)
	require.NotNil(t, got.PayoutCents)
	assert.Equal(t, int64(475_000), *got.PayoutCents)

	// No paid transition was audited.
	assert.Equal(t, []string{
		"submitted->coding",
		"coding->coded",
		"coded->risk_check",
		"risk_check->approved",
	}, h.auditTrail.transitions())
}

func TestProcess_ApprovedClaimRetriesPaymentOnly(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	h := newHarness(c, &fakeScorer{score: 100})
	h.executor.err = errors.New("gateway down")

	require.NoError(t, h.pipeline.Process(context.Background(), c.ID, ""))
	got, _ := h.claims.GetByID(context.Background(), c.ID)
	require.Equal(t, claim.StatusApproved, got.Status)

	// Gateway recovers; reprocessing the same claim pays without
	// re-coding or re-scoring.
	h.executor.err = nil
	coderCallsBefore := h.coder.calls

	require.NoError(t, h.pipeline.Process(context.Background(), c.ID, ""))
	got, _ = h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusPaid, got.Status)
	assert.Equal(t, coderCallsBefore, h.coder.calls)
	assert.Equal(t, 2, h.executor.calls)
}

func TestProcess_TerminalClaimIsAcknowledged(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	c.Status = claim.StatusRejected
	h := newHarness(c, &fakeScorer{score: 100})

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err)

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusRejected, got.Status)
	assert.Equal(t, 0, h.executor.calls)
}

func TestProcess_EHRClaimUsesProviderCommission(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	c.Source = claim.SourceEHRAuto
	h := newHarness(c, &fakeScorer{score: 100})
	h.providers.providers[c.ProviderID] = &provider.Provider{
		ID:            c.ProviderID,
		Name:          "Lakeside Family Medicine",
		CommissionBps: 300,
	}

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.NoError(t, err)

	got, _ := h.claims.GetByID(context.Background(), c.ID)
	require.NotNil(t, got.PayoutCents)
	// 97% of $5,000.00 after the 3% commission.
	assert.Equal(t, int64(485_000), *got.PayoutCents)
}

func TestProcess_ScorerFailureIsRetryable(t *testing.T) {
	c := submittedClaim(500_000, "notes")
	h := newHarness(c, &fakeScorer{err: errors.New("history store down")})

	err := h.pipeline.Process(context.Background(), c.ID, "")
	require.Error(t, err)

	// The claim parked in risk_check; the message will be redelivered.
	got, _ := h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusRiskCheck, got.Status)

	// Redelivery resumes from risk_check once the scorer recovers.
	h.scorer.err = nil
	h.scorer.score = 95
	require.NoError(t, h.pipeline.Process(context.Background(), c.ID, ""))
	got, _ = h.claims.GetByID(context.Background(), c.ID)
	assert.Equal(t, claim.StatusPaid, got.Status)
}

func TestProcess_UnknownClaim(t *testing.T) {
	h := newHarness(submittedClaim(100, "n"), &fakeScorer{score: 100})

	err := h.pipeline.Process(context.Background(), uuid.New(), "")
	assert.Error(t, err)
	assert.ErrorIs(t, err, claim.ErrClaimNotFound{})
}

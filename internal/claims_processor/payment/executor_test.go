package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claimpay/claims-core/internal/domain/claim"
	"github.com/claimpay/claims-core/internal/domain/transaction"
	"github.com/claimpay/claims-core/internal/platform/achgateway"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Payout(ctx context.Context, req *achgateway.PayoutRequest) (*achgateway.PayoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*achgateway.PayoutResponse), args.Error(1)
}

func approvedClaim() *claim.Claim {
	payout := int64(475000)
	score := 100
	return &claim.Claim{
		ID:          uuid.New(),
		ProviderID:  uuid.New(),
		AmountCents: 500000,
		Status:      claim.StatusApproved,
		Source:      claim.SourceManual,
		RiskScore:   &score,
		PayoutCents: &payout,
	}
}

func newExecutor(repo *MockTransactionRepository, gw *MockGateway) *GatewayExecutor {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewGatewayExecutor(logger, repo, gw, 30*time.Second)
}

func TestExecute_Success(t *testing.T) {
	repo := &MockTransactionRepository{}
	gw := &MockGateway{}
	executor := newExecutor(repo, gw)
	c := approvedClaim()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(tx *transaction.Transaction) bool {
		return tx.ClaimID == c.ID && tx.AmountCents == 475000 && tx.Status == transaction.StatusPending
	})).Return(nil)

	gw.On("Payout", mock.Anything, mock.MatchedBy(func(req *achgateway.PayoutRequest) bool {
		return req.ClaimID == c.ID && req.AmountCents == 475000 && req.IdempotencyKey != ""
	})).Return(&achgateway.PayoutResponse{Reference: "ach_ok", Status: "processing"}, nil)

	repo.On("Update", mock.Anything, mock.MatchedBy(func(tx *transaction.Transaction) bool {
		return tx.Status == transaction.StatusCompleted && tx.GatewayRef == "ach_ok" && tx.CompletedAt != nil
	})).Return(nil)

	tx, err := executor.Execute(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, tx.Status)
	assert.Equal(t, "ach_ok", tx.GatewayRef)
	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestExecute_GatewayFailureMarksTransactionFailed(t *testing.T) {
	repo := &MockTransactionRepository{}
	gw := &MockGateway{}
	executor := newExecutor(repo, gw)
	c := approvedClaim()

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	gw.On("Payout", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))
	repo.On("Update", mock.Anything, mock.MatchedBy(func(tx *transaction.Transaction) bool {
		return tx.Status == transaction.StatusFailed
	})).Return(nil)

	tx, err := executor.Execute(context.Background(), c)
	require.Error(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, transaction.StatusFailed, tx.Status)

	// The claim is untouched by the executor; it stays approved so a
	// retry can pick it up.
	assert.Equal(t, claim.StatusApproved, c.Status)
	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestExecute_KeepsDeclinedGatewayReference(t *testing.T) {
	repo := &MockTransactionRepository{}
	gw := &MockGateway{}
	executor := newExecutor(repo, gw)
	c := approvedClaim()

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	gw.On("Payout", mock.Anything, mock.Anything).
		Return(&achgateway.PayoutResponse{Reference: "ach_declined", Status: "failed"}, errors.New("gateway declined payout"))
	repo.On("Update", mock.Anything, mock.MatchedBy(func(tx *transaction.Transaction) bool {
		return tx.Status == transaction.StatusFailed && tx.GatewayRef == "ach_declined"
	})).Return(nil)

	tx, err := executor.Execute(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, "ach_declined", tx.GatewayRef)
	repo.AssertExpectations(t)
}

func TestExecute_MissingPayoutAmount(t *testing.T) {
	repo := &MockTransactionRepository{}
	gw := &MockGateway{}
	executor := newExecutor(repo, gw)

	c := approvedClaim()
	c.PayoutCents = nil

	_, err := executor.Execute(context.Background(), c)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create")
	gw.AssertNotCalled(t, "Payout")
}

func TestExecute_CreateFailureSkipsGateway(t *testing.T) {
	repo := &MockTransactionRepository{}
	gw := &MockGateway{}
	executor := newExecutor(repo, gw)
	c := approvedClaim()

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := executor.Execute(context.Background(), c)
	assert.Error(t, err)
	gw.AssertNotCalled(t, "Payout")
}

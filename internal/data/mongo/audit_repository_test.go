package mongo

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/claimpay/claims-core/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByClaim(ctx context.Context, claimID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	args := m.Called(ctx, claimID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Entry), args.Error(1)
}

func (m *MockAuditRepository) CountByClaim(ctx context.Context, claimID uuid.UUID) (int64, error) {
	args := m.Called(ctx, claimID)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewAuditRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewAuditRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &AuditRepository{}, repo)
}

func TestAuditRepository_Append(t *testing.T) {
	claimID := uuid.New()
	entry := &audit.Entry{
		ClaimID:    claimID,
		ProviderID: uuid.New(),
		FromStatus: "submitted",
		ToStatus:   "coding",
		RecordedAt: time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func(m *MockAuditRepository)
		expectedError error
	}{
		{
			name: "successful append",
			setupMocks: func(m *MockAuditRepository) {
				m.On("Append", mock.Anything, entry).Return(nil)
			},
		},
		{
			name: "database error",
			setupMocks: func(m *MockAuditRepository) {
				m.On("Append", mock.Anything, entry).Return(errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockAuditRepository{}
			tt.setupMocks(mockRepo)

			err := mockRepo.Append(context.Background(), entry)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuditRepository_ListByClaim_Mocked(t *testing.T) {
	claimID := uuid.New()
	entries := []*audit.Entry{
		{ClaimID: claimID, FromStatus: "submitted", ToStatus: "coding", RecordedAt: time.Now()},
		{ClaimID: claimID, FromStatus: "coding", ToStatus: "coded", RecordedAt: time.Now()},
	}

	mockRepo := &MockAuditRepository{}
	mockRepo.On("ListByClaim", mock.Anything, claimID, 50, 0).Return(entries, nil)
	mockRepo.On("CountByClaim", mock.Anything, claimID).Return(int64(2), nil)

	got, err := mockRepo.ListByClaim(context.Background(), claimID, 50, 0)
	assert.NoError(t, err)
	assert.Len(t, got, 2)

	count, err := mockRepo.CountByClaim(context.Background(), claimID)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	mockRepo.AssertExpectations(t)
}

package provider

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		p, err := NewProvider("Lakeside Family Practice", 500)

		require.NoError(t, err)
		require.NotNil(t, p)
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, "Lakeside Family Practice", p.Name)
		assert.Equal(t, int64(500), p.CommissionBps)
		assert.False(t, p.EHREnabled, "EHR integration should start disabled")
		assert.Nil(t, p.EHRLastSync, "A new provider has never synced")
	})

	t.Run("EmptyName", func(t *testing.T) {
		_, err := NewProvider("", 500)
		assert.ErrorIs(t, err, ErrEmptyName)
	})

	t.Run("CommissionBounds", func(t *testing.T) {
		_, err := NewProvider("Clinic", -1)
		assert.ErrorIs(t, err, ErrInvalidCommission)

		_, err = NewProvider("Clinic", 10000)
		assert.ErrorIs(t, err, ErrInvalidCommission)

		p, err := NewProvider("Clinic", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), p.CommissionBps)

		p, err = NewProvider("Clinic", 9999)
		require.NoError(t, err)
		assert.Equal(t, int64(9999), p.CommissionBps)
	})
}

func TestProvider_PayoutRateBps(t *testing.T) {
	p := &Provider{CommissionBps: 300}
	assert.Equal(t, int64(9700), p.PayoutRateBps())

	p = &Provider{CommissionBps: 0}
	assert.Equal(t, int64(10000), p.PayoutRateBps())
}

func TestHistory_AcceptanceRate(t *testing.T) {
	tests := []struct {
		name string
		h    History
		want float64
	}{
		{"NoHistory", History{}, 0},
		{"AllAccepted", History{AcceptedClaims: 10, TotalClaims: 10}, 100},
		{"Half", History{AcceptedClaims: 5, TotalClaims: 10}, 50},
		{"NoneAccepted", History{AcceptedClaims: 0, TotalClaims: 4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.h.AcceptanceRate(), 0.001)
		})
	}
}

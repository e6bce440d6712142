package claim

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClaim(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		providerID := uuid.New()

		beforeCreation := time.Now()
		c, err := NewClaim(providerID, "Jane Doe", 500000, "annual physical", SourceManual)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, c)

		assert.NotEqual(t, uuid.Nil, c.ID, "Claim ID should not be nil")
		assert.Equal(t, providerID, c.ProviderID)
		assert.Equal(t, "Jane Doe", c.PatientRef)
		assert.Equal(t, "J. D.", c.PatientDisplay)
		assert.Equal(t, int64(500000), c.AmountCents)
		assert.Equal(t, StatusSubmitted, c.Status)
		assert.Equal(t, SourceManual, c.Source)

		assert.WithinDuration(t, beforeCreation, c.SubmittedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)
		assert.WithinDuration(t, c.CreatedAt, c.UpdatedAt, time.Millisecond, "CreatedAt and UpdatedAt should be very close on creation")
	})

	t.Run("EmptyPatientRef", func(t *testing.T) {
		_, err := NewClaim(uuid.New(), "", 500000, "notes", SourceManual)
		assert.ErrorIs(t, err, ErrEmptyPatientRef)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		_, err := NewClaim(uuid.New(), "Jane Doe", 0, "notes", SourceManual)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = NewClaim(uuid.New(), "Jane Doe", -100, "notes", SourceManual)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestCanTransition(t *testing.T) {
	allStatuses := []Status{
		StatusSubmitted, StatusCoding, StatusCoded,
		StatusRiskCheck, StatusApproved, StatusRejected, StatusPaid,
	}

	allowed := map[Status][]Status{
		StatusSubmitted: {StatusCoding},
		StatusCoding:    {StatusCoded},
		StatusCoded:     {StatusRiskCheck},
		StatusRiskCheck: {StatusApproved, StatusRejected},
		StatusApproved:  {StatusPaid},
		StatusRejected:  {},
		StatusPaid:      {},
	}

	for from, tos := range allowed {
		legal := make(map[Status]bool, len(tos))
		for _, to := range tos {
			legal[to] = true
		}
		for _, to := range allStatuses {
			assert.Equal(t, legal[to], CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusPaid))
	assert.True(t, IsTerminal(StatusRejected))

	// Approved is deliberately not terminal: it is the recoverable state
	// a claim is left in when the payment gateway fails.
	assert.False(t, IsTerminal(StatusApproved))
	assert.False(t, IsTerminal(StatusSubmitted))
	assert.False(t, IsTerminal(StatusRiskCheck))
}

func TestClaim_Transition(t *testing.T) {
	t.Run("LegalTransition", func(t *testing.T) {
		c, err := NewClaim(uuid.New(), "Jane Doe", 500000, "notes", SourceManual)
		require.NoError(t, err)

		before := c.UpdatedAt
		time.Sleep(time.Millisecond)

		require.NoError(t, c.Transition(StatusCoding))
		assert.Equal(t, StatusCoding, c.Status)
		assert.True(t, c.UpdatedAt.After(before), "UpdatedAt should advance on transition")
	})

	t.Run("IllegalTransition", func(t *testing.T) {
		c, err := NewClaim(uuid.New(), "Jane Doe", 500000, "notes", SourceManual)
		require.NoError(t, err)

		err = c.Transition(StatusPaid)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StatusSubmitted, c.Status, "Status should be unchanged after a rejected transition")
	})

	t.Run("NoEscapeFromTerminal", func(t *testing.T) {
		c, err := NewClaim(uuid.New(), "Jane Doe", 500000, "notes", SourceManual)
		require.NoError(t, err)
		c.Status = StatusRejected

		for _, to := range []Status{StatusSubmitted, StatusCoding, StatusApproved, StatusPaid} {
			assert.ErrorIs(t, c.Transition(to), ErrInvalidTransition)
		}
	})
}

func TestAnonymizePatient(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"FullName", "Jane Doe", "J. D."},
		{"SingleName", "Cher", "C."},
		{"ThreeNames", "Mary Jane Watson", "M. J. W."},
		{"Lowercase", "jane doe", "J. D."},
		{"ExtraWhitespace", "  Jane   Doe  ", "J. D."},
		{"Empty", "", "Patient"},
		{"OnlyWhitespace", "   ", "Patient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizePatient(tt.ref))
		})
	}
}

func TestClaim_HasCodableInput(t *testing.T) {
	t.Run("Notes", func(t *testing.T) {
		c := &Claim{Notes: "patient presented with fever"}
		assert.True(t, c.HasCodableInput())
	})

	t.Run("PreStructuredCodes", func(t *testing.T) {
		c := &Claim{DiagnosisCodes: []string{"J10.1"}}
		assert.True(t, c.HasCodableInput())

		c = &Claim{ProcedureCodes: []string{"99213"}}
		assert.True(t, c.HasCodableInput())
	})

	t.Run("Nothing", func(t *testing.T) {
		c := &Claim{Notes: "   "}
		assert.False(t, c.HasCodableInput())
	})
}

func TestClaim_HasCodes(t *testing.T) {
	assert.False(t, (&Claim{}).HasCodes())
	assert.True(t, (&Claim{DiagnosisCodes: []string{"Z00.00"}}).HasCodes())
	assert.True(t, (&Claim{ProcedureCodes: []string{"99213"}}).HasCodes())
}

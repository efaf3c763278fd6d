package timesheet_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TIME AMOUNT TESTS
// =============================================================================

func TestTimeAmount_AcceptsQuarterHourMultiples(t *testing.T) {
	for _, hours := range []float64{0, 0.25, 0.5, 7.5, 8, 23.75, 24} {
		a, err := timesheet.NewTimeAmountFromFloat(hours)
		require.NoError(t, err, "%.2f should be a valid amount", hours)
		assert.Equal(t, hours, a.Float())
	}
}

func TestTimeAmount_RejectsInvalidQuantities(t *testing.T) {
	cases := []struct {
		name  string
		hours float64
	}{
		{"negative", -0.25},
		{"over 24 hours", 24.25},
		{"not a quarter-hour multiple", 7.3},
		{"sub-quarter fraction", 0.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := timesheet.NewTimeAmountFromFloat(tc.hours)
			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrValidation)
		})
	}
}

func TestTimeAmount_JSONDecodeRevalidates(t *testing.T) {
	// GIVEN: An amount encoded as its decimal hours
	a := timesheet.MustTimeAmount(7.25)
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"7.25"`, string(data))

	// WHEN: Decoding a well-formed payload
	var back timesheet.TimeAmount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, a.Equal(back))

	// THEN: A tampered payload with an out-of-range quantity is rejected
	var bad timesheet.TimeAmount
	err = json.Unmarshal([]byte(`"25"`), &bad)
	assert.ErrorIs(t, err, generic.ErrValidation)

	err = json.Unmarshal([]byte(`"7.3"`), &bad)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestTimeAmount_DecimalPrecision(t *testing.T) {
	// 0.1+0.2-style float drift must not leak into validation.
	a, err := timesheet.NewTimeAmount(decimal.RequireFromString("0.75"))
	require.NoError(t, err)
	assert.Equal(t, "0.75", a.String())
}

// =============================================================================
// STATUS LIFECYCLE TESTS
// =============================================================================

func TestStatus_TransitionTable(t *testing.T) {
	all := []timesheet.Status{
		timesheet.StatusDraft,
		timesheet.StatusSubmitted,
		timesheet.StatusApproved,
		timesheet.StatusRejected,
	}
	allowed := map[timesheet.Status][]timesheet.Status{
		timesheet.StatusDraft:     {timesheet.StatusSubmitted},
		timesheet.StatusSubmitted: {timesheet.StatusApproved, timesheet.StatusRejected, timesheet.StatusDraft},
		timesheet.StatusRejected:  {timesheet.StatusDraft, timesheet.StatusSubmitted},
		timesheet.StatusApproved:  {},
	}

	for _, from := range all {
		legal := make(map[timesheet.Status]bool)
		for _, to := range allowed[from] {
			legal[to] = true
		}
		for _, to := range all {
			got := from.CanTransitionTo(to)
			assert.Equal(t, legal[to], got, "%s -> %s", from, to)
		}
	}
}

func TestStatus_SelfTransitionsForbidden(t *testing.T) {
	for _, s := range []timesheet.Status{
		timesheet.StatusDraft,
		timesheet.StatusSubmitted,
		timesheet.StatusApproved,
		timesheet.StatusRejected,
	} {
		assert.False(t, s.CanTransitionTo(s), "%s -> %s must be illegal", s, s)
	}
}

func TestStatus_EditableAndDeletable(t *testing.T) {
	assert.True(t, timesheet.StatusDraft.Editable())
	assert.True(t, timesheet.StatusRejected.Editable())
	assert.False(t, timesheet.StatusSubmitted.Editable())
	assert.False(t, timesheet.StatusApproved.Editable())

	// Deletable tracks Editable exactly.
	for _, s := range []timesheet.Status{
		timesheet.StatusDraft,
		timesheet.StatusSubmitted,
		timesheet.StatusApproved,
		timesheet.StatusRejected,
	} {
		assert.Equal(t, s.Editable(), s.Deletable(), "status %s", s)
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, timesheet.StatusDraft.Valid())
	assert.False(t, timesheet.Status("PENDING").Valid())
	assert.False(t, timesheet.Status("").Valid())
}

// =============================================================================
// ABSENCE CATEGORY TESTS
// =============================================================================

func TestAbsenceCategory_Valid(t *testing.T) {
	for _, c := range []timesheet.AbsenceCategory{
		timesheet.AbsencePaidLeave,
		timesheet.AbsenceSickLeave,
		timesheet.AbsenceSpecialLeave,
		timesheet.AbsenceCompensatory,
		timesheet.AbsenceUnpaidLeave,
		timesheet.AbsenceOther,
	} {
		assert.True(t, c.Valid(), "category %s", c)
	}
	assert.False(t, timesheet.AbsenceCategory("VACATION").Valid())
}

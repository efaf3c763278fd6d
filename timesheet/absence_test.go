package timesheet_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

func newDraftAbsence(t *testing.T) *timesheet.Absence {
	t.Helper()
	absence, err := timesheet.NewAbsence(
		uuid.New(), memberID,
		date(2025, time.February, 12), timesheet.MustTimeAmount(8),
		timesheet.AbsencePaidLeave, "family trip", memberID)
	require.NoError(t, err)
	return absence
}

// =============================================================================
// CREATION TESTS
// =============================================================================

func TestNewAbsence_StartsInDraft(t *testing.T) {
	absence := newDraftAbsence(t)

	assert.Equal(t, timesheet.StatusDraft, absence.Status())
	assert.Equal(t, timesheet.AbsencePaidLeave, absence.Category())
	assert.Equal(t, "family trip", absence.Reason())
	assert.Equal(t, 1, absence.Version())
	assert.False(t, absence.IsProxy())
}

func TestNewAbsence_RejectsUnknownCategory(t *testing.T) {
	_, err := timesheet.NewAbsence(
		uuid.New(), memberID,
		date(2025, time.February, 12), timesheet.MustTimeAmount(8),
		timesheet.AbsenceCategory("HOLIDAY"), "", memberID)
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestNewAbsence_RejectsOverlongReason(t *testing.T) {
	_, err := timesheet.NewAbsence(
		uuid.New(), memberID,
		date(2025, time.February, 12), timesheet.MustTimeAmount(8),
		timesheet.AbsenceSickLeave, strings.Repeat("x", timesheet.MaxCommentLength+1), memberID)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestNewAbsence_ProxyRecording(t *testing.T) {
	absence, err := timesheet.NewAbsence(
		uuid.New(), memberID,
		date(2025, time.February, 12), timesheet.MustTimeAmount(4),
		timesheet.AbsenceSickLeave, "called in sick", managerID)
	require.NoError(t, err)
	assert.True(t, absence.IsProxy())
	assert.Equal(t, managerID, absence.RecordedBy())
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestAbsence_RejectionReopensForCorrection(t *testing.T) {
	// GIVEN: A submitted absence
	absence := newDraftAbsence(t)
	require.NoError(t, absence.ChangeStatus(timesheet.StatusSubmitted, memberID))
	assert.ErrorIs(t,
		absence.Update(timesheet.MustTimeAmount(4), timesheet.AbsenceSickLeave, "", memberID),
		generic.ErrStateViolation)

	// WHEN: The reviewer rejects it
	require.NoError(t, absence.ChangeStatus(timesheet.StatusRejected, managerID))

	// THEN: The member can correct and resubmit
	require.NoError(t, absence.Update(timesheet.MustTimeAmount(4), timesheet.AbsenceCompensatory, "half day", memberID))
	assert.Equal(t, timesheet.AbsenceCompensatory, absence.Category())
	assert.NoError(t, absence.ChangeStatus(timesheet.StatusSubmitted, memberID))
}

func TestAbsence_DeletedAbsenceRefusesEverything(t *testing.T) {
	absence := newDraftAbsence(t)
	require.NoError(t, absence.Delete(memberID))

	var sv *generic.StateError
	err := absence.ChangeStatus(timesheet.StatusSubmitted, memberID)
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "DELETED", sv.Current)
}

func TestAbsence_ReplayMatchesLiveAggregate(t *testing.T) {
	absence := newDraftAbsence(t)
	require.NoError(t, absence.Update(timesheet.MustTimeAmount(6), timesheet.AbsenceUnpaidLeave, "unpaid", memberID))

	replayed, err := timesheet.ReplayAbsence(absence.ID(), absence.PendingEvents())
	require.NoError(t, err)

	assert.Equal(t, absence.Version(), replayed.Version())
	assert.True(t, absence.Hours().Equal(replayed.Hours()))
	assert.Equal(t, absence.Category(), replayed.Category())
	assert.Equal(t, absence.Reason(), replayed.Reason())
	assert.Equal(t, absence.Status(), replayed.Status())
}

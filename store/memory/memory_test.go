package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/memory"
	"github.com/warp/timesheet-engine/timesheet"
)

var (
	memberID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	projectID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func newEntry(t *testing.T, day generic.TimePoint) *timesheet.WorkLogEntry {
	t.Helper()
	entry, err := timesheet.NewWorkLogEntry(
		uuid.New(), memberID, projectID, day,
		timesheet.MustTimeAmount(8), "", memberID)
	require.NoError(t, err)
	return entry
}

func TestWithTx_ErrorRollsBackEveryWrite(t *testing.T) {
	// GIVEN: A transaction that saves an entry, then fails
	store := memory.New()
	ctx := context.Background()
	entry := newEntry(t, generic.NewTimePoint(2025, time.February, 3))
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(r timesheet.Repositories) error {
		if err := r.WorkLogs.Save(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// THEN: The save did not survive the rollback
	err = store.WithTx(ctx, func(r timesheet.Repositories) error {
		_, err := r.WorkLogs.FindByID(ctx, entry.ID())
		return err
	})
	assert.True(t, generic.IsNotFound(err))
}

func TestSave_NoPendingEventsIsNoOp(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	entry := newEntry(t, generic.NewTimePoint(2025, time.February, 3))

	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		return r.WorkLogs.Save(ctx, entry)
	}))
	require.Empty(t, entry.PendingEvents())

	// Saving an unchanged aggregate must not touch the version.
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		loaded, err := r.WorkLogs.FindByID(ctx, entry.ID())
		if err != nil {
			return err
		}
		return r.WorkLogs.Save(ctx, loaded)
	}))

	err := store.WithTx(ctx, func(r timesheet.Repositories) error {
		loaded, err := r.WorkLogs.FindByID(ctx, entry.ID())
		if err != nil {
			return err
		}
		assert.Equal(t, 1, loaded.Version())
		return nil
	})
	require.NoError(t, err)
}

func TestIDsInRange_DeterministicOrder(t *testing.T) {
	// Map iteration order must not leak into lookups.
	store := memory.New()
	ctx := context.Background()
	period := generic.Period{
		Start: generic.NewTimePoint(2025, time.February, 1),
		End:   generic.NewTimePoint(2025, time.February, 28),
	}

	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		for day := 3; day <= 12; day++ {
			if err := r.WorkLogs.Save(ctx, newEntry(t, generic.NewTimePoint(2025, time.February, day))); err != nil {
				return err
			}
		}
		return nil
	}))

	var first, second []uuid.UUID
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		var err error
		first, err = r.WorkLogs.IDsInRange(ctx, memberID, period)
		return err
	}))
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		var err error
		second, err = r.WorkLogs.IDsInRange(ctx, memberID, period)
		return err
	}))

	require.Len(t, first, 10)
	assert.Equal(t, first, second)
}

func TestFindByMemberAndPeriod_ExactMatchOnly(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	period := generic.Period{
		Start: generic.NewTimePoint(2025, time.January, 21),
		End:   generic.NewTimePoint(2025, time.February, 20),
	}

	approval, err := timesheet.NewMonthlyApproval(uuid.New(), memberID, period)
	require.NoError(t, err)
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		return r.Approvals.Save(ctx, approval)
	}))

	// Exact period resolves; an overlapping but different one does not.
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		found, err := r.Approvals.FindByMemberAndPeriod(ctx, memberID, period)
		if err != nil {
			return err
		}
		assert.Equal(t, approval.ID(), found.ID())
		return nil
	}))

	other := generic.Period{
		Start: generic.NewTimePoint(2025, time.January, 1),
		End:   generic.NewTimePoint(2025, time.January, 31),
	}
	err = store.WithTx(ctx, func(r timesheet.Repositories) error {
		_, err := r.Approvals.FindByMemberAndPeriod(ctx, memberID, other)
		return err
	})
	assert.True(t, generic.IsNotFound(err))
}

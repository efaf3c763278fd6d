package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	memberID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	projectID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func saveNewEntry(t *testing.T, store *sqlite.Store, day generic.TimePoint) uuid.UUID {
	t.Helper()
	entry, err := timesheet.NewWorkLogEntry(
		uuid.New(), memberID, projectID, day,
		timesheet.MustTimeAmount(7.75), "persisted entry", memberID)
	require.NoError(t, err)
	require.NoError(t, store.WithTx(context.Background(), func(r timesheet.Repositories) error {
		return r.WorkLogs.Save(context.Background(), entry)
	}))
	return entry.ID()
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestSqlite_SaveAndRehydrate(t *testing.T) {
	// GIVEN: An entry that lived through create/update/submit
	store := newTestStore(t)
	ctx := context.Background()

	entry, err := timesheet.NewWorkLogEntry(
		uuid.New(), memberID, projectID, date(2025, time.February, 10),
		timesheet.MustTimeAmount(7.75), "wrote migrations", memberID)
	require.NoError(t, err)
	require.NoError(t, entry.Update(timesheet.MustTimeAmount(8), "wrote migrations and tests", memberID))
	require.NoError(t, entry.ChangeStatus(timesheet.StatusSubmitted, memberID))

	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		return r.WorkLogs.Save(ctx, entry)
	}))
	require.Empty(t, entry.PendingEvents())

	// WHEN: Loading it back through the event log
	var loaded *timesheet.WorkLogEntry
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		var err error
		loaded, err = r.WorkLogs.FindByID(ctx, entry.ID())
		return err
	}))

	// THEN: The rehydrated aggregate matches the live one
	assert.Equal(t, 3, loaded.Version())
	assert.Equal(t, timesheet.StatusSubmitted, loaded.Status())
	assert.True(t, loaded.Hours().Equal(timesheet.MustTimeAmount(8)))
	assert.Equal(t, "wrote migrations and tests", loaded.Comment())
	assert.True(t, loaded.Date().Equal(entry.Date()))
}

func TestSqlite_DeletedEntryIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := saveNewEntry(t, store, date(2025, time.February, 3))

	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		entry, err := r.WorkLogs.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := entry.Delete(memberID); err != nil {
			return err
		}
		return r.WorkLogs.Save(ctx, entry)
	}))

	err := store.WithTx(ctx, func(r timesheet.Repositories) error {
		_, err := r.WorkLogs.FindByID(ctx, id)
		return err
	})
	require.Error(t, err)

	var nf *generic.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, timesheet.CodeWorkLogNotFound, nf.Code)
}

// =============================================================================
// OPTIMISTIC LOCKING
// =============================================================================

func TestSqlite_StaleSaveConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := saveNewEntry(t, store, date(2025, time.February, 3))

	var stale *timesheet.WorkLogEntry
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		var err error
		stale, err = r.WorkLogs.FindByID(ctx, id)
		return err
	}))

	// Another writer commits first.
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		fresh, err := r.WorkLogs.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fresh.ChangeStatus(timesheet.StatusSubmitted, memberID); err != nil {
			return err
		}
		return r.WorkLogs.Save(ctx, fresh)
	}))

	require.NoError(t, stale.Update(timesheet.MustTimeAmount(1), "stale write", memberID))
	err := store.WithTx(ctx, func(r timesheet.Repositories) error {
		return r.WorkLogs.Save(ctx, stale)
	})
	require.Error(t, err)

	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Expected)
	assert.Equal(t, 2, conflict.Actual)

	// The stale write left neither events nor index changes behind.
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		current, err := r.WorkLogs.FindByID(ctx, id)
		if err != nil {
			return err
		}
		assert.Equal(t, 2, current.Version())
		assert.Equal(t, timesheet.StatusSubmitted, current.Status())
		return nil
	}))
}

func TestSqlite_TransactionRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	entry, err := timesheet.NewWorkLogEntry(
		uuid.New(), memberID, projectID, date(2025, time.February, 3),
		timesheet.MustTimeAmount(8), "", memberID)
	require.NoError(t, err)

	err = store.WithTx(ctx, func(r timesheet.Repositories) error {
		if err := r.WorkLogs.Save(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.WithTx(ctx, func(r timesheet.Repositories) error {
		_, err := r.WorkLogs.FindByID(ctx, entry.ID())
		return err
	})
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// RANGE AND PERIOD LOOKUPS
// =============================================================================

func TestSqlite_IDsInRangeOrderedByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	period := generic.Period{Start: date(2025, time.January, 21), End: date(2025, time.February, 20)}

	feb10 := saveNewEntry(t, store, date(2025, time.February, 10))
	jan25 := saveNewEntry(t, store, date(2025, time.January, 25))
	feb20 := saveNewEntry(t, store, date(2025, time.February, 20))
	saveNewEntry(t, store, date(2025, time.February, 21)) // outside

	var ids []uuid.UUID
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		var err error
		ids, err = r.WorkLogs.IDsInRange(ctx, memberID, period)
		return err
	}))

	assert.Equal(t, []uuid.UUID{jan25, feb10, feb20}, ids)
}

func TestSqlite_FindApprovalByMemberAndPeriod(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	period := generic.Period{Start: date(2025, time.January, 21), End: date(2025, time.February, 20)}

	approval, err := timesheet.NewMonthlyApproval(uuid.New(), memberID, period)
	require.NoError(t, err)
	require.NoError(t, approval.Submit(nil, nil, memberID))
	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		return r.Approvals.Save(ctx, approval)
	}))

	require.NoError(t, store.WithTx(ctx, func(r timesheet.Repositories) error {
		found, err := r.Approvals.FindByMemberAndPeriod(ctx, memberID, period)
		if err != nil {
			return err
		}
		assert.Equal(t, approval.ID(), found.ID())
		assert.Equal(t, timesheet.StatusSubmitted, found.Status())
		return nil
	}))

	err = store.WithTx(ctx, func(r timesheet.Repositories) error {
		_, err := r.Approvals.FindByMemberAndPeriod(ctx, uuid.New(), period)
		return err
	})
	assert.True(t, generic.IsNotFound(err))
}

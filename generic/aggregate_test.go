package generic_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// TEST AGGREGATE
// =============================================================================

type counterBumped struct {
	By int
}

func (counterBumped) Kind() string { return "counter.bumped" }

type strayEvent struct{}

func (strayEvent) Kind() string { return "stray" }

type counter struct {
	generic.Root
	total int
}

func newCounter() *counter {
	return &counter{Root: generic.NewRoot(uuid.New())}
}

func (c *counter) Apply(ev generic.Event) error {
	switch e := ev.(type) {
	case counterBumped:
		c.total += e.By
		return nil
	default:
		return &generic.UnknownEventError{AggregateType: "counter", EventKind: ev.Kind()}
	}
}

func (c *counter) Bump(by int) error {
	return c.Raise(c, counterBumped{By: by})
}

// =============================================================================
// VERSION AND PENDING-QUEUE BEHAVIOR
// =============================================================================

func TestRaise_IncrementsVersionPerEvent(t *testing.T) {
	// GIVEN: A fresh aggregate at version 0
	// WHEN: Raising N events
	// THEN: Version is N and all N events are pending

	c := newCounter()
	if c.Version() != 0 {
		t.Fatalf("fresh aggregate should start at version 0, got %d", c.Version())
	}

	for i := 0; i < 5; i++ {
		if err := c.Bump(2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if c.Version() != 5 {
		t.Errorf("expected version 5, got %d", c.Version())
	}
	if len(c.PendingEvents()) != 5 {
		t.Errorf("expected 5 pending events, got %d", len(c.PendingEvents()))
	}
	if c.total != 10 {
		t.Errorf("expected state updated by apply, got total %d", c.total)
	}
}

func TestRaise_RejectedEventLeavesNothingBehind(t *testing.T) {
	// GIVEN: An aggregate whose Apply rejects an event kind
	// WHEN: Raising an unrecognized event
	// THEN: Nothing is queued and the version does not move

	c := newCounter()
	_ = c.Bump(1)

	err := c.Raise(c, strayEvent{})
	if !errors.Is(err, generic.ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if c.Version() != 1 || len(c.PendingEvents()) != 1 {
		t.Errorf("rejected raise must not change version/pending: v=%d pending=%d",
			c.Version(), len(c.PendingEvents()))
	}
}

func TestClearPending_IsIdempotent(t *testing.T) {
	c := newCounter()
	_ = c.Bump(1)
	_ = c.Bump(1)

	c.ClearPending()
	c.ClearPending()

	if len(c.PendingEvents()) != 0 {
		t.Errorf("expected empty pending queue, got %d", len(c.PendingEvents()))
	}
	if c.Version() != 2 {
		t.Errorf("clearing pending must not touch version, got %d", c.Version())
	}
	if c.PersistedVersion() != 2 {
		t.Errorf("persisted version should equal version after clear, got %d", c.PersistedVersion())
	}
}

// =============================================================================
// REPLAY DETERMINISM
// =============================================================================

func TestReplay_MatchesLiveRaisesForEveryPrefix(t *testing.T) {
	// GIVEN: A sequence of events raised live
	// WHEN: Replaying any prefix of that sequence on a fresh aggregate
	// THEN: Observable state and version match the live aggregate at that point

	events := []generic.Event{
		counterBumped{By: 3},
		counterBumped{By: -1},
		counterBumped{By: 7},
		counterBumped{By: 4},
	}

	for n := 0; n <= len(events); n++ {
		live := newCounter()
		for _, ev := range events[:n] {
			if err := live.Raise(live, ev); err != nil {
				t.Fatalf("raise: %v", err)
			}
		}

		replayed := newCounter()
		if err := replayed.Replay(replayed, events[:n]); err != nil {
			t.Fatalf("replay prefix %d: %v", n, err)
		}

		if replayed.total != live.total {
			t.Errorf("prefix %d: replayed total %d != live total %d", n, replayed.total, live.total)
		}
		if replayed.Version() != live.Version() {
			t.Errorf("prefix %d: replayed version %d != live version %d", n, replayed.Version(), live.Version())
		}
		if len(replayed.PendingEvents()) != 0 {
			t.Errorf("prefix %d: replayed events must not be pending", n)
		}
	}
}

func TestReplay_UnknownKindFailsLoudly(t *testing.T) {
	c := newCounter()
	err := c.Replay(c, []generic.Event{counterBumped{By: 1}, strayEvent{}})
	if !errors.Is(err, generic.ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

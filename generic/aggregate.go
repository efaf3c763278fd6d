/*
Package generic provides the event-sourced aggregate framework.

PURPOSE:
  This package contains domain-agnostic machinery for aggregates whose
  state is rebuilt from an append-only event history. Whether the
  aggregate is a work-log entry, an absence record, or a monthly
  approval, the same base handles version tracking, pending-event
  accumulation, and deterministic replay.

KEY CONCEPTS IN THIS FILE (aggregate.go):
  - Root:    Embedded base giving every aggregate a version counter and
             a queue of not-yet-persisted events
  - Applier: The single extension point that folds one event into the
             aggregate's current field values
  - Replay:  Rebuilding an aggregate from its persisted event sequence

DESIGN PRINCIPLES:
  1. Events are the only write path: command methods raise events, and
     fields change only inside Apply
  2. Replay determinism: replaying a stored sequence yields the same
     state as raising the events live, for any prefix
  3. No I/O here: persistence lives behind the repository contract

USAGE:
  type Entry struct {
      generic.Root
      hours TimeAmount
  }

  func (e *Entry) Apply(ev generic.Event) error { ... }

  func (e *Entry) Update(h TimeAmount) error {
      return e.Raise(e, EntryUpdated{Hours: h})
  }

SEE ALSO:
  - event.go:  Event interface and persisted record shape
  - errors.go: Error taxonomy shared by all aggregates
*/
package generic

import (
	"github.com/google/uuid"
)

// =============================================================================
// APPLIER - The aggregate's event-folding extension point
// =============================================================================

// Applier folds a single event into the aggregate's in-memory state.
// Implementations must be side-effect free apart from mutating their own
// fields. An event of an unrecognized kind must return an error wrapping
// ErrUnknownEvent: a stored stream the code cannot interpret is a fatal
// incompatibility, never something to skip.
type Applier interface {
	Apply(Event) error
}

// =============================================================================
// ROOT - Embedded aggregate base
// =============================================================================

// Root is embedded by every aggregate. It tracks the aggregate identity,
// the in-memory version, and the queue of events raised since the last
// successful save.
//
// Version semantics: a fresh aggregate is at version 0; every applied
// event increments it by exactly one. The persisted version is therefore
// Version() - len(PendingEvents()) at all times.
type Root struct {
	id      uuid.UUID
	version int
	pending []Event
}

// NewRoot initializes the base for a brand-new aggregate.
func NewRoot(id uuid.UUID) Root {
	return Root{id: id}
}

// ID returns the aggregate identifier.
func (r *Root) ID() uuid.UUID { return r.id }

// Version returns the in-memory version (persisted version + pending).
func (r *Root) Version() int { return r.version }

// PersistedVersion returns the version the aggregate was loaded at.
// Repositories use it as the expected version for the CAS commit.
func (r *Root) PersistedVersion() int { return r.version - len(r.pending) }

// Raise applies the event to update in-memory state, appends it to the
// pending queue, and increments the version. No I/O. If Apply rejects
// the event nothing is recorded.
func (r *Root) Raise(a Applier, ev Event) error {
	if err := a.Apply(ev); err != nil {
		return err
	}
	r.pending = append(r.pending, ev)
	r.version++
	return nil
}

// PendingEvents returns the not-yet-persisted events in raise order.
func (r *Root) PendingEvents() []Event {
	return r.pending
}

// ClearPending empties the queue after a successful save. Idempotent.
func (r *Root) ClearPending() {
	r.pending = nil
}

// Replay rebuilds state from a previously persisted, ordered event
// sequence. Replayed events are not pending: they are already stored.
func (r *Root) Replay(a Applier, events []Event) error {
	for _, ev := range events {
		if err := a.Apply(ev); err != nil {
			return err
		}
		r.version++
	}
	return nil
}

/*
event.go - Event interface and persisted event shape

PURPOSE:
  Defines what an event is to the framework (a tagged, immutable fact)
  and the storage-facing record shape every backend persists.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: committed events are never updated or deleted
  2. UNIQUE: (aggregate id, version) identifies exactly one record
  3. ORDERED: loading returns records in ascending version order

SEE ALSO:
  - aggregate.go: Raise/Replay over events
  - store/:       Backend implementations of the repository contract
*/
package generic

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EVENT - A tagged, immutable domain fact
// =============================================================================

// Event is implemented by every domain event. Kind returns the stable
// tag used for storage dispatch; it must never change once events of
// that kind have been persisted.
type Event interface {
	Kind() string
}

// =============================================================================
// EVENT RECORD - What backends persist
// =============================================================================

// EventRecord is one committed change in the event log. The pair
// (AggregateID, Version) is unique; Version is the aggregate version
// the event brought the aggregate to (first event = 1).
type EventRecord struct {
	AggregateID uuid.UUID
	Version     int
	Kind        string
	Payload     []byte
	RecordedAt  time.Time
}

// RegistryEntry tracks the current version of one aggregate. Backends
// keep one registry row per aggregate and advance it atomically with
// the appended events.
type RegistryEntry struct {
	AggregateID   uuid.UUID
	AggregateType string
	Version       int
}

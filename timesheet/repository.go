/*
repository.go - Persistence contract consumed by the domain core

PURPOSE:
  Defines the per-aggregate repository interfaces and the unit-of-work
  boundary the coordination commands run inside. The domain only knows
  these contracts; store/memory, store/sqlite, and store/postgres
  implement them.

SAVE CONTRACT (all backends):
  Save must atomically (a) verify the persisted version equals the
  version the aggregate was loaded at, (b) append its pending events,
  (c) advance the persisted version by the number of events appended,
  and (d) clear the pending queue on success. A stale version yields a
  ConflictError; the write is rejected in its entirety.

UNIT OF WORK:
  Multi-aggregate commands (submit/approve/reject month) interleave
  event application and commit per aggregate, so the group of writes
  must be wrapped in one transaction: if anything fails partway, every
  staged write rolls back.

SEE ALSO:
  - service.go: the only consumer of UnitOfWork
  - store/:     the three backend implementations
*/
package timesheet

import (
	"context"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// PER-AGGREGATE REPOSITORIES
// =============================================================================

// WorkLogRepository persists WorkLogEntry aggregates.
type WorkLogRepository interface {
	// FindByID rehydrates an entry; a missing or deleted id yields a
	// NotFoundError with code WORK_LOG_ENTRY_NOT_FOUND.
	FindByID(ctx context.Context, id uuid.UUID) (*WorkLogEntry, error)

	// Save commits pending events under the optimistic version check.
	Save(ctx context.Context, entry *WorkLogEntry) error

	// IDsInRange resolves the member's live entry ids whose date falls
	// within the period. Read-side lookup for submission.
	IDsInRange(ctx context.Context, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error)
}

// AbsenceRepository persists Absence aggregates.
type AbsenceRepository interface {
	// FindByID rehydrates an absence; a missing or deleted id yields a
	// NotFoundError with code ABSENCE_NOT_FOUND.
	FindByID(ctx context.Context, id uuid.UUID) (*Absence, error)

	// Save commits pending events under the optimistic version check.
	Save(ctx context.Context, absence *Absence) error

	// IDsInRange resolves the member's live absence ids whose date falls
	// within the period.
	IDsInRange(ctx context.Context, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error)
}

// MonthlyApprovalRepository persists MonthlyApproval aggregates.
type MonthlyApprovalRepository interface {
	// FindByID rehydrates an approval; a missing id yields a
	// NotFoundError with code APPROVAL_NOT_FOUND.
	FindByID(ctx context.Context, id uuid.UUID) (*MonthlyApproval, error)

	// Save commits pending events under the optimistic version check.
	Save(ctx context.Context, approval *MonthlyApproval) error

	// FindByMemberAndPeriod returns the approval for exactly that
	// member and period, or a NotFoundError when none exists yet.
	FindByMemberAndPeriod(ctx context.Context, memberID uuid.UUID, period generic.Period) (*MonthlyApproval, error)
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// Repositories bundles the transactional views handed to a unit of work.
type Repositories struct {
	WorkLogs  WorkLogRepository
	Absences  AbsenceRepository
	Approvals MonthlyApprovalRepository
}

// UnitOfWork executes fn inside a single transaction. If fn returns an
// error the transaction rolls back and no staged write survives;
// otherwise everything commits together.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(Repositories) error) error
}

/*
approval.go - MonthlyApproval aggregate

PURPOSE:
  The aggregation boundary for the review action. One approval exists
  per (member, fiscal-month period), created lazily on first submission
  and reused for subsequent submit/approve/reject cycles. It owns
  references to - but never the data of - the work-log entries and
  absences it covers.

WHY REFERENCE SETS:
  A record's own date could shift between submission and review if the
  record were edited. Submitted and approved records are read-only, so
  the identifier sets captured at submission stay stable until the
  review completes.

SEE ALSO:
  - service.go: drives referenced records together with this aggregate
  - events.go:  the Approval* event union
*/
package timesheet

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// MONTHLY APPROVAL AGGREGATE
// =============================================================================

type MonthlyApproval struct {
	generic.Root

	memberID        uuid.UUID
	period          generic.Period
	status          Status
	entryIDs        []uuid.UUID
	absenceIDs      []uuid.UUID
	submittedBy     uuid.UUID
	submittedAt     time.Time
	reviewedBy      uuid.UUID
	reviewedAt      time.Time
	rejectionReason string
}

// NewMonthlyApproval opens an approval in DRAFT for a member and period.
func NewMonthlyApproval(id, memberID uuid.UUID, period generic.Period) (*MonthlyApproval, error) {
	if memberID == uuid.Nil {
		return nil, generic.Invalid("member_id", "must not be empty")
	}
	if period.Start.IsZero() || period.End.Before(period.Start) {
		return nil, generic.Invalid("period", "malformed range %s", period)
	}

	a := &MonthlyApproval{Root: generic.NewRoot(id)}
	err := a.Raise(a, ApprovalOpened{
		MemberID:    memberID,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		At:          time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ReplayMonthlyApproval rehydrates an approval from stored events.
func ReplayMonthlyApproval(id uuid.UUID, events []generic.Event) (*MonthlyApproval, error) {
	a := &MonthlyApproval{Root: generic.NewRoot(id)}
	if err := a.Replay(a, events); err != nil {
		return nil, err
	}
	return a, nil
}

// Accessors
func (a *MonthlyApproval) MemberID() uuid.UUID     { return a.memberID }
func (a *MonthlyApproval) Period() generic.Period  { return a.period }
func (a *MonthlyApproval) Status() Status          { return a.status }
func (a *MonthlyApproval) SubmittedBy() uuid.UUID  { return a.submittedBy }
func (a *MonthlyApproval) SubmittedAt() time.Time  { return a.submittedAt }
func (a *MonthlyApproval) ReviewedBy() uuid.UUID   { return a.reviewedBy }
func (a *MonthlyApproval) ReviewedAt() time.Time   { return a.reviewedAt }
func (a *MonthlyApproval) RejectionReason() string { return a.rejectionReason }

// EntryIDs returns a copy of the referenced work-log entry ids.
func (a *MonthlyApproval) EntryIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), a.entryIDs...)
}

// AbsenceIDs returns a copy of the referenced absence ids.
func (a *MonthlyApproval) AbsenceIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), a.absenceIDs...)
}

// =============================================================================
// COMMANDS
// =============================================================================

// Submit records the identifier sets for this cycle and moves the
// approval to SUBMITTED. Allowed from DRAFT (first cycle) and REJECTED
// (resubmission after correction).
func (a *MonthlyApproval) Submit(entryIDs, absenceIDs []uuid.UUID, submittedBy uuid.UUID) error {
	if submittedBy == uuid.Nil {
		return generic.Invalid("submitted_by", "must not be empty")
	}
	if !a.status.CanTransitionTo(StatusSubmitted) {
		return &generic.StateError{AggregateType: AggregateApproval, Current: string(a.status), Attempted: string(StatusSubmitted)}
	}
	return a.Raise(a, ApprovalSubmitted{
		EntryIDs:    append([]uuid.UUID(nil), entryIDs...),
		AbsenceIDs:  append([]uuid.UUID(nil), absenceIDs...),
		SubmittedBy: submittedBy,
		At:          time.Now().UTC(),
	})
}

// Approve finalizes the cycle. Requires SUBMITTED; APPROVED is terminal.
func (a *MonthlyApproval) Approve(reviewedBy uuid.UUID) error {
	if reviewedBy == uuid.Nil {
		return generic.Invalid("reviewed_by", "must not be empty")
	}
	if a.status != StatusSubmitted {
		return &generic.StateError{AggregateType: AggregateApproval, Current: string(a.status), Attempted: string(StatusApproved)}
	}
	return a.Raise(a, ApprovalApproved{ReviewedBy: reviewedBy, At: time.Now().UTC()})
}

// Reject sends the cycle back with a mandatory reason (non-blank, at
// most 1000 characters). Requires SUBMITTED.
func (a *MonthlyApproval) Reject(reviewedBy uuid.UUID, reason string) error {
	if reviewedBy == uuid.Nil {
		return generic.Invalid("reviewed_by", "must not be empty")
	}
	if strings.TrimSpace(reason) == "" {
		return generic.Invalid("reason", "must not be blank")
	}
	if len([]rune(reason)) > MaxRejectionReasonLength {
		return generic.Invalid("reason", "must be at most %d characters", MaxRejectionReasonLength)
	}
	if a.status != StatusSubmitted {
		return &generic.StateError{AggregateType: AggregateApproval, Current: string(a.status), Attempted: string(StatusRejected)}
	}
	return a.Raise(a, ApprovalRejected{ReviewedBy: reviewedBy, Reason: reason, At: time.Now().UTC()})
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

func (a *MonthlyApproval) Apply(ev generic.Event) error {
	switch v := ev.(type) {
	case ApprovalOpened:
		a.memberID = v.MemberID
		a.period = generic.Period{Start: v.PeriodStart, End: v.PeriodEnd}
		a.status = StatusDraft
	case ApprovalSubmitted:
		a.entryIDs = v.EntryIDs
		a.absenceIDs = v.AbsenceIDs
		a.submittedBy = v.SubmittedBy
		a.submittedAt = v.At
		a.status = StatusSubmitted
	case ApprovalApproved:
		a.reviewedBy = v.ReviewedBy
		a.reviewedAt = v.At
		a.status = StatusApproved
	case ApprovalRejected:
		a.reviewedBy = v.ReviewedBy
		a.reviewedAt = v.At
		a.rejectionReason = v.Reason
		a.status = StatusRejected
	default:
		return &generic.UnknownEventError{AggregateType: AggregateApproval, EventKind: ev.Kind()}
	}
	return nil
}

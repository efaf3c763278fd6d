/*
worklog.go - WorkLogEntry aggregate

PURPOSE:
  One aggregate per (member, project, date) recording hours worked. The
  entry walks the shared DRAFT/SUBMITTED/APPROVED/REJECTED lifecycle;
  updates and deletion are allowed only in the correctable statuses.

COMMAND/EVENT DISCIPLINE:
  Command methods validate, then raise exactly one event. Fields change
  only inside Apply, so a replayed entry is indistinguishable from one
  that lived through the commands.

SEE ALSO:
  - absence.go:  the structurally parallel aggregate
  - events.go:   the WorkLog* event union
  - service.go:  status driving during submit/approve/reject
*/
package timesheet

import (
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// WORK LOG ENTRY AGGREGATE
// =============================================================================

type WorkLogEntry struct {
	generic.Root

	memberID  uuid.UUID
	projectID uuid.UUID
	date      generic.TimePoint
	hours     TimeAmount
	comment   string
	status    Status
	enteredBy uuid.UUID
	createdAt time.Time
	updatedAt time.Time
	deleted   bool
}

// NewWorkLogEntry creates an entry in DRAFT via a WorkLogCreated event.
// The date must not be in the future; the comment is capped at 500.
func NewWorkLogEntry(id, memberID, projectID uuid.UUID, date generic.TimePoint, hours TimeAmount, comment string, enteredBy uuid.UUID) (*WorkLogEntry, error) {
	if err := validateParties(memberID, enteredBy); err != nil {
		return nil, err
	}
	if projectID == uuid.Nil {
		return nil, generic.Invalid("project_id", "must not be empty")
	}
	if err := validateEntryDate(date); err != nil {
		return nil, err
	}
	if err := validateComment("comment", comment); err != nil {
		return nil, err
	}

	e := &WorkLogEntry{Root: generic.NewRoot(id)}
	err := e.Raise(e, WorkLogCreated{
		MemberID:  memberID,
		ProjectID: projectID,
		Date:      date,
		Hours:     hours,
		Comment:   comment,
		EnteredBy: enteredBy,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ReplayWorkLogEntry rehydrates an entry from its stored event history.
func ReplayWorkLogEntry(id uuid.UUID, events []generic.Event) (*WorkLogEntry, error) {
	e := &WorkLogEntry{Root: generic.NewRoot(id)}
	if err := e.Replay(e, events); err != nil {
		return nil, err
	}
	return e, nil
}

// Accessors
func (e *WorkLogEntry) MemberID() uuid.UUID     { return e.memberID }
func (e *WorkLogEntry) ProjectID() uuid.UUID    { return e.projectID }
func (e *WorkLogEntry) Date() generic.TimePoint { return e.date }
func (e *WorkLogEntry) Hours() TimeAmount       { return e.hours }
func (e *WorkLogEntry) Comment() string         { return e.comment }
func (e *WorkLogEntry) Status() Status          { return e.status }
func (e *WorkLogEntry) EnteredBy() uuid.UUID    { return e.enteredBy }
func (e *WorkLogEntry) CreatedAt() time.Time    { return e.createdAt }
func (e *WorkLogEntry) UpdatedAt() time.Time    { return e.updatedAt }
func (e *WorkLogEntry) Deleted() bool           { return e.deleted }

// IsProxy reports whether the entry was recorded on the member's behalf
// by someone else.
func (e *WorkLogEntry) IsProxy() bool { return e.enteredBy != e.memberID }

// =============================================================================
// COMMANDS
// =============================================================================

// Update changes hours and comment. Only editable statuses allow it.
func (e *WorkLogEntry) Update(hours TimeAmount, comment string, updatedBy uuid.UUID) error {
	if err := e.ensureLive("update"); err != nil {
		return err
	}
	if !e.status.Editable() {
		return &generic.StateError{AggregateType: AggregateWorkLog, Current: string(e.status), Attempted: "update"}
	}
	if err := validateComment("comment", comment); err != nil {
		return err
	}
	return e.Raise(e, WorkLogUpdated{
		Hours:     hours,
		Comment:   comment,
		UpdatedBy: updatedBy,
		At:        time.Now().UTC(),
	})
}

// Delete marks the entry deleted. Approved and submitted entries are
// read-only and can never be deleted.
func (e *WorkLogEntry) Delete(deletedBy uuid.UUID) error {
	if err := e.ensureLive("delete"); err != nil {
		return err
	}
	if !e.status.Deletable() {
		return &generic.StateError{AggregateType: AggregateWorkLog, Current: string(e.status), Attempted: "delete"}
	}
	return e.Raise(e, WorkLogDeleted{DeletedBy: deletedBy, At: time.Now().UTC()})
}

// ChangeStatus transitions the lifecycle per the shared table.
func (e *WorkLogEntry) ChangeStatus(to Status, changedBy uuid.UUID) error {
	if !to.Valid() {
		return generic.Invalid("status", "unknown status %q", string(to))
	}
	if err := e.ensureLive("change status of"); err != nil {
		return err
	}
	if !e.status.CanTransitionTo(to) {
		return &generic.StateError{AggregateType: AggregateWorkLog, Current: string(e.status), Attempted: string(to)}
	}
	return e.Raise(e, WorkLogStatusChanged{
		From:      e.status,
		To:        to,
		ChangedBy: changedBy,
		At:        time.Now().UTC(),
	})
}

func (e *WorkLogEntry) ensureLive(op string) error {
	if e.deleted {
		return &generic.StateError{AggregateType: AggregateWorkLog, Current: "DELETED", Attempted: op}
	}
	return nil
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

func (e *WorkLogEntry) Apply(ev generic.Event) error {
	switch v := ev.(type) {
	case WorkLogCreated:
		e.memberID = v.MemberID
		e.projectID = v.ProjectID
		e.date = v.Date
		e.hours = v.Hours
		e.comment = v.Comment
		e.enteredBy = v.EnteredBy
		e.status = StatusDraft
		e.createdAt = v.At
		e.updatedAt = v.At
	case WorkLogUpdated:
		e.hours = v.Hours
		e.comment = v.Comment
		e.updatedAt = v.At
	case WorkLogStatusChanged:
		e.status = v.To
		e.updatedAt = v.At
	case WorkLogDeleted:
		e.deleted = true
		e.updatedAt = v.At
	default:
		return &generic.UnknownEventError{AggregateType: AggregateWorkLog, EventKind: ev.Kind()}
	}
	return nil
}

// =============================================================================
// SHARED VALIDATION
// =============================================================================

func validateParties(memberID, actorID uuid.UUID) error {
	if memberID == uuid.Nil {
		return generic.Invalid("member_id", "must not be empty")
	}
	if actorID == uuid.Nil {
		return generic.Invalid("actor", "must not be empty")
	}
	return nil
}

func validateEntryDate(date generic.TimePoint) error {
	if date.IsZero() {
		return generic.Invalid("date", "must not be empty")
	}
	if date.After(generic.Today()) {
		return generic.Invalid("date", "%s is in the future", date)
	}
	return nil
}

func validateComment(field, text string) error {
	if len([]rune(text)) > MaxCommentLength {
		return generic.Invalid(field, "must be at most %d characters", MaxCommentLength)
	}
	return nil
}

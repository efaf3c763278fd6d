/*
absence.go - Absence aggregate

PURPOSE:
  Records non-work time off for a member on a given date, with a
  category and an optional reason. Structurally parallel to
  WorkLogEntry: same lifecycle, same quantization, same editability
  rules, its own event union.

SEE ALSO:
  - worklog.go: the parallel aggregate and shared validation helpers
  - events.go:  the Absence* event union
*/
package timesheet

import (
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// ABSENCE AGGREGATE
// =============================================================================

type Absence struct {
	generic.Root

	memberID   uuid.UUID
	date       generic.TimePoint
	hours      TimeAmount
	category   AbsenceCategory
	reason     string
	status     Status
	recordedBy uuid.UUID
	createdAt  time.Time
	updatedAt  time.Time
	deleted    bool
}

// NewAbsence creates an absence in DRAFT via an AbsenceRecorded event.
func NewAbsence(id, memberID uuid.UUID, date generic.TimePoint, hours TimeAmount, category AbsenceCategory, reason string, recordedBy uuid.UUID) (*Absence, error) {
	if err := validateParties(memberID, recordedBy); err != nil {
		return nil, err
	}
	if err := validateEntryDate(date); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, generic.Invalid("category", "unknown absence category %q", string(category))
	}
	if err := validateComment("reason", reason); err != nil {
		return nil, err
	}

	a := &Absence{Root: generic.NewRoot(id)}
	err := a.Raise(a, AbsenceRecorded{
		MemberID:   memberID,
		Date:       date,
		Hours:      hours,
		Category:   category,
		Reason:     reason,
		RecordedBy: recordedBy,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ReplayAbsence rehydrates an absence from its stored event history.
func ReplayAbsence(id uuid.UUID, events []generic.Event) (*Absence, error) {
	a := &Absence{Root: generic.NewRoot(id)}
	if err := a.Replay(a, events); err != nil {
		return nil, err
	}
	return a, nil
}

// Accessors
func (a *Absence) MemberID() uuid.UUID       { return a.memberID }
func (a *Absence) Date() generic.TimePoint   { return a.date }
func (a *Absence) Hours() TimeAmount         { return a.hours }
func (a *Absence) Category() AbsenceCategory { return a.category }
func (a *Absence) Reason() string            { return a.reason }
func (a *Absence) Status() Status            { return a.status }
func (a *Absence) RecordedBy() uuid.UUID     { return a.recordedBy }
func (a *Absence) CreatedAt() time.Time      { return a.createdAt }
func (a *Absence) UpdatedAt() time.Time      { return a.updatedAt }
func (a *Absence) Deleted() bool             { return a.deleted }

// IsProxy reports whether someone recorded the absence on the member's
// behalf.
func (a *Absence) IsProxy() bool { return a.recordedBy != a.memberID }

// =============================================================================
// COMMANDS
// =============================================================================

// Update changes hours, category, and reason. Editable statuses only.
func (a *Absence) Update(hours TimeAmount, category AbsenceCategory, reason string, updatedBy uuid.UUID) error {
	if err := a.ensureLive("update"); err != nil {
		return err
	}
	if !a.status.Editable() {
		return &generic.StateError{AggregateType: AggregateAbsence, Current: string(a.status), Attempted: "update"}
	}
	if !category.Valid() {
		return generic.Invalid("category", "unknown absence category %q", string(category))
	}
	if err := validateComment("reason", reason); err != nil {
		return err
	}
	return a.Raise(a, AbsenceUpdated{
		Hours:     hours,
		Category:  category,
		Reason:    reason,
		UpdatedBy: updatedBy,
		At:        time.Now().UTC(),
	})
}

// Delete marks the absence deleted; only from correctable statuses.
func (a *Absence) Delete(deletedBy uuid.UUID) error {
	if err := a.ensureLive("delete"); err != nil {
		return err
	}
	if !a.status.Deletable() {
		return &generic.StateError{AggregateType: AggregateAbsence, Current: string(a.status), Attempted: "delete"}
	}
	return a.Raise(a, AbsenceDeleted{DeletedBy: deletedBy, At: time.Now().UTC()})
}

// ChangeStatus transitions the lifecycle per the shared table.
func (a *Absence) ChangeStatus(to Status, changedBy uuid.UUID) error {
	if !to.Valid() {
		return generic.Invalid("status", "unknown status %q", string(to))
	}
	if err := a.ensureLive("change status of"); err != nil {
		return err
	}
	if !a.status.CanTransitionTo(to) {
		return &generic.StateError{AggregateType: AggregateAbsence, Current: string(a.status), Attempted: string(to)}
	}
	return a.Raise(a, AbsenceStatusChanged{
		From:      a.status,
		To:        to,
		ChangedBy: changedBy,
		At:        time.Now().UTC(),
	})
}

func (a *Absence) ensureLive(op string) error {
	if a.deleted {
		return &generic.StateError{AggregateType: AggregateAbsence, Current: "DELETED", Attempted: op}
	}
	return nil
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

func (a *Absence) Apply(ev generic.Event) error {
	switch v := ev.(type) {
	case AbsenceRecorded:
		a.memberID = v.MemberID
		a.date = v.Date
		a.hours = v.Hours
		a.category = v.Category
		a.reason = v.Reason
		a.recordedBy = v.RecordedBy
		a.status = StatusDraft
		a.createdAt = v.At
		a.updatedAt = v.At
	case AbsenceUpdated:
		a.hours = v.Hours
		a.category = v.Category
		a.reason = v.Reason
		a.updatedAt = v.At
	case AbsenceStatusChanged:
		a.status = v.To
		a.updatedAt = v.At
	case AbsenceDeleted:
		a.deleted = true
		a.updatedAt = v.At
	default:
		return &generic.UnknownEventError{AggregateType: AggregateAbsence, EventKind: ev.Kind()}
	}
	return nil
}

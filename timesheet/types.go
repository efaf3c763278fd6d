/*
Package timesheet implements the work-log, absence, and monthly-approval
aggregates and the coordination service that drives them.

PURPOSE:
  One WorkLogEntry per (member, project, date) records hours worked; an
  Absence records non-work time off. A MonthlyApproval groups every
  record in a member's fiscal month and drives their statuses through
  submit/approve/reject as a single reviewed unit.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeAmount: hours per record, quarter-hour quantized, capped at 24
  - Status:     the shared four-state lifecycle and its transition table
  - AbsenceCategory: why the member was away

DESIGN PRINCIPLES:
  1. Aggregates own their fields: every change is an event, applied by
     the aggregate itself - nothing outside sets state directly
  2. Illegal transitions never reach persisted state: the table below is
     checked before any event is raised
  3. Precision: decimal.Decimal for hours, never float arithmetic

SEE ALSO:
  - worklog.go, absence.go, approval.go: the aggregates
  - service.go: the cross-aggregate coordination commands
  - events.go:  event definitions and storage codec
*/
package timesheet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// AGGREGATE TYPE TAGS - Used in registries, errors, and event records
// =============================================================================

const (
	AggregateWorkLog  = "work_log_entry"
	AggregateAbsence  = "absence"
	AggregateApproval = "monthly_approval"
)

// Not-found codes surfaced by repositories and the coordination service.
const (
	CodeWorkLogNotFound  = "WORK_LOG_ENTRY_NOT_FOUND"
	CodeAbsenceNotFound  = "ABSENCE_NOT_FOUND"
	CodeApprovalNotFound = "APPROVAL_NOT_FOUND"
)

// Text limits shared by create and update validation.
const (
	MaxCommentLength         = 500
	MaxRejectionReasonLength = 1000
)

// =============================================================================
// TIME AMOUNT - Hours per record, quarter-hour quantized
// =============================================================================

var (
	quarterHour = decimal.RequireFromString("0.25")
	maxHours    = decimal.NewFromInt(24)
)

// TimeAmount is a non-negative number of hours, a multiple of 0.25, at
// most 24. The zero value is a valid zero amount.
type TimeAmount struct {
	hours decimal.Decimal
}

// NewTimeAmount validates and wraps a decimal hour quantity.
func NewTimeAmount(hours decimal.Decimal) (TimeAmount, error) {
	if hours.IsNegative() {
		return TimeAmount{}, generic.Invalid("hours", "must not be negative, got %s", hours)
	}
	if hours.GreaterThan(maxHours) {
		return TimeAmount{}, generic.Invalid("hours", "must not exceed 24, got %s", hours)
	}
	if !hours.Mod(quarterHour).IsZero() {
		return TimeAmount{}, generic.Invalid("hours", "must be a multiple of 0.25, got %s", hours)
	}
	return TimeAmount{hours: hours}, nil
}

// NewTimeAmountFromFloat validates a float hour quantity.
func NewTimeAmountFromFloat(hours float64) (TimeAmount, error) {
	return NewTimeAmount(decimal.NewFromFloat(hours))
}

// MustTimeAmount panics on invalid input. For fixtures and seeds only.
func MustTimeAmount(hours float64) TimeAmount {
	a, err := NewTimeAmountFromFloat(hours)
	if err != nil {
		panic(err)
	}
	return a
}

func (a TimeAmount) Hours() decimal.Decimal  { return a.hours }
func (a TimeAmount) Float() float64          { f, _ := a.hours.Float64(); return f }
func (a TimeAmount) IsZero() bool            { return a.hours.IsZero() }
func (a TimeAmount) Equal(b TimeAmount) bool { return a.hours.Equal(b.hours) }
func (a TimeAmount) String() string          { return a.hours.String() }

// MarshalJSON encodes the amount as its decimal hours.
func (a TimeAmount) MarshalJSON() ([]byte, error) {
	return a.hours.MarshalJSON()
}

// UnmarshalJSON decodes and re-validates, so a corrupted stored payload
// cannot smuggle an out-of-range amount back into the domain.
func (a *TimeAmount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := NewTimeAmount(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// =============================================================================
// STATUS - Shared four-state lifecycle
// =============================================================================

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// transitions is the full legality table. APPROVED is terminal. The
// SUBMITTED->DRAFT edge exists in the raw machine but is never driven by
// the monthly-approval coordination; it remains reachable only through
// the per-record status command.
var transitions = map[Status]map[Status]bool{
	StatusDraft:     {StatusSubmitted: true},
	StatusSubmitted: {StatusApproved: true, StatusRejected: true, StatusDraft: true},
	StatusRejected:  {StatusDraft: true, StatusSubmitted: true},
	StatusApproved:  {},
}

// Valid reports whether s is one of the four statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo consults the transition table.
func (s Status) CanTransitionTo(to Status) bool {
	return transitions[s][to]
}

// Editable is true exactly for the correctable statuses.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// Deletable mirrors Editable: records are never deleted once submitted
// or approved.
func (s Status) Deletable() bool {
	return s.Editable()
}

// =============================================================================
// ABSENCE CATEGORY
// =============================================================================

type AbsenceCategory string

const (
	AbsencePaidLeave    AbsenceCategory = "PAID_LEAVE"
	AbsenceSickLeave    AbsenceCategory = "SICK_LEAVE"
	AbsenceSpecialLeave AbsenceCategory = "SPECIAL_LEAVE"
	AbsenceCompensatory AbsenceCategory = "COMPENSATORY"
	AbsenceUnpaidLeave  AbsenceCategory = "UNPAID_LEAVE"
	AbsenceOther        AbsenceCategory = "OTHER"
)

var absenceCategories = map[AbsenceCategory]bool{
	AbsencePaidLeave:    true,
	AbsenceSickLeave:    true,
	AbsenceSpecialLeave: true,
	AbsenceCompensatory: true,
	AbsenceUnpaidLeave:  true,
	AbsenceOther:        true,
}

// Valid reports whether c is a known category.
func (c AbsenceCategory) Valid() bool {
	return absenceCategories[c]
}

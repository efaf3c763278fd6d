/*
events.go - Domain events and the storage codec

PURPOSE:
  Defines the closed set of events per aggregate and the JSON codec the
  storage backends use to persist and rehydrate them. Each aggregate's
  event set is a tagged union: the Kind string is the stable storage tag,
  and DecodeEvent dispatches on it with an exhaustive switch.

CRITICAL INVARIANTS:
  1. Kind strings never change once events of that kind are persisted
  2. Decoding an unknown kind fails loudly (ErrUnknownEvent) - a stream
     the code cannot interpret is a fatal incompatibility
  3. Payloads re-validate value objects on decode (TimeAmount, dates)

SEE ALSO:
  - worklog.go / absence.go / approval.go: apply these events
  - store/: backends call EncodeEvent / DecodeEvent
*/
package timesheet

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// WORK LOG ENTRY EVENTS
// =============================================================================

type WorkLogCreated struct {
	MemberID  uuid.UUID         `json:"member_id"`
	ProjectID uuid.UUID         `json:"project_id"`
	Date      generic.TimePoint `json:"date"`
	Hours     TimeAmount        `json:"hours"`
	Comment   string            `json:"comment,omitempty"`
	EnteredBy uuid.UUID         `json:"entered_by"`
	At        time.Time         `json:"at"`
}

func (WorkLogCreated) Kind() string { return "worklog.created" }

type WorkLogUpdated struct {
	Hours     TimeAmount `json:"hours"`
	Comment   string     `json:"comment,omitempty"`
	UpdatedBy uuid.UUID  `json:"updated_by"`
	At        time.Time  `json:"at"`
}

func (WorkLogUpdated) Kind() string { return "worklog.updated" }

type WorkLogStatusChanged struct {
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedBy uuid.UUID `json:"changed_by"`
	At        time.Time `json:"at"`
}

func (WorkLogStatusChanged) Kind() string { return "worklog.status_changed" }

type WorkLogDeleted struct {
	DeletedBy uuid.UUID `json:"deleted_by"`
	At        time.Time `json:"at"`
}

func (WorkLogDeleted) Kind() string { return "worklog.deleted" }

// =============================================================================
// ABSENCE EVENTS
// =============================================================================

type AbsenceRecorded struct {
	MemberID   uuid.UUID         `json:"member_id"`
	Date       generic.TimePoint `json:"date"`
	Hours      TimeAmount        `json:"hours"`
	Category   AbsenceCategory   `json:"category"`
	Reason     string            `json:"reason,omitempty"`
	RecordedBy uuid.UUID         `json:"recorded_by"`
	At         time.Time         `json:"at"`
}

func (AbsenceRecorded) Kind() string { return "absence.recorded" }

type AbsenceUpdated struct {
	Hours     TimeAmount      `json:"hours"`
	Category  AbsenceCategory `json:"category"`
	Reason    string          `json:"reason,omitempty"`
	UpdatedBy uuid.UUID       `json:"updated_by"`
	At        time.Time       `json:"at"`
}

func (AbsenceUpdated) Kind() string { return "absence.updated" }

type AbsenceStatusChanged struct {
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ChangedBy uuid.UUID `json:"changed_by"`
	At        time.Time `json:"at"`
}

func (AbsenceStatusChanged) Kind() string { return "absence.status_changed" }

type AbsenceDeleted struct {
	DeletedBy uuid.UUID `json:"deleted_by"`
	At        time.Time `json:"at"`
}

func (AbsenceDeleted) Kind() string { return "absence.deleted" }

// =============================================================================
// MONTHLY APPROVAL EVENTS
// =============================================================================

type ApprovalOpened struct {
	MemberID    uuid.UUID         `json:"member_id"`
	PeriodStart generic.TimePoint `json:"period_start"`
	PeriodEnd   generic.TimePoint `json:"period_end"`
	At          time.Time         `json:"at"`
}

func (ApprovalOpened) Kind() string { return "approval.opened" }

type ApprovalSubmitted struct {
	EntryIDs    []uuid.UUID `json:"entry_ids"`
	AbsenceIDs  []uuid.UUID `json:"absence_ids"`
	SubmittedBy uuid.UUID   `json:"submitted_by"`
	At          time.Time   `json:"at"`
}

func (ApprovalSubmitted) Kind() string { return "approval.submitted" }

type ApprovalApproved struct {
	ReviewedBy uuid.UUID `json:"reviewed_by"`
	At         time.Time `json:"at"`
}

func (ApprovalApproved) Kind() string { return "approval.approved" }

type ApprovalRejected struct {
	ReviewedBy uuid.UUID `json:"reviewed_by"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

func (ApprovalRejected) Kind() string { return "approval.rejected" }

// =============================================================================
// STORAGE CODEC
// =============================================================================

// EncodeEvent serializes an event payload for the event log.
func EncodeEvent(ev generic.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent rebuilds a typed event from its stored kind and payload.
// The switch per aggregate type is exhaustive over that aggregate's
// event union; anything else is a fatal stream incompatibility.
func DecodeEvent(aggregateType, kind string, payload []byte) (generic.Event, error) {
	var (
		ev  generic.Event
		err error
	)

	switch aggregateType {
	case AggregateWorkLog:
		ev, err = decodeWorkLogEvent(kind, payload)
	case AggregateAbsence:
		ev, err = decodeAbsenceEvent(kind, payload)
	case AggregateApproval:
		ev, err = decodeApprovalEvent(kind, payload)
	default:
		return nil, &generic.UnknownEventError{AggregateType: aggregateType, EventKind: kind}
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeWorkLogEvent(kind string, payload []byte) (generic.Event, error) {
	switch kind {
	case WorkLogCreated{}.Kind():
		return unmarshalEvent[WorkLogCreated](payload)
	case WorkLogUpdated{}.Kind():
		return unmarshalEvent[WorkLogUpdated](payload)
	case WorkLogStatusChanged{}.Kind():
		return unmarshalEvent[WorkLogStatusChanged](payload)
	case WorkLogDeleted{}.Kind():
		return unmarshalEvent[WorkLogDeleted](payload)
	default:
		return nil, &generic.UnknownEventError{AggregateType: AggregateWorkLog, EventKind: kind}
	}
}

func decodeAbsenceEvent(kind string, payload []byte) (generic.Event, error) {
	switch kind {
	case AbsenceRecorded{}.Kind():
		return unmarshalEvent[AbsenceRecorded](payload)
	case AbsenceUpdated{}.Kind():
		return unmarshalEvent[AbsenceUpdated](payload)
	case AbsenceStatusChanged{}.Kind():
		return unmarshalEvent[AbsenceStatusChanged](payload)
	case AbsenceDeleted{}.Kind():
		return unmarshalEvent[AbsenceDeleted](payload)
	default:
		return nil, &generic.UnknownEventError{AggregateType: AggregateAbsence, EventKind: kind}
	}
}

func decodeApprovalEvent(kind string, payload []byte) (generic.Event, error) {
	switch kind {
	case ApprovalOpened{}.Kind():
		return unmarshalEvent[ApprovalOpened](payload)
	case ApprovalSubmitted{}.Kind():
		return unmarshalEvent[ApprovalSubmitted](payload)
	case ApprovalApproved{}.Kind():
		return unmarshalEvent[ApprovalApproved](payload)
	case ApprovalRejected{}.Kind():
		return unmarshalEvent[ApprovalRejected](payload)
	default:
		return nil, &generic.UnknownEventError{AggregateType: AggregateApproval, EventKind: kind}
	}
}

func unmarshalEvent[E generic.Event](payload []byte) (generic.Event, error) {
	var ev E
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

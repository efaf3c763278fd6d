/*
service.go - Command surface and cross-aggregate coordination

PURPOSE:
  The single entry point for every mutating command: per-record create/
  update/delete/status commands for work-log entries and absences, and
  the three monthly-approval commands that drive several aggregates at
  once. Each command runs inside one unit of work, so a failure partway
  through never leaves a partially-submitted month behind.

SUBMIT FLOW:
  1. Find or lazily create the approval for (member, period)
  2. Resolve the member's entry and absence ids inside the period
  3. Load each one - a miss here is a data-consistency bug, surfaced as
     an internal not-found - and move correctable records to SUBMITTED
  4. Record the submitted identifier sets on the approval
  5. Persist everything; the transaction makes the writes all-or-nothing

REVIEW FLOW:
  Approve/reject require the approval to be SUBMITTED, then drive every
  referenced record SUBMITTED->APPROVED or SUBMITTED->REJECTED. A
  rejected month's records become editable again immediately.

ERROR POLICY:
  Nothing is caught and suppressed here: validation, state, not-found,
  and conflict errors propagate unchanged to the transport layer.

SEE ALSO:
  - repository.go: the unit-of-work contract
  - approval.go:   why the approval owns the reference sets
*/
package timesheet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service exposes the command surface over a unit-of-work boundary.
type Service struct {
	uow UnitOfWork
}

// NewService wires the command surface to a storage backend.
func NewService(uow UnitOfWork) *Service {
	return &Service{uow: uow}
}

// =============================================================================
// WORK LOG ENTRY COMMANDS
// =============================================================================

// CreateEntryInput carries plain values for entry creation.
type CreateEntryInput struct {
	MemberID  uuid.UUID
	ProjectID uuid.UUID
	Date      generic.TimePoint
	Hours     TimeAmount
	Comment   string
	EnteredBy uuid.UUID
}

// CreateEntry validates and persists a new DRAFT work-log entry,
// returning its identifier.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (uuid.UUID, error) {
	entry, err := NewWorkLogEntry(uuid.New(), in.MemberID, in.ProjectID, in.Date, in.Hours, in.Comment, in.EnteredBy)
	if err != nil {
		return uuid.Nil, err
	}
	err = s.uow.WithTx(ctx, func(r Repositories) error {
		return r.WorkLogs.Save(ctx, entry)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return entry.ID(), nil
}

// UpdateEntry changes hours and comment on an editable entry.
func (s *Service) UpdateEntry(ctx context.Context, entryID uuid.UUID, hours TimeAmount, comment string, updatedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		entry, err := r.WorkLogs.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if err := entry.Update(hours, comment, updatedBy); err != nil {
			return err
		}
		return r.WorkLogs.Save(ctx, entry)
	})
}

// DeleteEntry removes an editable entry.
func (s *Service) DeleteEntry(ctx context.Context, entryID, deletedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		entry, err := r.WorkLogs.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if err := entry.Delete(deletedBy); err != nil {
			return err
		}
		return r.WorkLogs.Save(ctx, entry)
	})
}

// ChangeEntryStatus applies a single lifecycle transition to an entry.
func (s *Service) ChangeEntryStatus(ctx context.Context, entryID uuid.UUID, to Status, changedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		entry, err := r.WorkLogs.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if err := entry.ChangeStatus(to, changedBy); err != nil {
			return err
		}
		return r.WorkLogs.Save(ctx, entry)
	})
}

// =============================================================================
// ABSENCE COMMANDS
// =============================================================================

// CreateAbsenceInput carries plain values for absence creation.
type CreateAbsenceInput struct {
	MemberID   uuid.UUID
	Date       generic.TimePoint
	Hours      TimeAmount
	Category   AbsenceCategory
	Reason     string
	RecordedBy uuid.UUID
}

// CreateAbsence validates and persists a new DRAFT absence, returning
// its identifier.
func (s *Service) CreateAbsence(ctx context.Context, in CreateAbsenceInput) (uuid.UUID, error) {
	absence, err := NewAbsence(uuid.New(), in.MemberID, in.Date, in.Hours, in.Category, in.Reason, in.RecordedBy)
	if err != nil {
		return uuid.Nil, err
	}
	err = s.uow.WithTx(ctx, func(r Repositories) error {
		return r.Absences.Save(ctx, absence)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return absence.ID(), nil
}

// UpdateAbsence changes hours, category, and reason on an editable absence.
func (s *Service) UpdateAbsence(ctx context.Context, absenceID uuid.UUID, hours TimeAmount, category AbsenceCategory, reason string, updatedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		absence, err := r.Absences.FindByID(ctx, absenceID)
		if err != nil {
			return err
		}
		if err := absence.Update(hours, category, reason, updatedBy); err != nil {
			return err
		}
		return r.Absences.Save(ctx, absence)
	})
}

// DeleteAbsence removes an editable absence.
func (s *Service) DeleteAbsence(ctx context.Context, absenceID, deletedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		absence, err := r.Absences.FindByID(ctx, absenceID)
		if err != nil {
			return err
		}
		if err := absence.Delete(deletedBy); err != nil {
			return err
		}
		return r.Absences.Save(ctx, absence)
	})
}

// ChangeAbsenceStatus applies a single lifecycle transition to an absence.
func (s *Service) ChangeAbsenceStatus(ctx context.Context, absenceID uuid.UUID, to Status, changedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		absence, err := r.Absences.FindByID(ctx, absenceID)
		if err != nil {
			return err
		}
		if err := absence.ChangeStatus(to, changedBy); err != nil {
			return err
		}
		return r.Absences.Save(ctx, absence)
	})
}

// =============================================================================
// MONTHLY APPROVAL COORDINATION
// =============================================================================

// SubmitMonth submits every correctable record of the member's fiscal
// month for review, lazily creating the approval on first submission.
// Returns the approval identifier.
func (s *Service) SubmitMonth(ctx context.Context, memberID uuid.UUID, period generic.Period, submittedBy uuid.UUID) (uuid.UUID, error) {
	var approvalID uuid.UUID

	err := s.uow.WithTx(ctx, func(r Repositories) error {
		approval, err := r.Approvals.FindByMemberAndPeriod(ctx, memberID, period)
		if generic.IsNotFound(err) {
			approval, err = NewMonthlyApproval(uuid.New(), memberID, period)
		}
		if err != nil {
			return err
		}

		entryIDs, err := r.WorkLogs.IDsInRange(ctx, memberID, period)
		if err != nil {
			return err
		}
		absenceIDs, err := r.Absences.IDsInRange(ctx, memberID, period)
		if err != nil {
			return err
		}

		submittedEntries := make([]uuid.UUID, 0, len(entryIDs))
		for _, id := range entryIDs {
			entry, err := r.WorkLogs.FindByID(ctx, id)
			if err != nil {
				return internalMiss(err)
			}
			if entry.Status().Editable() {
				if err := entry.ChangeStatus(StatusSubmitted, submittedBy); err != nil {
					return err
				}
				if err := r.WorkLogs.Save(ctx, entry); err != nil {
					return err
				}
			}
			if entry.Status() == StatusSubmitted {
				submittedEntries = append(submittedEntries, id)
			}
		}

		submittedAbsences := make([]uuid.UUID, 0, len(absenceIDs))
		for _, id := range absenceIDs {
			absence, err := r.Absences.FindByID(ctx, id)
			if err != nil {
				return internalMiss(err)
			}
			if absence.Status().Editable() {
				if err := absence.ChangeStatus(StatusSubmitted, submittedBy); err != nil {
					return err
				}
				if err := r.Absences.Save(ctx, absence); err != nil {
					return err
				}
			}
			if absence.Status() == StatusSubmitted {
				submittedAbsences = append(submittedAbsences, id)
			}
		}

		if err := approval.Submit(submittedEntries, submittedAbsences, submittedBy); err != nil {
			return err
		}
		if err := r.Approvals.Save(ctx, approval); err != nil {
			return err
		}
		approvalID = approval.ID()
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return approvalID, nil
}

// ApproveMonth finalizes a submitted month: the approval and every
// referenced record become APPROVED.
func (s *Service) ApproveMonth(ctx context.Context, approvalID, reviewedBy uuid.UUID) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		approval, err := r.Approvals.FindByID(ctx, approvalID)
		if err != nil {
			return err
		}
		if err := approval.Approve(reviewedBy); err != nil {
			return err
		}

		if err := s.driveReferenced(ctx, r, approval, StatusApproved, reviewedBy); err != nil {
			return err
		}
		return r.Approvals.Save(ctx, approval)
	})
}

// RejectMonth sends a submitted month back with a reason: the approval
// and every referenced record become REJECTED, which makes the records
// editable again for correction.
func (s *Service) RejectMonth(ctx context.Context, approvalID, reviewedBy uuid.UUID, reason string) error {
	return s.uow.WithTx(ctx, func(r Repositories) error {
		approval, err := r.Approvals.FindByID(ctx, approvalID)
		if err != nil {
			return err
		}
		if err := approval.Reject(reviewedBy, reason); err != nil {
			return err
		}

		if err := s.driveReferenced(ctx, r, approval, StatusRejected, reviewedBy); err != nil {
			return err
		}
		return r.Approvals.Save(ctx, approval)
	})
}

// driveReferenced transitions every record the approval references.
// References were captured while SUBMITTED and submitted records are
// read-only, so the sets cannot have drifted; a miss is a bug.
func (s *Service) driveReferenced(ctx context.Context, r Repositories, approval *MonthlyApproval, to Status, reviewedBy uuid.UUID) error {
	for _, id := range approval.EntryIDs() {
		entry, err := r.WorkLogs.FindByID(ctx, id)
		if err != nil {
			return internalMiss(err)
		}
		if err := entry.ChangeStatus(to, reviewedBy); err != nil {
			return err
		}
		if err := r.WorkLogs.Save(ctx, entry); err != nil {
			return err
		}
	}
	for _, id := range approval.AbsenceIDs() {
		absence, err := r.Absences.FindByID(ctx, id)
		if err != nil {
			return internalMiss(err)
		}
		if err := absence.ChangeStatus(to, reviewedBy); err != nil {
			return err
		}
		if err := r.Absences.Save(ctx, absence); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// GetEntry loads a single work-log entry.
func (s *Service) GetEntry(ctx context.Context, entryID uuid.UUID) (*WorkLogEntry, error) {
	var entry *WorkLogEntry
	err := s.uow.WithTx(ctx, func(r Repositories) error {
		var err error
		entry, err = r.WorkLogs.FindByID(ctx, entryID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetAbsence loads a single absence.
func (s *Service) GetAbsence(ctx context.Context, absenceID uuid.UUID) (*Absence, error) {
	var absence *Absence
	err := s.uow.WithTx(ctx, func(r Repositories) error {
		var err error
		absence, err = r.Absences.FindByID(ctx, absenceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return absence, nil
}

// GetApproval loads a single monthly approval.
func (s *Service) GetApproval(ctx context.Context, approvalID uuid.UUID) (*MonthlyApproval, error) {
	var approval *MonthlyApproval
	err := s.uow.WithTx(ctx, func(r Repositories) error {
		var err error
		approval, err = r.Approvals.FindByID(ctx, approvalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return approval, nil
}

// internalMiss upgrades a not-found raised while resolving ids the
// coordination layer looked up itself: the caller sent nothing wrong,
// the read index and the event log disagree.
func internalMiss(err error) error {
	var nf *generic.NotFoundError
	if errors.As(err, &nf) {
		return &generic.NotFoundError{
			AggregateType: nf.AggregateType,
			ID:            nf.ID,
			Code:          nf.Code,
			Internal:      true,
		}
	}
	return err
}

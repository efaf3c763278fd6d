/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry validator tags; decodeAndValidate in handlers.go
  runs them before any domain call. Domain rules (quarter-hour amounts,
  status transitions) are still enforced by the domain itself - the tags
  only reject obviously malformed payloads early.

SEE ALSO:
  - handlers.go: uses these types
  - timesheet/:  the domain model these project
*/
package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateEntryRequest is the request to record a work-log entry.
type CreateEntryRequest struct {
	MemberID  string  `json:"member_id" validate:"required,uuid"`
	ProjectID string  `json:"project_id" validate:"required,uuid"`
	Date      string  `json:"date" validate:"required"`
	Hours     float64 `json:"hours" validate:"min=0,max=24"`
	Comment   string  `json:"comment,omitempty" validate:"max=500"`
	EnteredBy string  `json:"entered_by" validate:"required,uuid"`
}

// UpdateEntryRequest is the request to correct an editable entry.
type UpdateEntryRequest struct {
	Hours     float64 `json:"hours" validate:"min=0,max=24"`
	Comment   string  `json:"comment,omitempty" validate:"max=500"`
	UpdatedBy string  `json:"updated_by" validate:"required,uuid"`
}

// CreateAbsenceRequest is the request to record an absence.
type CreateAbsenceRequest struct {
	MemberID   string  `json:"member_id" validate:"required,uuid"`
	Date       string  `json:"date" validate:"required"`
	Hours      float64 `json:"hours" validate:"min=0,max=24"`
	Category   string  `json:"category" validate:"required"`
	Reason     string  `json:"reason,omitempty" validate:"max=500"`
	RecordedBy string  `json:"recorded_by" validate:"required,uuid"`
}

// UpdateAbsenceRequest is the request to correct an editable absence.
type UpdateAbsenceRequest struct {
	Hours     float64 `json:"hours" validate:"min=0,max=24"`
	Category  string  `json:"category" validate:"required"`
	Reason    string  `json:"reason,omitempty" validate:"max=500"`
	UpdatedBy string  `json:"updated_by" validate:"required,uuid"`
}

// ChangeStatusRequest is the request to apply one lifecycle transition.
type ChangeStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	ChangedBy string `json:"changed_by" validate:"required,uuid"`
}

// ActorRequest carries just the acting user, for delete endpoints.
type ActorRequest struct {
	ActorID string `json:"actor_id" validate:"required,uuid"`
}

// SubmitMonthRequest submits a member's closing month for review. The
// display year/month are resolved to a date range by the tenant's
// monthly period pattern.
type SubmitMonthRequest struct {
	Year        int    `json:"year" validate:"min=2000,max=2200"`
	Month       int    `json:"month" validate:"min=1,max=12"`
	SubmittedBy string `json:"submitted_by" validate:"required,uuid"`
}

// ReviewRequest approves or rejects a submitted month. Reason is
// required by the domain for rejections only.
type ReviewRequest struct {
	ReviewedBy string `json:"reviewed_by" validate:"required,uuid"`
	Reason     string `json:"reason,omitempty" validate:"max=1000"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EntryDTO represents a work-log entry in API responses.
type EntryDTO struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"member_id"`
	ProjectID string  `json:"project_id"`
	Date      string  `json:"date"`
	Hours     float64 `json:"hours"`
	Comment   string  `json:"comment,omitempty"`
	Status    string  `json:"status"`
	EnteredBy string  `json:"entered_by"`
	IsProxy   bool    `json:"is_proxy"`
	Version   int     `json:"version"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// AbsenceDTO represents an absence in API responses.
type AbsenceDTO struct {
	ID         string  `json:"id"`
	MemberID   string  `json:"member_id"`
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Category   string  `json:"category"`
	Reason     string  `json:"reason,omitempty"`
	Status     string  `json:"status"`
	RecordedBy string  `json:"recorded_by"`
	IsProxy    bool    `json:"is_proxy"`
	Version    int     `json:"version"`
}

// ApprovalDTO represents a monthly approval in API responses.
type ApprovalDTO struct {
	ID              string   `json:"id"`
	MemberID        string   `json:"member_id"`
	PeriodStart     string   `json:"period_start"`
	PeriodEnd       string   `json:"period_end"`
	Status          string   `json:"status"`
	EntryIDs        []string `json:"entry_ids"`
	AbsenceIDs      []string `json:"absence_ids"`
	SubmittedBy     string   `json:"submitted_by,omitempty"`
	SubmittedAt     string   `json:"submitted_at,omitempty"`
	ReviewedBy      string   `json:"reviewed_by,omitempty"`
	ReviewedAt      string   `json:"reviewed_at,omitempty"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
}

// CreatedDTO acknowledges a creation with the new identifier.
type CreatedDTO struct {
	ID string `json:"id"`
}

// PeriodDTO represents a resolved closing period.
type PeriodDTO struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	DisplayMonth int    `json:"display_month"`
	DisplayYear  int    `json:"display_year"`
}

// FiscalYearDTO represents a resolved fiscal year.
type FiscalYearDTO struct {
	Year  string `json:"year"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEntryDTO(e *timesheet.WorkLogEntry) EntryDTO {
	return EntryDTO{
		ID:        e.ID().String(),
		MemberID:  e.MemberID().String(),
		ProjectID: e.ProjectID().String(),
		Date:      e.Date().String(),
		Hours:     e.Hours().Float(),
		Comment:   e.Comment(),
		Status:    string(e.Status()),
		EnteredBy: e.EnteredBy().String(),
		IsProxy:   e.IsProxy(),
		Version:   e.Version(),
		CreatedAt: e.CreatedAt().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt().Format(time.RFC3339),
	}
}

func toAbsenceDTO(a *timesheet.Absence) AbsenceDTO {
	return AbsenceDTO{
		ID:         a.ID().String(),
		MemberID:   a.MemberID().String(),
		Date:       a.Date().String(),
		Hours:      a.Hours().Float(),
		Category:   string(a.Category()),
		Reason:     a.Reason(),
		Status:     string(a.Status()),
		RecordedBy: a.RecordedBy().String(),
		IsProxy:    a.IsProxy(),
		Version:    a.Version(),
	}
}

func toApprovalDTO(a *timesheet.MonthlyApproval) ApprovalDTO {
	dto := ApprovalDTO{
		ID:              a.ID().String(),
		MemberID:        a.MemberID().String(),
		PeriodStart:     a.Period().Start.String(),
		PeriodEnd:       a.Period().End.String(),
		Status:          string(a.Status()),
		EntryIDs:        uuidStrings(a.EntryIDs()),
		AbsenceIDs:      uuidStrings(a.AbsenceIDs()),
		RejectionReason: a.RejectionReason(),
	}
	if !a.SubmittedAt().IsZero() {
		dto.SubmittedBy = a.SubmittedBy().String()
		dto.SubmittedAt = a.SubmittedAt().Format(time.RFC3339)
	}
	if !a.ReviewedAt().IsZero() {
		dto.ReviewedBy = a.ReviewedBy().String()
		dto.ReviewedAt = a.ReviewedAt().Format(time.RFC3339)
	}
	return dto
}

// uuidStrings keeps empty reference sets as [] rather than null.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

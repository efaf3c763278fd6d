/*
handlers.go - HTTP API handlers for the timesheet engine

PURPOSE:
  Exposes the timesheet domain via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Entries:
    POST   /api/entries                  Record a work-log entry
    GET    /api/entries/{id}             Get entry details
    PUT    /api/entries/{id}             Correct an editable entry
    DELETE /api/entries/{id}             Delete an editable entry
    POST   /api/entries/{id}/status      Apply one lifecycle transition

  Absences:
    POST   /api/absences                 Record an absence
    GET    /api/absences/{id}            Get absence details
    PUT    /api/absences/{id}            Correct an editable absence
    DELETE /api/absences/{id}            Delete an editable absence
    POST   /api/absences/{id}/status     Apply one lifecycle transition

  Approvals:
    POST   /api/members/{id}/submissions Submit a closing month for review
    GET    /api/approvals/{id}           Get approval details
    POST   /api/approvals/{id}/approve   Approve a submitted month
    POST   /api/approvals/{id}/reject    Reject a submitted month

  Calendar:
    GET    /api/calendar/periods         Resolve a closing period
    GET    /api/calendar/fiscal-year     Resolve a date's fiscal year

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation errors (malformed input)
  - 404: not found (caller-supplied id does not resolve)
  - 409: state violations and optimistic-lock conflicts
  - 500: internal not-found (index/log inconsistency) and everything else

SECURITY NOTE:
  Currently NO authentication or authorization. Actor ids arrive in
  request bodies and are trusted as-is.

SEE ALSO:
  - dto.go:    request/response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warp/timesheet-engine/calendar"
	"github.com/warp/timesheet-engine/factory"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *timesheet.Service
	Calendar factory.TenantCalendar

	validate *validator.Validate
}

// NewHandler creates a new handler around the domain service and the
// tenant's calendar configuration.
func NewHandler(svc *timesheet.Service, cal factory.TenantCalendar) *Handler {
	return &Handler{
		Service:  svc,
		Calendar: cal,
		validate: validator.New(),
	}
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// CreateEntry records a new work-log entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hours, err := timesheet.NewTimeAmountFromFloat(req.Hours)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := h.Service.CreateEntry(r.Context(), timesheet.CreateEntryInput{
		MemberID:  uuid.MustParse(req.MemberID),
		ProjectID: uuid.MustParse(req.ProjectID),
		Date:      date,
		Hours:     hours,
		Comment:   req.Comment,
		EnteredBy: uuid.MustParse(req.EnteredBy),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id.String()})
}

// GetEntry returns a single entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.GetEntry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// UpdateEntry corrects hours and comment on an editable entry.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	hours, err := timesheet.NewTimeAmountFromFloat(req.Hours)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	err = h.Service.UpdateEntry(r.Context(), id, hours, req.Comment, uuid.MustParse(req.UpdatedBy))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.GetEntry(w, r)
}

// DeleteEntry removes an editable entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ActorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.Service.DeleteEntry(r.Context(), id, uuid.MustParse(req.ActorID)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeEntryStatus applies one lifecycle transition to an entry.
func (h *Handler) ChangeEntryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	err := h.Service.ChangeEntryStatus(r.Context(), id, timesheet.Status(req.Status), uuid.MustParse(req.ChangedBy))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.GetEntry(w, r)
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// CreateAbsence records a new absence.
func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	var req CreateAbsenceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hours, err := timesheet.NewTimeAmountFromFloat(req.Hours)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := h.Service.CreateAbsence(r.Context(), timesheet.CreateAbsenceInput{
		MemberID:   uuid.MustParse(req.MemberID),
		Date:       date,
		Hours:      hours,
		Category:   timesheet.AbsenceCategory(req.Category),
		Reason:     req.Reason,
		RecordedBy: uuid.MustParse(req.RecordedBy),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: id.String()})
}

// GetAbsence returns a single absence.
func (h *Handler) GetAbsence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	absence, err := h.Service.GetAbsence(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAbsenceDTO(absence))
}

// UpdateAbsence corrects an editable absence.
func (h *Handler) UpdateAbsence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateAbsenceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	hours, err := timesheet.NewTimeAmountFromFloat(req.Hours)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	err = h.Service.UpdateAbsence(r.Context(), id, hours,
		timesheet.AbsenceCategory(req.Category), req.Reason, uuid.MustParse(req.UpdatedBy))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.GetAbsence(w, r)
}

// DeleteAbsence removes an editable absence.
func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ActorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.Service.DeleteAbsence(r.Context(), id, uuid.MustParse(req.ActorID)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeAbsenceStatus applies one lifecycle transition to an absence.
func (h *Handler) ChangeAbsenceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	err := h.Service.ChangeAbsenceStatus(r.Context(), id, timesheet.Status(req.Status), uuid.MustParse(req.ChangedBy))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.GetAbsence(w, r)
}

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// SubmitMonth resolves the member's closing period from the tenant
// calendar and submits every record inside it for review.
func (h *Handler) SubmitMonth(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SubmitMonthRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	period := h.Calendar.Monthly.PeriodForDisplay(req.Year, time.Month(req.Month))
	approvalID, err := h.Service.SubmitMonth(r.Context(), memberID, period.Range, uuid.MustParse(req.SubmittedBy))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	approval, err := h.Service.GetApproval(r.Context(), approvalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalDTO(approval))
}

// GetApproval returns a single monthly approval.
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	approval, err := h.Service.GetApproval(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalDTO(approval))
}

// ApproveMonth finalizes a submitted month.
func (h *Handler) ApproveMonth(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.Service.ApproveMonth(r.Context(), id, uuid.MustParse(req.ReviewedBy)); err != nil {
		writeDomainError(w, err)
		return
	}
	h.GetApproval(w, r)
}

// RejectMonth sends a submitted month back with a reason.
func (h *Handler) RejectMonth(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ReviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.Service.RejectMonth(r.Context(), id, uuid.MustParse(req.ReviewedBy), req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	h.GetApproval(w, r)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetClosingPeriod resolves ?year=&month= (or ?date=) to the tenant's
// closing period.
func (h *Handler) GetClosingPeriod(w http.ResponseWriter, r *http.Request) {
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := generic.ParseDate(dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		writeJSON(w, http.StatusOK, toPeriodDTO(h.Calendar.Monthly.PeriodFor(date)))
		return
	}

	year, err1 := strconv.Atoi(r.URL.Query().Get("year"))
	month, err2 := strconv.Atoi(r.URL.Query().Get("month"))
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Provide date=YYYY-MM-DD or year= and month=", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(h.Calendar.Monthly.PeriodForDisplay(year, time.Month(month))))
}

// GetFiscalYear resolves ?date= to the tenant's fiscal year and range.
func (h *Handler) GetFiscalYear(w http.ResponseWriter, r *http.Request) {
	date, err := generic.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	year := h.Calendar.Fiscal.FiscalYear(date)
	rng := h.Calendar.Fiscal.YearRange(year)
	writeJSON(w, http.StatusOK, FiscalYearDTO{
		Year:  strconv.Itoa(year),
		Start: rng.Start.String(),
		End:   rng.End.String(),
	})
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

// decodeAndValidate decodes the JSON body into req and runs its
// validator tags, writing a 400 and returning false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}

func toPeriodDTO(p calendar.ClosingPeriod) PeriodDTO {
	return PeriodDTO{
		Start:        p.Range.Start.String(),
		End:          p.Range.End.String(),
		DisplayMonth: int(p.DisplayMonth),
		DisplayYear:  p.DisplayYear,
	}
}

// writeDomainError maps a domain error to its transport status.
func writeDomainError(w http.ResponseWriter, err error) {
	var nf *generic.NotFoundError
	switch {
	case errors.Is(err, generic.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.As(err, &nf):
		if nf.Internal {
			writeError(w, http.StatusInternalServerError, "Internal inconsistency", err)
			return
		}
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", Code: nf.Code, Details: err.Error()})
	case errors.Is(err, generic.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, generic.ErrStateViolation):
		writeError(w, http.StatusConflict, "Operation not allowed in current state", err)
	case errors.Is(err, generic.ErrConflict):
		writeError(w, http.StatusConflict, "Concurrent modification, reload and retry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

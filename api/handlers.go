/*
handlers.go - HTTP API handlers for the overtime management system

PURPOSE:
  Exposes the overtime engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Sessions:
    POST   /api/sessions               Submit an OT session
    POST   /api/sessions/{id}/edit     Re-time a session
    GET    /api/sessions/{id}/audit    Audit trail for a session

  Approval:
    POST   /api/actions                Approve/reject a claim-group subset
    GET    /api/queues/{status}        Work list for a pipeline stage

  Groups:
    GET    /api/employees/{id}/groups/{date}  Claim group snapshot

  Configuration:
    GET    /api/formulas               List rate formulas
    POST   /api/formulas               Create/replace a formula (validated)
    POST   /api/formulas/validate      Live expression syntax check
    GET    /api/rules                  List threshold rules
    POST   /api/rules                  Create/replace a rule
    POST   /api/thresholds/preview     What would this claim trip?

  Holidays:
    GET    /api/holidays?year=2026     List holidays
    POST   /api/holidays               Add a holiday
    DELETE /api/holidays?date=&name=   Remove a holiday

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (claim service, factories, stores)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad transitions
  - 404: Session or rate not found
  - 409: Submission refused by an auto-block threshold rule
  - 500: Internal errors

SECURITY NOTE:
  Authentication and authorization are delegated to the embedding
  application or gateway; actor identity and role arrive in the request
  body and are trusted here.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/payroll"
	"github.com/warp/overtime-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *payroll.ClaimService
	Store   *sqlite.Store

	formulas *factory.FormulaFactory
	rules    *factory.RuleFactory
}

// NewHandler creates a new handler over the claim service and store.
func NewHandler(service *payroll.ClaimService, store *sqlite.Store) *Handler {
	return &Handler{
		Service:  service,
		Store:    store,
		formulas: factory.NewFormulaFactory(),
		rules:    factory.NewRuleFactory(),
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// SubmitSession creates a new OT session and re-prices its day group.
// POST /api/sessions
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	var req SubmitSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := req.Employee.toProfile()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee snapshot", err)
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	start, end, err := parseWindow(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time window (use HH:MM)", err)
		return
	}

	result, err := h.Service.Submit(r.Context(), emp, payroll.SubmitRequest{
		Date:         date,
		Start:        start,
		End:          end,
		Reason:       req.Reason,
		Attachments:  req.Attachments,
		SupersedesID: engine.SessionID(req.SupersedesID),
	})
	if err != nil {
		writeDomainError(w, "Failed to submit session", err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		Session:    toSessionDTO(result.Session),
		Group:      toSessionDTOs(result.Group),
		Violations: toViolationDTOs(result.Violations),
	})
}

// EditSession re-times a session and re-prices its group.
// POST /api/sessions/{id}/edit
func (h *Handler) EditSession(w http.ResponseWriter, r *http.Request) {
	sessionID := engine.SessionID(chi.URLParam(r, "id"))

	var req EditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := req.Employee.toProfile()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee snapshot", err)
		return
	}
	start, end, err := parseWindow(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time window (use HH:MM)", err)
		return
	}

	result, err := h.Service.Edit(r.Context(), emp, payroll.EditRequest{
		SessionID: sessionID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		writeDomainError(w, "Failed to edit session", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{
		Sessions: toSessionDTOs(result.Sessions),
		Events:   toEventDTOs(result.Events),
	})
}

// GetSessionAudit returns the audit trail for a session.
// GET /api/sessions/{id}/audit
func (h *Handler) GetSessionAudit(w http.ResponseWriter, r *http.Request) {
	sessionID := engine.SessionID(chi.URLParam(r, "id"))

	entries, err := h.Store.AuditForSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit trail", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:         e.ID,
			At:         e.At.Format(time.RFC3339),
			ActorID:    e.ActorID,
			ActorRole:  string(e.ActorRole),
			EmployeeID: string(e.EmployeeID),
			SessionID:  string(e.SessionID),
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			Remarks:    e.Remarks,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// ApplyAction applies an approve/reject action to a claim group.
// POST /api/actions
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := req.Employee.toProfile()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee snapshot", err)
		return
	}

	result, err := h.Service.Act(r.Context(), emp, engine.ActionRequest{
		Actor:          engine.Role(req.ActorRole),
		ActorID:        req.ActorID,
		ApproveIDs:     toSessionIDs(req.ApproveIDs),
		RejectIDs:      toSessionIDs(req.RejectIDs),
		ApproveRemarks: req.ApproveRemarks,
		RejectRemarks:  req.RejectRemarks,
	})
	if err != nil {
		writeDomainError(w, "Failed to apply action", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{
		Sessions: toSessionDTOs(result.Sessions),
		Events:   toEventDTOs(result.Events),
	})
}

// ListQueue returns all sessions awaiting a pipeline stage.
// GET /api/queues/{status}
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	status := engine.SessionStatus(chi.URLParam(r, "status"))

	sessions, err := h.Service.Queue(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load queue", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTOs(sessions))
}

// GetGroup returns the claim group for one (employee, date).
// GET /api/employees/{id}/groups/{date}
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	date, err := engine.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	sessions, err := h.Service.Group(r.Context(), employeeID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load claim group", err)
		return
	}

	writeJSON(w, http.StatusOK, GroupResponse{
		EmployeeID: string(employeeID),
		Date:       date.String(),
		TotalHours: engine.DailyTotalHours(sessions).String(),
		Sessions:   toSessionDTOs(sessions),
	})
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// ListFormulas returns all rate formulas.
// GET /api/formulas
func (h *Handler) ListFormulas(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListFormulas(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list formulas", err)
		return
	}

	dtos := make([]factory.FormulaJSON, len(records))
	for i, f := range records {
		dtos[i] = h.formulas.ToJSON(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateFormula validates and stores a rate formula.
// POST /api/formulas
func (h *Handler) CreateFormula(w http.ResponseWriter, r *http.Request) {
	var fj factory.FormulaJSON
	if err := json.NewDecoder(r.Body).Decode(&fj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	formula, err := h.formulas.FromJSON(fj)
	if err != nil {
		writeDomainError(w, "Invalid formula definition", err)
		return
	}
	if err := h.Store.SaveFormula(r.Context(), formula); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save formula", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.formulas.ToJSON(formula))
}

// ValidateExpression syntax-checks one expression for the formula
// editor. Always 200; the issues list carries the verdict.
// POST /api/formulas/validate
func (h *Handler) ValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req ValidateExpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	issues := engine.ValidateSyntax(req.Expression)
	writeJSON(w, http.StatusOK, ValidateExpressionResponse{
		Valid:  len(issues) == 0,
		Issues: issues,
	})
}

// ListRules returns all threshold rules.
// GET /api/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]factory.RuleJSON, len(records))
	for i, rule := range records {
		dtos[i] = h.rules.ToJSON(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRule validates and stores a threshold rule.
// POST /api/rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.rules.FromJSON(rj)
	if err != nil {
		writeDomainError(w, "Invalid rule definition", err)
		return
	}
	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.rules.ToJSON(rule))
}

// PreviewThresholds reports what a prospective claim would trip,
// without submitting anything.
// POST /api/thresholds/preview
func (h *Handler) PreviewThresholds(w http.ResponseWriter, r *http.Request) {
	var req ThresholdPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := req.Employee.toProfile()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee snapshot", err)
		return
	}
	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		if amount, err = decimal.NewFromString(req.Amount); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
	}

	from, to := engine.ThresholdWindow(date)
	history, err := h.Store.SessionsInRange(r.Context(), emp.ID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rules", err)
		return
	}

	report := engine.CheckThresholds(engine.ThresholdRequest{
		EmployeeID: emp.ID,
		Date:       date,
		Hours:      hours,
		Amount:     amount,
		Department: emp.Department,
		Role:       emp.Role,
	}, history, rules)

	writeJSON(w, http.StatusOK, toViolationDTOs(report))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays for a year.
// GET /api/holidays?year=2026
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	holidays, err := h.Store.ListHolidays(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, holiday := range holidays {
		dtos[i] = HolidayDTO{Date: holiday.Date.String(), Name: holiday.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday records a public holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var dto HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := engine.ParseDate(dto.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "Holiday name is required", nil)
		return
	}

	if err := h.Store.SaveHoliday(r.Context(), date, dto.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteHoliday removes a holiday.
// DELETE /api/holidays?date=2026-06-01&name=Gawai%20Dayak
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	date, err := engine.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Holiday name is required", nil)
		return
	}

	if err := h.Store.DeleteHoliday(r.Context(), date, name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toSessionDTO(s engine.OTSession) SessionDTO {
	return SessionDTO{
		ID:           string(s.ID),
		EmployeeID:   string(s.EmployeeID),
		Date:         s.Date.String(),
		Start:        s.Start.String(),
		End:          s.End.String(),
		TotalHours:   s.TotalHours.String(),
		DayType:      string(s.DayType),
		Reason:       s.Reason,
		Attachments:  s.Attachments,
		Status:       string(s.Status),
		ORP:          s.ORP.String(),
		HRP:          s.HRP.String(),
		Amount:       s.Amount.String(),
		SupersedesID: string(s.SupersedesID),
		Verified:     toStageAuditDTO(s.Verified),
		Certified:    toStageAuditDTO(s.Certified),
		Approved:     toStageAuditDTO(s.Approved),
		Rejected:     toStageAuditDTO(s.Rejected),
	}
}

func toSessionDTOs(sessions []engine.OTSession) []SessionDTO {
	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	return dtos
}

func toStageAuditDTO(a *engine.StageAudit) *StageAuditDTO {
	if a == nil {
		return nil
	}
	return &StageAuditDTO{
		ActorID: a.ActorID,
		At:      a.At.Format(time.RFC3339),
		Remarks: a.Remarks,
	}
}

func toEventDTOs(events []engine.TransitionEvent) []TransitionEventDTO {
	dtos := make([]TransitionEventDTO, len(events))
	for i, e := range events {
		dtos[i] = TransitionEventDTO{
			SessionID: string(e.SessionID),
			From:      string(e.From),
			To:        string(e.To),
			ActorRole: string(e.Actor),
			ActorID:   e.ActorID,
			Remarks:   e.Remarks,
			At:        e.At.Format(time.RFC3339),
		}
	}
	return dtos
}

func toViolationDTOs(report engine.ViolationReport) []ViolationDTO {
	var dtos []ViolationDTO
	for vt, violations := range report {
		for _, v := range violations {
			dtos = append(dtos, ViolationDTO{
				Type:       string(vt),
				RuleID:     v.RuleID,
				RuleName:   v.RuleName,
				Limit:      v.Limit.String(),
				Current:    v.Current.String(),
				ExceededBy: v.ExceededBy.String(),
				AutoBlock:  v.AutoBlock,
			})
		}
	}
	return dtos
}

func toSessionIDs(ids []string) []engine.SessionID {
	out := make([]engine.SessionID, len(ids))
	for i, id := range ids {
		out[i] = engine.SessionID(id)
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func parseWindow(startStr, endStr string) (engine.TimeOfDay, engine.TimeOfDay, error) {
	start, err := engine.ParseTimeOfDay(startStr)
	if err != nil {
		return engine.TimeOfDay{}, engine.TimeOfDay{}, err
	}
	end, err := engine.ParseTimeOfDay(endStr)
	if err != nil {
		return engine.TimeOfDay{}, engine.TimeOfDay{}, err
	}
	return start, end, nil
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

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var blocked *engine.SubmissionBlockedError
	switch {
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:      message,
			Details:    err.Error(),
			Violations: toViolationDTOs(blocked.Violations),
		})
	case errors.Is(err, engine.ErrSubmissionBlocked):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

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
  - *Response: Complex response wrappers

EMPLOYEE SNAPSHOT:
  Requests that price or re-price a claim group carry an employee
  snapshot (category, basic salary, org placement). Identity and
  payroll master data live in the embedding HR system; this API never
  looks them up itself.

MONEY AND HOURS:
  Decimals travel as strings ("86.54") so no precision is lost in
  JSON number round-trips.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/formula.go: FormulaJSON, RuleJSON configuration schemas
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/payroll"
)

// =============================================================================
// EMPLOYEE SNAPSHOT
// =============================================================================

// EmployeeDTO is the employee snapshot a pricing operation needs.
type EmployeeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category"`
	Department  string `json:"department,omitempty"`
	Role        string `json:"role,omitempty"`
	BasicSalary string `json:"basic_salary"`
}

func (e EmployeeDTO) toProfile() (payroll.EmployeeProfile, error) {
	salary, err := decimal.NewFromString(e.BasicSalary)
	if err != nil {
		return payroll.EmployeeProfile{}, &engine.InvalidArgumentError{
			Field:  "employee.basic_salary",
			Detail: "invalid decimal " + e.BasicSalary,
		}
	}
	return payroll.EmployeeProfile{
		ID:          engine.EmployeeID(e.ID),
		Name:        e.Name,
		Category:    e.Category,
		Department:  e.Department,
		Role:        e.Role,
		BasicSalary: salary,
	}, nil
}

// =============================================================================
// SESSION TYPES
// =============================================================================

// SubmitSessionRequest is the request to submit a new OT session.
type SubmitSessionRequest struct {
	Employee     EmployeeDTO `json:"employee"`
	Date         string      `json:"date"`  // YYYY-MM-DD
	Start        string      `json:"start"` // HH:MM
	End          string      `json:"end"`   // HH:MM
	Reason       string      `json:"reason"`
	Attachments  []string    `json:"attachments,omitempty"`
	SupersedesID string      `json:"supersedes_id,omitempty"`
}

// EditSessionRequest is the request to re-time a session.
type EditSessionRequest struct {
	Employee EmployeeDTO `json:"employee"`
	Start    string      `json:"start"`
	End      string      `json:"end"`
}

// StageAuditDTO is one pipeline stage's sign-off.
type StageAuditDTO struct {
	ActorID string `json:"actor_id"`
	At      string `json:"at"`
	Remarks string `json:"remarks,omitempty"`
}

// SessionDTO represents an OT session in API responses.
type SessionDTO struct {
	ID           string   `json:"id"`
	EmployeeID   string   `json:"employee_id"`
	Date         string   `json:"date"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	TotalHours   string   `json:"total_hours"`
	DayType      string   `json:"day_type"`
	Reason       string   `json:"reason,omitempty"`
	Attachments  []string `json:"attachments,omitempty"`
	Status       string   `json:"status"`
	ORP          string   `json:"orp"`
	HRP          string   `json:"hrp"`
	Amount       string   `json:"amount"`
	SupersedesID string   `json:"supersedes_id,omitempty"`

	Verified  *StageAuditDTO `json:"verified,omitempty"`
	Certified *StageAuditDTO `json:"certified,omitempty"`
	Approved  *StageAuditDTO `json:"approved,omitempty"`
	Rejected  *StageAuditDTO `json:"rejected,omitempty"`
}

// SubmitResponse is the committed outcome of a submission.
type SubmitResponse struct {
	Session    SessionDTO     `json:"session"`
	Group      []SessionDTO   `json:"group"`
	Violations []ViolationDTO `json:"violations,omitempty"`
}

// GroupResponse is the claim group snapshot for one (employee, date).
type GroupResponse struct {
	EmployeeID string       `json:"employee_id"`
	Date       string       `json:"date"`
	TotalHours string       `json:"total_hours"`
	Sessions   []SessionDTO `json:"sessions"`
}

// =============================================================================
// APPROVAL ACTION TYPES
// =============================================================================

// ActionRequestDTO is one approve/reject (or mixed) action on a claim
// group.
type ActionRequestDTO struct {
	Employee EmployeeDTO `json:"employee"`

	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id"`

	ApproveIDs     []string `json:"approve_ids,omitempty"`
	RejectIDs      []string `json:"reject_ids,omitempty"`
	ApproveRemarks string   `json:"approve_remarks,omitempty"`
	RejectRemarks  string   `json:"reject_remarks,omitempty"`
}

// ActionResponse is the committed outcome of an approval action.
type ActionResponse struct {
	Sessions []SessionDTO         `json:"sessions"`
	Events   []TransitionEventDTO `json:"events"`
}

// TransitionEventDTO is one status change.
type TransitionEventDTO struct {
	SessionID string `json:"session_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id"`
	Remarks   string `json:"remarks,omitempty"`
	At        string `json:"at"`
}

// =============================================================================
// THRESHOLD TYPES
// =============================================================================

// ViolationDTO is one exceeded limit finding.
type ViolationDTO struct {
	Type       string `json:"type"`
	RuleID     string `json:"rule_id"`
	RuleName   string `json:"rule_name,omitempty"`
	Limit      string `json:"limit"`
	Current    string `json:"current"`
	ExceededBy string `json:"exceeded_by"`
	AutoBlock  bool   `json:"auto_block"`
}

// ThresholdPreviewRequest asks what a prospective claim would trip.
type ThresholdPreviewRequest struct {
	Employee EmployeeDTO `json:"employee"`
	Date     string      `json:"date"`
	Hours    string      `json:"hours"`
	Amount   string      `json:"amount,omitempty"`
}

// =============================================================================
// FORMULA VALIDATION TYPES
// =============================================================================

// ValidateExpressionRequest is a live syntax-check request from the
// formula editor.
type ValidateExpressionRequest struct {
	Expression string `json:"expression"`
}

// ValidateExpressionResponse lists the issues found; empty means valid.
type ValidateExpressionResponse struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

// HolidayDTO represents a public holiday entry.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// =============================================================================
// AUDIT TYPES
// =============================================================================

// AuditEntryDTO is one audit trail record.
type AuditEntryDTO struct {
	ID         string `json:"id"`
	At         string `json:"at"`
	ActorID    string `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	EmployeeID string `json:"employee_id"`
	SessionID  string `json:"session_id"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	Remarks    string `json:"remarks,omitempty"`
}

// ErrorResponse is the JSON error envelope. Violations are populated
// only on auto-blocked submissions, naming the breached limits.
type ErrorResponse struct {
	Error      string         `json:"error"`
	Details    string         `json:"details,omitempty"`
	Violations []ViolationDTO `json:"violations,omitempty"`
}

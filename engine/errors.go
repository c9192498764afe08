/*
errors.go - Centralized error types for the overtime engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match with errors.Is/errors.As; the structured types carry
  enough context to surface a useful message to whoever caused the
  failure (formula author, submitting employee, acting approver).

ERROR CATEGORIES:
  1. Formula errors     - invalid expressions, bad evaluation inputs
  2. Resolution errors  - no rate formula matches
  3. Transition errors  - role/state mismatch in the approval pipeline
  4. Argument errors    - empty selections, remarks too short
  5. Consistency errors - apportionment reconciliation failures

PROPAGATION POLICY:
  Every error is returned as a typed result. Nothing is swallowed or
  silently defaulted. Formula validation errors are recoverable and
  meant for pre-save surfacing; transition errors are fatal to the
  requested action but never leave partial state behind.
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFormulaSyntax is returned when an expression fails to parse or
	// references an identifier outside the allowed variable set.
	ErrFormulaSyntax = errors.New("formula syntax error")

	// ErrFormulaEvaluation is returned when a syntactically valid expression
	// fails at runtime: missing variable binding or division by zero.
	ErrFormulaEvaluation = errors.New("formula evaluation error")

	// ErrRateNotFound is returned when no active formula resolves for a
	// (category, day type, date) triple. Absence is reportable, never a
	// silent default rate.
	ErrRateNotFound = errors.New("no applicable rate formula")

	// ErrInvalidTransition is returned when an actor's role cannot act on
	// a session in its current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidArgument is returned for malformed requests: empty session
	// selections, remarks below the minimum length, mixed-group input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAggregationInconsistency indicates the apportioned session amounts
	// failed to reconcile with the day total. This is a defensive assertion
	// against caller bugs and should never fire under correct use.
	ErrAggregationInconsistency = errors.New("apportionment does not reconcile with day total")

	// ErrSessionNotFound is returned by stores when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSubmissionBlocked is returned when a violated threshold rule has
	// auto-block enabled, turning the violation from a flag into a refusal.
	ErrSubmissionBlocked = errors.New("submission blocked by threshold rule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FormulaSyntaxError reports why an expression failed validation.
// Issues are human-readable and intended for pre-save display.
type FormulaSyntaxError struct {
	Expression string
	Issues     []string
}

func (e *FormulaSyntaxError) Error() string {
	return fmt.Sprintf("formula %q: %d syntax issue(s): %v", e.Expression, len(e.Issues), e.Issues)
}

func (e *FormulaSyntaxError) Unwrap() error { return ErrFormulaSyntax }

// FormulaEvaluationError reports a runtime evaluation failure.
type FormulaEvaluationError struct {
	Expression string
	Detail     string
}

func (e *FormulaEvaluationError) Error() string {
	return fmt.Sprintf("evaluating %q: %s", e.Expression, e.Detail)
}

func (e *FormulaEvaluationError) Unwrap() error { return ErrFormulaEvaluation }

// RateNotFoundError identifies the lookup that found no formula.
type RateNotFoundError struct {
	Category string
	DayType  DayType
	Date     Date
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no rate formula for category %q, day type %q on %s",
		e.Category, e.DayType, e.Date)
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }

// InvalidTransitionError identifies the rejected action.
type InvalidTransitionError struct {
	Actor     Role
	SessionID SessionID
	From      SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("role %q cannot act on session %s in state %q",
		e.Actor, e.SessionID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// InvalidArgumentError identifies the offending field.
type InvalidArgumentError struct {
	Field  string
	Detail string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// AggregationInconsistencyError carries the reconciliation delta.
type AggregationInconsistencyError struct {
	EmployeeID  EmployeeID
	Date        Date
	DayTotal    decimal.Decimal
	Apportioned decimal.Decimal
}

func (e *AggregationInconsistencyError) Error() string {
	return fmt.Sprintf("day %s for %s: apportioned %s does not equal day total %s",
		e.Date, e.EmployeeID, e.Apportioned, e.DayTotal)
}

func (e *AggregationInconsistencyError) Unwrap() error { return ErrAggregationInconsistency }

// SubmissionBlockedError carries the violation report whose auto-block
// rule refused a submission, so the caller can tell the employee which
// limit was breached instead of a bare refusal.
type SubmissionBlockedError struct {
	EmployeeID EmployeeID
	Date       Date
	Violations ViolationReport
}

func (e *SubmissionBlockedError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.EmployeeID, e.Date, ErrSubmissionBlocked)
}

func (e *SubmissionBlockedError) Unwrap() error { return ErrSubmissionBlocked }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// and should map to a 4xx at the HTTP boundary.
func IsClientError(err error) bool {
	return errors.Is(err, ErrFormulaSyntax) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrSubmissionBlocked)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

/*
service.go - Claim-group orchestration over pluggable stores

PURPOSE:
  ClaimService is the seam between the pure engine and the outside
  world. It owns the DailyClaimGroup aggregate: callers always submit,
  edit, and act through the group, never on a lone session in
  isolation, so sibling amounts can never go stale.

FLOW (submission):
  1. Derive day type from the holiday calendar
  2. Compute claimable hours with the configured rounding rule
  3. Price the prospective group and check thresholds
  4. Refuse outright if a violated rule has auto_block; otherwise the
     violations ride along in the result as flags
  5. Persist the re-priced group atomically and audit the creation

CONCURRENCY:
  The engine is pure; this service does the read-then-write of the full
  sibling set. The embedding application must serialize calls per
  (employee, date) key - optimistic or pessimistic locking in the
  session store - or a lost update will corrupt the apportionment
  invariant.
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/overtime-engine/engine"
)

// Stores bundles the persistence interfaces the service needs.
type Stores struct {
	Sessions engine.SessionStore
	Formulas engine.FormulaStore
	Rules    engine.RuleStore
	Audit    engine.AuditLog
}

// ClaimService orchestrates the claim lifecycle.
type ClaimService struct {
	Stores   Stores
	Calendar engine.HolidayCalendar
	Rounding engine.RoundingRule
	Notifier engine.Notifier

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewClaimService(stores Stores, calendar engine.HolidayCalendar, rounding engine.RoundingRule, notifier engine.Notifier) *ClaimService {
	if calendar == nil {
		calendar = engine.DefaultHolidayCalendar{}
	}
	if rounding == nil {
		rounding = engine.ExactRounding{}
	}
	if notifier == nil {
		notifier = engine.NopNotifier{}
	}
	return &ClaimService{
		Stores:   stores,
		Calendar: calendar,
		Rounding: rounding,
		Notifier: notifier,
		Now:      time.Now,
	}
}

func (s *ClaimService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// rates returns a store-backed RateSource snapshot.
func (s *ClaimService) rates(ctx context.Context) (engine.RateSource, error) {
	formulas, err := s.Stores.Formulas.ListFormulas(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rate formulas: %w", err)
	}
	return engine.StaticRates(formulas), nil
}

func (s *ClaimService) machine(ctx context.Context) (*engine.ApprovalStateMachine, error) {
	rates, err := s.rates(ctx)
	if err != nil {
		return nil, err
	}
	return &engine.ApprovalStateMachine{
		Aggregator: &engine.DailyAggregator{Rates: rates},
	}, nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitRequest is one new OT session from an employee.
type SubmitRequest struct {
	Date        engine.Date
	Start       engine.TimeOfDay
	End         engine.TimeOfDay
	Reason      string
	Attachments []string

	// SupersedesID links a resubmission to the rejected session it
	// replaces; empty for first submissions.
	SupersedesID engine.SessionID
}

// SubmitResult is the committed outcome of a submission.
type SubmitResult struct {
	Session    engine.OTSession
	Group      []engine.OTSession
	Violations engine.ViolationReport
}

// Submit creates a session, re-prices its day group, and persists the
// group. Threshold violations are returned as flags; a violated rule
// with auto_block refuses the submission with ErrSubmissionBlocked.
func (s *ClaimService) Submit(ctx context.Context, emp EmployeeProfile, req SubmitRequest) (*SubmitResult, error) {
	hours, err := engine.ElapsedHours(req.Start, req.End, s.Rounding)
	if err != nil {
		return nil, err
	}

	if req.SupersedesID != "" {
		prior, err := s.Stores.Sessions.GetSession(ctx, req.SupersedesID)
		if err != nil {
			return nil, err
		}
		if prior.Status != engine.StatusRejected {
			return nil, &engine.InvalidArgumentError{
				Field:  "supersedes_id",
				Detail: "only rejected sessions can be resubmitted",
			}
		}
	}

	now := s.now()
	session := engine.OTSession{
		ID:           engine.SessionID(uuid.New().String()),
		EmployeeID:   emp.ID,
		Date:         req.Date,
		Start:        req.Start,
		End:          req.End,
		TotalHours:   hours,
		DayType:      engine.DayTypeOf(s.Calendar, req.Date),
		Reason:       req.Reason,
		Attachments:  req.Attachments,
		Status:       engine.StatusPendingVerification,
		SupersedesID: req.SupersedesID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	siblings, err := s.Stores.Sessions.GroupSessions(ctx, emp.ID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("loading claim group: %w", err)
	}
	group := append(append([]engine.OTSession{}, siblings...), session)

	rates, err := s.rates(ctx)
	if err != nil {
		return nil, err
	}
	aggregator := &engine.DailyAggregator{Rates: rates}
	priced, err := aggregator.Aggregate(group, emp.Category, emp.BasicSalary)
	if err != nil {
		return nil, err
	}

	violations, err := s.checkThresholds(ctx, emp, priced, session.ID)
	if err != nil {
		return nil, err
	}
	if violations.AutoBlocked() {
		return nil, &engine.SubmissionBlockedError{
			EmployeeID: emp.ID,
			Date:       req.Date,
			Violations: violations,
		}
	}

	if err := s.Stores.Sessions.SaveGroup(ctx, priced); err != nil {
		return nil, fmt.Errorf("persisting claim group: %w", err)
	}

	s.audit(ctx, engine.AuditEntry{
		At:         now,
		ActorID:    string(emp.ID),
		ActorRole:  engine.RoleEmployee,
		EmployeeID: emp.ID,
		SessionID:  session.ID,
		ToStatus:   engine.StatusPendingVerification,
		Remarks:    req.Reason,
	})

	var submitted engine.OTSession
	for _, p := range priced {
		if p.ID == session.ID {
			submitted = p
			break
		}
	}
	return &SubmitResult{Session: submitted, Group: priced, Violations: violations}, nil
}

// checkThresholds prices the request's share and evaluates every rule
// against the month's history (excluding the prospective session).
func (s *ClaimService) checkThresholds(ctx context.Context, emp EmployeeProfile, priced []engine.OTSession, newID engine.SessionID) (engine.ViolationReport, error) {
	var requested engine.OTSession
	for _, p := range priced {
		if p.ID == newID {
			requested = p
			break
		}
	}

	// The ISO week can straddle the month boundary, so the history range
	// is wider than the calendar month when the date sits near an edge.
	from, to := engine.ThresholdWindow(requested.Date)
	history, err := s.Stores.Sessions.SessionsInRange(ctx, emp.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading threshold history: %w", err)
	}
	// The prospective session is counted through the request itself.
	filtered := history[:0:0]
	for _, h := range history {
		if h.ID != newID {
			filtered = append(filtered, h)
		}
	}

	rules, err := s.Stores.Rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading threshold rules: %w", err)
	}

	return engine.CheckThresholds(engine.ThresholdRequest{
		EmployeeID: emp.ID,
		Date:       requested.Date,
		Hours:      requested.TotalHours,
		Amount:     requested.Amount,
		Department: emp.Department,
		Role:       emp.Role,
	}, filtered, rules), nil
}

// =============================================================================
// APPROVAL ACTIONS
// =============================================================================

// Act applies a role-gated approve/reject (or mixed) action to one
// claim group and persists the outcome atomically.
func (s *ClaimService) Act(ctx context.Context, emp EmployeeProfile, req engine.ActionRequest) (*engine.ActionResult, error) {
	group, err := s.loadGroupFor(ctx, emp.ID, req)
	if err != nil {
		return nil, err
	}

	machine, err := s.machine(ctx)
	if err != nil {
		return nil, err
	}
	if req.At.IsZero() {
		req.At = s.now()
	}
	result, err := machine.Act(group, emp.GroupContext(), req)
	if err != nil {
		return nil, err
	}

	if err := s.Stores.Sessions.SaveGroup(ctx, result.Sessions); err != nil {
		return nil, fmt.Errorf("persisting claim group: %w", err)
	}
	s.publish(ctx, result.Events)
	return result, nil
}

// loadGroupFor resolves the claim group containing the requested
// session ids. All ids must share one (employee, date) group.
func (s *ClaimService) loadGroupFor(ctx context.Context, employee engine.EmployeeID, req engine.ActionRequest) ([]engine.OTSession, error) {
	ids := append(append([]engine.SessionID{}, req.ApproveIDs...), req.RejectIDs...)
	if len(ids) == 0 {
		return nil, &engine.InvalidArgumentError{Field: "session_ids", Detail: "no sessions selected"}
	}
	first, err := s.Stores.Sessions.GetSession(ctx, ids[0])
	if err != nil {
		return nil, err
	}
	if first.EmployeeID != employee {
		return nil, &engine.InvalidArgumentError{Field: "session_ids", Detail: "session belongs to another employee"}
	}
	return s.Stores.Sessions.GroupSessions(ctx, first.EmployeeID, first.Date)
}

// =============================================================================
// EDITS AND RESUBMISSION
// =============================================================================

// EditRequest changes a session's time window.
type EditRequest struct {
	SessionID engine.SessionID
	Start     engine.TimeOfDay
	End       engine.TimeOfDay
}

// Edit re-times a session, re-prices the group, and forces certified
// siblings back to HR. The updated group persists atomically.
func (s *ClaimService) Edit(ctx context.Context, emp EmployeeProfile, req EditRequest) (*engine.ActionResult, error) {
	target, err := s.Stores.Sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if target.EmployeeID != emp.ID {
		return nil, &engine.InvalidArgumentError{Field: "session_id", Detail: "session belongs to another employee"}
	}
	group, err := s.Stores.Sessions.GroupSessions(ctx, target.EmployeeID, target.Date)
	if err != nil {
		return nil, fmt.Errorf("loading claim group: %w", err)
	}

	machine, err := s.machine(ctx)
	if err != nil {
		return nil, err
	}
	result, err := machine.EditSession(group, emp.GroupContext(), req.SessionID, req.Start, req.End, s.Rounding, string(emp.ID), s.now())
	if err != nil {
		return nil, err
	}

	if err := s.Stores.Sessions.SaveGroup(ctx, result.Sessions); err != nil {
		return nil, fmt.Errorf("persisting claim group: %w", err)
	}
	s.publish(ctx, result.Events)
	return result, nil
}

// Resubmit replaces a rejected session with a fresh one. The rejected
// session stays terminal; the new session starts the pipeline over and
// carries a supersedes link for the audit trail.
func (s *ClaimService) Resubmit(ctx context.Context, emp EmployeeProfile, rejected engine.SessionID, req SubmitRequest) (*SubmitResult, error) {
	req.SupersedesID = rejected
	return s.Submit(ctx, emp, req)
}

// =============================================================================
// VIEWS
// =============================================================================

// Group returns the claim group snapshot for one (employee, date).
func (s *ClaimService) Group(ctx context.Context, employee engine.EmployeeID, date engine.Date) ([]engine.OTSession, error) {
	return s.Stores.Sessions.GroupSessions(ctx, employee, date)
}

// Queue returns all sessions awaiting a given pipeline stage, for the
// verifier/certifier/approver work lists.
func (s *ClaimService) Queue(ctx context.Context, status engine.SessionStatus) ([]engine.OTSession, error) {
	return s.Stores.Sessions.SessionsByStatus(ctx, status)
}

// =============================================================================
// AUDIT AND NOTIFICATION PLUMBING
// =============================================================================

func (s *ClaimService) publish(ctx context.Context, events []engine.TransitionEvent) {
	for _, e := range events {
		s.audit(ctx, engine.AuditEntry{
			At:         e.At,
			ActorID:    e.ActorID,
			ActorRole:  e.Actor,
			EmployeeID: e.EmployeeID,
			SessionID:  e.SessionID,
			FromStatus: e.From,
			ToStatus:   e.To,
			Remarks:    e.Remarks,
		})
		// Delivery failures must not roll back a committed transition;
		// the audit log remains the source of truth.
		_ = s.Notifier.Notify(ctx, e)
	}
}

func (s *ClaimService) audit(ctx context.Context, entry engine.AuditEntry) {
	if s.Stores.Audit == nil {
		return
	}
	entry.ID = uuid.New().String()
	_ = s.Stores.Audit.AppendAudit(ctx, entry)
}

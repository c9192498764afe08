/*
approval.go - Role-gated claim lifecycle

PURPOSE:
  Encodes the claim/session approval pipeline as a central transition
  table instead of role checks scattered across screens. Every action
  operates on a subset of one claim group, so partial approval and
  partial rejection fall out naturally.

PIPELINE:
  pending_verification -> supervisor_verified -> hr_certified
                       -> management_approved (terminal)

  rejected                    terminal, reachable from any non-terminal
                              state by the role gating that state
  pending_hr_recertification  re-entrant: entered when a certified
                              session's sibling is edited, forcing HR
                              to re-review the whole day group

TRANSITION TABLE (role -> acting state -> next state on approve):
  supervisor  pending_verification        -> supervisor_verified
  hr          supervisor_verified         -> hr_certified
  hr          pending_hr_recertification  -> hr_certified
  management  hr_certified                -> management_approved
  bod         hr_certified                -> management_approved

  Reject moves any state the role may act on to rejected, with
  mandatory remarks. Employee and admin roles hold no transitions here:
  employees act through submission/edit, admin corrections are a
  storage concern.

ATOMICITY:
  Act works on a deep copy of the group and returns it only when every
  requested sub-operation succeeded. A mixed action (approve one subset,
  reject another, in one call) therefore commits atomically or not at
  all - any failure leaves the caller's slice untouched.

RECOMPUTATION:
  HR certification re-prices the group. Editing hours on a session
  whose group holds certified amounts forces the certified sessions to
  pending_hr_recertification and re-prices every sibling; certified
  numbers are never left stale. That is a correctness invariant of the
  day-group aggregate, not a UX nicety.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLES
// =============================================================================

// Role is the closed set of actors the transition table knows about.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleSupervisor Role = "supervisor"
	RoleHR         Role = "hr"
	RoleManagement Role = "management"
	RoleBOD        Role = "bod"
	RoleAdmin      Role = "admin"
)

// MinRemarksLength is the shortest acceptable rejection remark.
const MinRemarksLength = 10

// approveTransitions maps (role, current status) to the status an
// approval moves the session into. Absence means the role cannot act.
var approveTransitions = map[Role]map[SessionStatus]SessionStatus{
	RoleSupervisor: {
		StatusPendingVerification: StatusSupervisorVerified,
	},
	RoleHR: {
		StatusSupervisorVerified:       StatusHRCertified,
		StatusPendingHRRecertification: StatusHRCertified,
	},
	RoleManagement: {
		StatusHRCertified: StatusManagementApproved,
	},
	RoleBOD: {
		StatusHRCertified: StatusManagementApproved,
	},
}

// CanActOn reports whether a role may transition a session in the
// given state.
func CanActOn(role Role, status SessionStatus) bool {
	_, ok := approveTransitions[role][status]
	return ok
}

// =============================================================================
// EVENTS - Structured transition notifications (§ notification sink)
// =============================================================================

// TransitionEvent records one session's status change. The engine
// emits these; an external dispatcher turns them into emails or push
// notifications.
type TransitionEvent struct {
	EmployeeID EmployeeID
	Date       Date
	SessionID  SessionID
	From       SessionStatus
	To         SessionStatus
	Actor      Role
	ActorID    string
	Remarks    string
	At         time.Time
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// GroupContext carries the employee facts a re-pricing needs.
type GroupContext struct {
	Category    string
	BasicSalary decimal.Decimal
}

// ActionRequest describes one approval-pipeline action on a claim
// group. ApproveIDs and RejectIDs may both be set (mixed action); at
// least one must be non-empty.
type ActionRequest struct {
	Actor   Role
	ActorID string

	ApproveIDs     []SessionID
	RejectIDs      []SessionID
	ApproveRemarks string
	RejectRemarks  string

	At time.Time
}

// ActionResult is the committed outcome: the updated group snapshot
// and the events describing every status change.
type ActionResult struct {
	Sessions []OTSession
	Events   []TransitionEvent
}

// ApprovalStateMachine applies role-gated transitions to claim groups.
// Aggregator re-prices the group after certification and edits.
type ApprovalStateMachine struct {
	Aggregator *DailyAggregator
}

// Act applies an approve-subset and/or reject-subset action to one
// claim group. Unselected sessions are untouched. On any validation or
// transition failure the caller's slice is left unmodified.
func (m *ApprovalStateMachine) Act(group []OTSession, gctx GroupContext, req ActionRequest) (*ActionResult, error) {
	if len(req.ApproveIDs) == 0 && len(req.RejectIDs) == 0 {
		return nil, &InvalidArgumentError{Field: "session_ids", Detail: "no sessions selected"}
	}
	if len(req.RejectIDs) > 0 && len([]rune(req.RejectRemarks)) < MinRemarksLength {
		return nil, &InvalidArgumentError{
			Field:  "remarks",
			Detail: "rejection remarks must be at least 10 characters",
		}
	}
	for _, id := range req.ApproveIDs {
		if containsID(req.RejectIDs, id) {
			return nil, &InvalidArgumentError{
				Field:  "session_ids",
				Detail: "session " + string(id) + " selected for both approval and rejection",
			}
		}
	}

	work := cloneGroup(group)
	index := make(map[SessionID]int, len(work))
	for i, s := range work {
		index[s.ID] = i
	}

	var events []TransitionEvent
	certified := false

	apply := func(ids []SessionID, reject bool, remarks string) error {
		for _, id := range ids {
			i, ok := index[id]
			if !ok {
				return &InvalidArgumentError{Field: "session_ids", Detail: "session " + string(id) + " is not in this claim group"}
			}
			s := &work[i]
			next, canAct := approveTransitions[req.Actor][s.Status]
			if !canAct {
				return &InvalidTransitionError{Actor: req.Actor, SessionID: s.ID, From: s.Status}
			}
			from := s.Status
			audit := &StageAudit{ActorID: req.ActorID, At: req.At, Remarks: remarks}
			if reject {
				s.Status = StatusRejected
				s.Rejected = audit
			} else {
				s.Status = next
				switch next {
				case StatusSupervisorVerified:
					s.Verified = audit
				case StatusHRCertified:
					s.Certified = audit
					certified = true
				case StatusManagementApproved:
					s.Approved = audit
				}
			}
			s.UpdatedAt = req.At
			events = append(events, TransitionEvent{
				EmployeeID: s.EmployeeID,
				Date:       s.Date,
				SessionID:  s.ID,
				From:       from,
				To:         s.Status,
				Actor:      req.Actor,
				ActorID:    req.ActorID,
				Remarks:    remarks,
				At:         req.At,
			})
		}
		return nil
	}

	if err := apply(req.ApproveIDs, false, req.ApproveRemarks); err != nil {
		return nil, err
	}
	if err := apply(req.RejectIDs, true, req.RejectRemarks); err != nil {
		return nil, err
	}

	// Certification re-prices the day group so HR signs off on current
	// numbers.
	if certified {
		priced, err := m.Aggregator.Aggregate(work, gctx.Category, gctx.BasicSalary)
		if err != nil {
			return nil, err
		}
		work = priced
	}

	return &ActionResult{Sessions: work, Events: events}, nil
}

// EditSession changes a session's times after submission. If the group
// holds certified amounts, every certified session (the edited one
// included) is forced back to pending_hr_recertification and the whole
// group is re-priced.
func (m *ApprovalStateMachine) EditSession(
	group []OTSession,
	gctx GroupContext,
	sessionID SessionID,
	start, end TimeOfDay,
	rule RoundingRule,
	actorID string,
	at time.Time,
) (*ActionResult, error) {
	work := cloneGroup(group)

	target := -1
	for i, s := range work {
		if s.ID == sessionID {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, ErrSessionNotFound
	}
	if work[target].Status.IsTerminal() {
		return nil, &InvalidTransitionError{
			Actor:     RoleEmployee,
			SessionID: sessionID,
			From:      work[target].Status,
		}
	}
	// A paid-out group may not be re-priced. Changes after management
	// approval go through resubmission, never in-place edits.
	for _, s := range work {
		if s.Status == StatusManagementApproved {
			return nil, &InvalidTransitionError{
				Actor:     RoleEmployee,
				SessionID: s.ID,
				From:      s.Status,
			}
		}
	}

	hours, err := ElapsedHours(start, end, rule)
	if err != nil {
		return nil, err
	}
	work[target].Start = start
	work[target].End = end
	work[target].TotalHours = hours
	work[target].UpdatedAt = at

	// Stale certified numbers are never left behind: every certified
	// session in the group goes back to HR. Sessions earlier in the
	// pipeline keep their status; their amounts are refreshed below.
	var events []TransitionEvent
	for i := range work {
		if work[i].Status != StatusHRCertified {
			continue
		}
		work[i].Status = StatusPendingHRRecertification
		work[i].UpdatedAt = at
		events = append(events, TransitionEvent{
			EmployeeID: work[i].EmployeeID,
			Date:       work[i].Date,
			SessionID:  work[i].ID,
			From:       StatusHRCertified,
			To:         StatusPendingHRRecertification,
			Actor:      RoleEmployee,
			ActorID:    actorID,
			Remarks:    "session " + string(sessionID) + " edited after certification",
			At:         at,
		})
	}

	priced, err := m.Aggregator.Aggregate(work, gctx.Category, gctx.BasicSalary)
	if err != nil {
		return nil, err
	}

	return &ActionResult{Sessions: priced, Events: events}, nil
}

func cloneGroup(group []OTSession) []OTSession {
	work := make([]OTSession, len(group))
	copy(work, group)
	for i := range work {
		if work[i].Attachments != nil {
			work[i].Attachments = append([]string(nil), work[i].Attachments...)
		}
	}
	return work
}

func containsID(ids []SessionID, id SessionID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/overtime-engine/engine"
)

func testMachine() *engine.ApprovalStateMachine {
	return &engine.ApprovalStateMachine{Aggregator: testAggregator()}
}

func testGroup(statuses ...engine.SessionStatus) []engine.OTSession {
	group := make([]engine.OTSession, len(statuses))
	for i, st := range statuses {
		s := session(string(rune('a'+i)), "2", i)
		s.Status = st
		group[i] = s
	}
	return group
}

func gctx() engine.GroupContext {
	return engine.GroupContext{Category: "non_executive", BasicSalary: money("3000")}
}

func actAt() time.Time { return time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC) }

func TestAct_SupervisorVerifies(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification, engine.StatusPendingVerification)

	result, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:      engine.RoleSupervisor,
		ActorID:    "sup-1",
		ApproveIDs: []engine.SessionID{"a", "b"},
		At:         actAt(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range result.Sessions {
		if s.Status != engine.StatusSupervisorVerified {
			t.Errorf("session %s: got %s, want supervisor_verified", s.ID, s.Status)
		}
		if s.Verified == nil || s.Verified.ActorID != "sup-1" {
			t.Errorf("session %s: verification audit missing", s.ID)
		}
	}
	if len(result.Events) != 2 {
		t.Errorf("expected 2 transition events, got %d", len(result.Events))
	}
}

func TestAct_RoleGating(t *testing.T) {
	// GIVEN: Sessions in pending_verification
	// WHEN: An hr actor attempts the supervisor's transition
	// THEN: InvalidTransitionError, no silent no-op

	m := testMachine()
	group := testGroup(engine.StatusPendingVerification)

	_, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:      engine.RoleHR,
		ActorID:    "hr-1",
		ApproveIDs: []engine.SessionID{"a"},
		At:         actAt(),
	})
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if group[0].Status != engine.StatusPendingVerification {
		t.Error("failed action must not mutate the group")
	}
}

func TestAct_PartialRejection(t *testing.T) {
	// GIVEN: 3 sessions pending verification
	// WHEN: Supervisor rejects 1 of them
	// THEN: The other 2 stay unchanged; the rejected one stores remarks

	m := testMachine()
	group := testGroup(
		engine.StatusPendingVerification,
		engine.StatusPendingVerification,
		engine.StatusPendingVerification,
	)

	result, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:         engine.RoleSupervisor,
		ActorID:       "sup-1",
		RejectIDs:     []engine.SessionID{"b"},
		RejectRemarks: "no project code on this claim",
		At:            actAt(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[engine.SessionID]engine.OTSession{}
	for _, s := range result.Sessions {
		byID[s.ID] = s
	}
	if byID["a"].Status != engine.StatusPendingVerification || byID["c"].Status != engine.StatusPendingVerification {
		t.Error("unselected sessions must remain unchanged")
	}
	rej := byID["b"]
	if rej.Status != engine.StatusRejected {
		t.Fatalf("expected rejected, got %s", rej.Status)
	}
	if rej.Rejected == nil || rej.Rejected.Remarks != "no project code on this claim" {
		t.Error("rejection remarks must be stored")
	}
}

func TestAct_RejectionRequiresRemarks(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification)

	_, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:         engine.RoleSupervisor,
		ActorID:       "sup-1",
		RejectIDs:     []engine.SessionID{"a"},
		RejectRemarks: "too short",
		At:            actAt(),
	})
	if !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for short remarks, got %v", err)
	}
}

func TestAct_EmptySelectionRejected(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification)

	_, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:   engine.RoleSupervisor,
		ActorID: "sup-1",
		At:      actAt(),
	})
	if !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("approval of an empty selection must fail, got %v", err)
	}
}

func TestAct_HRCertificationRepricesGroup(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusSupervisorVerified, engine.StatusSupervisorVerified)

	result, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:      engine.RoleHR,
		ActorID:    "hr-1",
		ApproveIDs: []engine.SessionID{"a", "b"},
		At:         actAt(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range result.Sessions {
		if s.Status != engine.StatusHRCertified {
			t.Errorf("expected hr_certified, got %s", s.Status)
		}
		// Two 2-hour sessions, Basic 3000 weekday: 43.27 each
		if !s.Amount.Equal(money("43.27")) {
			t.Errorf("certification must re-price the group, got %s", s.Amount)
		}
	}
}

func TestAct_ManagementApprovalIsTerminal(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusHRCertified)

	result, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:      engine.RoleManagement,
		ActorID:    "mgr-1",
		ApproveIDs: []engine.SessionID{"a"},
		At:         actAt(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sessions[0].Status != engine.StatusManagementApproved {
		t.Fatalf("expected management_approved, got %s", result.Sessions[0].Status)
	}

	// No role may act on a terminal session.
	_, err = m.Act(result.Sessions, gctx(), engine.ActionRequest{
		Actor:      engine.RoleManagement,
		ActorID:    "mgr-1",
		ApproveIDs: []engine.SessionID{"a"},
		At:         actAt(),
	})
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on terminal state, got %v", err)
	}
}

func TestAct_MixedActionCommitsAtomically(t *testing.T) {
	// GIVEN: A mixed approve+reject call where the reject half is invalid
	//        (session already rejected)
	// THEN: Neither half commits; the group is untouched

	m := testMachine()
	group := testGroup(engine.StatusPendingVerification, engine.StatusRejected)

	_, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:         engine.RoleSupervisor,
		ActorID:       "sup-1",
		ApproveIDs:    []engine.SessionID{"a"},
		RejectIDs:     []engine.SessionID{"b"},
		RejectRemarks: "duplicate of an earlier claim",
		At:            actAt(),
	})
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if group[0].Status != engine.StatusPendingVerification {
		t.Error("approve half must not commit when reject half fails")
	}
}

func TestAct_MixedActionBothHalves(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification, engine.StatusPendingVerification)

	result, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:          engine.RoleSupervisor,
		ActorID:        "sup-1",
		ApproveIDs:     []engine.SessionID{"a"},
		RejectIDs:      []engine.SessionID{"b"},
		ApproveRemarks: "ok to proceed",
		RejectRemarks:  "hours inflated beyond roster",
		At:             actAt(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[engine.SessionID]engine.OTSession{}
	for _, s := range result.Sessions {
		byID[s.ID] = s
	}
	if byID["a"].Status != engine.StatusSupervisorVerified {
		t.Errorf("approve half: got %s", byID["a"].Status)
	}
	if byID["b"].Status != engine.StatusRejected {
		t.Errorf("reject half: got %s", byID["b"].Status)
	}
}

func TestAct_OverlappingSelections(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification)

	_, err := m.Act(group, gctx(), engine.ActionRequest{
		Actor:         engine.RoleSupervisor,
		ActorID:       "sup-1",
		ApproveIDs:    []engine.SessionID{"a"},
		RejectIDs:     []engine.SessionID{"a"},
		RejectRemarks: "cannot be both outcomes",
		At:            actAt(),
	})
	if !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEditSession_TriggersRecertification(t *testing.T) {
	// GIVEN: A certified day group
	// WHEN: One session's hours change
	// THEN: The whole certified group moves to pending_hr_recertification
	//       and every sibling's amount is recomputed

	m := testMachine()
	group := testGroup(engine.StatusHRCertified, engine.StatusHRCertified)
	// Price the group first so we can observe the re-price.
	priced, err := m.Aggregator.Aggregate(group, "non_executive", money("3000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := m.EditSession(priced, gctx(), "a",
		engine.NewTimeOfDay(18, 0), engine.NewTimeOfDay(22, 0), // 2h -> 4h
		engine.ExactRounding{}, "emp-1", actAt())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range result.Sessions {
		if s.Status != engine.StatusPendingHRRecertification {
			t.Errorf("session %s: got %s, want pending_hr_recertification", s.ID, s.Status)
		}
	}

	// Day is now 6 hours: 14.4230... * 6 * 1.5 = 129.81; 4h session
	// gets 86.54, 2h sibling absorbs 43.27.
	byID := map[engine.SessionID]engine.OTSession{}
	for _, s := range result.Sessions {
		byID[s.ID] = s
	}
	if !byID["a"].Amount.Equal(money("86.54")) {
		t.Errorf("edited session amount = %s, want 86.54", byID["a"].Amount)
	}
	if !byID["b"].Amount.Equal(money("43.27")) {
		t.Errorf("sibling amount = %s, want 43.27", byID["b"].Amount)
	}
	if len(result.Events) != 2 {
		t.Errorf("expected recertification events for both sessions, got %d", len(result.Events))
	}

	// HR may act on the re-entrant state.
	if !engine.CanActOn(engine.RoleHR, engine.StatusPendingHRRecertification) {
		t.Error("hr must be able to re-certify")
	}
	if engine.CanActOn(engine.RoleSupervisor, engine.StatusPendingHRRecertification) {
		t.Error("supervisor must not act on recertification state")
	}
}

func TestEditSession_UncertifiedGroupJustReprices(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification)

	result, err := m.EditSession(group, gctx(), "a",
		engine.NewTimeOfDay(18, 0), engine.NewTimeOfDay(21, 0),
		engine.ExactRounding{}, "emp-1", actAt())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sessions[0].Status != engine.StatusPendingVerification {
		t.Errorf("status must not change, got %s", result.Sessions[0].Status)
	}
	if !result.Sessions[0].TotalHours.Equal(money("3")) {
		t.Errorf("hours = %s, want 3", result.Sessions[0].TotalHours)
	}
	if len(result.Events) != 0 {
		t.Error("no recertification events expected")
	}
}

func TestEditSession_ApprovedGroupRefusesEdits(t *testing.T) {
	m := testMachine()
	group := testGroup(engine.StatusPendingVerification, engine.StatusManagementApproved)

	_, err := m.EditSession(group, gctx(), "a",
		engine.NewTimeOfDay(18, 0), engine.NewTimeOfDay(21, 0),
		engine.ExactRounding{}, "emp-1", actAt())
	if !errors.Is(err, engine.ErrInvalidTransition) {
		t.Errorf("paid-out group must refuse edits, got %v", err)
	}
}

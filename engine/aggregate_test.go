package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
)

func testAggregator(formulas ...engine.RateFormula) *engine.DailyAggregator {
	if len(formulas) == 0 {
		formulas = []engine.RateFormula{
			weekdayFormula("f-std", "non_executive", engine.NewDate(2025, time.January, 1)),
		}
	}
	return &engine.DailyAggregator{Rates: engine.StaticRates(formulas)}
}

func session(id string, hours string, createdMinute int) engine.OTSession {
	return engine.OTSession{
		ID:         engine.SessionID(id),
		EmployeeID: "emp-1",
		Date:       engine.NewDate(2026, time.March, 10), // Tuesday
		DayType:    engine.DayWeekday,
		TotalHours: money(hours),
		Status:     engine.StatusPendingVerification,
		CreatedAt:  time.Date(2026, time.March, 10, 21, createdMinute, 0, 0, time.UTC),
	}
}

func TestAggregate_TwoEqualSessionsSplitEvenly(t *testing.T) {
	// GIVEN: Basic=3000, two 2-hour sessions on one weekday
	// THEN: Day prices to 86.54 and each session receives 43.27

	agg := testAggregator()
	group := []engine.OTSession{
		session("s-1", "2", 0),
		session("s-2", "2", 5),
	}

	priced, err := agg.Aggregate(group, "non_executive", money("3000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !priced[0].Amount.Equal(money("43.27")) || !priced[1].Amount.Equal(money("43.27")) {
		t.Errorf("expected 43.27 each, got %s and %s", priced[0].Amount, priced[1].Amount)
	}
	if !priced[0].ORP.Equal(money("14.42")) {
		t.Errorf("sessions carry the day ORP, got %s", priced[0].ORP)
	}
}

func TestAggregate_ApportionmentSumsExactly(t *testing.T) {
	// GIVEN: Hour splits chosen to force rounding on every share
	// THEN: The last session absorbs the remainder; the group sums to
	//       the day amount exactly, no cent lost or gained

	agg := testAggregator()
	cases := [][]string{
		{"1", "1", "1"},
		{"0.5", "1.25", "2.75"},
		{"1.33", "2.67"},
		{"0.01", "7.99"},
		{"3.5"},
	}
	for _, hours := range cases {
		var group []engine.OTSession
		total := decimal.Zero
		for i, h := range hours {
			group = append(group, session(string(rune('a'+i)), h, i))
			total = total.Add(money(h))
		}

		priced, err := agg.Aggregate(group, "non_executive", money("3000"))
		if err != nil {
			t.Fatalf("hours %v: unexpected error: %v", hours, err)
		}

		formula := weekdayFormula("f-std", "non_executive", engine.NewDate(2025, time.January, 1))
		day, err := engine.CalculatePay(money("3000"), engine.DayWeekday, total, formula)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sum := decimal.Zero
		for _, s := range priced {
			sum = sum.Add(s.Amount)
		}
		if !sum.Equal(day.Amount) {
			t.Errorf("hours %v: apportioned %s != day amount %s", hours, sum, day.Amount)
		}
	}
}

func TestAggregate_ZeroHoursDay(t *testing.T) {
	// GIVEN: A group whose sessions total zero hours
	// THEN: Every amount is exactly 0 and no division error escapes

	agg := testAggregator()
	group := []engine.OTSession{
		session("s-1", "0", 0),
		session("s-2", "0", 5),
	}

	priced, err := agg.Aggregate(group, "non_executive", money("3000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range priced {
		if !s.Amount.IsZero() {
			t.Errorf("session %s: expected 0, got %s", s.ID, s.Amount)
		}
	}
}

func TestAggregate_LastInCreationOrderAbsorbsRemainder(t *testing.T) {
	agg := testAggregator()
	// Submitted out of order; aggregation sorts by creation time.
	group := []engine.OTSession{
		session("s-late", "1", 30),
		session("s-early", "2", 0),
	}

	priced, err := agg.Aggregate(group, "non_executive", money("3000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if priced[0].ID != "s-early" || priced[1].ID != "s-late" {
		t.Fatalf("expected creation order, got %s then %s", priced[0].ID, priced[1].ID)
	}

	// Day: 3 hours -> 14.4230... * 3 * 1.5 = 64.90 (rounded)
	// s-early share: 64.90 * 2/3 = 43.27 (rounded); s-late absorbs 21.63
	if !priced[0].Amount.Equal(money("43.27")) {
		t.Errorf("s-early = %s, want 43.27", priced[0].Amount)
	}
	if !priced[1].Amount.Equal(money("21.63")) {
		t.Errorf("s-late = %s, want 21.63", priced[1].Amount)
	}
}

func TestAggregate_RejectsMixedGroup(t *testing.T) {
	agg := testAggregator()
	other := session("s-2", "2", 5)
	other.Date = other.Date.AddDays(1)

	_, err := agg.Aggregate([]engine.OTSession{session("s-1", "2", 0), other}, "non_executive", money("3000"))
	if !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for multi-date group, got %v", err)
	}
}

func TestAggregate_FormulaFailureLeavesGroupUntouched(t *testing.T) {
	bad := weekdayFormula("f-bad", "non_executive", engine.NewDate(2025, time.January, 1))
	bad.BaseFormula = "ORP/0"
	agg := testAggregator(bad)

	group := []engine.OTSession{session("s-1", "2", 0)}
	_, err := agg.Aggregate(group, "non_executive", money("3000"))
	if !errors.Is(err, engine.ErrFormulaEvaluation) {
		t.Fatalf("expected ErrFormulaEvaluation, got %v", err)
	}
	if !group[0].Amount.IsZero() {
		t.Error("input sessions must not be mutated on failure")
	}
}

func TestAggregate_RejectedSiblingStaysFrozen(t *testing.T) {
	// GIVEN: Tier break at 4 hours with a 2x uplift beyond, a rejected
	//        4-hour session priced at 57.69, and a fresh 4-hour
	//        replacement on the same day
	// THEN: The replacement prices on its own 4 hours (57.69); the
	//       rejected session keeps its stored price, and its hours never
	//       push the day into the uplift tier

	tiered := weekdayFormula("f-tier", "non_executive", engine.NewDate(2025, time.January, 1))
	tiered.Multiplier = decimal.NewFromInt(1)
	tiered.BaseFormula = "IF(Hours <= 4, HRP*Hours, HRP*4 + HRP*2*(Hours - 4))"
	agg := testAggregator(tiered)

	rejected := session("s-rejected", "4", 0)
	rejected.Status = engine.StatusRejected
	rejected.ORP = money("14.42")
	rejected.HRP = money("14.42")
	rejected.Amount = money("57.69")
	fresh := session("s-fresh", "4", 5)

	priced, err := agg.Aggregate([]engine.OTSession{rejected, fresh}, "non_executive", money("3000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := make(map[engine.SessionID]engine.OTSession, len(priced))
	for _, s := range priced {
		byID[s.ID] = s
	}
	if !byID["s-fresh"].Amount.Equal(money("57.69")) {
		t.Errorf("replacement = %s, want 57.69 priced on its own hours", byID["s-fresh"].Amount)
	}
	if !byID["s-rejected"].Amount.Equal(money("57.69")) {
		t.Errorf("rejected session re-priced to %s, must stay 57.69", byID["s-rejected"].Amount)
	}
}

func TestAggregate_ApprovedSiblingKeepsStoredPrice(t *testing.T) {
	// A paid-out session's amount must survive later same-day
	// submissions; only the live session is priced.

	agg := testAggregator()
	approved := session("s-paid", "4", 0)
	approved.Status = engine.StatusManagementApproved
	approved.ORP = money("14.42")
	approved.HRP = money("14.42")
	approved.Amount = money("86.54")
	fresh := session("s-new", "2", 5)

	priced, err := agg.Aggregate([]engine.OTSession{approved, fresh}, "non_executive", money("3000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := make(map[engine.SessionID]engine.OTSession, len(priced))
	for _, s := range priced {
		byID[s.ID] = s
	}
	if !byID["s-paid"].Amount.Equal(money("86.54")) {
		t.Errorf("approved session re-priced to %s, must stay 86.54", byID["s-paid"].Amount)
	}
	// 2 live hours alone: 14.4230... * 2 * 1.5 = 43.27
	if !byID["s-new"].Amount.Equal(money("43.27")) {
		t.Errorf("live session = %s, want 43.27", byID["s-new"].Amount)
	}
}

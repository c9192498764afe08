package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFormulaRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	to := engine.NewDate(2026, time.December, 31)
	original := engine.RateFormula{
		ID:               "weekday-nonexec",
		DayType:          engine.DayWeekday,
		EmployeeCategory: "non_executive",
		Multiplier:       decimal.RequireFromString("1.5"),
		ORPDefinition:    "Basic/26/8",
		HRPDefinition:    "ORP",
		BaseFormula:      "HRP*Hours",
		EffectiveFrom:    engine.NewDate(2026, time.January, 1),
		EffectiveTo:      &to,
		Active:           true,
	}
	if err := s.SaveFormula(ctx, original); err != nil {
		t.Fatalf("SaveFormula: %v", err)
	}

	formulas, err := s.ListFormulas(ctx)
	if err != nil {
		t.Fatalf("ListFormulas: %v", err)
	}
	if len(formulas) != 1 {
		t.Fatalf("expected 1 formula, got %d", len(formulas))
	}
	got := formulas[0]
	if got.ID != original.ID || got.BaseFormula != original.BaseFormula {
		t.Errorf("identity changed: %+v", got)
	}
	if !got.Multiplier.Equal(original.Multiplier) {
		t.Errorf("multiplier = %s, want 1.5", got.Multiplier)
	}
	if got.EffectiveTo == nil || !got.EffectiveTo.Equal(to) {
		t.Errorf("effective_to = %v, want %s", got.EffectiveTo, to)
	}

	// Upsert: same ID replaces, never duplicates.
	original.Multiplier = decimal.RequireFromString("2")
	if err := s.SaveFormula(ctx, original); err != nil {
		t.Fatalf("SaveFormula upsert: %v", err)
	}
	formulas, _ = s.ListFormulas(ctx)
	if len(formulas) != 1 || !formulas[0].Multiplier.Equal(decimal.NewFromInt(2)) {
		t.Errorf("upsert failed: %+v", formulas)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	daily := decimal.NewFromInt(4)
	if err := s.SaveRule(ctx, engine.ThresholdRule{
		ID:              "org-cap",
		Name:            "Statutory cap",
		DailyLimitHours: &daily,
		Departments:     []string{"engineering", "finance"},
		AutoBlock:       true,
		Active:          true,
	}); err != nil {
		t.Fatalf("SaveRule: %v", err)
	}

	rules, err := s.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	got := rules[0]
	if got.DailyLimitHours == nil || !got.DailyLimitHours.Equal(daily) {
		t.Errorf("daily limit = %v, want 4", got.DailyLimitHours)
	}
	if got.WeeklyLimitHours != nil {
		t.Error("unset limit must come back nil")
	}
	if len(got.Departments) != 2 || !got.AutoBlock {
		t.Errorf("scope lost: %+v", got)
	}
}

func TestSessionGroupRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDate(2026, time.March, 10)
	createdAt := time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)

	group := []engine.OTSession{
		{
			ID:         "s-1",
			EmployeeID: "emp-1",
			Date:       date,
			Start:      engine.NewTimeOfDay(18, 0),
			End:        engine.NewTimeOfDay(20, 0),
			TotalHours: decimal.NewFromInt(2),
			DayType:    engine.DayWeekday,
			Reason:     "release support",
			Status:     engine.StatusPendingVerification,
			ORP:        decimal.RequireFromString("14.42"),
			HRP:        decimal.RequireFromString("14.42"),
			Amount:     decimal.RequireFromString("43.27"),
			CreatedAt:  createdAt,
			UpdatedAt:  createdAt,
		},
		{
			ID:          "s-2",
			EmployeeID:  "emp-1",
			Date:        date,
			Start:       engine.NewTimeOfDay(20, 0),
			End:         engine.NewTimeOfDay(22, 0),
			TotalHours:  decimal.NewFromInt(2),
			DayType:     engine.DayWeekday,
			Attachments: []string{"gate-log.pdf"},
			Status:      engine.StatusSupervisorVerified,
			ORP:         decimal.RequireFromString("14.42"),
			HRP:         decimal.RequireFromString("14.42"),
			Amount:      decimal.RequireFromString("43.27"),
			Verified: &engine.StageAudit{
				ActorID: "sup-1",
				At:      createdAt.Add(time.Hour),
				Remarks: "confirmed on site",
			},
			CreatedAt: createdAt.Add(time.Minute),
			UpdatedAt: createdAt.Add(time.Hour),
		},
	}
	if err := s.SaveGroup(ctx, group); err != nil {
		t.Fatalf("SaveGroup: %v", err)
	}

	loaded, err := s.GroupSessions(ctx, "emp-1", date)
	if err != nil {
		t.Fatalf("GroupSessions: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(loaded))
	}
	// Creation order preserved
	if loaded[0].ID != "s-1" || loaded[1].ID != "s-2" {
		t.Errorf("order = %s, %s", loaded[0].ID, loaded[1].ID)
	}
	if loaded[1].Verified == nil || loaded[1].Verified.ActorID != "sup-1" {
		t.Errorf("stage audit lost: %+v", loaded[1].Verified)
	}
	if len(loaded[1].Attachments) != 1 {
		t.Errorf("attachments lost: %+v", loaded[1].Attachments)
	}
	if !loaded[0].Amount.Equal(decimal.RequireFromString("43.27")) {
		t.Errorf("amount = %s", loaded[0].Amount)
	}

	// Status queue and range queries see the same rows.
	verified, err := s.SessionsByStatus(ctx, engine.StatusSupervisorVerified)
	if err != nil || len(verified) != 1 {
		t.Fatalf("SessionsByStatus: %v (%d rows)", err, len(verified))
	}
	inRange, err := s.SessionsInRange(ctx, "emp-1",
		engine.NewDate(2026, time.March, 1), engine.NewDate(2026, time.March, 31))
	if err != nil || len(inRange) != 2 {
		t.Fatalf("SessionsInRange: %v (%d rows)", err, len(inRange))
	}
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)

	entries := []engine.AuditEntry{
		{ID: "a-1", At: at, ActorID: "emp-1", ActorRole: engine.RoleEmployee,
			EmployeeID: "emp-1", SessionID: "s-1", ToStatus: engine.StatusPendingVerification},
		{ID: "a-2", At: at.Add(time.Hour), ActorID: "sup-1", ActorRole: engine.RoleSupervisor,
			EmployeeID: "emp-1", SessionID: "s-1",
			FromStatus: engine.StatusPendingVerification, ToStatus: engine.StatusSupervisorVerified},
	}
	for _, e := range entries {
		if err := s.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	trail, err := s.AuditForSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("AuditForSession: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(trail))
	}
	if trail[0].ID != "a-1" || trail[1].ActorRole != engine.RoleSupervisor {
		t.Errorf("trail order or content wrong: %+v", trail)
	}
}

func TestHolidayCalendar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDate(2026, time.June, 1)

	if err := s.SaveHoliday(ctx, date, "Gawai Dayak"); err != nil {
		t.Fatalf("SaveHoliday: %v", err)
	}
	if !s.IsPublicHoliday(date) {
		t.Error("saved holiday not recognized")
	}
	if s.IsPublicHoliday(date.AddDays(1)) {
		t.Error("plain day reported as holiday")
	}
	if got := engine.DayTypeOf(s, date); got != engine.DayPublicHoliday {
		t.Errorf("DayTypeOf = %s, want public_holiday", got)
	}

	holidays, err := s.ListHolidays(ctx, 2026)
	if err != nil || len(holidays) != 1 {
		t.Fatalf("ListHolidays: %v (%d rows)", err, len(holidays))
	}
	if err := s.DeleteHoliday(ctx, date, "Gawai Dayak"); err != nil {
		t.Fatalf("DeleteHoliday: %v", err)
	}
	if s.IsPublicHoliday(date) {
		t.Error("deleted holiday still recognized")
	}
}

package factory_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/factory"
)

func TestParseFormula_FullDefinition(t *testing.T) {
	// GIVEN: a complete JSON formula definition
	// WHEN: parsing it
	// THEN: every field lands on the engine struct
	jsonStr := `{
		"id": "weekday-nonexec",
		"day_type": "weekday",
		"employee_category": "non_executive",
		"multiplier": "1.5",
		"orp_definition": "Basic/26/8",
		"hrp_definition": "ORP",
		"base_formula": "HRP*Hours",
		"effective_from": "2026-01-01",
		"effective_to": "2026-12-31"
	}`

	f, err := factory.NewFormulaFactory().ParseFormula(jsonStr)
	if err != nil {
		t.Fatalf("ParseFormula: %v", err)
	}
	if f.ID != "weekday-nonexec" || f.DayType != engine.DayWeekday {
		t.Errorf("identity fields wrong: %+v", f)
	}
	if !f.Multiplier.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("multiplier = %s, want 1.5", f.Multiplier)
	}
	if f.EffectiveTo == nil || f.EffectiveTo.String() != "2026-12-31" {
		t.Errorf("effective_to = %v", f.EffectiveTo)
	}
	if !f.Active {
		t.Error("active must default to true")
	}
}

func TestParseFormula_Defaults(t *testing.T) {
	// Category defaults to the wildcard, HRP to a straight ORP
	// passthrough.
	jsonStr := `{
		"id": "weekday-any",
		"day_type": "weekday",
		"multiplier": "1.5",
		"orp_definition": "Basic/26/8",
		"base_formula": "HRP*Hours",
		"effective_from": "2026-01-01"
	}`

	f, err := factory.NewFormulaFactory().ParseFormula(jsonStr)
	if err != nil {
		t.Fatalf("ParseFormula: %v", err)
	}
	if f.EmployeeCategory != engine.WildcardCategory {
		t.Errorf("category = %q, want wildcard", f.EmployeeCategory)
	}
	if f.HRPDefinition != "ORP" {
		t.Errorf("hrp = %q, want ORP", f.HRPDefinition)
	}
	if f.EffectiveTo != nil {
		t.Errorf("open-ended formula must have nil effective_to")
	}
}

func TestParseFormula_RejectsBadExpression(t *testing.T) {
	// A typo in any expression is caught at parse time, never at payout.
	jsonStr := `{
		"id": "broken",
		"day_type": "weekday",
		"multiplier": "1.5",
		"orp_definition": "Basic/26/8",
		"base_formula": "HRP**Hours",
		"effective_from": "2026-01-01"
	}`

	_, err := factory.NewFormulaFactory().ParseFormula(jsonStr)
	if !errors.Is(err, engine.ErrFormulaSyntax) {
		t.Fatalf("expected formula syntax error, got %v", err)
	}
}

func TestParseFormula_FieldValidation(t *testing.T) {
	cases := []struct {
		name    string
		jsonStr string
	}{
		{"missing id", `{"day_type":"weekday","multiplier":"1.5","orp_definition":"Basic/26/8","base_formula":"HRP*Hours","effective_from":"2026-01-01"}`},
		{"unknown day type", `{"id":"x","day_type":"midweek","multiplier":"1.5","orp_definition":"Basic/26/8","base_formula":"HRP*Hours","effective_from":"2026-01-01"}`},
		{"bad multiplier", `{"id":"x","day_type":"weekday","multiplier":"one-point-five","orp_definition":"Basic/26/8","base_formula":"HRP*Hours","effective_from":"2026-01-01"}`},
		{"negative multiplier", `{"id":"x","day_type":"weekday","multiplier":"-1.5","orp_definition":"Basic/26/8","base_formula":"HRP*Hours","effective_from":"2026-01-01"}`},
		{"bad date", `{"id":"x","day_type":"weekday","multiplier":"1.5","orp_definition":"Basic/26/8","base_formula":"HRP*Hours","effective_from":"01/01/2026"}`},
		{"inverted range", `{"id":"x","day_type":"weekday","multiplier":"1.5","orp_definition":"Basic/26/8","base_formula":"HRP*Hours","effective_from":"2026-06-01","effective_to":"2026-01-01"}`},
		{"missing base", `{"id":"x","day_type":"weekday","multiplier":"1.5","orp_definition":"Basic/26/8","effective_from":"2026-01-01"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.NewFormulaFactory().ParseFormula(tc.jsonStr)
			if !errors.Is(err, engine.ErrInvalidArgument) {
				t.Fatalf("expected invalid argument error, got %v", err)
			}
		})
	}
}

func TestFormulaJSONRoundTrip(t *testing.T) {
	f := factory.NewFormulaFactory()
	original, err := f.ParseFormula(`{
		"id": "holiday-exec",
		"day_type": "public_holiday",
		"employee_category": "executive",
		"multiplier": "3",
		"orp_definition": "Basic/26/8",
		"hrp_definition": "ORP*1.1",
		"base_formula": "IF(Hours > 8, HRP*8 + HRP*2*(Hours-8), HRP*Hours)",
		"effective_from": "2026-01-01"
	}`)
	if err != nil {
		t.Fatalf("ParseFormula: %v", err)
	}

	back, err := f.FromJSON(f.ToJSON(original))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back.ID != original.ID || back.BaseFormula != original.BaseFormula || !back.Multiplier.Equal(original.Multiplier) {
		t.Errorf("round trip changed the formula:\n  in:  %+v\n  out: %+v", original, back)
	}
}

func TestParseRule_LimitsAndDefaults(t *testing.T) {
	rule, err := factory.NewRuleFactory().ParseRule(`{
		"id": "org-cap",
		"name": "Statutory cap",
		"daily_limit_hours": "4",
		"max_claimable_amount": "2000",
		"departments": ["engineering"],
		"auto_block": true
	}`)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if rule.DailyLimitHours == nil || !rule.DailyLimitHours.Equal(decimal.NewFromInt(4)) {
		t.Errorf("daily limit = %v, want 4", rule.DailyLimitHours)
	}
	if rule.WeeklyLimitHours != nil || rule.MonthlyLimitHours != nil {
		t.Error("absent limits must stay nil")
	}
	if !rule.AutoBlock || !rule.Active {
		t.Errorf("auto_block=%v active=%v, want both true", rule.AutoBlock, rule.Active)
	}
}

func TestParseRule_RejectsNegativeLimit(t *testing.T) {
	_, err := factory.NewRuleFactory().ParseRule(`{"id":"x","weekly_limit_hours":"-1"}`)
	if !errors.Is(err, engine.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
}

/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON rate formula and threshold rule definitions into engine
  structs. This enables configuration without code changes - HR can
  define formulas in JSON, and the factory creates the proper Go
  structs after validating every expression.

WHY JSON?
  - Non-developers can modify rates and limits
  - Easy integration with admin UI
  - Version control for rate definitions
  - Database storage of configurations

JSON SCHEMA (rate formula):
  {
    "id": "weekday-nonexec",
    "day_type": "weekday",
    "employee_category": "non_executive",
    "multiplier": "1.5",
    "orp_definition": "Basic/26/8",
    "hrp_definition": "ORP",
    "base_formula": "HRP*Hours",
    "effective_from": "2026-01-01",
    "effective_to": "2026-12-31",
    "active": true
  }

KEY FEATURES:
  - Validates every expression before the formula can be saved
  - Sets sensible defaults (wildcard category, ORP passthrough HRP)
  - Round-trips back to JSON for admin screens

USAGE:
  factory := NewFormulaFactory()
  formula, err := factory.ParseFormula(jsonString)
  if err != nil { ... }  // syntax issues reported per expression
  store.SaveFormula(ctx, formula)

SEE ALSO:
  - engine/rate.go: RateFormula definition and resolution
  - payroll/formulas.go: Go-based preset formula catalog
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FormulaJSON is the JSON representation of a rate formula.
type FormulaJSON struct {
	ID               string `json:"id"`
	DayType          string `json:"day_type"`
	EmployeeCategory string `json:"employee_category,omitempty"` // Default "*"
	Multiplier       string `json:"multiplier"`
	ORPDefinition    string `json:"orp_definition"`
	HRPDefinition    string `json:"hrp_definition,omitempty"` // Default "ORP"
	BaseFormula      string `json:"base_formula"`
	EffectiveFrom    string `json:"effective_from"`
	EffectiveTo      string `json:"effective_to,omitempty"`
	Active           *bool  `json:"active,omitempty"` // Default true
}

// =============================================================================
// FORMULA FACTORY
// =============================================================================

// FormulaFactory converts JSON rate formulas to engine structs.
type FormulaFactory struct{}

// NewFormulaFactory creates a new formula factory.
func NewFormulaFactory() *FormulaFactory {
	return &FormulaFactory{}
}

// ParseFormula parses a JSON string into a validated RateFormula.
func (f *FormulaFactory) ParseFormula(jsonStr string) (engine.RateFormula, error) {
	var fj FormulaJSON
	if err := json.Unmarshal([]byte(jsonStr), &fj); err != nil {
		return engine.RateFormula{}, fmt.Errorf("failed to parse formula JSON: %w", err)
	}
	return f.FromJSON(fj)
}

// FromJSON converts FormulaJSON to engine.RateFormula. Every expression
// is syntax-checked; a formula with issues never reaches the store.
func (f *FormulaFactory) FromJSON(fj FormulaJSON) (engine.RateFormula, error) {
	if fj.ID == "" {
		return engine.RateFormula{}, &engine.InvalidArgumentError{Field: "id", Detail: "required"}
	}
	if !engine.ValidDayType(fj.DayType) {
		return engine.RateFormula{}, &engine.InvalidArgumentError{
			Field:  "day_type",
			Detail: fmt.Sprintf("unknown day type %q", fj.DayType),
		}
	}

	multiplier, err := decimal.NewFromString(fj.Multiplier)
	if err != nil {
		return engine.RateFormula{}, &engine.InvalidArgumentError{
			Field:  "multiplier",
			Detail: fmt.Sprintf("invalid decimal %q", fj.Multiplier),
		}
	}
	if multiplier.IsNegative() {
		return engine.RateFormula{}, &engine.InvalidArgumentError{
			Field:  "multiplier",
			Detail: "must not be negative",
		}
	}

	formula := engine.RateFormula{
		ID:               fj.ID,
		DayType:          engine.DayType(fj.DayType),
		EmployeeCategory: fj.EmployeeCategory,
		Multiplier:       multiplier,
		ORPDefinition:    fj.ORPDefinition,
		HRPDefinition:    fj.HRPDefinition,
		BaseFormula:      fj.BaseFormula,
		Active:           true,
	}
	if formula.EmployeeCategory == "" {
		formula.EmployeeCategory = engine.WildcardCategory
	}
	if formula.HRPDefinition == "" {
		formula.HRPDefinition = "ORP"
	}
	if fj.Active != nil {
		formula.Active = *fj.Active
	}

	formula.EffectiveFrom, err = engine.ParseDate(fj.EffectiveFrom)
	if err != nil {
		return engine.RateFormula{}, &engine.InvalidArgumentError{Field: "effective_from", Detail: err.Error()}
	}
	if fj.EffectiveTo != "" {
		to, err := engine.ParseDate(fj.EffectiveTo)
		if err != nil {
			return engine.RateFormula{}, &engine.InvalidArgumentError{Field: "effective_to", Detail: err.Error()}
		}
		if to.Before(formula.EffectiveFrom) {
			return engine.RateFormula{}, &engine.InvalidArgumentError{
				Field:  "effective_to",
				Detail: "must not precede effective_from",
			}
		}
		formula.EffectiveTo = &to
	}

	if err := validateExpressions(formula); err != nil {
		return engine.RateFormula{}, err
	}
	return formula, nil
}

// ToJSON converts a RateFormula back to its JSON representation.
func (f *FormulaFactory) ToJSON(formula engine.RateFormula) FormulaJSON {
	fj := FormulaJSON{
		ID:               formula.ID,
		DayType:          string(formula.DayType),
		EmployeeCategory: formula.EmployeeCategory,
		Multiplier:       formula.Multiplier.String(),
		ORPDefinition:    formula.ORPDefinition,
		HRPDefinition:    formula.HRPDefinition,
		BaseFormula:      formula.BaseFormula,
		EffectiveFrom:    formula.EffectiveFrom.String(),
		Active:           &formula.Active,
	}
	if formula.EffectiveTo != nil {
		fj.EffectiveTo = formula.EffectiveTo.String()
	}
	return fj
}

// validateExpressions runs the syntax checker over the three
// expressions a formula carries and folds any findings into one error.
func validateExpressions(formula engine.RateFormula) error {
	expressions := []struct {
		field string
		expr  string
	}{
		{"orp_definition", formula.ORPDefinition},
		{"hrp_definition", formula.HRPDefinition},
		{"base_formula", formula.BaseFormula},
	}
	for _, e := range expressions {
		if e.expr == "" {
			return &engine.InvalidArgumentError{Field: e.field, Detail: "required"}
		}
		if issues := engine.ValidateSyntax(e.expr); len(issues) > 0 {
			return &engine.FormulaSyntaxError{Expression: e.expr, Issues: issues}
		}
	}
	return nil
}

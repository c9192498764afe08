/*
pay.go - Daily OT amount computation from a resolved rate formula

PURPOSE:
  Turns (basic salary, day type, total hours, formula) into the day's
  ORP, HRP, and OT amount. The three expressions evaluate in sequence
  because later ones may reference earlier results:

    1. orp_definition  with {Basic}                  -> ORP
    2. hrp_definition  with {Basic, ORP}             -> HRP
    3. base_formula    with {Hours, ORP, HRP, Basic} -> raw amount
    4. raw amount * multiplier, rounded half-up to 2dp

ATOMIC FAILURE:
  If any sub-expression fails, the whole calculation fails with the
  underlying formula error and no partial values are returned.

PRECISION:
  Expressions evaluate in float64 (see formula.go); intermediate ORP/HRP
  feed the next step unrounded so no precision is lost mid-chain. The
  reported ORP/HRP and the final amount are rounded to 2 decimal places
  at the decimal boundary.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// PayResult holds the priced day. All values are rounded to 2dp.
type PayResult struct {
	ORP    decimal.Decimal
	HRP    decimal.Decimal
	Amount decimal.Decimal
}

// CalculatePay prices one day's total OT hours with the given formula.
// The dayType argument guards against resolver/caller mismatches: the
// formula must have been resolved for the same day type.
func CalculatePay(basicSalary decimal.Decimal, dayType DayType, totalHours decimal.Decimal, formula RateFormula) (PayResult, error) {
	if formula.DayType != dayType {
		return PayResult{}, &InvalidArgumentError{
			Field:  "formula",
			Detail: "formula day type " + string(formula.DayType) + " does not match " + string(dayType),
		}
	}
	if totalHours.IsNegative() {
		return PayResult{}, &InvalidArgumentError{Field: "totalHours", Detail: "must be non-negative"}
	}

	basic := basicSalary.InexactFloat64()

	orp, err := Evaluate(formula.ORPDefinition, map[string]float64{
		"Basic": basic,
	})
	if err != nil {
		return PayResult{}, err
	}

	hrp, err := Evaluate(formula.HRPDefinition, map[string]float64{
		"Basic": basic,
		"ORP":   orp,
	})
	if err != nil {
		return PayResult{}, err
	}

	base, err := Evaluate(formula.BaseFormula, map[string]float64{
		"Hours": totalHours.InexactFloat64(),
		"ORP":   orp,
		"HRP":   hrp,
		"Basic": basic,
	})
	if err != nil {
		return PayResult{}, err
	}

	amount := decimal.NewFromFloat(base).Mul(formula.Multiplier)

	return PayResult{
		ORP:    decimal.NewFromFloat(orp).Round(2),
		HRP:    decimal.NewFromFloat(hrp).Round(2),
		Amount: amount.Round(2),
	}, nil
}

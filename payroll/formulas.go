/*
formulas.go - Pre-built rate formula and threshold configurations

PURPOSE:
  Ready-to-use rate formulas for the common statutory pattern: OT on a
  working day pays 1.5x the hourly rate, rest days pay 2x, public
  holidays pay 3x. The ordinary rate of pay derives from basic salary
  over 26 working days of 8 hours.

  These are starting points. Real deployments configure per-category
  formulas and effective date ranges through the factory package.

EXAMPLE:
  formulas := payroll.StandardFormulaSet(engine.NewDate(2026, 1, 1))
  for _, f := range formulas {
      store.SaveFormula(ctx, f)
  }

SEE ALSO:
  - factory/formula.go: JSON-based formula creation with validation
  - engine/rate.go: RateFormula definition and resolution
*/
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
)

// Statutory ORP convention: monthly basic over 26 working days of
// 8 hours each.
const standardORP = "Basic/26/8"

func standardFormula(id string, dayType engine.DayType, multiplier float64, base string, from engine.Date) engine.RateFormula {
	return engine.RateFormula{
		ID:               id,
		DayType:          dayType,
		EmployeeCategory: engine.WildcardCategory,
		Multiplier:       decimal.NewFromFloat(multiplier),
		ORPDefinition:    standardORP,
		HRPDefinition:    "ORP",
		BaseFormula:      base,
		EffectiveFrom:    from,
		Active:           true,
	}
}

// StandardFormulaSet returns the common statutory formula catalog:
// 1.5x on weekdays, 2x on rest days, 3x on public holidays, for all
// employee categories.
func StandardFormulaSet(from engine.Date) []engine.RateFormula {
	return []engine.RateFormula{
		standardFormula("std-weekday", engine.DayWeekday, 1.5, "HRP*Hours", from),
		standardFormula("std-saturday", engine.DaySaturday, 2.0, "HRP*Hours", from),
		standardFormula("std-sunday", engine.DaySunday, 2.0, "HRP*Hours", from),
		standardFormula("std-holiday", engine.DayPublicHoliday, 3.0, "HRP*Hours", from),
	}
}

// TieredWeekdayFormula pays the ordinary rate for the first threshold
// hours and an uplifted rate beyond, as one marginal-hour expression.
// Pricing the day as a whole group makes the tier break correct no
// matter how the employee split the day into sessions.
func TieredWeekdayFormula(id string, from engine.Date, thresholdHours, upliftFactor float64) engine.RateFormula {
	f := standardFormula(id, engine.DayWeekday, 1.0, "", from)
	f.BaseFormula = tieredBase(thresholdHours, upliftFactor)
	return f
}

func tieredBase(threshold, uplift float64) string {
	t := decimal.NewFromFloat(threshold).String()
	u := decimal.NewFromFloat(uplift).String()
	return "IF(Hours <= " + t + ", HRP*Hours, HRP*" + t + " + HRP*" + u + "*(Hours - " + t + "))"
}

// DefaultThresholdRule returns a permissive organisation-wide rule:
// flag anything over 4 daily / 24 weekly / 104 monthly hours, without
// auto-blocking.
func DefaultThresholdRule(id string) engine.ThresholdRule {
	daily := decimal.NewFromInt(4)
	weekly := decimal.NewFromInt(24)
	monthly := decimal.NewFromInt(104)
	return engine.ThresholdRule{
		ID:                id,
		Name:              "Statutory OT ceiling",
		DailyLimitHours:   &daily,
		WeeklyLimitHours:  &weekly,
		MonthlyLimitHours: &monthly,
		Active:            true,
	}
}

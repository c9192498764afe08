/*
rate.go - Rate formula records and resolution

PURPOSE:
  A RateFormula bundles the three expressions (ORP, HRP, base) plus a
  multiplier for one (day type, employee category) combination, bounded
  by an effective date range. ResolveRate picks the single applicable
  formula for a calculation date.

SELECTION RULES (deterministic):
  1. Only active formulas with matching day type are considered.
  2. Exact category match beats the wildcard category "*".
  3. The date must fall in [effective_from, effective_to]; a missing
     effective_to means open-ended.
  4. Among remaining candidates the latest effective_from wins - the
     most recent rule supersedes older overlapping ones.
  5. Identical effective_from ties break on ID, so selection never
     depends on input order.

  No match is a RateNotFoundError, never a silent default.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// WildcardCategory matches any employee category. An exact category
// match always wins over a wildcard formula.
const WildcardCategory = "*"

// RateFormula is one configured pay rule. The expression fields hold
// formula-language source (see formula.go), validated on save by the
// factory package.
type RateFormula struct {
	ID               string
	DayType          DayType
	EmployeeCategory string
	Multiplier       decimal.Decimal
	ORPDefinition    string
	HRPDefinition    string
	BaseFormula      string
	EffectiveFrom    Date
	EffectiveTo      *Date // nil = open-ended
	Active           bool
}

// InEffect reports whether the formula covers the given date.
func (f RateFormula) InEffect(date Date) bool {
	if date.Before(f.EffectiveFrom) {
		return false
	}
	if f.EffectiveTo != nil && date.After(*f.EffectiveTo) {
		return false
	}
	return true
}

// ResolveRate selects the single applicable formula for an employee
// category and day type on a date. See the selection rules above.
func ResolveRate(formulas []RateFormula, category string, dayType DayType, date Date) (RateFormula, error) {
	var exact, wildcard []RateFormula
	for _, f := range formulas {
		if !f.Active || f.DayType != dayType || !f.InEffect(date) {
			continue
		}
		switch f.EmployeeCategory {
		case category:
			exact = append(exact, f)
		case WildcardCategory:
			wildcard = append(wildcard, f)
		}
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = wildcard
	}
	if len(candidates) == 0 {
		return RateFormula{}, &RateNotFoundError{Category: category, DayType: dayType, Date: date}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.After(b.EffectiveFrom)
		}
		return a.ID > b.ID
	})
	return candidates[0], nil
}

// RateSource resolves the applicable formula for a pricing call.
// DailyAggregator and the approval machine depend on this instead of a
// concrete formula list so callers can plug in a store-backed resolver.
type RateSource interface {
	Resolve(category string, dayType DayType, date Date) (RateFormula, error)
}

// StaticRates adapts an in-memory formula list to RateSource.
type StaticRates []RateFormula

func (r StaticRates) Resolve(category string, dayType DayType, date Date) (RateFormula, error) {
	return ResolveRate(r, category, dayType, date)
}

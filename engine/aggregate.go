/*
aggregate.go - Day-group pricing and apportionment

PURPOSE:
  All OT sessions for one employee on one calendar day form a claim
  group that is priced as a whole: the day's total hours go through the
  pay calculation once, and the resulting day amount is apportioned
  back to each session in proportion to its hours. Pricing the day as a
  unit keeps marginal-hour rules (IF(Hours > x, ...)) correct no matter
  how the employee split the day into sessions, while still allowing
  independent approval per session.

TERMINAL SESSIONS:
  Rejected and management-approved sessions are frozen: their stored
  ORP/HRP/Amount never change, and their hours no longer shape the day
  total. A rejected session's hours must not push the replacement into
  a marginal-hour tier, and a paid-out session's amount must survive
  later same-day submissions unchanged.

APPORTIONMENT INVARIANT:
  sum(live session.Amount) == dayAmount, exactly to the cent. Every
  live session but the last gets its proportional share rounded to 2dp;
  the last live session in creation order absorbs the rounding
  remainder. A failed reconciliation is an
  AggregationInconsistencyError - a defensive assertion, not an
  expected path.

EDGE CASES:
  - live hours total 0: every live session prices to exactly 0, no
    division is performed.
  - Any formula failure aborts the whole group untouched.

CONCURRENCY:
  Pure function over an in-memory snapshot. The caller must serialize
  aggregation per (employee, date) key; see the service layer.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DailyAggregator prices claim groups. Rates supplies the single
// formula for the group's day type.
type DailyAggregator struct {
	Rates RateSource
}

// Aggregate recomputes ORP, HRP, and Amount for every live session of
// one claim group and returns the updated copy. Terminal sessions pass
// through with their stored price. Input sessions are not mutated. The
// group must be non-empty and homogeneous: one employee, one date.
func (a *DailyAggregator) Aggregate(sessions []OTSession, category string, basicSalary decimal.Decimal) ([]OTSession, error) {
	if len(sessions) == 0 {
		return nil, &InvalidArgumentError{Field: "sessions", Detail: "claim group is empty"}
	}
	employee, date := sessions[0].EmployeeID, sessions[0].Date
	for _, s := range sessions[1:] {
		if s.EmployeeID != employee || !s.Date.Equal(date) {
			return nil, &InvalidArgumentError{
				Field:  "sessions",
				Detail: "claim group spans more than one employee/date",
			}
		}
	}

	group := make([]OTSession, len(sessions))
	copy(group, sessions)
	sort.Slice(group, func(i, j int) bool {
		if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		}
		return group[i].ID < group[j].ID
	})

	// Terminal sessions keep their stored price and stay out of the day
	// total; only live sessions are (re)priced.
	var live []int
	dailyTotal := decimal.Zero
	for i, s := range group {
		if s.Status.IsTerminal() {
			continue
		}
		live = append(live, i)
		dailyTotal = dailyTotal.Add(s.TotalHours)
	}
	if len(live) == 0 {
		return group, nil
	}

	// Zero live hours price to zero across the board; skip resolution
	// and division entirely.
	if dailyTotal.IsZero() {
		for _, i := range live {
			group[i].ORP = decimal.Zero
			group[i].HRP = decimal.Zero
			group[i].Amount = decimal.Zero
		}
		return group, nil
	}

	formula, err := a.Rates.Resolve(category, group[live[0]].DayType, date)
	if err != nil {
		return nil, err
	}

	result, err := CalculatePay(basicSalary, group[live[0]].DayType, dailyTotal, formula)
	if err != nil {
		return nil, err
	}

	// Proportional apportionment; the last live session absorbs the
	// remainder so the live set sums to the day amount exactly.
	allocated := decimal.Zero
	for n, i := range live {
		group[i].ORP = result.ORP
		group[i].HRP = result.HRP
		if n == len(live)-1 {
			group[i].Amount = result.Amount.Sub(allocated)
		} else {
			share := result.Amount.Mul(group[i].TotalHours).Div(dailyTotal).Round(2)
			group[i].Amount = share
			allocated = allocated.Add(share)
		}
	}

	sum := decimal.Zero
	for _, i := range live {
		sum = sum.Add(group[i].Amount)
	}
	if !sum.Equal(result.Amount) {
		return nil, &AggregationInconsistencyError{
			EmployeeID:  employee,
			Date:        date,
			DayTotal:    result.Amount,
			Apportioned: sum,
		}
	}

	return group, nil
}

// DailyTotalHours sums claimed hours across a group, terminal sessions
// included. Display helper for day-group views.
func DailyTotalHours(sessions []OTSession) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sessions {
		total = total.Add(s.TotalHours)
	}
	return total
}

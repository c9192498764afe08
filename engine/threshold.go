/*
threshold.go - Hour and monetary limit evaluation

PURPOSE:
  Evaluates a prospective OT claim against configured limits and
  produces a structured violation report. Violations are flags for an
  operator, not enforcement: only a violated rule with auto_block set
  signals the caller to refuse the submission outright.

WINDOWS:
  daily    requested date's total hours (existing + requested)
  weekly   ISO-8601 week containing the requested date
  monthly  calendar month containing the requested date
  amount   OT money over the same calendar month + requested amount

  Rejected sessions do not count toward any window; everything else
  (pending through approved) does, so an employee cannot stage claims
  below the limit and push them through simultaneously.

MULTIPLE RULES:
  Every active rule in scope is evaluated and every rule's findings are
  reported independently - no deduplication, so an operator can see
  exactly which policy was breached. A rule's unset limits are skipped.
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// THRESHOLD RULE
// =============================================================================

// ThresholdRule is one configured limit set. Nil limits are not
// evaluated. Empty Departments/Roles mean the rule applies to everyone.
type ThresholdRule struct {
	ID   string
	Name string

	DailyLimitHours    *decimal.Decimal
	WeeklyLimitHours   *decimal.Decimal
	MonthlyLimitHours  *decimal.Decimal
	MaxClaimableAmount *decimal.Decimal

	Departments []string
	Roles       []string

	AutoBlock       bool
	AlertRecipients []string
	Active          bool
}

// AppliesTo reports whether the rule is in scope for an employee's
// department and role.
func (r ThresholdRule) AppliesTo(department, role string) bool {
	if !r.Active {
		return false
	}
	if len(r.Departments) > 0 && !contains(r.Departments, department) {
		return false
	}
	if len(r.Roles) > 0 && !contains(r.Roles, role) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// =============================================================================
// VIOLATION REPORT
// =============================================================================

type ViolationType string

const (
	ViolationDailyHours    ViolationType = "daily_hours"
	ViolationWeeklyHours   ViolationType = "weekly_hours"
	ViolationMonthlyHours  ViolationType = "monthly_hours"
	ViolationMonthlyAmount ViolationType = "monthly_amount"
)

// Violation is one exceeded limit, attributed to the rule that set it.
type Violation struct {
	RuleID     string
	RuleName   string
	Limit      decimal.Decimal
	Current    decimal.Decimal
	ExceededBy decimal.Decimal
	AutoBlock  bool
}

// ViolationReport maps violation type to the findings of every rule
// that flagged it. An empty report means no violations.
type ViolationReport map[ViolationType][]Violation

func (r ViolationReport) Empty() bool { return len(r) == 0 }

// AutoBlocked reports whether any violated rule demands the caller
// reject the submission instead of merely flagging it.
func (r ViolationReport) AutoBlocked() bool {
	for _, violations := range r {
		for _, v := range violations {
			if v.AutoBlock {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// THRESHOLD CHECK
// =============================================================================

// ThresholdRequest describes the prospective claim being evaluated.
type ThresholdRequest struct {
	EmployeeID EmployeeID
	Date       Date
	Hours      decimal.Decimal
	Amount     decimal.Decimal

	// Scope matching
	Department string
	Role       string
}

// ThresholdWindow returns the smallest history range covering every
// window CheckThresholds evaluates for a date: the union of the
// calendar month and the ISO week, which can straddle the month
// boundary at either end.
func ThresholdWindow(date Date) (Date, Date) {
	from := StartOfMonth(date)
	if wk := StartOfISOWeek(date); wk.Before(from) {
		from = wk
	}
	to := EndOfMonth(date)
	if wk := EndOfISOWeek(date); wk.After(to) {
		to = wk
	}
	return from, to
}

// CheckThresholds evaluates the request against every in-scope rule.
// History should cover at least ThresholdWindow of the requested date;
// sessions outside the relevant windows are ignored.
func CheckThresholds(req ThresholdRequest, history []OTSession, rules []ThresholdRule) ViolationReport {
	var (
		dailyHours   = req.Hours
		weeklyHours  = req.Hours
		monthlyHours = req.Hours
		monthlyMoney = req.Amount
	)
	for _, s := range history {
		if s.EmployeeID != req.EmployeeID || s.Status == StatusRejected {
			continue
		}
		if s.Date.Equal(req.Date) {
			dailyHours = dailyHours.Add(s.TotalHours)
		}
		if s.Date.SameISOWeek(req.Date) {
			weeklyHours = weeklyHours.Add(s.TotalHours)
		}
		if s.Date.SameMonth(req.Date) {
			monthlyHours = monthlyHours.Add(s.TotalHours)
			monthlyMoney = monthlyMoney.Add(s.Amount)
		}
	}

	report := ViolationReport{}
	record := func(vt ViolationType, rule ThresholdRule, limit *decimal.Decimal, current decimal.Decimal) {
		if limit == nil || current.LessThanOrEqual(*limit) {
			return
		}
		report[vt] = append(report[vt], Violation{
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			Limit:      *limit,
			Current:    current,
			ExceededBy: current.Sub(*limit),
			AutoBlock:  rule.AutoBlock,
		})
	}

	for _, rule := range rules {
		if !rule.AppliesTo(req.Department, req.Role) {
			continue
		}
		record(ViolationDailyHours, rule, rule.DailyLimitHours, dailyHours)
		record(ViolationWeeklyHours, rule, rule.WeeklyLimitHours, weeklyHours)
		record(ViolationMonthlyHours, rule, rule.MonthlyLimitHours, monthlyHours)
		record(ViolationMonthlyAmount, rule, rule.MaxClaimableAmount, monthlyMoney)
	}
	return report
}

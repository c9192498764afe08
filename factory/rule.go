/*
rule.go - JSON threshold rule conversion

PURPOSE:
  Parses JSON threshold rule definitions into engine.ThresholdRule.
  Limits are optional; a limit absent from the JSON stays nil and is
  never evaluated.

JSON SCHEMA:
  {
    "id": "org-daily-cap",
    "name": "Statutory daily cap",
    "daily_limit_hours": "4",
    "weekly_limit_hours": "24",
    "monthly_limit_hours": "104",
    "max_claimable_amount": "2000",
    "departments": ["engineering"],
    "roles": [],
    "auto_block": true,
    "alert_recipients": ["hr-ops@example.com"],
    "active": true
  }

SEE ALSO:
  - engine/threshold.go: ThresholdRule and CheckThresholds
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

// RuleJSON is the JSON representation of a threshold rule. Limits are
// decimal strings so "0.5" never loses precision on the way in.
type RuleJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	DailyLimitHours    string `json:"daily_limit_hours,omitempty"`
	WeeklyLimitHours   string `json:"weekly_limit_hours,omitempty"`
	MonthlyLimitHours  string `json:"monthly_limit_hours,omitempty"`
	MaxClaimableAmount string `json:"max_claimable_amount,omitempty"`

	Departments []string `json:"departments,omitempty"`
	Roles       []string `json:"roles,omitempty"`

	AutoBlock       bool     `json:"auto_block,omitempty"`
	AlertRecipients []string `json:"alert_recipients,omitempty"`
	Active          *bool    `json:"active,omitempty"` // Default true
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON threshold rules to engine structs.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses a JSON string into a ThresholdRule.
func (f *RuleFactory) ParseRule(jsonStr string) (engine.ThresholdRule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return engine.ThresholdRule{}, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RuleJSON to engine.ThresholdRule.
func (f *RuleFactory) FromJSON(rj RuleJSON) (engine.ThresholdRule, error) {
	if rj.ID == "" {
		return engine.ThresholdRule{}, &engine.InvalidArgumentError{Field: "id", Detail: "required"}
	}

	rule := engine.ThresholdRule{
		ID:              rj.ID,
		Name:            rj.Name,
		Departments:     rj.Departments,
		Roles:           rj.Roles,
		AutoBlock:       rj.AutoBlock,
		AlertRecipients: rj.AlertRecipients,
		Active:          true,
	}
	if rj.Active != nil {
		rule.Active = *rj.Active
	}

	limits := []struct {
		field string
		raw   string
		dst   **decimal.Decimal
	}{
		{"daily_limit_hours", rj.DailyLimitHours, &rule.DailyLimitHours},
		{"weekly_limit_hours", rj.WeeklyLimitHours, &rule.WeeklyLimitHours},
		{"monthly_limit_hours", rj.MonthlyLimitHours, &rule.MonthlyLimitHours},
		{"max_claimable_amount", rj.MaxClaimableAmount, &rule.MaxClaimableAmount},
	}
	for _, l := range limits {
		if l.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(l.raw)
		if err != nil {
			return engine.ThresholdRule{}, &engine.InvalidArgumentError{
				Field:  l.field,
				Detail: fmt.Sprintf("invalid decimal %q", l.raw),
			}
		}
		if d.IsNegative() {
			return engine.ThresholdRule{}, &engine.InvalidArgumentError{
				Field:  l.field,
				Detail: "must not be negative",
			}
		}
		*l.dst = &d
	}

	return rule, nil
}

// ToJSON converts a ThresholdRule back to its JSON representation.
func (f *RuleFactory) ToJSON(rule engine.ThresholdRule) RuleJSON {
	rj := RuleJSON{
		ID:              rule.ID,
		Name:            rule.Name,
		Departments:     rule.Departments,
		Roles:           rule.Roles,
		AutoBlock:       rule.AutoBlock,
		AlertRecipients: rule.AlertRecipients,
		Active:          &rule.Active,
	}
	if rule.DailyLimitHours != nil {
		rj.DailyLimitHours = rule.DailyLimitHours.String()
	}
	if rule.WeeklyLimitHours != nil {
		rj.WeeklyLimitHours = rule.WeeklyLimitHours.String()
	}
	if rule.MonthlyLimitHours != nil {
		rj.MonthlyLimitHours = rule.MonthlyLimitHours.String()
	}
	if rule.MaxClaimableAmount != nil {
		rj.MaxClaimableAmount = rule.MaxClaimableAmount.String()
	}
	return rj
}

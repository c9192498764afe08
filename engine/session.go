/*
session.go - OT session entity and hour rounding

PURPOSE:
  An OTSession is one contiguous block of overtime worked by one
  employee on one calendar day. Sessions carry their own approval
  status and per-stage audit trail, but they are always priced and
  re-priced as part of their day group (see aggregate.go).

LIFECYCLE:
  Created by employee submission, mutated by the aggregator whenever a
  sibling on the same day changes, mutated by the approval machine
  (status + audit fields), and terminated softly on rejection or
  superseded on resubmission (new session entity, old one terminal).

HOUR ROUNDING:
  total_hours is the rounded elapsed duration between start and end.
  The rounding rule is a pluggable strategy because its policy varies
  per deployment (exact vs. nearest quarter hour).
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	SessionID  string
	EmployeeID string
)

// =============================================================================
// SESSION STATUS - See approval.go for the transition table
// =============================================================================

type SessionStatus string

const (
	StatusPendingVerification      SessionStatus = "pending_verification"
	StatusSupervisorVerified       SessionStatus = "supervisor_verified"
	StatusHRCertified              SessionStatus = "hr_certified"
	StatusManagementApproved       SessionStatus = "management_approved"
	StatusRejected                 SessionStatus = "rejected"
	StatusPendingHRRecertification SessionStatus = "pending_hr_recertification"
)

// IsTerminal reports whether no further transition may mutate the session.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusManagementApproved || s == StatusRejected
}

// =============================================================================
// STAGE AUDIT - Who acted, when, and why, per pipeline stage
// =============================================================================

type StageAudit struct {
	ActorID string
	At      time.Time
	Remarks string
}

// =============================================================================
// OT SESSION
// =============================================================================

type OTSession struct {
	ID         SessionID
	EmployeeID EmployeeID
	Date       Date
	Start      TimeOfDay
	End        TimeOfDay

	// Derived on submission/edit
	TotalHours decimal.Decimal
	DayType    DayType

	Reason      string
	Attachments []string

	Status SessionStatus

	// Computed by the aggregator, always for the whole day group
	ORP    decimal.Decimal
	HRP    decimal.Decimal
	Amount decimal.Decimal

	// Per-stage audit trail
	Verified  *StageAudit
	Certified *StageAudit
	Approved  *StageAudit
	Rejected  *StageAudit

	// Resubmission chain: set on the replacement session, pointing at
	// the rejected session it supersedes.
	SupersedesID SessionID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// ROUNDING RULE - Pluggable total_hours policy
// =============================================================================

// RoundingRule converts an exact elapsed duration into claimable hours.
type RoundingRule interface {
	RoundHours(exact decimal.Decimal) decimal.Decimal
	Name() string
}

// ExactRounding keeps the elapsed duration to two decimal hours.
type ExactRounding struct{}

func (ExactRounding) RoundHours(exact decimal.Decimal) decimal.Decimal { return exact.Round(2) }
func (ExactRounding) Name() string                                     { return "exact" }

// QuarterHourRounding rounds to the nearest 0.25 hours, half up.
type QuarterHourRounding struct{}

func (QuarterHourRounding) RoundHours(exact decimal.Decimal) decimal.Decimal {
	quarters := exact.Mul(decimal.NewFromInt(4)).Round(0)
	return quarters.Div(decimal.NewFromInt(4))
}
func (QuarterHourRounding) Name() string { return "quarter_hour" }

// HalfHourRounding rounds to the nearest 0.5 hours, half up.
type HalfHourRounding struct{}

func (HalfHourRounding) RoundHours(exact decimal.Decimal) decimal.Decimal {
	halves := exact.Mul(decimal.NewFromInt(2)).Round(0)
	return halves.Div(decimal.NewFromInt(2))
}
func (HalfHourRounding) Name() string { return "half_hour" }

// RoundingRuleByName maps a configured rule name to its strategy.
func RoundingRuleByName(name string) (RoundingRule, error) {
	switch name {
	case "", "exact":
		return ExactRounding{}, nil
	case "quarter_hour":
		return QuarterHourRounding{}, nil
	case "half_hour":
		return HalfHourRounding{}, nil
	}
	return nil, &InvalidArgumentError{Field: "rounding_rule", Detail: "unknown rule " + name}
}

// ElapsedHours computes the claimable hours between start and end using
// the given rounding rule. End must be strictly after start; sessions
// never cross midnight.
func ElapsedHours(start, end TimeOfDay, rule RoundingRule) (decimal.Decimal, error) {
	if !end.After(start) {
		return decimal.Zero, &InvalidArgumentError{
			Field:  "end_time",
			Detail: "must be after start_time",
		}
	}
	minutes := decimal.NewFromInt(int64(start.MinutesUntil(end)))
	exact := minutes.Div(decimal.NewFromInt(60))
	return rule.RoundHours(exact), nil
}

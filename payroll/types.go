// Package payroll implements the overtime claim workflow on top of the
// engine package: submission, threshold gating, day-group pricing, and
// the role-gated approval pipeline, all against pluggable stores.
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
)

// =============================================================================
// EMPLOYEE CATEGORIES
// =============================================================================

// Categories used by the preset formula catalog. Rate formulas may use
// any category string; these are the conventional ones.
const (
	CategoryNonExecutive = "non_executive"
	CategoryExecutive    = "executive"
	CategorySupervisory  = "supervisory"
)

// EmployeeProfile is the employee snapshot a claim operation needs.
// Identity, org placement, and salary come from the embedding
// application; the engine never looks them up itself.
type EmployeeProfile struct {
	ID          engine.EmployeeID
	Name        string
	Category    string
	Department  string
	Role        string
	BasicSalary decimal.Decimal
}

// GroupContext converts the profile into the engine's pricing context.
func (e EmployeeProfile) GroupContext() engine.GroupContext {
	return engine.GroupContext{Category: e.Category, BasicSalary: e.BasicSalary}
}

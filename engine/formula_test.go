package engine_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/warp/overtime-engine/engine"
)

func evalOK(t *testing.T, expr string, vars map[string]float64) float64 {
	t.Helper()
	v, err := engine.Evaluate(expr, vars)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", expr, err)
	}
	return v
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// =============================================================================
// ARITHMETIC AND PRECEDENCE
// =============================================================================

func TestEvaluate_Arithmetic(t *testing.T) {
	cases := []struct {
		expr string
		vars map[string]float64
		want float64
	}{
		{"1+2*3", nil, 7},
		{"(1+2)*3", nil, 9},
		{"10-4-3", nil, 3},           // left associative
		{"100/10/2", nil, 5},         // left associative
		{"Basic/26/8", map[string]float64{"Basic": 3000}, 3000.0 / 26 / 8},
		{"-Hours+10", map[string]float64{"Hours": 4}, 6},
		{"ORP*Hours", map[string]float64{"ORP": 14.4230769, "Hours": 4}, 57.6923076},
		{"2*-3", nil, -6},
	}
	for _, c := range cases {
		got := evalOK(t, c.expr, c.vars)
		if !almostEqual(got, c.want) {
			t.Errorf("Evaluate(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvaluate_Conditional(t *testing.T) {
	vars := map[string]float64{"Hours": 6, "ORP": 10}

	// Condition true: first branch
	if got := evalOK(t, "IF(Hours > 4, ORP*1.5, ORP)", vars); !almostEqual(got, 15) {
		t.Errorf("expected 15, got %v", got)
	}

	// Condition false: second branch
	vars["Hours"] = 2
	if got := evalOK(t, "IF(Hours > 4, ORP*1.5, ORP)", vars); !almostEqual(got, 10) {
		t.Errorf("expected 10, got %v", got)
	}
}

func TestEvaluate_NestedConditional(t *testing.T) {
	expr := "IF(Hours <= 2, ORP, IF(Hours <= 4, ORP*1.5, ORP*2))*Hours"
	vars := map[string]float64{"ORP": 10}

	vars["Hours"] = 2
	if got := evalOK(t, expr, vars); !almostEqual(got, 20) {
		t.Errorf("2 hours: expected 20, got %v", got)
	}
	vars["Hours"] = 4
	if got := evalOK(t, expr, vars); !almostEqual(got, 60) {
		t.Errorf("4 hours: expected 60, got %v", got)
	}
	vars["Hours"] = 6
	if got := evalOK(t, expr, vars); !almostEqual(got, 120) {
		t.Errorf("6 hours: expected 120, got %v", got)
	}
}

func TestEvaluate_ConditionalGuardsDivision(t *testing.T) {
	// Branches evaluate lazily: the zero division in the untaken branch
	// must not fire.
	got := evalOK(t, "IF(Hours > 0, Basic/Hours, 0)", map[string]float64{"Hours": 2, "Basic": 10})
	if !almostEqual(got, 5) {
		t.Errorf("expected 5, got %v", got)
	}

	got = evalOK(t, "IF(Hours > 0, Basic/Hours, 0)", map[string]float64{"Hours": 0, "Basic": 10})
	if got != 0 {
		t.Errorf("expected 0 from else-branch, got %v", got)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestEvaluate_DivisionByZero(t *testing.T) {
	_, err := engine.Evaluate("Basic/Hours", map[string]float64{"Basic": 100, "Hours": 0})
	if !errors.Is(err, engine.ErrFormulaEvaluation) {
		t.Errorf("expected ErrFormulaEvaluation, got %v", err)
	}
}

func TestEvaluate_UnknownIdentifierIsSyntaxError(t *testing.T) {
	// "Salary" is outside the closed variable set: validation error,
	// never a runtime substitution.
	_, err := engine.Evaluate("Salary/26", map[string]float64{"Salary": 3000})
	if !errors.Is(err, engine.ErrFormulaSyntax) {
		t.Errorf("expected ErrFormulaSyntax, got %v", err)
	}
}

func TestEvaluate_UnboundVariable(t *testing.T) {
	_, err := engine.Evaluate("Basic/26", nil)
	if !errors.Is(err, engine.ErrFormulaEvaluation) {
		t.Errorf("expected ErrFormulaEvaluation for unbound Basic, got %v", err)
	}
}

func TestEvaluate_ComparisonOutsideIF(t *testing.T) {
	_, err := engine.Evaluate("Hours > 4", map[string]float64{"Hours": 5})
	if !errors.Is(err, engine.ErrFormulaSyntax) {
		t.Errorf("comparison outside IF should be a syntax error, got %v", err)
	}
}

// =============================================================================
// VALIDATE SYNTAX - Pure pre-save validation
// =============================================================================

func TestValidateSyntax(t *testing.T) {
	cases := []struct {
		expr    string
		wantOK  bool
	}{
		{"Basic/26/8", true},
		{"ORP*1.5", true},
		{"IF(Hours >= 8, HRP*2, HRP)*Hours", true},
		{"IF(Hours >= 8, HRP*2)", false},     // missing else branch
		{"Basic/26/", false},                 // dangling operator
		{"(Basic/26", false},                 // unbalanced paren
		{"Wage*2", false},                    // unknown variable
		{"Basic @ 2", false},                 // bad character
		{"", false},                          // empty
		{"IF(Hours, 1, 2)", false},           // condition without comparison
		{"1 == 1", false},                    // comparison outside IF
	}
	for _, c := range cases {
		issues := engine.ValidateSyntax(c.expr)
		if c.wantOK && len(issues) != 0 {
			t.Errorf("ValidateSyntax(%q) = %v, want no issues", c.expr, issues)
		}
		if !c.wantOK && len(issues) == 0 {
			t.Errorf("ValidateSyntax(%q) passed, want issues", c.expr)
		}
	}
}

func TestValidateSyntax_ReportsAllUnknownVariables(t *testing.T) {
	issues := engine.ValidateSyntax("Wage + Allowance")
	if len(issues) != 2 {
		t.Errorf("expected 2 issues (two unknown variables), got %v", issues)
	}
}

func TestValidateSyntax_UnknownVariablesSortedAlphabetically(t *testing.T) {
	// Issue order feeds a live editor; it must not change between runs.
	issues := engine.ValidateSyntax("Zeta + Hours + Alpha")
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", issues)
	}
	if !strings.Contains(issues[0], `"Alpha"`) || !strings.Contains(issues[1], `"Zeta"`) {
		t.Errorf("unknown variables must be listed alphabetically, got %v", issues)
	}
}

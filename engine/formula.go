/*
formula.go - Restricted expression language for configurable pay rules

PURPOSE:
  HR defines ORP/HRP/base pay rules as expression strings stored as data,
  so pay policy changes never require a redeploy. This file parses and
  evaluates that language safely: a recursive-descent parser produces a
  small expression tree, and a tree-walking interpreter evaluates it
  against named variables. No dynamic code execution of any kind.

GRAMMAR (standard arithmetic precedence, parentheses to disambiguate):
  expr        := additive
  additive    := multiplicative (('+'|'-') multiplicative)*
  multiplicative := unary (('*'|'/') unary)*
  unary       := '-' unary | primary
  primary     := NUMBER | VARIABLE | '(' expr ')'
               | 'IF' '(' condition ',' expr ',' expr ')'
  condition   := expr ('<='|'<'|'>='|'>'|'==') expr

  Comparison operators are legal ONLY as the first argument of IF.
  IF may nest arbitrarily in any expression position.

VARIABLES:
  Exactly Hours, ORP, HRP, Basic (case-sensitive). Any other identifier
  is a validation error at parse time, never a silent substitution.

NUMERIC SEMANTICS:
  64-bit floating point throughout. Division by zero is a
  FormulaEvaluationError, not an Inf result. Money rounding happens
  downstream in pay.go, at the decimal boundary.

USAGE:
  value, err := engine.Evaluate("IF(Hours > 4, ORP*1.5, ORP)*Hours",
      map[string]float64{"Hours": 6, "ORP": 14.42})

  issues := engine.ValidateSyntax("Basic/26/8")   // nil when valid

SEE ALSO:
  - pay.go: the only engine caller, wiring ORP/HRP/base in sequence
  - factory/formula.go: pre-save validation of configured formulas
*/
package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AllowedVariables is the closed identifier set of the formula language.
var AllowedVariables = map[string]bool{
	"Hours": true,
	"ORP":   true,
	"HRP":   true,
	"Basic": true,
}

// =============================================================================
// LEXER
// =============================================================================

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp    // + - * /
	tokCmp   // <= < >= > ==
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			text := input[start:i]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", text, start)
			}
			tokens = append(tokens, token{tokNumber, text, start})
		case isIdentChar(c):
			start := i
			for i < len(input) && (isIdentChar(input[i]) || input[i] >= '0' && input[i] <= '9') {
				i++
			}
			tokens = append(tokens, token{tokIdent, input[start:i], start})
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{tokOp, string(c), i})
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case c == '<' || c == '>':
			op := string(c)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
			}
			tokens = append(tokens, token{tokCmp, op, i})
			i += len(op)
		case c == '=':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{tokCmp, "==", i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '=' at position %d (did you mean '=='?)", i)
			}
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", string(c), i)
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(input)})
	return tokens, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

// =============================================================================
// EXPRESSION TREE - Tagged variant, evaluated by tree walking
// =============================================================================

type exprNode interface {
	eval(vars map[string]float64) (float64, error)
	collectVars(into map[string]bool)
}

type literalNode struct{ value float64 }

func (n literalNode) eval(map[string]float64) (float64, error) { return n.value, nil }
func (n literalNode) collectVars(map[string]bool)              {}

type variableNode struct{ name string }

func (n variableNode) eval(vars map[string]float64) (float64, error) {
	v, ok := vars[n.name]
	if !ok {
		return 0, fmt.Errorf("variable %q is not bound", n.name)
	}
	return v, nil
}

func (n variableNode) collectVars(into map[string]bool) { into[n.name] = true }

type binaryNode struct {
	op          string
	left, right exprNode
}

func (n binaryNode) eval(vars map[string]float64) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

func (n binaryNode) collectVars(into map[string]bool) {
	n.left.collectVars(into)
	n.right.collectVars(into)
}

type negateNode struct{ operand exprNode }

func (n negateNode) eval(vars map[string]float64) (float64, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n negateNode) collectVars(into map[string]bool) { n.operand.collectVars(into) }

type comparisonNode struct {
	op          string
	left, right exprNode
}

func (n comparisonNode) holds(vars map[string]float64) (bool, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return false, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return false, err
	}
	switch n.op {
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	case "==":
		return l == r, nil
	}
	return false, fmt.Errorf("unknown comparison %q", n.op)
}

func (n comparisonNode) collectVars(into map[string]bool) {
	n.left.collectVars(into)
	n.right.collectVars(into)
}

type conditionalNode struct {
	cond       comparisonNode
	then, else_ exprNode
}

func (n conditionalNode) eval(vars map[string]float64) (float64, error) {
	// Both branches parse eagerly but evaluate lazily: only the taken
	// branch may raise a runtime error (e.g. IF guarding a division).
	holds, err := n.cond.holds(vars)
	if err != nil {
		return 0, err
	}
	if holds {
		return n.then.eval(vars)
	}
	return n.else_.eval(vars)
}

func (n conditionalNode) collectVars(into map[string]bool) {
	n.cond.collectVars(into)
	n.then.collectVars(into)
	n.else_.collectVars(into)
}

// =============================================================================
// PARSER - Recursive descent
// =============================================================================

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return token{}, fmt.Errorf("expected %s at position %d, found %q", what, t.pos, tokenDesc(t))
	}
	return p.next(), nil
}

func tokenDesc(t token) string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return t.text
}

func (p *parser) parseExpr() (exprNode, error) {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() (exprNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && (p.peek().text == "*" || p.peek().text == "/") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (exprNode, error) {
	if t := p.peek(); t.kind == tokOp && t.text == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negateNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprNode, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		v, _ := strconv.ParseFloat(t.text, 64)
		return literalNode{value: v}, nil

	case tokIdent:
		if t.text == "IF" {
			return p.parseConditional()
		}
		p.next()
		return variableNode{name: t.text}, nil

	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokCmp:
		return nil, fmt.Errorf("comparison operator %q at position %d is only allowed inside IF(...)", t.text, t.pos)
	}
	return nil, fmt.Errorf("unexpected %q at position %d", tokenDesc(t), t.pos)
}

func (p *parser) parseConditional() (exprNode, error) {
	p.next() // consume IF
	if _, err := p.expect(tokLParen, "'(' after IF"); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, "',' after IF condition"); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, "',' after IF then-branch"); err != nil {
		return nil, err
	}
	else_, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')' closing IF"); err != nil {
		return nil, err
	}
	return conditionalNode{cond: cond, then: then, else_: else_}, nil
}

func (p *parser) parseCondition() (comparisonNode, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return comparisonNode{}, err
	}
	t := p.peek()
	if t.kind != tokCmp {
		return comparisonNode{}, fmt.Errorf("IF condition requires a comparison operator, found %q at position %d", tokenDesc(t), t.pos)
	}
	op := p.next().text
	right, err := p.parseAdditive()
	if err != nil {
		return comparisonNode{}, err
	}
	return comparisonNode{op: op, left: left, right: right}, nil
}

func parseFormula(expression string) (exprNode, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d after complete expression", tokenDesc(t), t.pos)
	}
	return root, nil
}

// =============================================================================
// PUBLIC API
// =============================================================================

// ValidateSyntax checks an expression without evaluating it. It returns a
// list of human-readable issues, or nil when the expression is valid.
// Pure function, no side effects; built for pre-save validation and live
// preview in a formula editor.
func ValidateSyntax(expression string) []string {
	root, err := parseFormula(expression)
	if err != nil {
		return []string{err.Error()}
	}

	used := make(map[string]bool)
	root.collectVars(used)

	// Stable issue order so an editor shows the same list on every run.
	var unknown []string
	for name := range used {
		if !AllowedVariables[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	var issues []string
	for _, name := range unknown {
		issues = append(issues, fmt.Sprintf("unknown variable %q (allowed: Hours, ORP, HRP, Basic)", name))
	}
	return issues
}

// Evaluate parses and evaluates an expression against the given variable
// bindings. Unknown identifiers are a FormulaSyntaxError; a missing binding
// for an allowed identifier, or division by zero, is a FormulaEvaluationError.
func Evaluate(expression string, vars map[string]float64) (float64, error) {
	root, err := parseFormula(expression)
	if err != nil {
		return 0, &FormulaSyntaxError{Expression: expression, Issues: []string{err.Error()}}
	}

	used := make(map[string]bool)
	root.collectVars(used)
	for name := range used {
		if !AllowedVariables[name] {
			return 0, &FormulaSyntaxError{
				Expression: expression,
				Issues:     []string{fmt.Sprintf("unknown variable %q", name)},
			}
		}
	}

	value, err := root.eval(vars)
	if err != nil {
		return 0, &FormulaEvaluationError{Expression: expression, Detail: err.Error()}
	}
	return value, nil
}

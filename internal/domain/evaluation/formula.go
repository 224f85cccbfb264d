package evaluation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Final-score formulas are restricted arithmetic expressions over three
// named variables, the four basic operators, parentheses and numeric
// literals. They are parsed to a small expression tree and evaluated by a
// pure interpreter; there is no dynamic code execution surface.

const (
	VarGoalScore     = "goal_score"
	VarSelfScore     = "self_score"
	VarFeedbackScore = "feedback_score"
)

// FormulaWarning signals that a custom formula could not be used and the
// default formula was substituted. It is informational, never fatal.
type FormulaWarning struct {
	Formula string `json:"formula"`
	Reason  string `json:"reason"`
}

// DefaultFinalScore is the stock weighting applied when no custom formula is
// configured or the configured one fails.
func DefaultFinalScore(in FinalScoreInputs) float64 {
	return in.GoalScore*0.6 + in.SelfScore*0.2 + in.FeedbackScore*0.2
}

// EvaluateFormula computes the final score for the given inputs. An empty
// formula selects the default. A formula that fails to parse or evaluate
// also falls back to the default, with the failure reported as a warning so
// the substitution is visible to the caller.
func EvaluateFormula(formula string, in FinalScoreInputs) (float64, *FormulaWarning) {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return DefaultFinalScore(in), nil
	}

	root, err := parseFormula(trimmed)
	if err == nil {
		value, evalErr := root.eval(in)
		if evalErr == nil {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				evalErr = errors.New("result is not a finite number")
			} else {
				return value, nil
			}
		}
		err = evalErr
	}
	return DefaultFinalScore(in), &FormulaWarning{Formula: trimmed, Reason: err.Error()}
}

type exprNode interface {
	eval(in FinalScoreInputs) (float64, error)
}

type numNode float64

func (n numNode) eval(FinalScoreInputs) (float64, error) {
	return float64(n), nil
}

type varNode string

func (n varNode) eval(in FinalScoreInputs) (float64, error) {
	switch string(n) {
	case VarGoalScore:
		return in.GoalScore, nil
	case VarSelfScore:
		return in.SelfScore, nil
	case VarFeedbackScore:
		return in.FeedbackScore, nil
	}
	return 0, fmt.Errorf("unknown variable %q", string(n))
}

type binNode struct {
	op    byte
	left  exprNode
	right exprNode
}

func (n binNode) eval(in FinalScoreInputs) (float64, error) {
	left, err := n.left.eval(in)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(in)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, errors.New("division by zero")
		}
		return left / right, nil
	}
	return 0, fmt.Errorf("unknown operator %q", string(n.op))
}

type formulaParser struct {
	input string
	pos   int
}

func parseFormula(input string) (exprNode, error) {
	p := &formulaParser{input: input}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return node, nil
}

// expr := term (('+' | '-') term)*
func (p *formulaParser) parseExpr() (exprNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOperator('+', '-')
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, left: left, right: right}
	}
}

// term := factor (('*' | '/') factor)*
func (p *formulaParser) parseTerm() (exprNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekOperator('*', '/')
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binNode{op: op, left: left, right: right}
	}
}

// factor := number | variable | '(' expr ')' | '-' factor
func (p *formulaParser) parseFactor() (exprNode, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return nil, errors.New("unexpected end of formula")
	}

	ch := p.input[p.pos]
	switch {
	case ch == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, errors.New("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case ch == '-':
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return binNode{op: '-', left: numNode(0), right: inner}, nil
	case ch >= '0' && ch <= '9' || ch == '.':
		return p.parseNumber()
	case isIdentChar(ch):
		return p.parseVariable()
	}
	return nil, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
}

func (p *formulaParser) parseNumber() (exprNode, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			p.pos++
			continue
		}
		break
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return numNode(value), nil
}

func (p *formulaParser) parseVariable() (exprNode, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentChar(p.input[p.pos]) {
		p.pos++
	}
	name := p.input[start:p.pos]
	switch name {
	case VarGoalScore, VarSelfScore, VarFeedbackScore:
		return varNode(name), nil
	}
	return nil, fmt.Errorf("unknown variable %q", name)
}

func (p *formulaParser) peekOperator(ops ...byte) (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	ch := p.input[p.pos]
	for _, op := range ops {
		if ch == op {
			return op, true
		}
	}
	return 0, false
}

func (p *formulaParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func isIdentChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

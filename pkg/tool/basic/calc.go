package basic

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
)

// ErrBadExpression is returned when an arithmetic expression cannot be parsed.
var ErrBadExpression = goerr.New("invalid arithmetic expression")

// Evaluate computes an arithmetic expression limited to numbers, the four
// binary operators, unary minus, and parentheses. Nothing else is accepted:
// no identifiers, no function calls, no indexing.
func Evaluate(expr string) (float64, error) {
	p := &exprParser{input: []rune(expr)}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, goerr.Wrap(ErrBadExpression, "unexpected trailing input",
			goerr.V("expression", expr), goerr.V("position", p.pos))
	}
	return value, nil
}

// exprParser is a recursive-descent parser over the grammar
//
//	expr   = term   { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "-" factor | "(" expr ")"
type exprParser struct {
	input []rune
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value -= rhs
		default:
			return value, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	value, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, goerr.Wrap(ErrBadExpression, "division by zero")
			}
			value /= rhs
		default:
			return value, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()

	switch {
	case p.peek() == '-':
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil

	case p.peek() == '(':
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, goerr.Wrap(ErrBadExpression, "missing closing parenthesis",
				goerr.V("position", p.pos))
		}
		p.pos++
		return value, nil

	default:
		return p.parseNumber()
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, goerr.Wrap(ErrBadExpression, "expected a number",
			goerr.V("position", start))
	}

	text := string(p.input[start:p.pos])
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, goerr.Wrap(ErrBadExpression, "malformed number", goerr.V("token", text))
	}
	return value, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) peek() rune {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

package logic

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/shubhFreelance/formlogic/config"
)

// The formula grammar covers decimal literals, field references written as
// {{fieldId}}, the four arithmetic operators with standard precedence,
// unary minus and parentheses. Syntax is checked lexically, before any
// field substitution, so a broken formula is reported the same way whether
// or not its references resolve.

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenRef
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokenRef:
		return "{{" + t.text + "}}"
	default:
		return t.text
	}
}

func syntaxErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("Invalid formula syntax: "+format, args...)
}

func tokenize(formula string) ([]token, error) {
	runes := []rune(formula)
	tokens := make([]token, 0, len(runes)/2)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '{' && i+1 < len(runes) && runes[i+1] == '{':
			end := strings.Index(string(runes[i+2:]), "}}")
			if end < 0 {
				return nil, syntaxErrorf("unterminated field reference at position %d", i)
			}
			id := strings.TrimSpace(string(runes[i+2 : i+2+end]))
			if id == "" {
				return nil, syntaxErrorf("empty field reference at position %d", i)
			}
			tokens = append(tokens, token{kind: tokenRef, text: id, pos: i})
			i += end + 4
		case unicode.IsDigit(r) || r == '.':
			start := i
			dots := 0
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				if runes[i] == '.' {
					dots++
				}
				i++
			}
			text := string(runes[start:i])
			if dots > 1 || text == "." {
				return nil, syntaxErrorf("malformed number %q at position %d", text, start)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, pos: start})
		case r == '+':
			tokens = append(tokens, token{kind: tokenPlus, text: "+", pos: i})
			i++
		case r == '-':
			tokens = append(tokens, token{kind: tokenMinus, text: "-", pos: i})
			i++
		case r == '*':
			tokens = append(tokens, token{kind: tokenStar, text: "*", pos: i})
			i++
		case r == '/':
			tokens = append(tokens, token{kind: tokenSlash, text: "/", pos: i})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		default:
			return nil, syntaxErrorf("unexpected character %q at position %d", string(r), i)
		}
	}
	return tokens, nil
}

type exprNode interface {
	eval(env map[string]decimal.Decimal) (decimal.Decimal, error)
}

type literalNode struct {
	value decimal.Decimal
}

func (n literalNode) eval(map[string]decimal.Decimal) (decimal.Decimal, error) {
	return n.value, nil
}

type refNode struct {
	id string
}

func (n refNode) eval(env map[string]decimal.Decimal) (decimal.Decimal, error) {
	value, ok := env[n.id]
	if !ok {
		return decimal.Zero, fmt.Errorf("Missing required field values: %s", n.id)
	}
	return value, nil
}

type negateNode struct {
	operand exprNode
}

func (n negateNode) eval(env map[string]decimal.Decimal) (decimal.Decimal, error) {
	value, err := n.operand.eval(env)
	if err != nil {
		return decimal.Zero, err
	}
	return value.Neg(), nil
}

type binaryNode struct {
	op          tokenKind
	left, right exprNode
}

func (n binaryNode) eval(env map[string]decimal.Decimal) (decimal.Decimal, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return decimal.Zero, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.op {
	case tokenPlus:
		return left.Add(right), nil
	case tokenMinus:
		return left.Sub(right), nil
	case tokenStar:
		return left.Mul(right), nil
	case tokenSlash:
		if right.IsZero() {
			return decimal.Zero, fmt.Errorf("Division by zero")
		}
		return left.Div(right), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported operator")
	}
}

// parsedFormula is a compiled formula: the expression tree plus the distinct
// field references in order of first appearance.
type parsedFormula struct {
	source string
	root   exprNode
	refs   []string
}

type formulaParser struct {
	tokens []token
	pos    int
	refs   []string
	seen   map[string]struct{}
}

// parseFormula compiles a formula string. All errors belong to the
// invalid-syntax family regardless of whether referenced fields exist.
func parseFormula(formula string) (*parsedFormula, error) {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return nil, syntaxErrorf("formula is empty")
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	p := &formulaParser{tokens: tokens, seen: make(map[string]struct{})}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, syntaxErrorf("unexpected token %q at position %d", p.tokens[p.pos].String(), p.tokens[p.pos].pos)
	}
	return &parsedFormula{source: trimmed, root: root, refs: p.refs}, nil
}

func (p *formulaParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *formulaParser) parseExpression() (exprNode, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != tokenPlus && tok.kind != tokenMinus) {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *formulaParser) parseTerm() (exprNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != tokenStar && tok.kind != tokenSlash) {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *formulaParser) parseFactor() (exprNode, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, syntaxErrorf("operator is missing an operand")
	}
	switch tok.kind {
	case tokenMinus:
		p.pos++
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return negateNode{operand: operand}, nil
	case tokenNumber:
		p.pos++
		value, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, syntaxErrorf("malformed number %q at position %d", tok.text, tok.pos)
		}
		return literalNode{value: value}, nil
	case tokenRef:
		p.pos++
		if _, dup := p.seen[tok.text]; !dup {
			p.seen[tok.text] = struct{}{}
			p.refs = append(p.refs, tok.text)
		}
		return refNode{id: tok.text}, nil
	case tokenLParen:
		p.pos++
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokenRParen {
			return nil, syntaxErrorf("unbalanced parentheses")
		}
		p.pos++
		return inner, nil
	case tokenRParen:
		return nil, syntaxErrorf("unbalanced parentheses")
	default:
		return nil, syntaxErrorf("operator %q at position %d is missing an operand", tok.String(), tok.pos)
	}
}

// evaluate runs the compiled tree against resolved numeric values.
func (f *parsedFormula) evaluate(env map[string]decimal.Decimal) (decimal.Decimal, error) {
	return f.root.eval(env)
}

// formatValue renders a result as the fixed two-decimal string the display
// layer expects for every display type.
func formatValue(value decimal.Decimal) string {
	return value.StringFixed(2)
}

// formatDisplay renders the display variant of a result.
func formatDisplay(value decimal.Decimal, displayType config.DisplayType) string {
	fixed := value.StringFixed(2)
	switch displayType {
	case config.DisplayTypeCurrency:
		return "$" + fixed
	case config.DisplayTypePercentage:
		return fixed + "%"
	default:
		return fixed
	}
}

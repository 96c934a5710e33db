package mathpad

import (
	"fmt"
	"strconv"
	"strings"
)

// ============================================================
// Lexer
// ============================================================

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokNum:
		return "number " + t.text
	case tokIdent:
		return "name " + strconv.Quote(t.text)
	}
	return "'" + t.text + "'"
}

// ParseError reports malformed expression text. Pos is a byte offset.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (at position %d)", e.Msg, e.Pos+1)
}

func lex(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			j := scanNumber(src, i)
			text := src[i:j]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, &ParseError{Pos: i, Msg: "invalid number " + strconv.Quote(text)}
			}
			toks = append(toks, token{kind: tokNum, text: text, pos: i})
			i = j
		case isIdentStart(c):
			j := scanIdent(src, i)
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case c == '*' && strings.HasPrefix(src[i:], "**"):
			toks = append(toks, token{kind: tokOp, text: "**", pos: i})
			i += 2
		case strings.IndexByte("+-*/^", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		default:
			r := []rune(src[i:])[0]
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// scanNumber accepts digits with an optional fraction and an exponent
// that is only consumed when a digit follows it, so "2e" stays "2" "e".
func scanNumber(s string, i int) int {
	j := scanDigits(s, i)
	if j < len(s) && s[j] == '.' {
		j = scanDigits(s, j+1)
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		if k < len(s) && isDigit(s[k]) {
			j = scanDigits(s, k)
		}
	}
	return j
}

// ============================================================
// Parser — recursive descent over a fixed grammar
//
//	sum     = product { ("+"|"-") product }
//	product = unary { ("*"|"/") unary }
//	unary   = ("-"|"+") unary | power
//	power   = primary [ ("**"|"^") unary ]
//	primary = number | name | name "(" sum ")" | "(" sum ")"
// ============================================================

type parser struct {
	toks []token
	i    int
}

// Parse builds an expression tree from canonical text. Both "**" and "^"
// denote exponentiation; multiplication must be explicit.
func Parse(text string) (Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	if toks[0].kind == tokEOF {
		return nil, &ParseError{Pos: 0, Msg: "empty expression"}
	}
	p := &parser{toks: toks}
	e, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokRParen {
			return nil, &ParseError{Pos: t.pos, Msg: "unmatched ')'"}
		}
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected " + t.describe()}
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.i] }
func (p *parser) next() token { t := p.toks[p.i]; p.i++; return t }

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

var binOps = map[byte]func(l, r Expr) *BinOp{
	'+': AddOf,
	'-': SubOf,
	'*': MulOf,
	'/': DivOf,
}

func (p *parser) sum() (Expr, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.isOp("+", "-") {
		op := p.next().text[0]
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = binOps[op](left, right)
	}
	return left, nil
}

func (p *parser) product() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*", "/") {
		op := p.next().text[0]
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binOps[op](left, right)
	}
	return left, nil
}

func (p *parser) unary() (Expr, error) {
	if p.isOp("-") {
		p.next()
		arg, err := p.unary()
		if err != nil {
			return nil, err
		}
		return NegOf(arg), nil
	}
	if p.isOp("+") {
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**", "^") {
		p.next()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		v, _ := strconv.ParseFloat(t.text, 64)
		return N(v), nil
	case tokLParen:
		inner, err := p.sum()
		if err != nil {
			return nil, err
		}
		if err := p.closeParen(t); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.name(t)
	case tokEOF:
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected end of expression"}
	}
	return nil, &ParseError{Pos: t.pos, Msg: "unexpected " + t.describe()}
}

func (p *parser) name(t token) (Expr, error) {
	if p.peek().kind == tokLParen {
		open := p.next()
		if !IsFunction(t.text) {
			return nil, &ParseError{Pos: t.pos, Msg: "unknown function " + strconv.Quote(t.text)}
		}
		arg, err := p.sum()
		if err != nil {
			return nil, err
		}
		if err := p.closeParen(open); err != nil {
			return nil, err
		}
		return funcOf(t.text, arg), nil
	}
	if IsConstant(t.text) {
		return &Const{name: t.text}, nil
	}
	if IsFunction(t.text) {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("function %s needs an argument in parentheses", t.text)}
	}
	return S(t.text), nil
}

func (p *parser) closeParen(open token) error {
	if p.peek().kind == tokRParen {
		p.next()
		return nil
	}
	t := p.peek()
	if t.kind == tokEOF {
		return &ParseError{Pos: open.pos, Msg: "missing ')'"}
	}
	return &ParseError{Pos: t.pos, Msg: "expected ')' but found " + t.describe()}
}

package mathpad

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Bindings maps variable names to the values substituted for them.
type Bindings map[string]float64

type Expr interface {
	String() string
	LaTeX() string
	Sub(varName string, value float64) Expr
	Eval(env Bindings) (float64, error)
	Equal(other Expr) bool
	exprType() string
	toJSON() map[string]interface{}
}

// Binding strength, loosest first. Used when printing to decide where
// parentheses are required.
const (
	precSum = iota + 1
	precProduct
	precUnary
	precPower
	precAtom
)

func precedence(e Expr) int {
	switch v := e.(type) {
	case *BinOp:
		if v.op == '+' || v.op == '-' {
			return precSum
		}
		return precProduct
	case *Neg:
		return precUnary
	case *Num:
		if v.val < 0 || math.Signbit(v.val) {
			return precUnary
		}
	case *Pow:
		return precPower
	}
	return precAtom
}

func wrap(s string, paren bool) string {
	if paren {
		return "(" + s + ")"
	}
	return s
}

func wrapLaTeX(s string, paren bool) string {
	if paren {
		return "\\left(" + s + "\\right)"
	}
	return s
}

// ============================================================
// Num — floating point literal
// ============================================================

type Num struct{ val float64 }

func N(v float64) *Num { return &Num{val: v} }

func (n *Num) Value() float64                 { return n.val }
func (n *Num) Sub(string, float64) Expr       { return n }
func (n *Num) Eval(Bindings) (float64, error) { return n.val, nil }
func (n *Num) Equal(other Expr) bool          { o, ok := other.(*Num); return ok && n.val == o.val }
func (n *Num) exprType() string               { return "num" }
func (n *Num) String() string                 { return strconv.FormatFloat(n.val, 'g', -1, 64) }
func (n *Num) LaTeX() string {
	s := n.String()
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + " \\times 10^{" + strings.TrimPrefix(s[i+1:], "+") + "}"
	}
	return s
}
func (n *Num) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "num", "value": n.String()}
}

// ============================================================
// Sym — variable
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym { return &Sym{name: name} }

func (s *Sym) Name() string          { return s.name }
func (s *Sym) String() string        { return s.name }
func (s *Sym) LaTeX() string         { return s.name }
func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }
func (s *Sym) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "sym", "name": s.name}
}
func (s *Sym) Sub(varName string, value float64) Expr {
	if s.name == varName {
		return N(value)
	}
	return s
}
func (s *Sym) Eval(env Bindings) (float64, error) {
	v, ok := env[s.name]
	if !ok {
		return math.NaN(), &EvalError{Kind: KindUnbound, Name: s.name}
	}
	return v, nil
}

// ============================================================
// Const — named constants pi and e
// ============================================================

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type Const struct{ name string }

func (c *Const) Name() string                   { return c.name }
func (c *Const) String() string                 { return c.name }
func (c *Const) Sub(string, float64) Expr       { return c }
func (c *Const) Eval(Bindings) (float64, error) { return constants[c.name], nil }
func (c *Const) Equal(other Expr) bool          { o, ok := other.(*Const); return ok && c.name == o.name }
func (c *Const) exprType() string               { return "const" }
func (c *Const) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "const", "name": c.name}
}
func (c *Const) LaTeX() string {
	if c.name == "pi" {
		return "\\pi"
	}
	return c.name
}

// ============================================================
// Neg — unary minus
// ============================================================

type Neg struct{ arg Expr }

func NegOf(arg Expr) *Neg { return &Neg{arg: arg} }

func (n *Neg) Arg() Expr        { return n.arg }
func (n *Neg) exprType() string { return "neg" }
func (n *Neg) String() string   { return "-" + wrap(n.arg.String(), precedence(n.arg) < precUnary) }
func (n *Neg) LaTeX() string    { return "-" + wrapLaTeX(n.arg.LaTeX(), precedence(n.arg) < precUnary) }
func (n *Neg) Sub(varName string, value float64) Expr {
	return &Neg{arg: n.arg.Sub(varName, value)}
}
func (n *Neg) Eval(env Bindings) (float64, error) {
	v, err := n.arg.Eval(env)
	return -v, err
}
func (n *Neg) Equal(other Expr) bool { o, ok := other.(*Neg); return ok && n.arg.Equal(o.arg) }
func (n *Neg) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "neg", "arg": n.arg.toJSON()}
}

// ============================================================
// BinOp — + - * /
// ============================================================

type BinOp struct {
	op          byte
	left, right Expr
}

func AddOf(l, r Expr) *BinOp { return &BinOp{op: '+', left: l, right: r} }
func SubOf(l, r Expr) *BinOp { return &BinOp{op: '-', left: l, right: r} }
func MulOf(l, r Expr) *BinOp { return &BinOp{op: '*', left: l, right: r} }
func DivOf(l, r Expr) *BinOp { return &BinOp{op: '/', left: l, right: r} }

func (b *BinOp) Op() byte         { return b.op }
func (b *BinOp) Left() Expr       { return b.left }
func (b *BinOp) Right() Expr      { return b.right }
func (b *BinOp) exprType() string { return "binop" }

func (b *BinOp) String() string {
	p := precedence(b)
	return wrap(b.left.String(), precedence(b.left) < p) +
		string(b.op) +
		wrap(b.right.String(), precedence(b.right) <= p)
}

func (b *BinOp) LaTeX() string {
	if b.op == '/' {
		return "\\frac{" + b.left.LaTeX() + "}{" + b.right.LaTeX() + "}"
	}
	p := precedence(b)
	sep := " " + string(b.op) + " "
	if b.op == '*' {
		sep = " \\cdot "
	}
	return wrapLaTeX(b.left.LaTeX(), precedence(b.left) < p) + sep +
		wrapLaTeX(b.right.LaTeX(), precedence(b.right) <= p)
}

func (b *BinOp) Sub(varName string, value float64) Expr {
	return &BinOp{op: b.op, left: b.left.Sub(varName, value), right: b.right.Sub(varName, value)}
}

func (b *BinOp) Eval(env Bindings) (float64, error) {
	l, err := b.left.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	r, err := b.right.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	switch b.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	default:
		// IEEE division: x/0 is ±Inf and 0/0 is NaN, both unavailable.
		return l / r, nil
	}
}

func (b *BinOp) Equal(other Expr) bool {
	o, ok := other.(*BinOp)
	return ok && b.op == o.op && b.left.Equal(o.left) && b.right.Equal(o.right)
}

func (b *BinOp) toJSON() map[string]interface{} {
	return map[string]interface{}{
		"type":  "binop",
		"op":    string(b.op),
		"left":  b.left.toJSON(),
		"right": b.right.toJSON(),
	}
}

// ============================================================
// Pow — base**exponent
// ============================================================

type Pow struct{ base, exp Expr }

func PowOf(base, exp Expr) *Pow { return &Pow{base: base, exp: exp} }

func (p *Pow) Base() Expr       { return p.base }
func (p *Pow) ExpExpr() Expr    { return p.exp }
func (p *Pow) exprType() string { return "pow" }

func (p *Pow) String() string {
	return wrap(p.base.String(), precedence(p.base) <= precPower) + "**" +
		wrap(p.exp.String(), precedence(p.exp) < precUnary)
}

func (p *Pow) LaTeX() string {
	return wrapLaTeX(p.base.LaTeX(), precedence(p.base) <= precPower) + "^{" + p.exp.LaTeX() + "}"
}

func (p *Pow) Sub(varName string, value float64) Expr {
	return &Pow{base: p.base.Sub(varName, value), exp: p.exp.Sub(varName, value)}
}

func (p *Pow) Eval(env Bindings) (float64, error) {
	b, err := p.base.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	e, err := p.exp.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	return math.Pow(b, e), nil
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "pow", "base": p.base.toJSON(), "exp": p.exp.toJSON()}
}

// ============================================================
// Func — named function applications
// ============================================================

// functions is the complete set of callables reachable from expression
// text. Nothing outside this table can be invoked.
var functions = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"log":   math.Log,
	"ln":    math.Log,
	"sqrt":  math.Sqrt,
	"exp":   math.Exp,
	"abs":   math.Abs,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"floor": math.Floor,
	"ceil":  math.Ceil,
}

// IsFunction reports whether name is a callable function.
func IsFunction(name string) bool { _, ok := functions[name]; return ok }

// IsConstant reports whether name is a built-in constant.
func IsConstant(name string) bool { _, ok := constants[name]; return ok }

type Func struct {
	name string
	arg  Expr
}

func funcOf(name string, arg Expr) *Func { return &Func{name: name, arg: arg} }

func SinOf(arg Expr) *Func  { return funcOf("sin", arg) }
func CosOf(arg Expr) *Func  { return funcOf("cos", arg) }
func TanOf(arg Expr) *Func  { return funcOf("tan", arg) }
func LogOf(arg Expr) *Func  { return funcOf("log", arg) }
func LnOf(arg Expr) *Func   { return funcOf("ln", arg) }
func SqrtOf(arg Expr) *Func { return funcOf("sqrt", arg) }
func ExpOf(arg Expr) *Func  { return funcOf("exp", arg) }
func AbsOf(arg Expr) *Func  { return funcOf("abs", arg) }

func (f *Func) FuncName() string { return f.name }
func (f *Func) Arg() Expr        { return f.arg }
func (f *Func) exprType() string { return "func" }
func (f *Func) String() string   { return f.name + "(" + f.arg.String() + ")" }

func (f *Func) LaTeX() string {
	switch f.name {
	case "sin", "cos", "tan", "exp", "ln", "log", "sinh", "cosh", "tanh":
		return "\\" + f.name + "\\left(" + f.arg.LaTeX() + "\\right)"
	case "sqrt":
		return "\\sqrt{" + f.arg.LaTeX() + "}"
	case "asin":
		return "\\arcsin\\left(" + f.arg.LaTeX() + "\\right)"
	case "acos":
		return "\\arccos\\left(" + f.arg.LaTeX() + "\\right)"
	case "atan":
		return "\\arctan\\left(" + f.arg.LaTeX() + "\\right)"
	case "abs":
		return "\\left|" + f.arg.LaTeX() + "\\right|"
	case "floor":
		return "\\lfloor " + f.arg.LaTeX() + " \\rfloor"
	case "ceil":
		return "\\lceil " + f.arg.LaTeX() + " \\rceil"
	}
	return "\\operatorname{" + f.name + "}\\left(" + f.arg.LaTeX() + "\\right)"
}

func (f *Func) Sub(varName string, value float64) Expr {
	return funcOf(f.name, f.arg.Sub(varName, value))
}

func (f *Func) Eval(env Bindings) (float64, error) {
	fn, ok := functions[f.name]
	if !ok {
		return math.NaN(), &EvalError{Kind: KindParse, Name: f.name, Msg: "unknown function " + f.name}
	}
	v, err := f.arg.Eval(env)
	if err != nil {
		return math.NaN(), err
	}
	return fn(v), nil
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && f.arg.Equal(o.arg)
}

func (f *Func) toJSON() map[string]interface{} {
	return map[string]interface{}{"type": "func", "name": f.name, "arg": f.arg.toJSON()}
}

// ============================================================
// Helpers
// ============================================================

func String(e Expr) string { return e.String() }
func LaTeX(e Expr) string  { return e.LaTeX() }

func Sub(expr Expr, varName string, value float64) Expr { return expr.Sub(varName, value) }

func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// FreeSymbols returns the set of variable names appearing in e.
func FreeSymbols(e Expr) map[string]struct{} {
	out := map[string]struct{}{}
	collectSymbols(e, out)
	return out
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Neg:
		collectSymbols(v.arg, out)
	case *BinOp:
		collectSymbols(v.left, out)
		collectSymbols(v.right, out)
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		collectSymbols(v.arg, out)
	}
}

// SymbolNames returns FreeSymbols(e) sorted.
func SymbolNames(e Expr) []string {
	set := FreeSymbols(e)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

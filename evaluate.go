package mathpad

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ============================================================
// Evaluation errors
// ============================================================

type EvalErrorKind int

const (
	KindParse EvalErrorKind = iota
	KindUnbound
	KindBinding
)

func (k EvalErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindUnbound:
		return "unbound"
	case KindBinding:
		return "binding"
	}
	return "unknown"
}

// EvalError is a failure to evaluate at all, as opposed to a domain
// problem at one point (which yields a non-finite value instead).
type EvalError struct {
	Kind EvalErrorKind
	Name string
	Msg  string
	Err  error
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case KindUnbound:
		return fmt.Sprintf("variable %q has no value", e.Name)
	case KindBinding:
		return fmt.Sprintf("cannot bind %q: %s", e.Name, e.Msg)
	}
	return "parse error: " + e.Msg
}

func (e *EvalError) Unwrap() error { return e.Err }

// DomainError reports a point where the expression has no real value.
type DomainError struct {
	Value float64
	At    Bindings
}

func (e *DomainError) Error() string {
	names := make([]string, 0, len(e.At))
	for n := range e.At {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%g", n, e.At[n])
	}
	if len(parts) == 0 {
		return fmt.Sprintf("no real value (got %v)", e.Value)
	}
	return fmt.Sprintf("no real value at %s (got %v)", strings.Join(parts, ", "), e.Value)
}

// Available reports whether v is a usable point value. NaN and ±Inf are
// never plotted or summed.
func Available(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ============================================================
// Program — a parsed expression ready for repeated evaluation
// ============================================================

type Program struct {
	source string
	expr   Expr
	vars   []string
}

// Compile parses canonical text once. The resulting tree can only reach
// arithmetic, the function table and the constants pi and e.
func Compile(text string) (*Program, error) {
	e, err := Parse(text)
	if err != nil {
		return nil, &EvalError{Kind: KindParse, Msg: err.Error(), Err: err}
	}
	return &Program{source: text, expr: e, vars: SymbolNames(e)}, nil
}

func (p *Program) Source() string { return p.source }
func (p *Program) Expr() Expr     { return p.expr }

// Variables returns the sorted names the expression needs bound.
func (p *Program) Variables() []string { return append([]string(nil), p.vars...) }

// Eval computes the expression under bindings. Domain failures come back
// as a non-finite value with a nil error.
func (p *Program) Eval(bindings Bindings) (float64, error) {
	if err := checkBindings(bindings); err != nil {
		return math.NaN(), err
	}
	return p.expr.Eval(bindings)
}

// EvalStrict is Eval with non-finite results reported as *DomainError.
func (p *Program) EvalStrict(bindings Bindings) (float64, error) {
	v, err := p.Eval(bindings)
	if err != nil {
		return v, err
	}
	if !Available(v) {
		return v, &DomainError{Value: v, At: bindings}
	}
	return v, nil
}

// Func returns f(x) with varName bound to x and the remaining bindings
// fixed. Bindings are checked once, here.
func (p *Program) Func(varName string, fixed Bindings) (func(x float64) (float64, error), error) {
	env := make(Bindings, len(fixed)+1)
	for k, v := range fixed {
		env[k] = v
	}
	env[varName] = 0
	if err := checkBindings(env); err != nil {
		return nil, err
	}
	for _, name := range p.vars {
		if _, ok := env[name]; !ok {
			return nil, &EvalError{Kind: KindUnbound, Name: name}
		}
	}
	return func(x float64) (float64, error) {
		env[varName] = x
		return p.expr.Eval(env)
	}, nil
}

// Evaluate parses and evaluates canonical text in one step.
func Evaluate(text string, bindings Bindings) (float64, error) {
	p, err := Compile(text)
	if err != nil {
		return math.NaN(), err
	}
	return p.Eval(bindings)
}

func checkBindings(b Bindings) error {
	for name := range b {
		switch {
		case !isIdentifier(name):
			return &EvalError{Kind: KindBinding, Name: name, Msg: "not a variable name"}
		case IsFunction(name):
			return &EvalError{Kind: KindBinding, Name: name, Msg: "name of a function"}
		case IsConstant(name):
			return &EvalError{Kind: KindBinding, Name: name, Msg: "name of a constant"}
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	return s != "" && isIdentStart(s[0]) && scanIdent(s, 0) == len(s)
}

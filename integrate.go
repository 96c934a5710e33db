package mathpad

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ============================================================
// Composite-rule integration (client-side fallback)
// ============================================================

type Rule string

const (
	RuleTrapezoid Rule = "trapezoid"
	RuleSimpson   Rule = "simpson"
)

var ruleNames = map[Rule]string{
	RuleTrapezoid: "Trapezoid rule",
	RuleSimpson:   "Simpson's 1/3 rule",
}

func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trapezoid", "trapezoidal", "trap":
		return RuleTrapezoid, nil
	case "simpson", "simpson13", "simpson-1/3":
		return RuleSimpson, nil
	}
	return "", fmt.Errorf("unknown integration rule %q (want trapezoid or simpson)", s)
}

// IntegrationRequest describes one integral. Variable defaults to "x";
// Bindings fixes any other variables the expression uses.
type IntegrationRequest struct {
	Expression   string   `json:"function"`
	Variable     string   `json:"variable,omitempty"`
	Lower        float64  `json:"a"`
	Upper        float64  `json:"b"`
	Subintervals int      `json:"n"`
	Bindings     Bindings `json:"bindings,omitempty"`
}

// TableRow is one evaluation node. Unavailable nodes (non-finite f(x))
// keep their row but contribute nothing to the sum.
type TableRow struct {
	Index        int     `json:"index"`
	X            float64 `json:"x"`
	FX           float64 `json:"fx"`
	Weight       int     `json:"weight"`
	Contribution float64 `json:"contribution"`
	Available    bool    `json:"available"`
}

// MarshalJSON writes an unavailable f(x) as null; JSON has no NaN.
func (r TableRow) MarshalJSON() ([]byte, error) {
	type row struct {
		Index        int      `json:"index"`
		X            float64  `json:"x"`
		FX           *float64 `json:"fx"`
		Weight       int      `json:"weight"`
		Contribution float64  `json:"contribution"`
		Available    bool     `json:"available"`
	}
	out := row{Index: r.Index, X: r.X, Weight: r.Weight, Contribution: r.Contribution, Available: r.Available}
	if r.Available {
		fx := r.FX
		out.FX = &fx
	}
	return json.Marshal(out)
}

type IntegrationResult struct {
	Method       string     `json:"method"`
	Rule         Rule       `json:"rule"`
	Expression   string     `json:"function"`
	Interval     [2]float64 `json:"interval"`
	Subintervals int        `json:"subintervals"`
	StepSize     float64    `json:"step_size"`
	Integral     float64    `json:"integral"`
	Rows         []TableRow `json:"table"`
	Skipped      int        `json:"skipped"`
}

// WeightedSum is Σ contribution over the available rows.
func (r *IntegrationResult) WeightedSum() float64 {
	sum := 0.0
	for _, row := range r.Rows {
		if row.Available {
			sum += row.Contribution
		}
	}
	return sum
}

// MaxSubintervals caps the subinterval count of an integration and the
// point count of a sample. Every node is kept in the result, so the cap
// bounds the memory one request can claim. Set it once at startup.
var MaxSubintervals = 1_000_000

// PreconditionError rejects a request outright; the request is never
// adjusted to fit. Rule is empty for sampling.
type PreconditionError struct {
	Rule Rule
	Msg  string
}

func (e *PreconditionError) Error() string {
	if e.Rule == "" {
		return e.Msg
	}
	return string(e.Rule) + ": " + e.Msg
}

// Trapezoid integrates with weights 1,2,...,2,1 and factor h/2.
func Trapezoid(req IntegrationRequest) (*IntegrationResult, error) {
	if req.Subintervals < 1 {
		return nil, &PreconditionError{Rule: RuleTrapezoid, Msg: fmt.Sprintf("n must be at least 1 (got %d)", req.Subintervals)}
	}
	return integrate(RuleTrapezoid, req, 2, func(i, n int) int {
		if i == 0 || i == n {
			return 1
		}
		return 2
	})
}

// Simpson integrates with weights 1,4,2,4,...,4,1 and factor h/3.
func Simpson(req IntegrationRequest) (*IntegrationResult, error) {
	n := req.Subintervals
	if n < 2 || n%2 != 0 {
		return nil, &PreconditionError{Rule: RuleSimpson, Msg: fmt.Sprintf("n must be even and at least 2 (got %d)", n)}
	}
	return integrate(RuleSimpson, req, 3, func(i, n int) int {
		switch {
		case i == 0 || i == n:
			return 1
		case i%2 == 1:
			return 4
		default:
			return 2
		}
	})
}

// Integrate dispatches on rule.
func Integrate(rule Rule, req IntegrationRequest) (*IntegrationResult, error) {
	switch rule {
	case RuleTrapezoid:
		return Trapezoid(req)
	case RuleSimpson:
		return Simpson(req)
	}
	return nil, fmt.Errorf("unknown integration rule %q", rule)
}

func integrate(rule Rule, req IntegrationRequest, divisor float64, weight func(i, n int) int) (*IntegrationResult, error) {
	a, b, n := req.Lower, req.Upper, req.Subintervals
	if n > MaxSubintervals {
		return nil, &PreconditionError{Rule: rule, Msg: fmt.Sprintf("n must be at most %d (got %d)", MaxSubintervals, n)}
	}
	if !Available(a) || !Available(b) {
		return nil, &PreconditionError{Rule: rule, Msg: "bounds must be finite numbers"}
	}
	varName := req.Variable
	if varName == "" {
		varName = "x"
	}
	prog, err := Compile(req.Expression)
	if err != nil {
		return nil, err
	}
	f, err := prog.Func(varName, req.Bindings)
	if err != nil {
		return nil, err
	}

	h := (b - a) / float64(n)
	rows := make([]TableRow, 0, n+1)
	skipped := 0
	sum := 0.0
	for i := 0; i <= n; i++ {
		x := a + float64(i)*h
		if i == n {
			x = b
		}
		fx, err := f(x)
		if err != nil {
			return nil, fmt.Errorf("node %d (x=%g): %w", i, x, err)
		}
		row := TableRow{Index: i, X: x, FX: fx, Weight: weight(i, n), Available: Available(fx)}
		if row.Available {
			row.Contribution = float64(row.Weight) * fx
			sum += row.Contribution
		} else {
			skipped++
		}
		rows = append(rows, row)
	}

	integral := (h / divisor) * sum
	if math.IsInf(integral, 0) || math.IsNaN(integral) {
		// every node was finite, so only the sum itself can overflow
		return nil, &DomainError{Value: integral}
	}
	return &IntegrationResult{
		Method:       ruleNames[rule],
		Rule:         rule,
		Expression:   req.Expression,
		Interval:     [2]float64{a, b},
		Subintervals: n,
		StepSize:     h,
		Integral:     integral,
		Rows:         rows,
		Skipped:      skipped,
	}, nil
}

// Package backend talks to the numerical-method services. Every service
// exposes the same contract: POST a JSON object whose "function" field is a
// canonical expression (plus method-specific parameters) and get back either
// a result object or {"error": "..."}.
package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// METHODS
// =============================================================================

type Method string

const (
	Bisection     Method = "bisection"
	FixedPoint    Method = "fixed-point"
	NewtonRaphson Method = "newton-raphson"
	Secant        Method = "secant"
	Jacobi        Method = "jacobi"
	GaussSeidel   Method = "gauss-seidel"
	Euler         Method = "euler"
	Romberg       Method = "romberg"
	Simpson       Method = "simpson"
	Trapezoid     Method = "trapezoid"
)

// requiredParams are the request keys each service rejects a request
// without. Linear-system services take a matrix instead of a function.
var requiredParams = map[Method][]string{
	Bisection:     {"function", "xi", "xu", "tolerance", "max_iterations"},
	FixedPoint:    {"function", "x0"},
	NewtonRaphson: {"function", "x0"},
	Secant:        {"function", "x0", "x1"},
	Jacobi:        {"A", "b"},
	GaussSeidel:   {"A", "b"},
	Euler:         {"function", "x0", "y0", "h", "x_final"},
	Romberg:       {"function", "a", "b"},
	Simpson:       {"function", "a", "b", "n"},
	Trapezoid:     {"function", "a", "b", "n"},
}

// Methods lists every known method, sorted.
func Methods() []Method {
	out := make([]Method, 0, len(requiredParams))
	for m := range requiredParams {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseMethod accepts a method name in any case. "gauss-sediel" is accepted
// as a historical spelling of gauss-seidel.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "gauss-sediel" {
		name = string(GaussSeidel)
	}
	m := Method(name)
	if _, ok := requiredParams[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

func (m Method) Valid() bool { _, ok := requiredParams[m]; return ok }

// RequiredParams returns the keys a request for m must carry.
func (m Method) RequiredParams() []string {
	return append([]string(nil), requiredParams[m]...)
}

// TakesFunction reports whether m's request carries a "function" expression.
func (m Method) TakesFunction() bool {
	for _, k := range requiredParams[m] {
		if k == "function" {
			return true
		}
	}
	return false
}

// EnvKey is the suffix used for per-method environment overrides,
// e.g. NEWTON_RAPHSON for MATHPAD_NEWTON_RAPHSON_URL.
func (m Method) EnvKey() string {
	return strings.ToUpper(strings.ReplaceAll(string(m), "-", "_"))
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrUnknownMethod     = errors.New("backend: unknown method")
	ErrInFlight          = errors.New("backend: a submission is already in flight")
	ErrCanceled          = errors.New("backend: submission canceled")
	ErrIncompleteRequest = errors.New("backend: incomplete request")
)

// SolveError is a failure reported by the service itself: a non-2xx
// status or an {"error": "..."} payload. Message is the service's text.
type SolveError struct {
	Method  Method
	Status  int
	Message string
}

func (e *SolveError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Method, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// ConnectionError means the service could not be reached. It is never
// retried and never turned into a result.
type ConnectionError struct {
	Method Method
	URL    string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: cannot reach %s: %v", e.Method, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// =============================================================================
// REQUEST / RESPONSE
// =============================================================================

// Request is the JSON body sent to a service.
type Request map[string]interface{}

// NewRequest starts a request with the canonical expression as "function".
func NewRequest(function string) Request {
	return Request{"function": function}
}

// Set adds a parameter and returns r for chaining.
func (r Request) Set(key string, value interface{}) Request {
	r[key] = value
	return r
}

func (r Request) Function() string {
	s, _ := r["function"].(string)
	return s
}

// Missing returns the keys m requires that r lacks, in the service's order.
func (r Request) Missing(m Method) []string {
	var out []string
	for _, k := range requiredParams[m] {
		if _, ok := r[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Response is a service's result object. Apart from the error field and
// the iteration rows it is treated opaquely.
type Response map[string]interface{}

// ErrorMessage returns the service's error text. Iterative methods also
// report a numeric "error" (the last iteration's error estimate) on
// success, so only a string counts as a failure.
func (r Response) ErrorMessage() (string, bool) {
	s, ok := r["error"].(string)
	return s, ok
}

func (r Response) Float(key string) (float64, bool) {
	f, ok := r[key].(float64)
	return f, ok
}

func (r Response) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Row is one iteration-table row as the service sent it.
type Row map[string]interface{}

// rowKeys are the fields services use for their iteration tables, in the
// order they are tried.
var rowKeys = []string{"iterations_detail", "table", "iterations", "romberg_table"}

// Rows extracts the iteration table. Object rows are returned as is;
// array rows (the Romberg triangle) become {"row": i, "values": [...]}.
func (r Response) Rows() []Row {
	for _, key := range rowKeys {
		raw, ok := r[key].([]interface{})
		if !ok {
			continue
		}
		rows := make([]Row, 0, len(raw))
		for i, item := range raw {
			switch v := item.(type) {
			case map[string]interface{}:
				rows = append(rows, Row(v))
			case []interface{}:
				rows = append(rows, Row{"row": float64(i), "values": v})
			}
		}
		return rows
	}
	return nil
}

package mathpad

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ============================================================
// Validation results
// ============================================================

type ValidationKind int

const (
	ValidOK ValidationKind = iota
	ValidSyntaxError
	ValidUnbalancedParens
)

func (k ValidationKind) String() string {
	switch k {
	case ValidOK:
		return "ok"
	case ValidSyntaxError:
		return "syntax-error"
	case ValidUnbalancedParens:
		return "unbalanced-parens"
	}
	return "unknown"
}

func (k ValidationKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParenKind names the bracket an unbalanced expression is missing.
type ParenKind string

const (
	MissingOpen  ParenKind = "missing-open"
	MissingClose ParenKind = "missing-close"
)

// ValidationResult is produced fresh by every Validate call.
// Pos is the byte offset of the offending parenthesis for
// ValidUnbalancedParens and -1 otherwise.
type ValidationResult struct {
	Kind    ValidationKind `json:"kind"`
	Message string         `json:"message,omitempty"`
	Missing ParenKind      `json:"missing,omitempty"`
	Pos     int            `json:"pos"`
}

func (r ValidationResult) OK() bool { return r.Kind == ValidOK }

// Err returns nil for a valid expression and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Result: r}
}

type ValidationError struct{ Result ValidationResult }

func (e *ValidationError) Error() string {
	if e.Result.Kind == ValidUnbalancedParens {
		return "unbalanced parentheses: " + e.Result.Message
	}
	return "syntax error: " + e.Result.Message
}

// ============================================================
// Syntax checker collaborator
// ============================================================

// SyntaxChecker parses expression text written with '^' as the power
// operator and reports any parse failure.
type SyntaxChecker interface {
	Check(text string) error
}

type SyntaxCheckerFunc func(text string) error

func (f SyntaxCheckerFunc) Check(text string) error { return f(text) }

// ParserChecker checks syntax with this package's own parser.
type ParserChecker struct{}

func (ParserChecker) Check(text string) error {
	_, err := Parse(text)
	var pe *ParseError
	if errors.As(err, &pe) {
		// positions refer to the rewritten text, not the caller's
		return errors.New(pe.Msg)
	}
	return err
}

// ============================================================
// Validator
// ============================================================

type Validator struct {
	checker SyntaxChecker
	logger  *zap.Logger
}

type ValidatorOption func(*Validator)

func WithSyntaxChecker(c SyntaxChecker) ValidatorOption {
	return func(v *Validator) { v.checker = c }
}

func WithValidatorLogger(l *zap.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = l }
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{checker: ParserChecker{}, logger: zap.NewNop()}
	for _, o := range opts {
		o(v)
	}
	return v
}

var defaultValidator = NewValidator()

// Validate checks expr with the default parser-backed validator.
func Validate(expr string) ValidationResult { return defaultValidator.Validate(expr) }

// Validate runs the parenthesis scan, then the delegated syntax check.
// It stops at the first failure and never modifies expr.
func (v *Validator) Validate(expr string) ValidationResult {
	if r := checkParens(expr); !r.OK() {
		v.logger.Debug("validation failed", zap.String("expr", expr), zap.String("missing", string(r.Missing)), zap.Int("pos", r.Pos))
		return r
	}
	if err := v.checker.Check(strings.ReplaceAll(expr, "**", "^")); err != nil {
		msg := normalizeMessage(err.Error())
		v.logger.Debug("syntax check failed", zap.String("expr", expr), zap.String("message", msg))
		return ValidationResult{Kind: ValidSyntaxError, Message: msg, Pos: -1}
	}
	return ValidationResult{Kind: ValidOK, Pos: -1}
}

func checkParens(expr string) ValidationResult {
	var open []int
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			open = append(open, i)
		case ')':
			if len(open) == 0 {
				return ValidationResult{
					Kind:    ValidUnbalancedParens,
					Missing: MissingOpen,
					Pos:     i,
					Message: fmt.Sprintf("')' at position %d has no matching '('", i+1),
				}
			}
			open = open[:len(open)-1]
		}
	}
	if n := len(open); n > 0 {
		return ValidationResult{
			Kind:    ValidUnbalancedParens,
			Missing: MissingClose,
			Pos:     open[n-1],
			Message: fmt.Sprintf("'(' at position %d is never closed", open[n-1]+1),
		}
	}
	return ValidationResult{Kind: ValidOK, Pos: -1}
}

func normalizeMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) >= 6 && strings.EqualFold(msg[:6], "error:") {
		msg = strings.TrimSpace(msg[6:])
	}
	return msg
}

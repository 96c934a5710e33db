// Package mathpad is the expression engine behind a button-driven math
// editor: composing an expression, showing it in conventional notation,
// validating it, and evaluating it locally.
//
// Design goals:
//   - One canonical ASCII form (`**` for powers, `sqrt(`, `pi`) shared by
//     the editor, the evaluator and the numerical-method backends
//   - Display notation (×, ÷, π, √, superscripts) derived on demand, never stored
//   - Evaluation by a restricted interpreter: arithmetic, a fixed function
//     table, pi and e, nothing else
//   - Failures are values: parse errors, unbalanced parentheses and
//     precondition violations are returned, domain problems yield NaN/±Inf
package mathpad

// Version of the expression engine.
const Version = "0.3.0"

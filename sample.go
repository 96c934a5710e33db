package mathpad

import "fmt"

// ============================================================
// Curve sampling for plots
// ============================================================

// DefaultSamplePoints matches the resolution of the integration screens'
// smooth curve.
const DefaultSamplePoints = 200

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sample evaluates expr at points+1 equally spaced x values across
// [lower, upper] and returns the available ones in order. Points where the
// expression has no real value are omitted.
func Sample(expr, varName string, lower, upper float64, points int, fixed Bindings) ([]Point, error) {
	if points < 1 || points > MaxSubintervals {
		return nil, &PreconditionError{Msg: fmt.Sprintf("sample: points must be between 1 and %d (got %d)", MaxSubintervals, points)}
	}
	if !Available(lower) || !Available(upper) {
		return nil, &PreconditionError{Msg: "sample: bounds must be finite numbers"}
	}
	if varName == "" {
		varName = "x"
	}
	prog, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	f, err := prog.Func(varName, fixed)
	if err != nil {
		return nil, err
	}
	step := (upper - lower) / float64(points)
	out := make([]Point, 0, points+1)
	for i := 0; i <= points; i++ {
		x := lower + float64(i)*step
		if i == points {
			x = upper
		}
		y, err := f(x)
		if err != nil {
			return nil, err
		}
		if Available(y) {
			out = append(out, Point{X: x, Y: y})
		}
	}
	return out, nil
}

// Nodes returns the available integration nodes of r, for drawing the
// trapezoid or parabola overlay on top of a sampled curve.
func Nodes(r *IntegrationResult) []Point {
	out := make([]Point, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Available {
			out = append(out, Point{X: row.X, Y: row.FX})
		}
	}
	return out
}

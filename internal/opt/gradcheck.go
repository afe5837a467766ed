package opt

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// GradientCheck compares an analytic gradient with a central finite difference.
type GradientCheck struct {
	Analytic    []float64
	Numeric     []float64
	MaxAbsError float64
	MaxRelError float64
	WorstIndex  int
}

// CheckGradient evaluates obj's gradient at x and its central-difference
// approximation. Points where a coordinate sits on a kink of a piecewise
// objective will show a large error there; that is expected.
func CheckGradient(obj Objective, x []float64) GradientCheck {
	analytic := make([]float64, obj.Dim())
	obj.Gradient(x, analytic)

	numeric := fd.Gradient(nil, obj.Value, x, &fd.Settings{Formula: fd.Central})

	check := GradientCheck{Analytic: analytic, Numeric: numeric, WorstIndex: -1}
	for i := range analytic {
		abs := math.Abs(analytic[i] - numeric[i])
		rel := abs / math.Max(1, math.Abs(analytic[i]))
		if abs > check.MaxAbsError || check.WorstIndex < 0 {
			check.MaxAbsError = abs
			check.WorstIndex = i
		}
		check.MaxRelError = math.Max(check.MaxRelError, rel)
	}
	return check
}

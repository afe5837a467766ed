package opt

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface.
// Mayfly is gradient-free and searches the box [0, upper] in every dimension.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
	upper    float64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64, upper float64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
		upper:    upper,
	}
}

// Name returns "mayfly".
func (m *MayflyAdapter) Name() string {
	return SolverMayfly
}

// Run executes the Mayfly optimization using the external library.
// The population runs for the whole iteration budget, so the result always
// reports BudgetExhausted. If the swarm never beats x0, x0 is returned.
func (m *MayflyAdapter) Run(obj Objective, x0 []float64) *Result {
	dim := obj.Dim()
	if len(x0) != dim {
		panic("starting point dimension mismatch")
	}

	start := make([]float64, dim)
	for i, v := range x0 {
		start[i] = math.Max(0, v)
	}
	startValue := obj.Value(start)

	evals := 1
	scratch := make([]float64, dim)
	eval := func(pos []float64) float64 {
		evals++
		for i, v := range pos {
			scratch[i] = math.Max(0, v)
		}
		return obj.Value(scratch)
	}

	// Create config for external Mayfly library
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = m.upper

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result := &Result{
		X:           start,
		Value:       startValue,
		Iterations:  m.maxIters,
		Evaluations: evals,
		State:       BudgetExhausted,
	}

	out, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly optimization failed, keeping starting point", "error", err)
		result.Evaluations = evals
		return result
	}

	best := make([]float64, dim)
	for i, v := range out.GlobalBest.Position {
		best[i] = math.Max(0, v)
	}
	if value := obj.Value(best); value < startValue {
		result.X = best
		result.Value = value
	}
	result.Evaluations = evals
	return result
}

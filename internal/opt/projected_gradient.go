package opt

import (
	"log/slog"
	"math"
)

// Settings configures ProjectedGradient. Zero fields take the defaults.
type Settings struct {
	// InitialStep is the step size every line search starts from.
	InitialStep float64
	// MinStep ends the run (Converged) when halving drops the step below it.
	MinStep float64
	// MaxIterations caps the outer loop (BudgetExhausted).
	MaxIterations int
	// OnStep, if set, is called after every accepted step.
	OnStep func(Step)
}

// Default settings for the projected gradient solver.
const (
	DefaultInitialStep   = 10.0
	DefaultMinStep       = 1e-8
	DefaultMaxIterations = 50000
)

// DefaultSettings returns the reference configuration.
func DefaultSettings() Settings {
	return Settings{
		InitialStep:   DefaultInitialStep,
		MinStep:       DefaultMinStep,
		MaxIterations: DefaultMaxIterations,
	}
}

func (s Settings) withDefaults() Settings {
	if s.InitialStep <= 0 {
		s.InitialStep = DefaultInitialStep
	}
	if s.MinStep <= 0 {
		s.MinStep = DefaultMinStep
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultMaxIterations
	}
	return s
}

// ProjectedGradient minimizes an Objective subject to x >= 0 by gradient
// descent with a halving backtracking line search. Every step is projected
// back onto the feasible region and accepted only on strict improvement, so
// the objective never increases.
type ProjectedGradient struct {
	settings Settings
}

// NewProjectedGradient creates a projected gradient solver.
func NewProjectedGradient(settings Settings) *ProjectedGradient {
	return &ProjectedGradient{settings: settings.withDefaults()}
}

// Name returns "pgd".
func (pg *ProjectedGradient) Name() string {
	return SolverPGD
}

// Settings returns the effective settings.
func (pg *ProjectedGradient) Settings() Settings {
	return pg.settings
}

// Run executes the descent loop. It holds no state between calls, so one
// ProjectedGradient may serve concurrent runs on different objectives.
func (pg *ProjectedGradient) Run(obj Objective, x0 []float64) *Result {
	n := obj.Dim()
	if len(x0) != n {
		panic("starting point dimension mismatch")
	}
	s := pg.settings

	x := make([]float64, n)
	for i, v := range x0 {
		x[i] = math.Max(0, v)
	}
	candidate := make([]float64, n)
	grad := make([]float64, n)

	value := obj.Value(x)
	obj.Gradient(x, grad)
	evals := 1

	state := Searching
	iteration := 0

	for !state.Terminal() {
		if iteration >= s.MaxIterations {
			state = BudgetExhausted
			break
		}
		iteration++

		state = LineSearching
		step := s.InitialStep
		for state == LineSearching {
			project(candidate, x, grad, step)
			next := obj.Value(candidate)
			evals++

			if next < value {
				x, candidate = candidate, x
				value = next
				obj.Gradient(x, grad)
				state = Searching
				if s.OnStep != nil {
					s.OnStep(Step{Iteration: iteration, Value: value, StepSize: step})
				}
				continue
			}

			step *= 0.5
			if step < s.MinStep {
				state = Converged
			}
		}
	}

	slog.Debug("Projected gradient finished",
		"state", state.String(),
		"iterations", iteration,
		"evaluations", evals,
		"value", value,
	)

	return &Result{
		X:           x,
		Value:       value,
		Iterations:  iteration,
		Evaluations: evals,
		State:       state,
	}
}

// project writes max(0, x - step*grad) into dst.
func project(dst, x, grad []float64, step float64) {
	for i := range dst {
		dst[i] = math.Max(0, x[i]-step*grad[i])
	}
}

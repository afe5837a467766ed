package opt

import "fmt"

// Solver names accepted by New.
const (
	SolverPGD    = "pgd"
	SolverMayfly = "mayfly"
)

// Config selects and parameterizes a solver.
type Config struct {
	Solver        string  `json:"solver,omitempty"`
	MaxIterations int     `json:"maxIterations,omitempty"`
	InitialStep   float64 `json:"initialStep,omitempty"`
	MinStep       float64 `json:"minStep,omitempty"`

	// Mayfly only.
	Population int     `json:"population,omitempty"`
	Seed       int64   `json:"seed,omitempty"`
	Upper      float64 `json:"upper,omitempty"`

	// OnStep receives accepted steps (pgd only).
	OnStep func(Step) `json:"-"`
}

// Mayfly defaults.
const (
	DefaultPopulation  = 30
	DefaultUpper       = 10.0
	DefaultMayflyIters = 500
)

// New builds the optimizer named by cfg.Solver ("" means pgd).
func New(cfg Config) (Optimizer, error) {
	switch cfg.Solver {
	case "", SolverPGD:
		return NewProjectedGradient(Settings{
			InitialStep:   cfg.InitialStep,
			MinStep:       cfg.MinStep,
			MaxIterations: cfg.MaxIterations,
			OnStep:        cfg.OnStep,
		}), nil
	case SolverMayfly:
		iters := cfg.MaxIterations
		if iters <= 0 {
			iters = DefaultMayflyIters
		}
		// mayfly v0.1.0 requires a population of at least 20
		pop := cfg.Population
		if pop < 20 {
			pop = DefaultPopulation
		}
		upper := cfg.Upper
		if upper <= 0 {
			upper = DefaultUpper
		}
		return NewMayfly(iters, pop, cfg.Seed, upper), nil
	default:
		return nil, fmt.Errorf("unknown solver: %s", cfg.Solver)
	}
}

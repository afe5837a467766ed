package fit

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/recipefit/internal/opt"
	"github.com/cwbudde/recipefit/internal/recipe"
)

// Options configures Optimize. The zero value uses the default rules, the
// projected gradient solver and one serving of everything as the start.
type Options struct {
	Rules     *RuleTable
	Optimizer opt.Optimizer
	// Start warm-starts the solver from a previous servings vector.
	Start []float64
}

// Solution is the result of one optimization call.
type Solution struct {
	Recipe   *Recipe          `json:"recipe"`
	Report   []NutrientStatus `json:"report"`
	Servings []float64        `json:"servings"`

	Objective        float64 `json:"objective"`
	InitialObjective float64 `json:"initialObjective"`
	Penalty          float64 `json:"penalty"`

	Solver      string        `json:"solver"`
	Iterations  int           `json:"iterations"`
	Evaluations int           `json:"evaluations"`
	State       opt.State     `json:"state"`
	Converged   bool          `json:"converged"`
	Elapsed     time.Duration `json:"elapsed"`

	Missing []MissingNutrient `json:"missing,omitempty"`
}

// Optimize builds the problem, runs the solver and assembles the recipe.
// Invalid input fails before the solver runs. Hitting the iteration budget
// is not an error: the solution is returned with Converged set to false.
func Optimize(ingredients []recipe.Ingredient, targets recipe.NutrientTargets, opts Options) (*Solution, error) {
	p, err := NewProblem(ingredients, targets, opts.Rules)
	if err != nil {
		return nil, err
	}

	optimizer := opts.Optimizer
	if optimizer == nil {
		optimizer = opt.NewProjectedGradient(opt.DefaultSettings())
	}

	x0 := p.Start()
	if opts.Start != nil {
		if len(opts.Start) != p.Dim() {
			return nil, fmt.Errorf("%w: start has %d entries, %d ingredients", ErrLengthMismatch, len(opts.Start), p.Dim())
		}
		x0 = opts.Start
	}
	initial := p.Value(x0)

	slog.Info("Optimizing recipe",
		"solver", optimizer.Name(),
		"ingredients", p.Dim(),
		"nutrients", len(p.nutrients),
		"initial_objective", initial,
	)

	start := time.Now()
	result := optimizer.Run(p, x0)
	elapsed := time.Since(start)

	rec, err := Assemble(result.X, ingredients, p)
	if err != nil {
		return nil, err
	}
	report, err := Report(result.X, targets, p)
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		Recipe:           rec,
		Report:           report,
		Servings:         result.X,
		Objective:        result.Value,
		InitialObjective: initial,
		Penalty:          p.Penalty(result.X),
		Solver:           optimizer.Name(),
		Iterations:       result.Iterations,
		Evaluations:      result.Evaluations,
		State:            result.State,
		Converged:        result.Converged(),
		Elapsed:          elapsed,
		Missing:          p.Missing(),
	}

	if !sol.Converged {
		slog.Warn("Optimizer stopped before converging, result may be sub-optimal",
			"solver", sol.Solver,
			"state", sol.State.String(),
			"iterations", sol.Iterations,
		)
	}
	slog.Info("Recipe optimized",
		"state", sol.State.String(),
		"iterations", sol.Iterations,
		"objective", sol.Objective,
		"total_cost", rec.TotalCost,
		"elapsed", elapsed,
	)

	return sol, nil
}

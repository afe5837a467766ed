package opt

import "fmt"

// Objective is a differentiable function over a vector of Dim() variables.
type Objective interface {
	// Dim returns the number of variables.
	Dim() int
	// Value evaluates the function at x.
	Value(x []float64) float64
	// Gradient writes the gradient at x into dx (len(dx) == Dim()).
	Gradient(x, dx []float64)
}

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Name identifies the algorithm in logs, metrics and stored results.
	Name() string
	// Run minimizes obj over the non-negative orthant starting from x0.
	// x0 is not modified. The returned X never contains negative entries.
	Run(obj Objective, x0 []float64) *Result
}

// State is a phase of the optimizer's outer/inner loop.
type State int

const (
	// Searching: outer loop active, about to try a new descent step.
	Searching State = iota
	// LineSearching: inner loop active, halving the step until improvement.
	LineSearching
	// Converged: no improving step exists above the minimum step size.
	Converged
	// BudgetExhausted: the outer iteration cap was reached first.
	BudgetExhausted
)

var stateNames = [...]string{
	Searching:       "searching",
	LineSearching:   "line_searching",
	Converged:       "converged",
	BudgetExhausted: "budget_exhausted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further iterations follow.
func (s State) Terminal() bool {
	return s == Converged || s == BudgetExhausted
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState converts a state name back into a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown optimizer state: %q", name)
}

// Result holds the output of an optimizer run.
type Result struct {
	X           []float64 // last accepted point
	Value       float64   // objective at X
	Iterations  int       // outer iterations performed
	Evaluations int       // objective evaluations
	State       State     // terminal state
}

// Converged is false when the run stopped on its iteration budget. The
// result is still usable, just possibly sub-optimal.
func (r *Result) Converged() bool {
	return r.State == Converged
}

// Step describes one accepted descent step.
type Step struct {
	Iteration int
	Value     float64
	StepSize  float64
}

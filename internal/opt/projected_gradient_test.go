package opt

import (
	"math"
	"sync"
	"testing"
)

// shiftedSphere: f(x) = sum((x_i - c_i)^2), minimum over x >= 0 at max(0, c).
type shiftedSphere struct {
	center []float64
}

func (s shiftedSphere) Dim() int { return len(s.center) }

func (s shiftedSphere) Value(x []float64) float64 {
	var sum float64
	for i, v := range x {
		d := v - s.center[i]
		sum += d * d
	}
	return sum
}

func (s shiftedSphere) Gradient(x, dx []float64) {
	for i, v := range x {
		dx[i] = 2 * (v - s.center[i])
	}
}

func TestProjectedGradient_Converges(t *testing.T) {
	obj := shiftedSphere{center: []float64{3, -2, 0.5}}
	pg := NewProjectedGradient(DefaultSettings())

	result := pg.Run(obj, []float64{1, 1, 1})

	if result.State != Converged {
		t.Fatalf("Expected converged, got %s", result.State)
	}
	want := []float64{3, 0, 0.5}
	for i, v := range result.X {
		if math.Abs(v-want[i]) > 1e-4 {
			t.Errorf("x[%d] = %f, expected %f", i, v, want[i])
		}
	}
	if result.Value > 4+1e-6 {
		t.Errorf("Expected value near 4 (constrained coordinate), got %f", result.Value)
	}
}

func TestProjectedGradient_NonNegative(t *testing.T) {
	obj := shiftedSphere{center: []float64{-5, -1, -0.1, 2}}
	pg := NewProjectedGradient(DefaultSettings())

	result := pg.Run(obj, []float64{4, 4, 4, 4})

	for i, v := range result.X {
		if v < 0 {
			t.Errorf("x[%d] = %f is negative", i, v)
		}
	}
}

func TestProjectedGradient_ProjectsStartingPoint(t *testing.T) {
	obj := shiftedSphere{center: []float64{1}}
	pg := NewProjectedGradient(Settings{MaxIterations: 1})

	x0 := []float64{-3}
	result := pg.Run(obj, x0)

	if x0[0] != -3 {
		t.Error("Starting point must not be modified")
	}
	if result.X[0] < 0 {
		t.Errorf("Result must be feasible, got %f", result.X[0])
	}
}

func TestProjectedGradient_StrictlyDecreasing(t *testing.T) {
	obj := shiftedSphere{center: []float64{7, 0.25, -3, 12}}

	var values []float64
	settings := DefaultSettings()
	settings.OnStep = func(s Step) {
		values = append(values, s.Value)
	}
	pg := NewProjectedGradient(settings)

	start := []float64{1, 1, 1, 1}
	result := pg.Run(obj, start)

	if len(values) == 0 {
		t.Fatal("Expected at least one accepted step")
	}
	prev := obj.Value(start)
	for i, v := range values {
		if !(v < prev) {
			t.Fatalf("Step %d value %f did not decrease from %f", i, v, prev)
		}
		prev = v
	}
	if values[len(values)-1] != result.Value {
		t.Errorf("Final value %f does not match last accepted step %f", result.Value, values[len(values)-1])
	}
}

func TestProjectedGradient_BudgetExhausted(t *testing.T) {
	obj := shiftedSphere{center: []float64{1000, 2000}}
	pg := NewProjectedGradient(Settings{InitialStep: 1e-6, MaxIterations: 5})

	result := pg.Run(obj, []float64{0, 0})

	if result.State != BudgetExhausted {
		t.Fatalf("Expected budget exhausted, got %s", result.State)
	}
	if result.Converged() {
		t.Error("Budget exhausted result must not report converged")
	}
	if result.Iterations != 5 {
		t.Errorf("Expected 5 iterations, got %d", result.Iterations)
	}
	for i, v := range result.X {
		if v < 0 {
			t.Errorf("x[%d] = %f is negative", i, v)
		}
	}
}

func TestProjectedGradient_AlreadyOptimal(t *testing.T) {
	obj := shiftedSphere{center: []float64{2, 3}}
	pg := NewProjectedGradient(DefaultSettings())

	result := pg.Run(obj, []float64{2, 3})

	if result.State != Converged {
		t.Fatalf("Expected converged, got %s", result.State)
	}
	if result.Iterations != 1 {
		t.Errorf("Expected a single failed line search, got %d iterations", result.Iterations)
	}
	if result.X[0] != 2 || result.X[1] != 3 {
		t.Errorf("Optimal start should be kept, got %v", result.X)
	}
}

func TestProjectedGradient_Deterministic(t *testing.T) {
	obj := shiftedSphere{center: []float64{1.5, -0.5, 8, 0.01}}
	pg := NewProjectedGradient(DefaultSettings())

	r1 := pg.Run(obj, []float64{1, 1, 1, 1})
	r2 := pg.Run(obj, []float64{1, 1, 1, 1})

	if r1.Value != r2.Value || r1.Iterations != r2.Iterations {
		t.Fatalf("Non-deterministic: %v/%d vs %v/%d", r1.Value, r1.Iterations, r2.Value, r2.Iterations)
	}
	for i := range r1.X {
		if r1.X[i] != r2.X[i] {
			t.Errorf("x[%d] differs: %v vs %v", i, r1.X[i], r2.X[i])
		}
	}
}

func TestProjectedGradient_ConcurrentRuns(t *testing.T) {
	pg := NewProjectedGradient(DefaultSettings())

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			obj := shiftedSphere{center: []float64{float64(i), 1}}
			results[i] = pg.Run(obj, []float64{1, 1})
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if math.Abs(r.X[0]-float64(i)) > 1e-4 {
			t.Errorf("Run %d: x[0] = %f, expected %d", i, r.X[0], i)
		}
	}
}

func TestSettings_Defaults(t *testing.T) {
	pg := NewProjectedGradient(Settings{})
	s := pg.Settings()

	if s.InitialStep != DefaultInitialStep || s.MinStep != DefaultMinStep || s.MaxIterations != DefaultMaxIterations {
		t.Errorf("Unexpected defaults: %+v", s)
	}
}

func TestState_String(t *testing.T) {
	for _, s := range []State{Searching, LineSearching, Converged, BudgetExhausted} {
		parsed, err := ParseState(s.String())
		if err != nil {
			t.Fatalf("ParseState(%q) failed: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("Expected %v, got %v", s, parsed)
		}
	}

	if _, err := ParseState("bogus"); err == nil {
		t.Error("Expected error for unknown state")
	}
	if !Converged.Terminal() || !BudgetExhausted.Terminal() || Searching.Terminal() {
		t.Error("Terminal states misreported")
	}
}

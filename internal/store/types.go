package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/opt"
	"github.com/cwbudde/recipefit/internal/recipe"
)

// Record is a solved recipe as persisted by a Store.
//
// The record keeps the full input document, so a solution can be resumed
// (warm-started from Servings) without the original recipe file. Only the
// servings vector survives; the solver restarts its line search from
// scratch, which for projected gradient descent loses nothing.
type Record struct {
	// ID is the job or run identifier
	ID string `json:"id"`

	RecipeName string `json:"recipeName,omitempty"`

	// Solver that produced the servings ("pgd" or "mayfly")
	Solver string `json:"solver"`

	// State is the optimizer's terminal state (converged, budget_exhausted)
	State string `json:"state"`

	// Servings per ingredient, aligned with Input.Ingredients
	Servings []float64 `json:"servings"`

	// Quantities are Servings times the serving size, in each ingredient's unit
	Quantities []float64 `json:"quantities"`

	TotalCost        float64 `json:"totalCost"`
	Objective        float64 `json:"objective"`
	InitialObjective float64 `json:"initialObjective"`
	Iterations       int     `json:"iterations"`

	Timestamp time.Time `json:"timestamp"`

	// Input is the recipe document that was optimized
	Input recipe.Document `json:"input"`
}

// Info is the listing view of a Record.
type Info struct {
	ID          string    `json:"id"`
	RecipeName  string    `json:"recipeName,omitempty"`
	Solver      string    `json:"solver"`
	State       string    `json:"state"`
	Objective   float64   `json:"objective"`
	TotalCost   float64   `json:"totalCost"`
	Iterations  int       `json:"iterations"`
	Ingredients int       `json:"ingredients"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRecord captures a solution of doc for persistence.
func NewRecord(id string, doc *recipe.Document, sol *fit.Solution) *Record {
	quantities := make([]float64, len(sol.Recipe.Items))
	for i, item := range sol.Recipe.Items {
		quantities[i] = item.Quantity
	}

	return &Record{
		ID:               id,
		RecipeName:       doc.Name,
		Solver:           sol.Solver,
		State:            sol.State.String(),
		Servings:         append([]float64(nil), sol.Servings...),
		Quantities:       quantities,
		TotalCost:        sol.Recipe.TotalCost,
		Objective:        sol.Objective,
		InitialObjective: sol.InitialObjective,
		Iterations:       sol.Iterations,
		Timestamp:        time.Now(),
		Input:            *doc,
	}
}

// ToInfo converts a full Record to Info (metadata only).
func (r *Record) ToInfo() Info {
	return Info{
		ID:          r.ID,
		RecipeName:  r.RecipeName,
		Solver:      r.Solver,
		State:       r.State,
		Objective:   r.Objective,
		TotalCost:   r.TotalCost,
		Iterations:  r.Iterations,
		Ingredients: len(r.Servings),
		Timestamp:   r.Timestamp,
	}
}

// Converged reports whether the stored run reached a stationary point.
func (r *Record) Converged() bool {
	return r.State == opt.Converged.String()
}

// Validate checks if the record has valid data.
func (r *Record) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.Solver == "" {
		return &ValidationError{Field: "Solver", Reason: "cannot be empty"}
	}
	if _, err := opt.ParseState(r.State); err != nil {
		return &ValidationError{Field: "State", Reason: err.Error()}
	}
	if len(r.Servings) == 0 {
		return &ValidationError{Field: "Servings", Reason: "cannot be empty"}
	}
	for i, s := range r.Servings {
		if s < 0 {
			return &ValidationError{Field: fmt.Sprintf("Servings[%d]", i), Reason: "cannot be negative"}
		}
	}
	if len(r.Quantities) != len(r.Servings) {
		return &ValidationError{
			Field:  "Quantities",
			Reason: fmt.Sprintf("length mismatch: %d quantities for %d servings", len(r.Quantities), len(r.Servings)),
		}
	}
	if len(r.Input.Ingredients) != len(r.Servings) {
		return &ValidationError{
			Field:  "Input.Ingredients",
			Reason: fmt.Sprintf("length mismatch: %d ingredients for %d servings", len(r.Input.Ingredients), len(r.Servings)),
		}
	}
	if r.Objective < 0 {
		return &ValidationError{Field: "Objective", Reason: "cannot be negative"}
	}
	if r.InitialObjective < 0 {
		return &ValidationError{Field: "InitialObjective", Reason: "cannot be negative"}
	}
	if r.TotalCost < 0 {
		return &ValidationError{Field: "TotalCost", Reason: "cannot be negative"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether the servings of this record can warm-start an
// optimization of doc: same ingredients in the same order.
func (r *Record) IsCompatible(doc *recipe.Document) error {
	if len(doc.Ingredients) != len(r.Input.Ingredients) {
		return &CompatibilityError{
			Field:    "Ingredients",
			Expected: fmt.Sprintf("%d", len(r.Input.Ingredients)),
			Actual:   fmt.Sprintf("%d", len(doc.Ingredients)),
		}
	}
	for i, ing := range doc.Ingredients {
		if want := r.Input.Ingredients[i].Name; ing.Name != want {
			return &CompatibilityError{
				Field:    fmt.Sprintf("Ingredients[%d]", i),
				Expected: want,
				Actual:   ing.Name,
			}
		}
	}
	return nil
}

// CompatibilityError represents a resume compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}

package fit

import (
	"fmt"
	"math"

	"github.com/cwbudde/recipefit/internal/recipe"
)

// Item is one line of an assembled recipe.
type Item struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Servings float64 `json:"servings"`
	Quantity float64 `json:"quantity"` // Servings * serving size, in Unit
	Cost     float64 `json:"cost"`
}

// Recipe is the real-world form of a solution: quantities aligned with the
// input ingredient order and the total daily cost.
type Recipe struct {
	Items     []Item  `json:"items"`
	TotalCost float64 `json:"totalCost"`
}

// Assemble converts servings into ingredient quantities and costs.
func Assemble(x []float64, ingredients []recipe.Ingredient, p *Problem) (*Recipe, error) {
	if len(x) != len(ingredients) || len(x) != p.Dim() {
		return nil, fmt.Errorf("%w: %d servings, %d ingredients", ErrLengthMismatch, len(x), len(ingredients))
	}

	r := &Recipe{Items: make([]Item, len(x))}
	for i, ing := range ingredients {
		cost := x[i] * p.cost[i]
		r.Items[i] = Item{
			Name:     ing.Name,
			Unit:     ing.Unit,
			Servings: x[i],
			Quantity: x[i] * ing.Serving,
			Cost:     cost,
		}
		r.TotalCost += cost
	}
	return r, nil
}

// Status classifies how a recipe meets one nutrient target.
type Status string

const (
	StatusLow  Status = "low"  // below target
	StatusOK   Status = "ok"   // at or above target, within any cap
	StatusHigh Status = "high" // above a declared cap
)

// NutrientStatus is one row of the nutrient report.
type NutrientStatus struct {
	Name    string   `json:"name"`
	Target  float64  `json:"target"`
	Max     *float64 `json:"max,omitempty"`
	Amount  float64  `json:"amount"`
	Percent float64  `json:"percent"`
	Status  Status   `json:"status"`
}

// Report lists, for every active nutrient, the amount the servings x supply
// compared with its target and declared cap.
func Report(x []float64, targets recipe.NutrientTargets, p *Problem) ([]NutrientStatus, error) {
	if len(x) != p.Dim() {
		return nil, fmt.Errorf("%w: %d servings, %d ingredients", ErrLengthMismatch, len(x), p.Dim())
	}

	out := p.Output(x)
	report := make([]NutrientStatus, len(p.nutrients))
	for t, n := range p.nutrients {
		row := NutrientStatus{
			Name:    n.Name,
			Target:  n.Target,
			Amount:  out[t] * n.Target,
			Percent: out[t] * 100,
			Status:  StatusOK,
		}
		if limit, ok := targets.Max(n.Name); ok && !math.IsInf(limit, 0) && !math.IsNaN(limit) {
			row.Max = &limit
		}

		switch {
		case row.Percent < 100:
			row.Status = StatusLow
		case row.Max != nil && *row.Max > 0 && row.Amount > *row.Max:
			row.Status = StatusHigh
		}
		report[t] = row
	}
	return report, nil
}

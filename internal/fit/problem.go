package fit

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/recipefit/internal/recipe"
)

// MissingNutrient records an ingredient that does not list an active
// nutrient. Its contribution is taken as zero.
type MissingNutrient struct {
	Ingredient string `json:"ingredient"`
	Nutrient   string `json:"nutrient"`
}

// NutrientParams are the per-nutrient constants of a Problem.
type NutrientParams struct {
	Name       string  `json:"name"`
	Target     float64 `json:"target"`
	RatioBound float64 `json:"ratioBound"`
	LowWeight  float64 `json:"lowWeight"`
	HighWeight float64 `json:"highWeight"`
}

// Problem is the numeric form of a recipe: how much of each target a serving
// of each ingredient supplies, what a serving costs and how deviations from
// the targets are penalized. A Problem is immutable once built and safe for
// concurrent use.
type Problem struct {
	ingredients []string
	nutrients   []NutrientParams

	// contribution is ingredients x nutrients, in fractions of target.
	contribution *mat.Dense
	cost         []float64
	costWeight   float64
	missing      []MissingNutrient
}

// NewProblem builds a Problem from caller-owned ingredients and targets.
// A nil rule table means DefaultRules.
func NewProblem(ingredients []recipe.Ingredient, targets recipe.NutrientTargets, rules *RuleTable) (*Problem, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	if len(ingredients) == 0 {
		return nil, invalid("ingredients", "no ingredients given")
	}
	for i, ing := range ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		if !(ing.Serving > 0) || math.IsInf(ing.Serving, 0) {
			return nil, invalid(field+".serving", "must be positive and finite, got %g", ing.Serving)
		}
		if !(ing.ContainerSize > 0) || math.IsInf(ing.ContainerSize, 0) {
			return nil, invalid(field+".container_size", "must be positive and finite, got %g", ing.ContainerSize)
		}
		if !(ing.ItemCost >= 0) || math.IsInf(ing.ItemCost, 0) {
			return nil, invalid(field+".item_cost", "must be non-negative and finite, got %g", ing.ItemCost)
		}
	}

	nutrients, err := selectNutrients(targets, rules)
	if err != nil {
		return nil, err
	}

	p := &Problem{
		ingredients:  make([]string, len(ingredients)),
		nutrients:    nutrients,
		contribution: mat.NewDense(len(ingredients), len(nutrients), nil),
		cost:         make([]float64, len(ingredients)),
		costWeight:   rules.CostWeight,
	}

	for i, ing := range ingredients {
		p.ingredients[i] = ing.Name
		p.cost[i] = ing.ItemCost * ing.Serving / ing.ContainerSize

		for t, n := range nutrients {
			amount, ok := ing.Nutrient(n.Name)
			if !ok {
				p.missing = append(p.missing, MissingNutrient{Ingredient: ing.Name, Nutrient: n.Name})
				continue
			}
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return nil, invalid(fmt.Sprintf("ingredients[%d].%s", i, n.Name), "must be finite, got %g", amount)
			}
			p.contribution.Set(i, t, amount/n.Target)
		}
	}

	if len(p.missing) > 0 {
		slog.Debug("Nutrient data missing, using zero contribution", "count", len(p.missing))
	}

	return p, nil
}

// selectNutrients picks the active targets in name order and resolves their
// weights and ratio bounds.
func selectNutrients(targets recipe.NutrientTargets, rules *RuleTable) ([]NutrientParams, error) {
	var nutrients []NutrientParams
	for _, name := range targets.Names() {
		if rules.IsReserved(name) {
			continue
		}
		target := targets[name]
		if math.IsNaN(target) || math.IsInf(target, 0) {
			return nil, invalid("nutrientTargets."+name, "must be finite, got %g", target)
		}
		if target <= 0 {
			continue
		}

		bound := rules.Sentinel
		if limit, ok := targets.Max(name); ok && !math.IsInf(limit, 0) && limit > target {
			bound = limit / target
		}

		low, high, forced := rules.weights(name)
		if forced != nil {
			bound = *forced
		}

		nutrients = append(nutrients, NutrientParams{
			Name:       name,
			Target:     target,
			RatioBound: bound,
			LowWeight:  low,
			HighWeight: high,
		})
	}

	if len(nutrients) == 0 {
		return nil, invalid("nutrientTargets", "no positive nutrient targets")
	}
	return nutrients, nil
}

// Dim returns the number of ingredients.
func (p *Problem) Dim() int {
	return len(p.ingredients)
}

// Start returns the starting point: one serving of everything.
func (p *Problem) Start() []float64 {
	x := make([]float64, p.Dim())
	for i := range x {
		x[i] = 1
	}
	return x
}

// Ingredients returns the ingredient names in input order.
func (p *Problem) Ingredients() []string {
	return append([]string(nil), p.ingredients...)
}

// Nutrients returns the active nutrients in name order.
func (p *Problem) Nutrients() []NutrientParams {
	return append([]NutrientParams(nil), p.nutrients...)
}

// Contribution returns the fraction of nutrient t's target supplied by one
// serving of ingredient i.
func (p *Problem) Contribution(i, t int) float64 {
	return p.contribution.At(i, t)
}

// Cost returns the cost of one serving of ingredient i.
func (p *Problem) Cost(i int) float64 {
	return p.cost[i]
}

// CostWeight returns the regularization weight w.
func (p *Problem) CostWeight() float64 {
	return p.costWeight
}

// Missing lists the (ingredient, nutrient) pairs recovered as zero.
func (p *Problem) Missing() []MissingNutrient {
	return append([]MissingNutrient(nil), p.missing...)
}

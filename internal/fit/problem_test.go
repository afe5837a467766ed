package fit

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/recipefit/internal/recipe"
)

func ingredient(name string, serving, container, cost float64, nutrients map[string]float64) recipe.Ingredient {
	return recipe.Ingredient{
		Name:          name,
		Unit:          "g",
		Serving:       serving,
		ContainerSize: container,
		ItemCost:      cost,
		Nutrients:     nutrients,
	}
}

func TestNewProblem_MatrixAndCost(t *testing.T) {
	ingredients := []recipe.Ingredient{
		ingredient("masa", 100, 2000, 5, map[string]float64{"calories": 365, "sodium": 5, "iron": 7.2}),
		ingredient("salt", 1, 500, 1.5, map[string]float64{"sodium": 390}),
	}
	targets := recipe.NutrientTargets{
		"calories":   2000,
		"sodium":     1500,
		"sodium_max": 2300,
		"iron":       8,
	}

	p, err := NewProblem(ingredients, targets, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Dim())
	assert.Equal(t, []string{"masa", "salt"}, p.Ingredients())

	nutrients := p.Nutrients()
	require.Len(t, nutrients, 3)
	assert.Equal(t, "calories", nutrients[0].Name)
	assert.Equal(t, "iron", nutrients[1].Name)
	assert.Equal(t, "sodium", nutrients[2].Name)

	// calories is a macro: heavier weights, no overshoot allowed
	assert.Equal(t, 5.0, nutrients[0].LowWeight)
	assert.Equal(t, 5.0, nutrients[0].HighWeight)
	assert.Equal(t, 1.0, nutrients[0].RatioBound)

	assert.Equal(t, DefaultSentinel, nutrients[1].RatioBound)
	assert.Equal(t, 1.0, nutrients[1].LowWeight)
	assert.InDelta(t, 2300.0/1500.0, nutrients[2].RatioBound, 1e-12)

	assert.InDelta(t, 365.0/2000.0, p.Contribution(0, 0), 1e-12)
	assert.InDelta(t, 7.2/8.0, p.Contribution(0, 1), 1e-12)
	assert.InDelta(t, 390.0/1500.0, p.Contribution(1, 2), 1e-12)

	assert.InDelta(t, 5*100.0/2000.0, p.Cost(0), 1e-12)
	assert.InDelta(t, 1.5*1.0/500.0, p.Cost(1), 1e-12)
	assert.Equal(t, DefaultCostWeight, p.CostWeight())

	assert.Equal(t, []float64{1, 1}, p.Start())
}

func TestNewProblem_MissingNutrientIsZero(t *testing.T) {
	ingredients := []recipe.Ingredient{
		ingredient("salt", 1, 500, 1.5, map[string]float64{"sodium": 390}),
	}
	targets := recipe.NutrientTargets{"sodium": 1500, "iron": 8}

	p, err := NewProblem(ingredients, targets, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, p.Contribution(0, 0)) // iron
	assert.Equal(t, []MissingNutrient{{Ingredient: "salt", Nutrient: "iron"}}, p.Missing())
	assert.False(t, math.IsNaN(p.Value([]float64{1})))
}

func TestNewProblem_TargetSelection(t *testing.T) {
	ingredients := []recipe.Ingredient{
		ingredient("a", 1, 1, 0, map[string]float64{"iron": 1, "zinc": 1, "id": 1}),
	}
	targets := recipe.NutrientTargets{
		"iron":     8,
		"zinc":     0,  // inactive
		"copper":   -1, // inactive
		"id":       12, // reserved
		"iron_max": 45,
	}

	p, err := NewProblem(ingredients, targets, nil)
	require.NoError(t, err)

	nutrients := p.Nutrients()
	require.Len(t, nutrients, 1)
	assert.Equal(t, "iron", nutrients[0].Name)
}

func TestNewProblem_CapPolicy(t *testing.T) {
	tests := []struct {
		name    string
		targets recipe.NutrientTargets
		want    float64
	}{
		{"no cap", recipe.NutrientTargets{"zinc": 10}, DefaultSentinel},
		{"cap above target", recipe.NutrientTargets{"zinc": 10, "zinc_max": 40}, 4},
		{"cap equal to target", recipe.NutrientTargets{"zinc": 10, "zinc_max": 10}, DefaultSentinel},
		{"cap below target", recipe.NutrientTargets{"zinc": 10, "zinc_max": 5}, DefaultSentinel},
		{"infinite cap", recipe.NutrientTargets{"zinc": 10, "zinc_max": math.Inf(1)}, DefaultSentinel},
	}

	ingredients := []recipe.Ingredient{ingredient("a", 1, 1, 0, map[string]float64{"zinc": 1})}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProblem(ingredients, tt.targets, nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, p.Nutrients()[0].RatioBound, 1e-12)
		})
	}
}

func TestNewProblem_ForcedBoundOverridesCap(t *testing.T) {
	ingredients := []recipe.Ingredient{ingredient("a", 1, 1, 0, map[string]float64{"protein": 10})}
	targets := recipe.NutrientTargets{"protein": 100, "protein_max": 300}

	p, err := NewProblem(ingredients, targets, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Nutrients()[0].RatioBound)
}

func TestNewProblem_InvalidInput(t *testing.T) {
	good := map[string]float64{"iron": 1}
	targets := recipe.NutrientTargets{"iron": 8}

	tests := []struct {
		name        string
		ingredients []recipe.Ingredient
		targets     recipe.NutrientTargets
		rules       *RuleTable
		field       string
	}{
		{"no ingredients", nil, targets, nil, "ingredients"},
		{"no targets", []recipe.Ingredient{ingredient("a", 1, 1, 1, good)}, recipe.NutrientTargets{}, nil, "nutrientTargets"},
		{"only inactive targets", []recipe.Ingredient{ingredient("a", 1, 1, 1, good)}, recipe.NutrientTargets{"iron": 0}, nil, "nutrientTargets"},
		{"zero serving", []recipe.Ingredient{ingredient("a", 0, 1, 1, good)}, targets, nil, "ingredients[0].serving"},
		{"zero container", []recipe.Ingredient{ingredient("a", 1, 0, 1, good)}, targets, nil, "ingredients[0].container_size"},
		{"negative cost", []recipe.Ingredient{ingredient("a", 1, 1, -2, good)}, targets, nil, "ingredients[0].item_cost"},
		{"NaN serving", []recipe.Ingredient{ingredient("a", math.NaN(), 1, 1, good)}, targets, nil, "ingredients[0].serving"},
		{"infinite target", []recipe.Ingredient{ingredient("a", 1, 1, 1, good)}, recipe.NutrientTargets{"iron": math.Inf(1)}, nil, "nutrientTargets.iron"},
		{"infinite nutrient", []recipe.Ingredient{ingredient("a", 1, 1, 1, map[string]float64{"iron": math.Inf(1)})}, targets, nil, "ingredients[0].iron"},
		{"bad rules", []recipe.Ingredient{ingredient("a", 1, 1, 1, good)}, targets, &RuleTable{Sentinel: -1}, "rules.sentinel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProblem(tt.ingredients, tt.targets, tt.rules)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

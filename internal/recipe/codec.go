package recipe

import (
	"encoding/json"
	"fmt"
)

// Field names of the ingredient record that are not nutrients.
const (
	fieldName          = "name"
	fieldUnit          = "unit"
	fieldServing       = "serving"
	fieldContainerSize = "container_size"
	fieldItemCost      = "item_cost"
)

// UnmarshalJSON decodes the flat ingredient layout: the fixed fields plus
// every other numeric field as a per-serving nutrient amount. Non-numeric
// fields (ids, urls, currency, ...) are ignored.
func (ing *Ingredient) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Ingredient{Nutrients: make(map[string]float64)}
	for key, value := range raw {
		switch key {
		case fieldName:
			if err := json.Unmarshal(value, &out.Name); err != nil {
				return fmt.Errorf("ingredient %s: %w", key, err)
			}
		case fieldUnit:
			if err := json.Unmarshal(value, &out.Unit); err != nil {
				return fmt.Errorf("ingredient %s: %w", key, err)
			}
		case fieldServing:
			if err := json.Unmarshal(value, &out.Serving); err != nil {
				return fmt.Errorf("ingredient %s: %w", key, err)
			}
		case fieldContainerSize:
			if err := json.Unmarshal(value, &out.ContainerSize); err != nil {
				return fmt.Errorf("ingredient %s: %w", key, err)
			}
		case fieldItemCost:
			if err := json.Unmarshal(value, &out.ItemCost); err != nil {
				return fmt.Errorf("ingredient %s: %w", key, err)
			}
		default:
			if v, ok := number(value); ok {
				out.Nutrients[key] = v
			}
		}
	}

	*ing = out
	return nil
}

// MarshalJSON writes the flat layout read by UnmarshalJSON.
func (ing Ingredient) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(ing.Nutrients)+5)
	for k, v := range ing.Nutrients {
		m[k] = v
	}
	m[fieldName] = ing.Name
	m[fieldUnit] = ing.Unit
	m[fieldServing] = ing.Serving
	m[fieldContainerSize] = ing.ContainerSize
	m[fieldItemCost] = ing.ItemCost
	return json.Marshal(m)
}

// UnmarshalJSON keeps only numeric entries; targets without a numeric value
// (the profile name, ids, ...) carry no constraint.
func (t *NutrientTargets) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(NutrientTargets, len(raw))
	for key, value := range raw {
		if v, ok := number(value); ok {
			out[key] = v
		}
	}

	*t = out
	return nil
}

func number(value json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(value, &v); err != nil {
		return 0, false
	}
	return v, true
}

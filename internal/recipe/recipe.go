package recipe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// MaxSuffix marks a nutrient target key as the upper cap of another nutrient
// (e.g. "sodium_max" caps "sodium").
const MaxSuffix = "_max"

// Ingredient is a candidate ingredient as supplied by the caller.
// Serving and ContainerSize share the same unit.
type Ingredient struct {
	Name          string
	Unit          string
	Serving       float64            // amount per serving
	ContainerSize float64            // amount per container
	ItemCost      float64            // cost per container
	Nutrients     map[string]float64 // nutrient amount per serving
}

// Nutrient returns the amount of a nutrient supplied by one serving.
func (ing Ingredient) Nutrient(name string) (float64, bool) {
	v, ok := ing.Nutrients[name]
	return v, ok
}

// NutrientTargets maps nutrient names to daily target amounts. Keys ending in
// MaxSuffix hold optional caps.
type NutrientTargets map[string]float64

// Max returns the cap declared for a nutrient, if any.
func (t NutrientTargets) Max(name string) (float64, bool) {
	v, ok := t[name+MaxSuffix]
	return v, ok
}

// IsMaxKey reports whether key names a cap rather than a target.
func IsMaxKey(key string) bool {
	return strings.HasSuffix(key, MaxSuffix)
}

// Names returns the non-cap keys in sorted order.
func (t NutrientTargets) Names() []string {
	names := make([]string, 0, len(t))
	for k := range t {
		if !IsMaxKey(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Document is a recipe definition: the candidate ingredients and the nutrient
// profile they should meet.
type Document struct {
	Name            string          `json:"name,omitempty"`
	Ingredients     []Ingredient    `json:"ingredients"`
	NutrientTargets NutrientTargets `json:"nutrientTargets"`
}

// Decode reads a recipe document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	return &doc, nil
}

// Load reads a recipe document from a JSON file.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

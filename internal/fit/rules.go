package fit

import (
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Rule overrides how one nutrient is weighted. Nil fields fall back to the
// table's default rule.
type Rule struct {
	Low        *float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High       *float64 `yaml:"high,omitempty" json:"high,omitempty"`
	RatioBound *float64 `yaml:"ratio_bound,omitempty" json:"ratioBound,omitempty"`
}

// RuleTable is the data-driven weighting policy applied by NewProblem.
type RuleTable struct {
	// Sentinel is the ratio bound used when a nutrient has no cap.
	Sentinel float64 `yaml:"sentinel" json:"sentinel"`
	// CostWeight trades cost against nutrient fidelity. Larger values give
	// sparser recipes.
	CostWeight float64 `yaml:"cost_weight" json:"costWeight"`
	// Default applies to nutrients without an entry in Rules.
	Default Rule `yaml:"default" json:"default"`
	// Reserved keys in a target profile are metadata, never nutrients.
	Reserved []string `yaml:"reserved" json:"reserved"`
	// Rules maps nutrient names to their overrides.
	Rules map[string]Rule `yaml:"rules" json:"rules"`
}

// Built-in policy values.
const (
	DefaultSentinel   = 1000.0
	DefaultCostWeight = 0.0001
	MacroWeight       = 5.0
)

// Macros are weighted heavier and may not exceed their target.
var Macros = []string{"calories", "protein", "carbs", "fat"}

// DefaultReserved lists target-profile keys that are not nutrients.
var DefaultReserved = []string{"_id", "name", "item_cost", "source", "url", "unit", "currency", "asin", "id"}

func ptr(v float64) *float64 { return &v }

// DefaultRules returns the built-in policy: weight 1/1 and no forced bound
// for every nutrient, 5/5 and a ratio bound of 1 for the macros.
func DefaultRules() *RuleTable {
	rt := &RuleTable{
		Sentinel:   DefaultSentinel,
		CostWeight: DefaultCostWeight,
		Default:    Rule{Low: ptr(1), High: ptr(1)},
		Reserved:   slices.Clone(DefaultReserved),
		Rules:      make(map[string]Rule, len(Macros)),
	}
	for _, m := range Macros {
		rt.Rules[m] = Rule{Low: ptr(MacroWeight), High: ptr(MacroWeight), RatioBound: ptr(1)}
	}
	return rt
}

// ParseRules overlays a YAML document on DefaultRules. An entry under "rules"
// replaces the built-in rule of that nutrient and leaves the others alone;
// "reserved" replaces the default list.
func ParseRules(data []byte) (*RuleTable, error) {
	rt := DefaultRules()
	if err := yaml.Unmarshal(data, rt); err != nil {
		return nil, fmt.Errorf("failed to parse rule table: %w", err)
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

// LoadRules reads a YAML rule table from disk.
func LoadRules(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule table: %w", err)
	}
	return ParseRules(data)
}

// Validate rejects negative weights and non-positive bounds.
func (rt *RuleTable) Validate() error {
	if !(rt.Sentinel > 0) || math.IsInf(rt.Sentinel, 0) {
		return invalid("rules.sentinel", "must be positive and finite, got %g", rt.Sentinel)
	}
	if !(rt.CostWeight >= 0) || math.IsInf(rt.CostWeight, 0) {
		return invalid("rules.cost_weight", "must be non-negative and finite, got %g", rt.CostWeight)
	}
	if err := rt.Default.validate("rules.default"); err != nil {
		return err
	}
	for name, r := range rt.Rules {
		if err := r.validate("rules." + name); err != nil {
			return err
		}
	}
	return nil
}

func (r Rule) validate(field string) error {
	for _, w := range []struct {
		name string
		v    *float64
	}{{"low", r.Low}, {"high", r.High}} {
		if w.v != nil && (!(*w.v >= 0) || math.IsInf(*w.v, 0)) {
			return invalid(field+"."+w.name, "weight must be non-negative and finite, got %g", *w.v)
		}
	}
	if r.RatioBound != nil && (!(*r.RatioBound > 0) || math.IsInf(*r.RatioBound, 0)) {
		return invalid(field+".ratio_bound", "must be positive and finite, got %g", *r.RatioBound)
	}
	return nil
}

// Clone returns a deep copy.
func (rt *RuleTable) Clone() *RuleTable {
	c := *rt
	c.Reserved = slices.Clone(rt.Reserved)
	c.Rules = make(map[string]Rule, len(rt.Rules))
	for k, v := range rt.Rules {
		c.Rules[k] = v
	}
	return &c
}

// WithCostWeight returns a copy using w as the cost weight.
func (rt *RuleTable) WithCostWeight(w float64) *RuleTable {
	c := rt.Clone()
	c.CostWeight = w
	return c
}

// IsReserved reports whether key is profile metadata.
func (rt *RuleTable) IsReserved(key string) bool {
	return slices.Contains(rt.Reserved, key)
}

// weights resolves the low/high weights and the forced ratio bound (if any)
// for a nutrient.
func (rt *RuleTable) weights(name string) (low, high float64, bound *float64) {
	low, high = 1, 1
	if rt.Default.Low != nil {
		low = *rt.Default.Low
	}
	if rt.Default.High != nil {
		high = *rt.Default.High
	}
	bound = rt.Default.RatioBound

	if r, ok := rt.Rules[name]; ok {
		if r.Low != nil {
			low = *r.Low
		}
		if r.High != nil {
			high = *r.High
		}
		if r.RatioBound != nil {
			bound = r.RatioBound
		}
	}
	return low, high, bound
}

package knapsack

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Config is a validated problem document.
type Config struct {
	Mode             Mode
	Items            []Item
	Capacities       []float64
	ObjectiveWeights []float64 // nil means every value term counts once
	PenaltyCoeff     float64
	PenaltyPower     float64

	raw string
}

// Raw returns the config text the Config was parsed from.
func (c *Config) Raw() string { return c.raw }

var configKeys = map[string]bool{
	"version": true, "name": true, "mode": true, "items": true,
	"capacities": true, "capacity": true, "objective": true, "penalty": true,
}

// ParseConfig reads a problem document. Structural and type problems come
// back as *ConfigError; item contents are checked later by BuildCatalog.
func ParseConfig(text string) (*Config, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyConfig
	}
	if !gjson.Valid(text) {
		return nil, &ConfigError{Kind: KindMalformed, Msg: "invalid JSON"}
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, &ConfigError{Kind: KindWrongType, Msg: "top level must be an object"}
	}

	var err error
	root.ForEach(func(k, _ gjson.Result) bool {
		if !configKeys[k.String()] {
			err = &ConfigError{Kind: KindUnknownKey, Key: k.String(), Msg: "not a config key"}
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	cfg := &Config{raw: text, PenaltyCoeff: 1, PenaltyPower: 1}

	mode := root.Get("mode")
	switch {
	case !mode.Exists():
		return nil, &ConfigError{Kind: KindMissingKey, Key: "mode", Msg: "required"}
	case mode.Type != gjson.String:
		return nil, &ConfigError{Kind: KindWrongType, Key: "mode", Msg: "want string, got " + typeName(mode)}
	}
	if cfg.Mode = parseMode(mode.String()); cfg.Mode == ModeUnknown {
		return nil, &ConfigError{Kind: KindOutOfRange, Key: "mode", Msg: fmt.Sprintf("unknown mode %q", mode.String())}
	}

	if cfg.Capacities, err = parseCapacities(root); err != nil {
		return nil, err
	}
	if cfg.Items, err = parseItems(root.Get("items")); err != nil {
		return nil, err
	}
	if err = parseObjective(root.Get("objective"), cfg); err != nil {
		return nil, err
	}
	if err = parsePenalty(root.Get("penalty"), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseCapacities(root gjson.Result) ([]float64, error) {
	caps := root.Get("capacities")
	single := root.Get("capacity")
	if caps.Exists() && single.Exists() {
		return nil, &ConfigError{Kind: KindMalformed, Key: "capacity", Msg: "use either capacity or capacities"}
	}
	var out []float64
	switch {
	case single.Exists():
		if single.Type != gjson.Number {
			return nil, &ConfigError{Kind: KindWrongType, Key: "capacity", Msg: "want number, got " + typeName(single)}
		}
		out = []float64{single.Float()}
	case caps.Exists():
		nums, err := readNumbers(caps, "capacities")
		if err != nil {
			return nil, err
		}
		out = nums
	default:
		return nil, &ConfigError{Kind: KindMissingKey, Key: "capacities", Msg: "required"}
	}
	if len(out) == 0 {
		return nil, &ConfigError{Kind: KindOutOfRange, Key: "capacities", Msg: "need at least one group"}
	}
	for g, c := range out {
		if c < 0 || math.IsInf(c, 0) {
			return nil, &ConfigError{Kind: KindOutOfRange, Key: "capacities", Msg: fmt.Sprintf("group %d capacity %v", g, c)}
		}
	}
	return out, nil
}

func parseItems(v gjson.Result) ([]Item, error) {
	if !v.Exists() {
		return nil, &ConfigError{Kind: KindMissingKey, Key: "items", Msg: "required"}
	}
	if !v.IsArray() {
		return nil, &ConfigError{Kind: KindWrongType, Key: "items", Msg: "want array, got " + typeName(v)}
	}
	var (
		items []Item
		err   error
	)
	idx := 0
	v.ForEach(func(_, e gjson.Result) bool {
		var it Item
		if it, err = parseItem(e, idx); err != nil {
			return false
		}
		items = append(items, it)
		idx++
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func parseItem(e gjson.Result, idx int) (Item, error) {
	key := func(k string) string { return fmt.Sprintf("items[%d].%s", idx, k) }
	if !e.IsObject() {
		return Item{}, &ConfigError{Kind: KindWrongType, Key: fmt.Sprintf("items[%d]", idx), Msg: "want object, got " + typeName(e)}
	}
	it := Item{ID: fmt.Sprintf("item%d", idx)}

	if id := e.Get("id"); id.Exists() {
		if id.Type != gjson.String && id.Type != gjson.Number {
			return Item{}, &ConfigError{Kind: KindWrongType, Key: key("id"), Msg: "want string or number"}
		}
		it.ID = id.String()
	}

	var err error
	switch val, vals := e.Get("value"), e.Get("values"); {
	case val.Exists():
		if val.Type != gjson.Number {
			return Item{}, &ConfigError{Kind: KindWrongType, Key: key("value"), Msg: "want number, got " + typeName(val)}
		}
		it.Values = []float64{val.Float()}
	case vals.Exists():
		if it.Values, err = readNumbers(vals, key("values")); err != nil {
			return Item{}, err
		}
	default:
		return Item{}, &ConfigError{Kind: KindMissingKey, Key: key("value"), Msg: "value or values required"}
	}

	switch w, ws := e.Get("weight"), e.Get("weights"); {
	case w.Exists():
		if w.Type != gjson.Number {
			return Item{}, &ConfigError{Kind: KindWrongType, Key: key("weight"), Msg: "want number, got " + typeName(w)}
		}
		it.Weights = []float64{w.Float()}
	case ws.Exists():
		if it.Weights, err = readNumbers(ws, key("weights")); err != nil {
			return Item{}, err
		}
	default:
		return Item{}, &ConfigError{Kind: KindMissingKey, Key: key("weight"), Msg: "weight or weights required"}
	}
	return it, nil
}

func parseObjective(v gjson.Result, cfg *Config) error {
	if !v.Exists() {
		return nil
	}
	if !v.IsObject() {
		return &ConfigError{Kind: KindWrongType, Key: "objective", Msg: "want object, got " + typeName(v)}
	}
	var err error
	v.ForEach(func(k, val gjson.Result) bool {
		switch k.String() {
		case "weights":
			cfg.ObjectiveWeights, err = readNumbers(val, "objective.weights")
		default:
			err = &ConfigError{Kind: KindUnknownKey, Key: "objective." + k.String(), Msg: "not an objective key"}
		}
		return err == nil
	})
	return err
}

func parsePenalty(v gjson.Result, cfg *Config) error {
	if !v.Exists() {
		return nil
	}
	if !v.IsObject() {
		return &ConfigError{Kind: KindWrongType, Key: "penalty", Msg: "want object, got " + typeName(v)}
	}
	var err error
	v.ForEach(func(k, val gjson.Result) bool {
		name := "penalty." + k.String()
		if val.Type != gjson.Number {
			if k.String() == "coeff" || k.String() == "power" {
				err = &ConfigError{Kind: KindWrongType, Key: name, Msg: "want number, got " + typeName(val)}
			} else {
				err = &ConfigError{Kind: KindUnknownKey, Key: name, Msg: "not a penalty key"}
			}
			return false
		}
		switch k.String() {
		case "coeff":
			if cfg.PenaltyCoeff = val.Float(); cfg.PenaltyCoeff <= 0 {
				err = &ConfigError{Kind: KindOutOfRange, Key: name, Msg: "must be > 0"}
			}
		case "power":
			if cfg.PenaltyPower = val.Float(); cfg.PenaltyPower <= 0 {
				err = &ConfigError{Kind: KindOutOfRange, Key: name, Msg: "must be > 0"}
			}
		default:
			err = &ConfigError{Kind: KindUnknownKey, Key: name, Msg: "not a penalty key"}
		}
		return err == nil
	})
	return err
}

func readNumbers(v gjson.Result, key string) ([]float64, error) {
	if !v.IsArray() {
		return nil, &ConfigError{Kind: KindWrongType, Key: key, Msg: "want array, got " + typeName(v)}
	}
	var (
		out []float64
		err error
	)
	v.ForEach(func(_, n gjson.Result) bool {
		if n.Type != gjson.Number {
			err = &ConfigError{Kind: KindWrongType, Key: key, Msg: "want numbers, got " + typeName(n)}
			return false
		}
		out = append(out, n.Float())
		return true
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []float64{}
	}
	return out, nil
}

func typeName(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		if !r.Exists() {
			return "nothing"
		}
		return "null"
	case gjson.False, gjson.True:
		return "bool"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	if r.IsArray() {
		return "array"
	}
	return "object"
}

// ── Catalog ─────────────────────────────────────────────────────────

// BuildCatalog validates item contents against the config's groups and
// objective weights.
func BuildCatalog(cfg *Config) (*Catalog, error) {
	groups := len(cfg.Capacities)
	if cfg.Mode == ModeAssign && groups > MaxAssignGroups {
		return nil, &CatalogError{Index: -1, Msg: fmt.Sprintf("assign mode addresses at most %d groups, got %d", MaxAssignGroups, groups)}
	}
	for k, w := range cfg.ObjectiveWeights {
		if !finite(w) {
			return nil, &CatalogError{Index: -1, Msg: fmt.Sprintf("objective weight %d is not finite", k)}
		}
	}

	seen := make(map[string]bool, len(cfg.Items))
	items := make([]Item, len(cfg.Items))
	for i, it := range cfg.Items {
		if seen[it.ID] {
			return nil, &CatalogError{Index: i, Msg: fmt.Sprintf("duplicate id %q", it.ID)}
		}
		seen[it.ID] = true

		if cfg.ObjectiveWeights != nil && len(it.Values) != len(cfg.ObjectiveWeights) {
			return nil, &CatalogError{Index: i, Msg: fmt.Sprintf("%d values for %d objective weights", len(it.Values), len(cfg.ObjectiveWeights))}
		}
		for _, v := range it.Values {
			if !finite(v) {
				return nil, &CatalogError{Index: i, Msg: "value is not finite"}
			}
		}

		weights := it.Weights
		switch {
		case len(weights) == 1 && groups > 1:
			weights = make([]float64, groups)
			for g := range weights {
				weights[g] = it.Weights[0]
			}
		case len(weights) != groups:
			return nil, &CatalogError{Index: i, Msg: fmt.Sprintf("%d weights for %d groups", len(weights), groups)}
		default:
			weights = append([]float64(nil), weights...)
		}
		for _, w := range weights {
			if !finite(w) || w < 0 {
				return nil, &CatalogError{Index: i, Msg: fmt.Sprintf("weight %v must be finite and >= 0", w)}
			}
		}
		items[i] = Item{ID: it.ID, Values: append([]float64(nil), it.Values...), Weights: weights}
	}
	return &Catalog{Items: items, NumGroups: groups}, nil
}

// NewProblem flattens a config and its catalog into evaluator inputs.
func NewProblem(cfg *Config, cat *Catalog) *Problem {
	n, groups := cat.Len(), len(cfg.Capacities)
	p := &Problem{
		Mode:      cfg.Mode,
		NumItems:  n,
		NumGroups: groups,
		Values:    make([]float64, n),
		Weights:   make([]float64, n*groups),
		Caps:      append([]float64(nil), cfg.Capacities...),
		Coeff:     cfg.PenaltyCoeff,
		Power:     cfg.PenaltyPower,
	}
	for i, it := range cat.Items {
		p.Values[i] = valueTerm(it.Values, cfg.ObjectiveWeights)
		copy(p.Weights[i*groups:(i+1)*groups], it.Weights)
	}
	return p
}

func valueTerm(values, weights []float64) float64 {
	var v float64
	for k, x := range values {
		if weights != nil {
			x *= weights[k]
		}
		v += x
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NewSelectConfig builds a single-capacity select-mode config document from
// parallel value and weight slices.
func NewSelectConfig(values, weights []float64, capacity float64) (string, error) {
	if len(values) != len(weights) {
		return "", fmt.Errorf("knapsack: %d values for %d weights", len(values), len(weights))
	}
	type item struct {
		ID     string  `json:"id"`
		Value  float64 `json:"value"`
		Weight float64 `json:"weight"`
	}
	doc := struct {
		Mode       string    `json:"mode"`
		Items      []item    `json:"items"`
		Capacities []float64 `json:"capacities"`
	}{Mode: "select", Items: make([]item, len(values)), Capacities: []float64{capacity}}
	for i := range values {
		doc.Items[i] = item{ID: fmt.Sprintf("item%d", i), Value: values[i], Weight: weights[i]}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("knapsack: marshal config: %w", err)
	}
	return string(b), nil
}

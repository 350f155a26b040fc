package knapsack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`{
		"version": 2,
		"mode": "assign",
		"items": [
			{"id": "x", "values": [1, 2], "weights": [3, 4]},
			{"values": [5, 6], "weight": 1}
		],
		"capacities": [7, 8],
		"objective": {"weights": [1, 0.5]},
		"penalty": {"coeff": 3, "power": 2}
	}`)
	require.NoError(t, err)
	assert.Equal(t, ModeAssign, cfg.Mode)
	assert.Equal(t, []float64{7, 8}, cfg.Capacities)
	assert.Equal(t, []float64{1, 0.5}, cfg.ObjectiveWeights)
	assert.Equal(t, 3.0, cfg.PenaltyCoeff)
	assert.Equal(t, 2.0, cfg.PenaltyPower)
	require.Len(t, cfg.Items, 2)
	assert.Equal(t, "x", cfg.Items[0].ID)
	assert.Equal(t, "item1", cfg.Items[1].ID)
	assert.Contains(t, cfg.Raw(), `"assign"`)

	cat, err := BuildCatalog(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.NumGroups)
	// a scalar weight is broadcast to every group
	assert.Equal(t, []float64{1, 1}, cat.Items[1].Weights)

	p := NewProblem(cfg, cat)
	assert.Equal(t, []float64{2, 8}, p.Values)
	assert.Equal(t, []float64{3, 4, 1, 1}, p.Weights)
	assert.Equal(t, 3.0, p.Coeff)
}

func TestParseConfigSingleCapacity(t *testing.T) {
	cfg, err := ParseConfig(`{"mode":"select","items":[{"value":1,"weight":1}],"capacity":5}`)
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, cfg.Capacities)
	assert.Equal(t, 1.0, cfg.PenaltyCoeff)
	assert.Equal(t, 1.0, cfg.PenaltyPower)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind ErrorKind
		key  string
	}{
		{"malformed", `{"mode":`, KindMalformed, ""},
		{"not object", `[1,2]`, KindWrongType, ""},
		{"unknown key", `{"mode":"select","items":[],"capacities":[1],"colour":1}`, KindUnknownKey, "colour"},
		{"missing mode", `{"items":[],"capacities":[1]}`, KindMissingKey, "mode"},
		{"mode type", `{"mode":1,"items":[],"capacities":[1]}`, KindWrongType, "mode"},
		{"unknown mode", `{"mode":"pack","items":[],"capacities":[1]}`, KindOutOfRange, "mode"},
		{"missing capacities", `{"mode":"select","items":[]}`, KindMissingKey, "capacities"},
		{"both capacities", `{"mode":"select","items":[],"capacity":1,"capacities":[1]}`, KindMalformed, "capacity"},
		{"empty capacities", `{"mode":"select","items":[],"capacities":[]}`, KindOutOfRange, "capacities"},
		{"negative capacity", `{"mode":"select","items":[],"capacities":[-1]}`, KindOutOfRange, "capacities"},
		{"capacity strings", `{"mode":"select","items":[],"capacities":["1"]}`, KindWrongType, "capacities"},
		{"missing items", `{"mode":"select","capacities":[1]}`, KindMissingKey, "items"},
		{"items object", `{"mode":"select","items":{},"capacities":[1]}`, KindWrongType, "items"},
		{"item no value", `{"mode":"select","items":[{"weight":1}],"capacities":[1]}`, KindMissingKey, "items[0].value"},
		{"item no weight", `{"mode":"select","items":[{"value":1}],"capacities":[1]}`, KindMissingKey, "items[0].weight"},
		{"item value type", `{"mode":"select","items":[{"value":"1","weight":1}],"capacities":[1]}`, KindWrongType, "items[0].value"},
		{"penalty type", `{"mode":"select","items":[],"capacities":[1],"penalty":{"coeff":"x"}}`, KindWrongType, "penalty.coeff"},
		{"penalty coeff zero", `{"mode":"select","items":[],"capacities":[1],"penalty":{"coeff":0}}`, KindOutOfRange, "penalty.coeff"},
		{"penalty coeff negative", `{"mode":"select","items":[],"capacities":[1],"penalty":{"coeff":-2}}`, KindOutOfRange, "penalty.coeff"},
		{"penalty power", `{"mode":"select","items":[],"capacities":[1],"penalty":{"power":0}}`, KindOutOfRange, "penalty.power"},
		{"penalty key", `{"mode":"select","items":[],"capacities":[1],"penalty":{"scale":1}}`, KindUnknownKey, "penalty.scale"},
		{"objective key", `{"mode":"select","items":[],"capacities":[1],"objective":{"sense":1}}`, KindUnknownKey, "objective.sense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.text)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind, ce.Error())
			assert.Equal(t, tt.key, ce.Key)
			assert.Equal(t, CodeInvalidConfig, CodeOf(err))
		})
	}
}

func TestParseConfigEmpty(t *testing.T) {
	_, err := ParseConfig("  ")
	assert.ErrorIs(t, err, ErrEmptyConfig)
	// only a missing config pointer is -2; empty text fails to parse
	assert.Equal(t, CodeInvalidConfig, CodeOf(err))
}

func TestBuildCatalogErrors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		index int
	}{
		{"duplicate id", `{"mode":"select","items":[{"id":"a","value":1,"weight":1},{"id":"a","value":1,"weight":1}],"capacities":[1]}`, 1},
		{"negative weight", `{"mode":"select","items":[{"value":1,"weight":-1}],"capacities":[1]}`, 0},
		{"weights per group", `{"mode":"select","items":[{"value":1,"weights":[1,2,3]}],"capacities":[1,1]}`, 0},
		{"values per objective", `{"mode":"select","items":[{"values":[1],"weight":1}],"capacities":[1],"objective":{"weights":[1,2]}}`, 0},
		{"too many groups", `{"mode":"assign","items":[],"capacities":[1,1,1,1]}`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig(tt.text)
			require.NoError(t, err)
			_, err = BuildCatalog(cfg)
			var ce *CatalogError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.index, ce.Index, ce.Error())
			assert.Equal(t, CodeInvalidCatalog, CodeOf(err))
		})
	}
}

func TestNewSelectConfig(t *testing.T) {
	text, err := NewSelectConfig([]float64{3, 4}, []float64{1, 2}, 2.5)
	require.NoError(t, err)
	cfg, err := ParseConfig(text)
	require.NoError(t, err)
	assert.Equal(t, ModeSelect, cfg.Mode)
	assert.Equal(t, []float64{2.5}, cfg.Capacities)
	require.Len(t, cfg.Items, 2)
	assert.Equal(t, []float64{4}, cfg.Items[1].Values)

	_, err = NewSelectConfig([]float64{1}, nil, 1)
	assert.Error(t, err)
}

func TestParseOptions(t *testing.T) {
	opt, err := ParseOptions(`{"beam_width": 4, "iters": 3, "num_candidates": 50, "seed": 4294967295,
		"debug": true, "dom_enable": true, "dom_eps": 0.25, "dom_surrogate": false}`)
	require.NoError(t, err)
	assert.Equal(t, Options{
		BeamWidth:     4,
		Iters:         3,
		NumCandidates: 50,
		Seed:          4294967295,
		Debug:         true,
		DomEnable:     true,
		DomEps:        0.25,
	}, opt)

	opt, err = ParseOptions("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opt)

	opt, err = ParseOptions(`{"seed": 9}`)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), opt.Seed)
	assert.Equal(t, DefaultOptions().BeamWidth, opt.BeamWidth)
}

func TestParseOptionsErrors(t *testing.T) {
	tests := []struct {
		text string
		kind ErrorKind
		key  string
	}{
		{`{"beam_width": `, KindMalformed, ""},
		{`"beam_width"`, KindWrongType, ""},
		{`{"beam": 3}`, KindUnknownKey, "beam"},
		{`{"beam_width": "3"}`, KindWrongType, "beam_width"},
		{`{"beam_width": 2.5}`, KindWrongType, "beam_width"},
		{`{"beam_width": 0}`, KindOutOfRange, "beam_width"},
		{`{"iters": -1}`, KindOutOfRange, "iters"},
		{`{"seed": -1}`, KindOutOfRange, "seed"},
		{`{"seed": 4294967296}`, KindOutOfRange, "seed"},
		{`{"debug": 1}`, KindWrongType, "debug"},
		{`{"dom_eps": -0.1}`, KindOutOfRange, "dom_eps"},
		{`{"dom_eps": true}`, KindWrongType, "dom_eps"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			opt, err := ParseOptions(tt.text)
			var oe *OptionError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.kind, oe.Kind, oe.Error())
			assert.Equal(t, tt.key, oe.Key)
			assert.Equal(t, DefaultOptions(), opt)
		})
	}
}

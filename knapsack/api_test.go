package knapsack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectDoc = `{"mode":"select","items":[
	{"id":"a","value":10,"weight":5},
	{"id":"b","value":6,"weight":4},
	{"id":"c","value":5,"weight":3},
	{"id":"d","value":3,"weight":2}
],"capacities":[8]}`

func TestSolveFromConfigCodes(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		options string
		want    Code
	}{
		{"ok", selectDoc, "", CodeOK},
		{"ok with options", selectDoc, `{"beam_width":2,"iters":2,"seed":3}`, CodeOK},
		{"empty config", "", "", CodeInvalidConfig},
		{"blank config", " \n ", "", CodeInvalidConfig},
		{"malformed config", `{"mode":"select"`, "", CodeInvalidConfig},
		{"bad options", selectDoc, `{"iters":"ten"}`, CodeInvalidConfig},
		{"unknown option", selectDoc, `{"beamwidth":2}`, CodeInvalidConfig},
		{"bad catalog", `{"mode":"select","items":[{"value":1,"weight":-2}],"capacities":[1]}`, "", CodeInvalidCatalog},
		{"assign mode", `{"mode":"assign","items":[{"value":1,"weights":[1,1]}],"capacities":[2,2]}`, "", CodeUnsupportedMode},
		{"no candidates", selectDoc, `{"num_candidates":0}`, CodeSolverFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := SolveFromConfig(tt.config, tt.options, NewSoftware())
			assert.Equal(t, tt.want, CodeOf(err), "err: %v", err)
			if tt.want == CodeOK {
				require.NotNil(t, run)
				assert.Equal(t, run.Solution.Objective-run.Solution.Penalty, run.Solution.Total)
			} else {
				assert.Nil(t, run)
			}
		})
	}
}

// An assign config is rejected as unsupported, never as a parse failure,
// while the same document with a typo in the mode is a config error.
func TestSolveFromConfigUnsupportedIsNotParseFailure(t *testing.T) {
	assign := `{"mode":"assign","items":[{"value":1,"weight":1}],"capacities":[1]}`
	_, err := SolveFromConfig(assign, "", nil)
	assert.ErrorIs(t, err, ErrUnsupportedMode)
	assert.Equal(t, CodeUnsupportedMode, CodeOf(err))

	typo := `{"mode":"asign","items":[{"value":1,"weight":1}],"capacities":[1]}`
	_, err = SolveFromConfig(typo, "", nil)
	assert.Equal(t, CodeInvalidConfig, CodeOf(err))
}

func TestSolveFromConfigEmptyCatalog(t *testing.T) {
	run, err := SolveFromConfig(`{"mode":"select","items":[],"capacities":[3]}`, "", nil)
	require.NoError(t, err)
	sol := run.Solution
	assert.Equal(t, 0, sol.NumItems)
	assert.Zero(t, sol.Objective)
	assert.Zero(t, sol.Penalty)
	assert.Zero(t, sol.Total)
	assert.Equal(t, 0, run.Catalog.Len())
}

func TestSolveFromConfigDeterministic(t *testing.T) {
	opts := `{"seed": 31, "iters": 3, "num_candidates": 32, "beam_width": 4}`
	a, err := SolveFromConfig(selectDoc, opts, nil)
	require.NoError(t, err)
	b, err := SolveFromConfig(selectDoc, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Solution, b.Solution)
	assert.Equal(t, uint32(31), a.Options.Seed)
}

func TestSolveFromConfigBiased(t *testing.T) {
	calls := 0
	bias := funcBias(func(p *Problem, b *Batch) ([]float64, error) {
		calls++
		return make([]float64, b.N), nil
	})
	_, err := SolveFromConfigBiased(selectDoc, `{"iters": 4}`, nil, bias)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeSolverFailed, CodeOf(errors.New("other")))
	assert.Equal(t, CodeUnsupportedMode, CodeOf(errors.Join(errors.New("ctx"), ErrUnsupportedMode)))
	assert.Equal(t, "allocation failed", CodeAllocFailed.String())
	assert.Equal(t, -7, int(CodeAllocFailed))
	assert.Equal(t, -1, int(CodeNilOutput))
}

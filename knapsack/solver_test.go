package knapsack

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knapsack-optimizer/scorer"
)

// smallSelect has a unique feasible optimum: items 0, 2, 3 (value 18, weight 10).
func smallSelect() *Problem {
	return testProblem(ModeSelect,
		[]float64{10, 6, 5, 3, 1, 8, 4, 2},
		[]float64{5, 4, 3, 2, 1, 6, 3, 2},
		[]float64{10})
}

// bestFeasible enumerates every subset of a small single-group select
// problem and returns the best objective among those within capacity.
func bestFeasible(p *Problem) float64 {
	best := 0.0
	for mask := 0; mask < 1<<p.NumItems; mask++ {
		var v, w float64
		for i := 0; i < p.NumItems; i++ {
			if mask&(1<<i) != 0 {
				v += p.Values[i]
				w += p.Weights[i]
			}
		}
		if w <= p.Caps[0] && v > best {
			best = v
		}
	}
	return best
}

func TestSolverFindsFeasibleOptimum(t *testing.T) {
	p := smallSelect()
	require.Equal(t, 18.0, bestFeasible(p))

	s := NewSolver(p, DefaultOptions(), nil)
	sol, err := s.Solve()
	require.NoError(t, err)
	assert.Equal(t, StateDone, s.State())
	assert.Equal(t, 18.0, sol.Total)
	assert.Equal(t, 0.0, sol.Penalty)
	assert.Equal(t, []int{0, 2, 3}, sol.Indices())
	assert.Equal(t, []float64{10}, sol.Loads)
}

func TestSolverDeterministic(t *testing.T) {
	opt := DefaultOptions()
	opt.Seed = 777
	opt.NumCandidates = 64
	opt.Iters = 4

	a := NewSolver(smallSelect(), opt, nil)
	solA, err := a.Solve()
	require.NoError(t, err)
	b := NewSolver(smallSelect(), opt, DefaultEvaluator())
	solB, err := b.Solve()
	require.NoError(t, err)

	assert.Equal(t, solA, solB)
	assert.Equal(t, a.Beam(), b.Beam())
}

func TestSolverTotalIsObjectiveMinusPenalty(t *testing.T) {
	p := testProblem(ModeSelect,
		[]float64{4, 4, 4, 4, 4, 4},
		[]float64{3, 3, 3, 3, 3, 3},
		[]float64{7})
	p.Coeff = 0.5
	p.Power = 1.5
	for seed := uint32(0); seed < 20; seed++ {
		opt := DefaultOptions()
		opt.Seed = seed
		opt.Iters = 2
		sol, err := NewSolver(p, opt, nil).Solve()
		require.NoError(t, err)
		assert.Equal(t, sol.Objective-sol.Penalty, sol.Total)
	}
}

func TestSolverReportsBeamScore(t *testing.T) {
	t.Setenv(AccelEnv, "")
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 12; i++ {
		p := tenthsProblem(rng, 40, 1)
		p.Caps[0] = 30
		opt := DefaultOptions()
		opt.Seed = uint32(i)
		opt.Iters = 4

		acc := NewSolver(p, opt, DefaultEvaluator())
		sol, err := acc.Solve()
		require.NoError(t, err)
		assert.Equal(t, acc.Beam()[0].Result.Score(), sol.Total, "run %d", i)

		soft, err := NewSolver(p, opt, NewSoftware()).Solve()
		require.NoError(t, err)
		assert.Equal(t, soft, sol, "run %d", i)
	}
}

func TestSolverEmptyCatalog(t *testing.T) {
	p := testProblem(ModeSelect, nil, nil, []float64{5})
	s := NewSolver(p, DefaultOptions(), nil)
	sol, err := s.Solve()
	require.NoError(t, err)
	assert.Equal(t, StateDone, s.State())
	assert.Equal(t, 0, sol.NumItems)
	assert.Empty(t, sol.Select)
	assert.Zero(t, sol.Objective)
	assert.Zero(t, sol.Penalty)
	assert.Zero(t, sol.Total)
}

func TestSolverNoCandidates(t *testing.T) {
	opt := DefaultOptions()
	opt.NumCandidates = 0
	s := NewSolver(smallSelect(), opt, nil)
	_, err := s.Solve()
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Equal(t, StateFailed, s.State())
}

func TestSolverRejectsBadOptions(t *testing.T) {
	opt := DefaultOptions()
	opt.BeamWidth = 0
	_, err := NewSolver(smallSelect(), opt, nil).Solve()
	var oe *OptionError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "beam_width", oe.Key)
}

// selectOnly is an evaluator without assign support.
type selectOnly struct{ Software }

func (selectOnly) Name() string { return "select-only" }
func (selectOnly) Supports(m Mode) bool { return m == ModeSelect }

func TestSolverUnsupportedMode(t *testing.T) {
	p := testProblem(ModeAssign, []float64{1, 2}, []float64{1, 1, 1, 1}, []float64{2, 2})
	s := NewSolver(p, DefaultOptions(), &selectOnly{})
	_, err := s.Solve()
	assert.ErrorIs(t, err, ErrUnsupportedMode)
	assert.Equal(t, StateFailed, s.State())
}

func TestSolverAssignMode(t *testing.T) {
	p := testProblem(ModeAssign,
		[]float64{5, 4, 3, 2, 6, 1, 7},
		[]float64{
			2, 3,
			1, 1,
			4, 2,
			2, 2,
			3, 5,
			1, 1,
			5, 3,
		},
		[]float64{6, 6})
	sol, err := NewSolver(p, DefaultOptions(), NewSoftware()).Solve()
	require.NoError(t, err)
	require.Len(t, sol.Assign, p.NumItems)
	for i, g := range sol.Assign {
		assert.True(t, g >= -1 && g < p.NumGroups, "item %d group %d", i, g)
		assert.Equal(t, g >= 0, sol.Select[i] == 1)
	}
	assert.Equal(t, sol.Objective-sol.Penalty, sol.Total)
	assert.LessOrEqual(t, sol.Loads[0], p.Caps[0])
	assert.LessOrEqual(t, sol.Loads[1], p.Caps[1])
}

type funcBias func(p *Problem, b *Batch) ([]float64, error)

func (f funcBias) Bias(p *Problem, b *Batch) ([]float64, error) { return f(p, b) }

func TestSolverBiasSteersRanking(t *testing.T) {
	s := NewSolver(smallSelect(), DefaultOptions(), nil)
	// reward the low-value item 7 heavily
	s.SetBias(funcBias(func(p *Problem, b *Batch) ([]float64, error) {
		out := make([]float64, b.N)
		for c := range out {
			if b.Lane(c, 7) == 1 {
				out[c] = 100
			}
		}
		return out, nil
	}))
	sol, err := s.Solve()
	require.NoError(t, err)
	assert.Equal(t, 1, sol.Select[7])
	// the bias moves ranking only, never the reported totals
	assert.Equal(t, sol.Objective-sol.Penalty, sol.Total)
}

func TestSolverBiasErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewSolver(smallSelect(), DefaultOptions(), nil)
	s.SetBias(funcBias(func(*Problem, *Batch) ([]float64, error) { return nil, boom }))
	_, err := s.Solve()
	assert.ErrorIs(t, err, boom)

	s = NewSolver(smallSelect(), DefaultOptions(), nil)
	s.SetBias(funcBias(func(*Problem, *Batch) ([]float64, error) { return []float64{1}, nil }))
	_, err = s.Solve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 terms for 256 candidates")
}

func TestSolverLearnedBias(t *testing.T) {
	sc, err := scorer.New(`{"w_rl": 1, "alpha": 0.5, "feat_dim": 4}`)
	require.NoError(t, err)
	defer sc.Close()

	opt := DefaultOptions()
	opt.Iters = 3
	s := NewSolver(smallSelect(), opt, nil)
	s.SetBias(&LearnedBias{Scorer: sc})
	sol, err := s.Solve()
	require.NoError(t, err)
	assert.Equal(t, sol.Objective-sol.Penalty, sol.Total)

	// the scorer holds the final round's batch
	assert.Equal(t, opt.NumCandidates, sc.LastBatchSize())
	up, err := sc.Learn(`{"rewards":[1, 0.5]}`)
	require.NoError(t, err)
	assert.Equal(t, scorer.SchemaRewards, up.Schema)
	assert.Len(t, up.Rewards, opt.NumCandidates)
}

func TestLearnedBiasRejectsAssign(t *testing.T) {
	sc, err := scorer.New(`{"feat_dim": 2}`)
	require.NoError(t, err)
	defer sc.Close()
	p := testProblem(ModeAssign, []float64{1}, []float64{1}, []float64{1})
	_, err = (&LearnedBias{Scorer: sc}).Bias(p, NewBatch(1, 1))
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestUnpack(t *testing.T) {
	b := NewBatch(5, 2)
	b.SetLane(0, 0, 1)
	b.SetLane(0, 4, 1)
	b.SetLane(1, 2, 1)
	assert.Equal(t, []byte{1, 0, 0, 0, 1, 0, 0, 1, 0, 0}, Unpack(b))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INIT", StateInit.String())
	assert.Equal(t, "FILTER", StateFilter.String())
	assert.Equal(t, "State(42)", State(42).String())
}

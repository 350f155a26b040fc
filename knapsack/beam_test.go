package knapsack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id byte, obj, pen float64) Scored {
	return Scored{Cand: []byte{id}, Result: EvalResult{Objective: obj, Penalty: pen}}
}

func ids(s []Scored) []byte {
	out := make([]byte, len(s))
	for i, c := range s {
		out[i] = c.Cand[0]
	}
	return out
}

func TestRetainRanksAndTruncates(t *testing.T) {
	in := []Scored{
		scored(1, 5, 0),
		scored(2, 9, 1),
		scored(3, 7, 0),
		scored(4, 7, 0), // ties keep input order
		scored(5, 1, 0),
	}
	got := Retain(in, Dominance{}, 3)
	assert.Equal(t, []byte{2, 3, 4}, ids(got))
	// input untouched
	assert.Equal(t, byte(1), in[0].Cand[0])
}

func TestRetainDedups(t *testing.T) {
	in := []Scored{scored(1, 5, 0), scored(1, 5, 0), scored(2, 4, 0)}
	assert.Equal(t, []byte{1, 2}, ids(Retain(in, Dominance{}, 10)))
}

func TestRetainExactDominance(t *testing.T) {
	in := []Scored{
		scored(1, 10, 0), // rank 10
		scored(2, 9, 0),  // dominated by 1
		scored(3, 12, 5), // rank 7, higher objective: survives
		scored(4, 10, 2), // dominated by 1
	}
	got := Retain(in, Dominance{Exact: true, Eps: 1e-9}, 10)
	assert.Equal(t, []byte{1, 3}, ids(got))
}

func TestRetainExactDominanceEps(t *testing.T) {
	in := []Scored{
		scored(1, 10, 0),
		scored(2, 10.4, 0.2), // ranks higher; 1 is within eps of it on both axes
	}
	got := Retain(in, Dominance{Exact: true, Eps: 0.5}, 10)
	assert.Equal(t, []byte{2}, ids(got))
}

func TestRetainSurrogate(t *testing.T) {
	in := []Scored{
		scored(1, 10, 0),
		scored(2, 9.8, 0), // proxy within eps of 1
		scored(3, 9, 0),
		scored(4, 12, 5),
	}
	got := Retain(in, Dominance{Surrogate: true, Eps: 0.5}, 10)
	assert.Equal(t, []byte{1, 3, 4}, ids(got))

	// the surrogate replaces the exact test when both are set
	both := Retain(in, Dominance{Exact: true, Surrogate: true, Eps: 0.5}, 10)
	assert.Equal(t, got, both)
}

func TestRetainBiasMovesRank(t *testing.T) {
	a := scored(1, 5, 0)
	b := scored(2, 4, 0)
	b.Bias = 2
	got := Retain([]Scored{a, b}, Dominance{}, 1)
	assert.Equal(t, []byte{2}, ids(got))
}

func TestRetainAlwaysKeepsBest(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for _, dom := range []Dominance{
		{},
		{Exact: true, Eps: 0},
		{Exact: true, Eps: 3},
		{Surrogate: true, Eps: 0.5},
		{Surrogate: true, Exact: true, Eps: 10},
	} {
		for trial := 0; trial < 50; trial++ {
			n := 1 + rng.Intn(60)
			in := make([]Scored, n)
			best := 0
			for i := range in {
				in[i] = Scored{
					Cand:   []byte{byte(i), byte(trial)},
					Result: EvalResult{Objective: rng.Float64() * 20, Penalty: rng.Float64() * 5},
				}
				if in[i].Rank() > in[best].Rank() {
					best = i
				}
			}
			width := 1 + rng.Intn(8)
			got := Retain(in, dom, width)
			require.NotEmpty(t, got)
			assert.LessOrEqual(t, len(got), width)
			assert.Equal(t, in[best].Cand, got[0].Cand, "dom %+v trial %d", dom, trial)
		}
	}
}

func TestDominates(t *testing.T) {
	d := EvalResult{Objective: 10, Penalty: 1}
	assert.True(t, Dominates(d, EvalResult{Objective: 9, Penalty: 1}, 0))
	assert.True(t, Dominates(d, d, 0))
	assert.False(t, Dominates(d, EvalResult{Objective: 11, Penalty: 1}, 0))
	assert.False(t, Dominates(d, EvalResult{Objective: 9, Penalty: 0}, 0))
	assert.True(t, Dominates(d, EvalResult{Objective: 10.5, Penalty: 0.6}, 0.5))
}

package knapsack

import (
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Evaluator scores every candidate of a batch. result[i] always belongs to
// candidate i, whatever the implementation does internally.
type Evaluator interface {
	Name() string
	Supports(m Mode) bool
	Evaluate(p *Problem, b *Batch) ([]EvalResult, error)
}

// ── Scoring formulas ────────────────────────────────────────────────

// groupLoads sums the weight each group carries in one candidate.
func groupLoads(p *Problem, cand []byte, load []float64) {
	clear(load)
	for i := 0; i < p.NumItems; i++ {
		if lane := GetLane(cand, i); lane != 0 {
			p.addLoad(load, i, lane)
		}
	}
}

// objective sums the value term of every selected or assigned item.
// Lanes outside the mode's valid set count as unassigned.
func objective(p *Problem, cand []byte) float64 {
	maxLane := p.maxLane()
	var obj float64
	for i := 0; i < p.NumItems; i++ {
		if lane := GetLane(cand, i); lane != 0 && lane <= maxLane {
			obj += p.Values[i]
		}
	}
	return obj
}

// penalty is Σ coeff * max(0, load - cap)^power; it is zero exactly when
// every load is within capacity.
func penalty(p *Problem, load []float64) float64 {
	var pen float64
	for g, l := range load {
		if over := l - p.Caps[g]; over > 0 {
			pen += p.Coeff * math.Pow(over, p.Power)
		}
	}
	return pen
}

func evalOne(p *Problem, cand []byte, load []float64) EvalResult {
	groupLoads(p, cand, load)
	return EvalResult{Objective: objective(p, cand), Penalty: penalty(p, load)}
}

func checkShape(p *Problem, b *Batch) error {
	if b.NumItems != p.NumItems || b.Width != p.Width() || len(b.Data) != b.N*b.Width {
		return ErrBatchShape
	}
	return nil
}

// ── Software evaluator ──────────────────────────────────────────────

// parallelMinBatch is the batch size below which fan-out costs more than it saves.
const parallelMinBatch = 512

// Software is the portable evaluator. It is always available.
type Software struct {
	// Workers caps the goroutines used per batch; 0 means GOMAXPROCS.
	Workers int
}

// NewSoftware returns a software evaluator using GOMAXPROCS workers.
func NewSoftware() *Software { return &Software{} }

func (s *Software) Name() string { return "software" }

// Supports reports true for both modes.
func (s *Software) Supports(m Mode) bool { return m == ModeSelect || m == ModeAssign }

// Evaluate scores the batch, splitting large batches into contiguous chunks.
func (s *Software) Evaluate(p *Problem, b *Batch) ([]EvalResult, error) {
	if err := checkShape(p, b); err != nil {
		return nil, err
	}
	out := make([]EvalResult, b.N)
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || b.N < parallelMinBatch {
		evalRange(p, b, out, 0, b.N)
		return out, nil
	}

	chunk := (b.N + workers - 1) / workers
	wp := pool.New().WithMaxGoroutines(workers)
	for lo := 0; lo < b.N; lo += chunk {
		lo, hi := lo, min(lo+chunk, b.N)
		wp.Go(func() {
			evalRange(p, b, out, lo, hi)
		})
	}
	wp.Wait()
	return out, nil
}

func evalRange(p *Problem, b *Batch, out []EvalResult, lo, hi int) {
	load := make([]float64, p.NumGroups)
	for c := lo; c < hi; c++ {
		out[c] = evalOne(p, b.Candidate(c), load)
	}
}

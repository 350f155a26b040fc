package knapsack

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// State is a step of the beam search state machine.
type State int

const (
	StateInit State = iota
	StateGenerate
	StateEvaluate
	StateFilter
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateGenerate:
		return "GENERATE"
	case StateEvaluate:
		return "EVALUATE"
	case StateFilter:
		return "FILTER"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Bias adds a per-candidate term to the ranking of a batch.
type Bias interface {
	Bias(p *Problem, b *Batch) ([]float64, error)
}

// Solver runs INIT → (GENERATE → EVALUATE → FILTER) × iters → DONE.
// Rounds are independent draws from the evolving PRNG; the only thing
// carried between rounds is the beam itself.
type Solver struct {
	p    *Problem
	opt  Options
	eval Evaluator
	bias Bias

	state State
	rng   *rand.Rand
	beam  []Scored
	round int
	seen  int // candidates generated so far
}

// NewSolver builds a solver. A nil evaluator means software evaluation.
func NewSolver(p *Problem, opt Options, eval Evaluator) *Solver {
	if eval == nil {
		eval = NewSoftware()
	}
	return &Solver{p: p, opt: opt, eval: eval}
}

// SetBias attaches a learned ranking term.
func (s *Solver) SetBias(b Bias) { s.bias = b }

// State returns the current state.
func (s *Solver) State() State { return s.state }

// Beam returns a copy of the retained candidates, best first.
func (s *Solver) Beam() []Scored { return slices.Clone(s.beam) }

// Solve runs the search to completion and extracts the best candidate.
func (s *Solver) Solve() (*Solution, error) {
	start := time.Now()
	if err := s.init(); err != nil {
		s.state = StateFailed
		return nil, err
	}
	s.logRound("init",
		zap.Stringer("mode", s.p.Mode),
		zap.Int("items", s.p.NumItems),
		zap.Int("groups", s.p.NumGroups),
		zap.String("evaluator", s.eval.Name()))

	if s.p.NumItems == 0 {
		s.state = StateDone
		return Extract(s.p, nil), nil
	}

	for s.round = 0; s.round < s.opt.Iters; s.round++ {
		if err := s.step(); err != nil {
			s.state = StateFailed
			return nil, err
		}
	}

	if len(s.beam) == 0 {
		s.state = StateFailed
		return nil, ErrNoCandidates
	}
	s.state = StateDone
	sol := Extract(s.p, s.beam[0].Cand)
	s.logRound("done",
		zap.Int("generated", s.seen),
		zap.Float64("best", sol.Total),
		zap.Duration("elapsed", time.Since(start)))
	return sol, nil
}

func (s *Solver) init() error {
	s.state = StateInit
	if err := s.opt.Validate(); err != nil {
		return err
	}
	if !s.eval.Supports(s.p.Mode) {
		return fmt.Errorf("%w: %s with evaluator %s", ErrUnsupportedMode, s.p.Mode, s.eval.Name())
	}
	s.rng = newRNG(s.opt.Seed)
	s.beam = nil
	s.seen = 0
	return nil
}

func (s *Solver) step() error {
	s.state = StateGenerate
	batch := Generate(s.rng, s.p, s.opt.NumCandidates)
	s.seen += batch.N

	s.state = StateEvaluate
	results, err := s.eval.Evaluate(s.p, batch)
	if err != nil {
		return fmt.Errorf("round %d: evaluate: %w", s.round, err)
	}
	var bias []float64
	if s.bias != nil && batch.N > 0 {
		if bias, err = s.bias.Bias(s.p, batch); err != nil {
			return fmt.Errorf("round %d: bias: %w", s.round, err)
		}
		if len(bias) != batch.N {
			return fmt.Errorf("round %d: bias: %d terms for %d candidates", s.round, len(bias), batch.N)
		}
	}

	s.state = StateFilter
	pool := make([]Scored, 0, len(s.beam)+batch.N)
	pool = append(pool, s.beam...)
	for i, r := range results {
		sc := Scored{Cand: batch.Candidate(i), Result: r}
		if bias != nil {
			sc.Bias = bias[i]
		}
		pool = append(pool, sc)
	}
	kept := Retain(pool, Dominance{Exact: s.opt.DomEnable, Surrogate: s.opt.DomSurrogate, Eps: s.opt.DomEps}, s.opt.BeamWidth)
	for i := range kept {
		// survivors must not alias the batch, which is dropped after this round
		kept[i].Cand = slices.Clone(kept[i].Cand)
	}
	s.beam = kept

	if len(s.beam) > 0 {
		best := s.beam[0]
		s.logRound("round",
			zap.Int("round", s.round),
			zap.Int("pool", len(pool)),
			zap.Int("beam", len(s.beam)),
			zap.Float64("best", best.Result.Score()),
			zap.Float64("penalty", best.Result.Penalty))
	}
	return nil
}

// logRound writes at info level under the debug option, debug otherwise.
func (s *Solver) logRound(msg string, fields ...zap.Field) {
	lvl := zapcore.DebugLevel
	if s.opt.Debug {
		lvl = zapcore.InfoLevel
	}
	if ce := logger().Check(lvl, "[beam] "+msg); ce != nil {
		ce.Write(fields...)
	}
}

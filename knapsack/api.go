package knapsack

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Run bundles a finished structured solve with its timing.
type Run struct {
	Solution *Solution
	Options  Options
	Catalog  *Catalog
	Elapsed  time.Duration
}

// SolveFromConfig parses a config and options document and runs the beam
// search in select mode. Failures map to boundary codes through CodeOf:
// bad documents (-3), bad items (-4), assign mode (-5), search failure (-6).
// A nil evaluator uses DefaultEvaluator.
func SolveFromConfig(configText, optionsText string, eval Evaluator) (*Run, error) {
	return SolveFromConfigBiased(configText, optionsText, eval, nil)
}

// SolveFromConfigBiased is SolveFromConfig with a ranking bias, such as a
// LearnedBias, attached to the solver. A nil bias ranks by score alone.
func SolveFromConfigBiased(configText, optionsText string, eval Evaluator, bias Bias) (*Run, error) {
	start := time.Now()
	cfg, err := ParseConfig(configText)
	if err != nil {
		return nil, err
	}
	opt, err := ParseOptions(optionsText)
	if err != nil {
		return nil, err
	}
	cat, err := BuildCatalog(cfg)
	if err != nil {
		return nil, err
	}
	// assign mode is evaluator-dependent; this entry point only guarantees select
	if cfg.Mode != ModeSelect {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, cfg.Mode)
	}
	if eval == nil {
		eval = DefaultEvaluator()
	}

	s := NewSolver(NewProblem(cfg, cat), opt, eval)
	if bias != nil {
		s.SetBias(bias)
	}
	sol, err := s.Solve()
	if err != nil {
		logger().Warn("solve failed", zap.Error(err))
		return nil, fmt.Errorf("solve: %w", err)
	}
	return &Run{Solution: sol, Options: opt, Catalog: cat, Elapsed: time.Since(start)}, nil
}

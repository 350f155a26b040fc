package knapsack

import (
	"fmt"

	"knapsack-optimizer/scorer"
)

// LearnedBias ranks candidates with an online scorer. Every round's batch
// becomes the scorer's current batch, so feedback given after a solve
// applies to the final round.
type LearnedBias struct {
	Scorer *scorer.Scorer
	// Context is passed to the scorer on every call, e.g. rule penalties.
	Context string
}

// Bias unpacks the select-mode lanes to one byte per item and scores them.
func (l *LearnedBias) Bias(p *Problem, b *Batch) ([]float64, error) {
	if p.Mode != ModeSelect {
		return nil, fmt.Errorf("%w: learned bias scores select mode only", ErrUnsupportedMode)
	}
	res, err := l.Scorer.ScoreBatch(l.Context, Unpack(b), p.NumItems, b.N, scorer.ModeSelect)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// Unpack expands a select-mode batch to one byte per item, 1 when selected.
func Unpack(b *Batch) []byte {
	out := make([]byte, b.N*b.NumItems)
	for c := 0; c < b.N; c++ {
		cand := b.Candidate(c)
		row := out[c*b.NumItems : (c+1)*b.NumItems]
		for i := range row {
			if GetLane(cand, i) == 1 {
				row[i] = 1
			}
		}
	}
	return out
}

package knapsack

import (
	"math"
	"slices"
)

// Scored is one evaluated candidate. Bias is the learned-scorer term, zero
// when no scorer is attached; it moves ranking only, never reported totals.
type Scored struct {
	Cand   []byte
	Result EvalResult
	Bias   float64
}

// Rank is the beam ordering key.
func (s Scored) Rank() float64 { return s.Result.Score() + s.Bias }

// Dominance configures the optional pruning applied before truncation.
type Dominance struct {
	// Exact enables the pairwise (objective, penalty) test.
	Exact bool
	// Surrogate replaces the pairwise test with the scalar proxy.
	Surrogate bool
	// Eps is the tolerance on both axes.
	Eps float64
}

// Retain ranks cands (descending, ties keep input order), merges identical
// encodings, applies dominance pruning and keeps at most width members. The
// top-ranked candidate always survives.
func Retain(cands []Scored, dom Dominance, width int) []Scored {
	ranked := slices.Clone(cands)
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		ra, rb := a.Rank(), b.Rank()
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}
		return 0
	})
	ranked = dedup(ranked)

	switch {
	case dom.Surrogate:
		ranked = surrogateFilter(ranked, dom.Eps, width)
	case dom.Exact:
		ranked = dominanceFilter(ranked, dom.Eps, width)
	}
	if len(ranked) > width {
		ranked = ranked[:width]
	}
	return ranked
}

// dedup keeps the first (best-ranked) copy of each encoding.
func dedup(ranked []Scored) []Scored {
	seen := make(map[string]bool, len(ranked))
	out := ranked[:0]
	for _, s := range ranked {
		key := string(s.Cand)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// Dominates reports whether d weakly dominates c on both axes within eps.
func Dominates(d, c EvalResult, eps float64) bool {
	return d.Objective >= c.Objective-eps && d.Penalty <= c.Penalty+eps
}

// dominanceFilter walks ranked candidates in order and drops any that an
// already kept candidate dominates. Walking in rank order keeps mutual
// (within-eps) dominance from removing both sides. Stops at width kept.
func dominanceFilter(ranked []Scored, eps float64, width int) []Scored {
	kept := make([]Scored, 0, min(width, len(ranked)))
	for _, c := range ranked {
		if len(kept) == width {
			break
		}
		dominated := false
		for _, d := range kept {
			if Dominates(d.Result, c.Result, eps) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, c)
		}
	}
	return kept
}

// surrogateFilter collapses the (objective, penalty) pair to the scalar
// objective - penalty and drops a candidate whose proxy lies within eps of
// the last kept one. Linear in the batch size.
func surrogateFilter(ranked []Scored, eps float64, width int) []Scored {
	kept := make([]Scored, 0, min(width, len(ranked)))
	last := math.Inf(1)
	for _, c := range ranked {
		if len(kept) == width {
			break
		}
		s := c.Result.Score()
		if len(kept) > 0 && math.Abs(s-last) <= eps {
			continue
		}
		kept = append(kept, c)
		last = s
	}
	return kept
}

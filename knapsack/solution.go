package knapsack

// Solution is the decoded winner of a search.
type Solution struct {
	Mode     Mode
	NumItems int
	// Select is 1 for every item that is selected or assigned to a group.
	Select []int
	// Assign holds the group index per item in assign mode, -1 when
	// unassigned; nil in select mode.
	Assign    []int
	Loads     []float64
	Objective float64
	Penalty   float64
	Total     float64 // Objective - Penalty
}

// SelectedCount returns how many items the solution uses.
func (s *Solution) SelectedCount() int {
	n := 0
	for _, v := range s.Select {
		n += v
	}
	return n
}

// Indices returns the indices of the used items in ascending order.
func (s *Solution) Indices() []int {
	idx := make([]int, 0, s.SelectedCount())
	for i, v := range s.Select {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

// Extract decodes cand and recomputes its totals with the evaluator
// formulas. A nil cand decodes as all-unassigned.
func Extract(p *Problem, cand []byte) *Solution {
	if cand == nil {
		cand = make([]byte, p.Width())
	}
	sol := &Solution{
		Mode:     p.Mode,
		NumItems: p.NumItems,
		Select:   make([]int, p.NumItems),
		Loads:    make([]float64, p.NumGroups),
	}
	if p.Mode == ModeAssign {
		sol.Assign = make([]int, p.NumItems)
	}
	maxLane := p.maxLane()
	for i := 0; i < p.NumItems; i++ {
		lane := GetLane(cand, i)
		used := lane != 0 && lane <= maxLane
		if used {
			sol.Select[i] = 1
		}
		if sol.Assign != nil {
			sol.Assign[i] = -1
			if used {
				sol.Assign[i] = int(lane) - 1
			}
		}
	}
	groupLoads(p, cand, sol.Loads)
	sol.Objective = objective(p, cand)
	sol.Penalty = penalty(p, sol.Loads)
	sol.Total = sol.Objective - sol.Penalty
	return sol
}

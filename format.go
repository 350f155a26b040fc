package main

import (
	"fmt"
	"strings"

	"knapsack-optimizer/knapsack"
)

// maxListed caps how many selected items the text output names.
const maxListed = 32

// FormatSolution produces the text summary of a structured solve: totals,
// per-group loads and the first selected items.
func FormatSolution(sol *knapsack.Solution, cat *knapsack.Catalog) string {
	var b strings.Builder

	fmt.Fprintf(&b, "objective: %.4f\n", sol.Objective)
	fmt.Fprintf(&b, "penalty:   %.4f\n", sol.Penalty)
	fmt.Fprintf(&b, "total:     %.4f\n", sol.Total)
	fmt.Fprintf(&b, "selected:  %d / %d\n", sol.SelectedCount(), sol.NumItems)

	for g, l := range sol.Loads {
		fmt.Fprintf(&b, "group %d load: %.4f\n", g, l)
	}

	idx := sol.Indices()
	if len(idx) == 0 {
		return b.String()
	}
	parts := make([]string, 0, min(len(idx), maxListed))
	for _, i := range idx[:min(len(idx), maxListed)] {
		name := fmt.Sprint(i)
		if cat != nil && i < len(cat.Items) {
			name = fmt.Sprintf("%d:%s", i, cat.Items[i].ID)
		}
		parts = append(parts, name)
	}
	fmt.Fprintf(&b, "items: %s", strings.Join(parts, ", "))
	if len(idx) > maxListed {
		fmt.Fprintf(&b, " ... (+%d)", len(idx)-maxListed)
	}
	b.WriteString("\n")
	return b.String()
}

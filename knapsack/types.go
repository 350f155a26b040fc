// Package knapsack implements a randomized beam search over bit-packed
// candidate selections and assignments, scored against soft capacity
// constraints.
package knapsack

// Mode selects how a lane value is interpreted.
type Mode int

const (
	ModeUnknown Mode = iota
	// ModeSelect is binary inclusion: lane 1 selects the item.
	ModeSelect
	// ModeAssign maps items to groups: lane 0 is unassigned, lane g+1 is group g.
	ModeAssign
)

func parseMode(s string) Mode {
	switch s {
	case "select":
		return ModeSelect
	case "assign":
		return ModeAssign
	}
	return ModeUnknown
}

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeAssign:
		return "assign"
	}
	return "unknown"
}

const (
	// LaneBits is the width of one item's lane inside a candidate.
	LaneBits = 2
	// LanesPerByte is how many items share one candidate byte.
	LanesPerByte = 8 / LaneBits
	// MaxAssignGroups is the number of groups addressable by a lane in assign mode.
	MaxAssignGroups = 3

	laneMask = 0x3
)

// Item is one catalog entry. Weights has one entry per group.
type Item struct {
	ID      string
	Values  []float64
	Weights []float64
}

// Catalog is the validated, immutable item list a Problem is built from.
type Catalog struct {
	Items     []Item
	NumGroups int
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Problem is the flattened view the encoder and evaluators work on.
// Weights is item-major: Weights[i*NumGroups+g].
type Problem struct {
	Mode      Mode
	NumItems  int
	NumGroups int
	Values    []float64 // one collapsed objective term per item
	Weights   []float64
	Caps      []float64
	Coeff     float64
	Power     float64
}

// Width returns the encoded length of one candidate in bytes.
func (p *Problem) Width() int {
	return CandidateWidth(p.NumItems)
}

// CandidateWidth returns ceil(numItems / 4).
func CandidateWidth(numItems int) int {
	return (numItems + LanesPerByte - 1) / LanesPerByte
}

// EvalResult is the score pair for one candidate.
type EvalResult struct {
	Objective float64
	Penalty   float64
}

// Score is the ranking key, objective net of penalty.
func (r EvalResult) Score() float64 {
	return r.Objective - r.Penalty
}

package knapsack

import (
	"fmt"
	"math/rand"
)

// Batch is a contiguous block of fixed-width candidates. Candidate i always
// occupies Data[i*Width : (i+1)*Width].
type Batch struct {
	NumItems int
	Width    int
	N        int
	Data     []byte
}

// NewBatch allocates a zeroed batch, every lane unassigned.
func NewBatch(numItems, n int) *Batch {
	w := CandidateWidth(numItems)
	return &Batch{NumItems: numItems, Width: w, N: n, Data: make([]byte, w*n)}
}

// Candidate returns the encoded bytes of candidate i, aliasing the batch.
func (b *Batch) Candidate(i int) []byte {
	return b.Data[i*b.Width : (i+1)*b.Width]
}

// Lane returns the lane of item in candidate c.
func (b *Batch) Lane(c, item int) uint8 {
	return GetLane(b.Candidate(c), item)
}

// SetLane writes the lane of item in candidate c.
func (b *Batch) SetLane(c, item int, lane uint8) {
	SetLane(b.Candidate(c), item, lane)
}

// GetLane reads one item's lane from an encoded candidate.
func GetLane(cand []byte, item int) uint8 {
	shift := uint(item%LanesPerByte) * LaneBits
	return (cand[item/LanesPerByte] >> shift) & laneMask
}

// SetLane writes one item's lane into an encoded candidate.
func SetLane(cand []byte, item int, lane uint8) {
	shift := uint(item%LanesPerByte) * LaneBits
	i := item / LanesPerByte
	cand[i] = cand[i]&^(laneMask<<shift) | (lane&laneMask)<<shift
}

// EncodeLanes packs an explicit lane vector into a candidate.
func EncodeLanes(lanes []uint8) ([]byte, error) {
	cand := make([]byte, CandidateWidth(len(lanes)))
	for i, l := range lanes {
		if l > laneMask {
			return nil, fmt.Errorf("knapsack: lane %d of item %d does not fit in %d bits", l, i, LaneBits)
		}
		SetLane(cand, i, l)
	}
	return cand, nil
}

// DecodeLanes unpacks the first numItems lanes of a candidate.
func DecodeLanes(cand []byte, numItems int) []uint8 {
	lanes := make([]uint8, numItems)
	for i := range lanes {
		lanes[i] = GetLane(cand, i)
	}
	return lanes
}

// ── Generation ──────────────────────────────────────────────────────

// maxLane is the largest valid lane for the problem's mode.
func (p *Problem) maxLane() uint8 {
	if p.Mode == ModeAssign {
		return uint8(min(p.NumGroups, MaxAssignGroups))
	}
	return 1
}

// Generate draws n random candidates. Each lane is uniform over the mode's
// valid set; a lane that would push a group past its capacity at that step
// is forced back to unassigned. Same rng state and problem, same batch.
func Generate(rng *rand.Rand, p *Problem, n int) *Batch {
	b := NewBatch(p.NumItems, n)
	if p.NumItems == 0 || n == 0 {
		return b
	}
	maxLane := int(p.maxLane())
	load := make([]float64, p.NumGroups)
	for c := 0; c < n; c++ {
		clear(load)
		cand := b.Candidate(c)
		for i := 0; i < p.NumItems; i++ {
			lane := uint8(rng.Intn(maxLane + 1))
			if lane != 0 && !p.fits(load, i, lane) {
				lane = 0
			}
			if lane != 0 {
				p.addLoad(load, i, lane)
			}
			SetLane(cand, i, lane)
		}
	}
	return b
}

// fits reports whether placing item i on lane keeps every touched group
// within capacity given the running load.
func (p *Problem) fits(load []float64, i int, lane uint8) bool {
	w := p.Weights[i*p.NumGroups : (i+1)*p.NumGroups]
	if p.Mode == ModeAssign {
		g := int(lane) - 1
		return load[g]+w[g] <= p.Caps[g]
	}
	for g := range load {
		if load[g]+w[g] > p.Caps[g] {
			return false
		}
	}
	return true
}

func (p *Problem) addLoad(load []float64, i int, lane uint8) {
	w := p.Weights[i*p.NumGroups : (i+1)*p.NumGroups]
	if p.Mode == ModeAssign {
		if g := int(lane) - 1; g >= 0 && g < p.NumGroups {
			load[g] += w[g]
		}
		return
	}
	if lane != 1 {
		return
	}
	for g := range load {
		load[g] += w[g]
	}
}

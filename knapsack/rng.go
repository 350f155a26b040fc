package knapsack

import "math/rand"

// newRNG returns the deterministic stream for a run. The seed is used
// verbatim; defaulting happens at the entry points, never here.
//
// math/rand.Rand is not goroutine-safe: the solver owns its stream and
// generation is single-threaded.
func newRNG(seed uint32) *rand.Rand {
	return rand.New(rand.NewSource(mixSeed(uint64(seed))))
}

// mixSeed spreads small seeds (0, 1, 2...) over the full 63-bit source
// state with a SplitMix64 finalizer.
func mixSeed(x uint64) int64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x >> 1)
}

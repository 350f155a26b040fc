package knapsack

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"knapsack-optimizer/catalog"
)

const (
	// tripBlock is the most entities considered for one trip.
	tripBlock = 15
	// tripCandidates is the batch drawn per block.
	tripCandidates = 64

	earthRadiusKm = 6371.0
)

// TripParams holds the geography and cost constants of the trip planner.
type TripParams struct {
	// MaxUnitsPerGroup caps the units one trip carries.
	MaxUnitsPerGroup int
	DepotLat         float64
	DepotLon         float64
	FieldLat         float64
	FieldLon         float64
	GasPrice         float64 // per litre
	KmPerLiter       float64
}

// DefaultTripParams returns the planner constants used when a caller has
// no better ones.
func DefaultTripParams() TripParams {
	return TripParams{
		MaxUnitsPerGroup: 12,
		DepotLat:         0,
		DepotLon:         0,
		FieldLat:         0,
		FieldLon:         0,
		GasPrice:         1.5,
		KmPerLiter:       10,
	}
}

// Trip is one depot → stops → field → depot run.
type Trip struct {
	GroupID  int // 1-based
	Names    []string
	Distance float64 // km
	Cost     float64
	Units    int
}

// TripSolution is the planner's output.
type TripSolution struct {
	Trips      []Trip
	TotalUnits int
	TotalCost  float64
	// Shortfall is max(0, target - TotalUnits).
	Shortfall int
}

// String renders the trip names joined with commas, one trip per line.
func (t *TripSolution) String() string {
	var sb strings.Builder
	for _, tr := range t.Trips {
		fmt.Fprintf(&sb, "trip %d: %s units=%d km=%.1f cost=%.2f\n",
			tr.GroupID, strings.Join(tr.Names, ","), tr.Units, tr.Distance, tr.Cost)
	}
	fmt.Fprintf(&sb, "total units=%d cost=%.2f shortfall=%d", t.TotalUnits, t.TotalCost, t.Shortfall)
	return sb.String()
}

// SolveTrips plans trips until target units are collected or the
// entities run out. Entities are taken in input order in blocks of up to
// 15 unpicked ones with positive units; each block is searched with one
// random batch and the best candidate becomes a trip. When that candidate
// selects nothing, the block is filled greedily up to the unit cap instead.
func SolveTrips(entities []catalog.Entity, target int, params TripParams, eval Evaluator, seed uint32) (*TripSolution, error) {
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}
	if params.MaxUnitsPerGroup <= 0 {
		return nil, fmt.Errorf("knapsack: max units per group %d must be positive", params.MaxUnitsPerGroup)
	}
	if params.KmPerLiter <= 0 {
		return nil, fmt.Errorf("knapsack: km per litre %v must be positive", params.KmPerLiter)
	}
	if eval == nil {
		eval = NewSoftware()
	}

	rng := newRNG(seed)
	picked := make([]bool, len(entities))
	remaining := max(0, target)
	cursor := 0
	var trips [][]int

	for remaining > 0 && cursor < len(entities) {
		var block []int
		for i := cursor; i < len(entities) && len(block) < tripBlock; i++ {
			if !picked[i] && entities[i].Units > 0 {
				block = append(block, i)
			}
		}
		if len(block) == 0 {
			break
		}

		p := blockProblem(entities, block, params.MaxUnitsPerGroup)
		batch := Generate(rng, p, tripCandidates)
		results, err := eval.Evaluate(p, batch)
		if err != nil {
			return nil, fmt.Errorf("trip %d: evaluate: %w", len(trips)+1, err)
		}
		best := 0
		for c := 1; c < len(results); c++ {
			if results[c].Score() > results[best].Score() {
				best = c
			}
		}

		var trip []int
		units := 0
		for i, idx := range block {
			if batch.Lane(best, i) == 1 {
				trip = append(trip, idx)
				units += entities[idx].Units
			}
		}
		if len(trip) == 0 {
			for _, idx := range block {
				if units >= params.MaxUnitsPerGroup {
					break
				}
				trip = append(trip, idx)
				units += entities[idx].Units
			}
		}

		for _, idx := range trip {
			picked[idx] = true
		}
		trips = append(trips, trip)
		remaining -= units
		for cursor < len(entities) && picked[cursor] {
			cursor++
		}
		logger().Debug("[trips] block",
			zap.Int("trip", len(trips)),
			zap.Int("block", len(block)),
			zap.Int("stops", len(trip)),
			zap.Int("units", units),
			zap.Int("remaining", max(0, remaining)))
	}

	sol := &TripSolution{Trips: make([]Trip, 0, len(trips))}
	for ti, trip := range trips {
		t := Trip{GroupID: ti + 1, Names: make([]string, 0, len(trip))}
		lat, lon := params.DepotLat, params.DepotLon
		for _, idx := range trip {
			e := entities[idx]
			t.Names = append(t.Names, e.Name)
			t.Distance += haversine(lat, lon, e.Latitude, e.Longitude)
			lat, lon = e.Latitude, e.Longitude
			t.Units += e.Units
		}
		t.Distance += haversine(lat, lon, params.FieldLat, params.FieldLon)
		t.Distance += haversine(params.FieldLat, params.FieldLon, params.DepotLat, params.DepotLon)
		t.Cost = t.Distance * (params.GasPrice / params.KmPerLiter)

		sol.Trips = append(sol.Trips, t)
		sol.TotalUnits += t.Units
		sol.TotalCost += t.Cost
	}
	sol.Shortfall = max(0, target-sol.TotalUnits)
	return sol, nil
}

// blockProblem builds the one-group select problem for a block:
// value max(1, priority), weight units, capacity the per-trip cap.
func blockProblem(entities []catalog.Entity, block []int, capUnits int) *Problem {
	p := &Problem{
		Mode:      ModeSelect,
		NumItems:  len(block),
		NumGroups: 1,
		Values:    make([]float64, len(block)),
		Weights:   make([]float64, len(block)),
		Caps:      []float64{float64(capUnits)},
		Coeff:     1,
		Power:     1,
	}
	for i, idx := range block {
		p.Values[i] = float64(max(1, entities[idx].Priority))
		p.Weights[i] = float64(max(0, entities[idx].Units))
	}
	return p
}

// haversine returns the great-circle distance in km.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(1, a)))
}

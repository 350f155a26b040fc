// Package abi is the flat, handle-based surface over the solver and the
// learned scorer. Nothing allocated here is reachable by the caller except
// through a Handle, and every Handle is released by the matching Release
// or Close call. No function panics: faults are recovered and reported as
// a status code.
package abi

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"knapsack-optimizer/catalog"
	"knapsack-optimizer/knapsack"
)

// Handle identifies an object owned by this package. Zero is never issued.
type Handle uint64

// maxHandles bounds the live objects per registry; a full registry is
// reported as an allocation failure.
var maxHandles = 4096

type registry[T any] struct {
	mu    sync.Mutex
	next  Handle
	items map[Handle]T
}

func (r *registry[T]) put(v T) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) >= maxHandles {
		return 0, false
	}
	if r.items == nil {
		r.items = make(map[Handle]T)
	}
	r.next++
	r.items[r.next] = v
	return r.next, true
}

func (r *registry[T]) get(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	return v, ok
}

func (r *registry[T]) take(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[h]
	delete(r.items, h)
	return v, ok
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

var (
	solutions registry[*knapsack.Solution]
	tripSets  registry[*knapsack.TripSolution]
)

// SolveFromConfig solves the config and stores the solution under *out.
// A nil opts means default options. The result is a knapsack.Code value:
// 0 on success, negative otherwise.
func SolveFromConfig(cfg, opts *string, out *Handle) (code int) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("solve from config panicked", zap.Any("panic", r))
			code = int(knapsack.CodeSolverFailed)
		}
	}()
	if out == nil {
		return int(knapsack.CodeNilOutput)
	}
	*out = 0
	if cfg == nil {
		return int(knapsack.CodeNilConfig)
	}
	optText := ""
	if opts != nil {
		optText = *opts
	}

	run, err := knapsack.SolveFromConfig(*cfg, optText, nil)
	if err != nil {
		zap.L().Debug("solve from config failed", zap.Error(err))
		return int(knapsack.CodeOf(err))
	}
	h, ok := solutions.put(run.Solution)
	if !ok {
		return int(knapsack.CodeAllocFailed)
	}
	*out = h
	return int(knapsack.CodeOK)
}

// SolutionView returns a copy of a stored solution. The copy does not alias
// the stored buffers.
func SolutionView(h Handle) (knapsack.Solution, bool) {
	s, ok := solutions.get(h)
	if !ok {
		return knapsack.Solution{}, false
	}
	v := *s
	v.Select = slices.Clone(s.Select)
	v.Assign = slices.Clone(s.Assign)
	v.Loads = slices.Clone(s.Loads)
	return v, true
}

// ReleaseSolution frees a solution handle. Releasing an unknown or already
// released handle reports false.
func ReleaseSolution(h Handle) bool {
	_, ok := solutions.take(h)
	return ok
}

// Solve runs the trip planner over the CSV or XLSX table at path with the
// default planner constants and seed. It returns 0 on any failure.
func Solve(path string, target int) (h Handle) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("trip solve panicked", zap.Any("panic", r))
			h = 0
		}
	}()
	if path == "" {
		return 0
	}
	entities, err := catalog.Load(path)
	if err != nil {
		zap.L().Debug("trip solve: load failed", zap.Error(err))
		return 0
	}
	sol, err := knapsack.SolveTrips(entities, target, knapsack.DefaultTripParams(),
		knapsack.DefaultEvaluator(), knapsack.DefaultSeed)
	if err != nil {
		zap.L().Debug("trip solve failed", zap.Error(err))
		return 0
	}
	h, ok := tripSets.put(sol)
	if !ok {
		return 0
	}
	return h
}

// TripsView returns a copy of a stored trip plan.
func TripsView(h Handle) (knapsack.TripSolution, bool) {
	s, ok := tripSets.get(h)
	if !ok {
		return knapsack.TripSolution{}, false
	}
	v := *s
	v.Trips = make([]knapsack.Trip, len(s.Trips))
	for i, t := range s.Trips {
		t.Names = slices.Clone(t.Names)
		v.Trips[i] = t
	}
	return v, true
}

// ReleaseTrips frees a trip plan handle.
func ReleaseTrips(h Handle) bool {
	_, ok := tripSets.take(h)
	return ok
}

// writeErr copies msg into buf, truncating, and NUL-terminates it.
func writeErr(buf []byte, msg string) {
	if len(buf) == 0 {
		return
	}
	n := copy(buf[:len(buf)-1], msg)
	buf[n] = 0
}

func writeErrf(buf []byte, format string, args ...any) {
	writeErr(buf, fmt.Sprintf(format, args...))
}

package knapsack

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// AccelEnv disables the accelerator when set to off, 0, false or software.
const AccelEnv = "KNAPSACK_ACCEL"

// ErrNoDevice is returned by a probe when the device cannot be used.
var ErrNoDevice = errors.New("knapsack: accelerator unavailable")

// Device is an accelerator backend. Probe is called once, when the
// evaluator is built; Compile prepares a kernel for one problem.
type Device interface {
	Name() string
	Probe() error
	Compile(p *Problem) (Kernel, error)
}

// Kernel evaluates batches of the problem it was compiled for.
type Kernel interface {
	Run(b *Batch, out []EvalResult) error
}

// Accelerated dispatches to a Device and silently falls back to software
// when the device failed its probe, cannot compile the problem, or errors
// on a batch. Callers never need to know which path ran.
type Accelerated struct {
	dev      Device
	soft     *Software
	probeErr error

	mu        sync.Mutex
	kernelFor *Problem
	kernel    Kernel
	kernelErr error
}

// NewAccelerated probes dev once and caches the outcome. A nil dev is the
// same as a device that failed its probe.
func NewAccelerated(dev Device) *Accelerated {
	a := &Accelerated{dev: dev, soft: NewSoftware()}
	if dev == nil {
		a.probeErr = ErrNoDevice
	} else if err := dev.Probe(); err != nil {
		a.probeErr = fmt.Errorf("probe %s: %w", dev.Name(), err)
	}
	if a.probeErr != nil {
		logger().Debug("accelerator disabled", zap.Error(a.probeErr))
	}
	return a
}

// DefaultEvaluator returns the accelerated evaluator backed by the
// lookup-table device.
func DefaultEvaluator() *Accelerated {
	return NewAccelerated(NewLUTDevice())
}

// Available reports whether the device passed its probe.
func (a *Accelerated) Available() bool { return a.probeErr == nil }

func (a *Accelerated) Name() string {
	if a.Available() {
		return "accelerated/" + a.dev.Name()
	}
	return "accelerated/" + a.soft.Name()
}

// Supports reports true for both modes: modes the device lacks run on the
// software path.
func (a *Accelerated) Supports(m Mode) bool { return a.soft.Supports(m) }

func (a *Accelerated) Evaluate(p *Problem, b *Batch) ([]EvalResult, error) {
	if err := checkShape(p, b); err != nil {
		return nil, err
	}
	if k := a.kernelOf(p); k != nil {
		out := make([]EvalResult, b.N)
		err := k.Run(b, out)
		if err == nil {
			return out, nil
		}
		logger().Debug("accelerator dispatch failed, using software", zap.Error(err))
	}
	return a.soft.Evaluate(p, b)
}

func (a *Accelerated) kernelOf(p *Problem) Kernel {
	if !a.Available() {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kernelFor != p {
		a.kernelFor = p
		a.kernel, a.kernelErr = a.dev.Compile(p)
		if a.kernelErr != nil {
			logger().Debug("accelerator compile failed, using software", zap.Error(a.kernelErr))
		}
	}
	if a.kernelErr != nil {
		return nil
	}
	return a.kernel
}

// ── Lookup-table device ─────────────────────────────────────────────

// selectedLanes lists, for every byte pattern, the lane offsets that hold
// a select-mode 1, lowest first.
var selectedLanes = func() (t [256][]uint8) {
	for v := range t {
		for j := 0; j < LanesPerByte; j++ {
			if (v>>(j*LaneBits))&laneMask == 1 {
				t[v] = append(t[v], uint8(j))
			}
		}
	}
	return t
}()

// LUTDevice evaluates select-mode batches a byte at a time: every
// candidate byte holds four lanes, and a table of the 256 byte patterns
// yields the selected items without decoding lanes one by one. Items are
// still accumulated in index order, so results equal the software
// evaluator's bit for bit. Batches are dispatched across goroutines in
// fixed-size blocks.
type LUTDevice struct {
	// Block is the number of candidates per dispatched block.
	Block int
}

// NewLUTDevice returns a LUT device with the default block size.
func NewLUTDevice() *LUTDevice { return &LUTDevice{Block: 256} }

func (d *LUTDevice) Name() string { return "lut" }

// Probe fails when the accelerator was switched off through AccelEnv.
func (d *LUTDevice) Probe() error {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(AccelEnv))) {
	case "off", "0", "false", "software":
		return ErrNoDevice
	}
	if d.Block <= 0 {
		return fmt.Errorf("lut: block size %d", d.Block)
	}
	return nil
}

func (d *LUTDevice) Compile(p *Problem) (Kernel, error) {
	if p.Mode != ModeSelect {
		return nil, fmt.Errorf("lut: %w: %s", ErrUnsupportedMode, p.Mode)
	}
	return &lutKernel{p: p, block: d.Block}, nil
}

type lutKernel struct {
	p     *Problem
	block int
}

func (k *lutKernel) Run(b *Batch, out []EvalResult) error {
	if len(out) != b.N {
		return ErrBatchShape
	}
	wp := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for lo := 0; lo < b.N; lo += k.block {
		lo, hi := lo, min(lo+k.block, b.N)
		wp.Go(func() {
			k.runBlock(b, out, lo, hi)
		})
	}
	wp.Wait()
	return nil
}

func (k *lutKernel) runBlock(b *Batch, out []EvalResult, lo, hi int) {
	p := k.p
	groups := p.NumGroups
	load := make([]float64, groups)
	for c := lo; c < hi; c++ {
		clear(load)
		var obj float64
		for col, v := range b.Candidate(c) {
			base := col * LanesPerByte
			for _, j := range selectedLanes[v] {
				item := base + int(j)
				if item >= p.NumItems {
					break
				}
				obj += p.Values[item]
				for g, w := range p.Weights[item*groups : (item+1)*groups] {
					load[g] += w
				}
			}
		}
		out[c] = EvalResult{Objective: obj, Penalty: penalty(p, load)}
	}
}

package knapsack

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultSeed is used when neither the options nor the caller pick a seed.
const DefaultSeed uint32 = 12345

// Options tunes the beam search. Adjust these to trade speed for solution quality.
type Options struct {
	// BeamWidth is how many candidates survive each round.
	BeamWidth int
	// Iters is the number of generate/evaluate/filter rounds.
	Iters int
	// NumCandidates is the size of each freshly generated batch.
	NumCandidates int
	// Seed drives the PRNG; identical seeds give identical runs.
	Seed uint32
	// Debug logs per-round beam statistics at info level.
	Debug bool
	// DomEnable turns on exact pairwise dominance pruning.
	DomEnable bool
	// DomEps is the tolerance used by both dominance filters.
	DomEps float64
	// DomSurrogate replaces the pairwise test with a scalar proxy.
	DomSurrogate bool
}

// DefaultOptions returns the options used for every key a caller omits.
func DefaultOptions() Options {
	return Options{
		BeamWidth:     32,
		Iters:         10,
		NumCandidates: 256,
		Seed:          DefaultSeed,
		DomEps:        1e-9,
	}
}

const (
	maxBeamWidth     = 1 << 16
	maxIters         = 1 << 20
	maxNumCandidates = 1 << 20
)

// ParseOptions reads an options document over DefaultOptions. Empty text
// yields the defaults. Unrecognized keys are an error, not ignored.
func ParseOptions(text string) (Options, error) {
	opt := DefaultOptions()
	if strings.TrimSpace(text) == "" {
		return opt, nil
	}
	if !gjson.Valid(text) {
		return opt, &OptionError{Kind: KindMalformed, Msg: "invalid JSON"}
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return opt, &OptionError{Kind: KindWrongType, Msg: "top level must be an object"}
	}

	var err error
	root.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		switch key {
		case "beam_width":
			opt.BeamWidth, err = optInt(key, v, 1, maxBeamWidth)
		case "iters":
			opt.Iters, err = optInt(key, v, 1, maxIters)
		case "num_candidates":
			opt.NumCandidates, err = optInt(key, v, 0, maxNumCandidates)
		case "seed":
			var s int
			s, err = optInt(key, v, 0, math.MaxUint32)
			opt.Seed = uint32(s)
		case "debug":
			opt.Debug, err = optBool(key, v)
		case "dom_enable":
			opt.DomEnable, err = optBool(key, v)
		case "dom_surrogate":
			opt.DomSurrogate, err = optBool(key, v)
		case "dom_eps":
			if v.Type != gjson.Number {
				err = &OptionError{Kind: KindWrongType, Key: key, Msg: "want number, got " + typeName(v)}
			} else if opt.DomEps = v.Float(); opt.DomEps < 0 || !finite(opt.DomEps) {
				err = &OptionError{Kind: KindOutOfRange, Key: key, Msg: "must be finite and >= 0"}
			}
		default:
			err = &OptionError{Kind: KindUnknownKey, Key: key, Msg: "not a solver option"}
		}
		return err == nil
	})
	if err != nil {
		return DefaultOptions(), err
	}
	return opt, nil
}

// Validate checks options built in code rather than parsed.
func (o Options) Validate() error {
	switch {
	case o.BeamWidth < 1 || o.BeamWidth > maxBeamWidth:
		return &OptionError{Kind: KindOutOfRange, Key: "beam_width", Msg: fmt.Sprintf("%d not in [1, %d]", o.BeamWidth, maxBeamWidth)}
	case o.Iters < 1 || o.Iters > maxIters:
		return &OptionError{Kind: KindOutOfRange, Key: "iters", Msg: fmt.Sprintf("%d not in [1, %d]", o.Iters, maxIters)}
	case o.NumCandidates < 0 || o.NumCandidates > maxNumCandidates:
		return &OptionError{Kind: KindOutOfRange, Key: "num_candidates", Msg: fmt.Sprintf("%d not in [0, %d]", o.NumCandidates, maxNumCandidates)}
	case o.DomEps < 0 || !finite(o.DomEps):
		return &OptionError{Kind: KindOutOfRange, Key: "dom_eps", Msg: "must be finite and >= 0"}
	}
	return nil
}

func optInt(key string, v gjson.Result, lo, hi int) (int, error) {
	if v.Type != gjson.Number {
		return 0, &OptionError{Kind: KindWrongType, Key: key, Msg: "want integer, got " + typeName(v)}
	}
	f := v.Float()
	if f != math.Trunc(f) {
		return 0, &OptionError{Kind: KindWrongType, Key: key, Msg: fmt.Sprintf("want integer, got %v", f)}
	}
	if f < float64(lo) || f > float64(hi) {
		return 0, &OptionError{Kind: KindOutOfRange, Key: key, Msg: fmt.Sprintf("%v not in [%d, %d]", f, lo, hi)}
	}
	return int(f), nil
}

func optBool(key string, v gjson.Result) (bool, error) {
	switch v.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	}
	return false, &OptionError{Kind: KindWrongType, Key: key, Msg: "want bool, got " + typeName(v)}
}

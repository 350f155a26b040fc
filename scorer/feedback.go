package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Schema names the feedback layout Learn recognized.
type Schema int

const (
	SchemaNone Schema = iota
	SchemaRewards
	SchemaChosen
	SchemaEvents
)

func (s Schema) String() string {
	switch s {
	case SchemaRewards:
		return "rewards"
	case SchemaChosen:
		return "chosen"
	case SchemaEvents:
		return "events"
	}
	return "none"
}

type feedback struct {
	schema  Schema
	rewards []float64
	batch   string
}

// parseFeedback expands a feedback document into one reward per candidate
// of an n-candidate batch. Schemas are tried in order and the first whose
// key is present wins:
//
//	{"rewards":[1.0,0.0,0.5]}
//	{"chosen":[1,0,1], "base_reward":1.0, "decay":0.9, "positions":[0,1,2]}
//	{"events":[{"index":2,"reward":1.5}]}
//
// An optional "batch" string names the scored batch the feedback targets.
func parseFeedback(text string, n int) (*feedback, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrFeedback)
	}
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrFeedback)
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrFeedback)
	}

	fb := &feedback{rewards: make([]float64, n)}
	if b := root.Get("batch"); b.Exists() {
		if b.Type != gjson.String {
			return nil, fmt.Errorf("%w: batch must be a string", ErrFeedback)
		}
		fb.batch = b.String()
	}

	var err error
	switch {
	case root.Get("rewards").Exists():
		fb.schema = SchemaRewards
		err = explicitRewards(root.Get("rewards"), fb.rewards)
	case root.Get("chosen").Exists():
		fb.schema = SchemaChosen
		err = chosenRewards(root, fb.rewards)
	case root.Get("events").Exists():
		fb.schema = SchemaEvents
		err = eventRewards(root.Get("events"), fb.rewards)
	default:
		err = fmt.Errorf("%w: no rewards, chosen or events key", ErrFeedback)
	}
	if err != nil {
		return nil, err
	}
	return fb, nil
}

func explicitRewards(v gjson.Result, out []float64) error {
	nums, err := numbers(v, "rewards", ErrFeedback)
	if err != nil {
		return err
	}
	if len(nums) > len(out) {
		return fmt.Errorf("%w: %d rewards for a batch of %d", ErrFeedback, len(nums), len(out))
	}
	copy(out, nums)
	return nil
}

// chosenRewards computes reward_i = chosen_i ? base * decay^position_i : 0.
// base and decay default to 1, positions to the candidate index.
func chosenRewards(root gjson.Result, out []float64) error {
	chosen := root.Get("chosen")
	if !chosen.IsArray() {
		return fmt.Errorf("%w: chosen must be an array", ErrFeedback)
	}
	base, err := number(root.Get("base_reward"), "base_reward", 1)
	if err != nil {
		return err
	}
	decay, err := number(root.Get("decay"), "decay", 1)
	if err != nil {
		return err
	}
	if decay < 0 {
		return fmt.Errorf("%w: decay %v must be >= 0", ErrFeedback, decay)
	}
	var positions []float64
	if p := root.Get("positions"); p.Exists() {
		if positions, err = numbers(p, "positions", ErrFeedback); err != nil {
			return err
		}
	}

	i := 0
	chosen.ForEach(func(_, c gjson.Result) bool {
		if i >= len(out) {
			err = fmt.Errorf("%w: chosen is longer than the batch of %d", ErrFeedback, len(out))
			return false
		}
		var picked bool
		switch c.Type {
		case gjson.True, gjson.False:
			picked = c.Bool()
		case gjson.Number:
			picked = c.Float() != 0
		default:
			err = fmt.Errorf("%w: chosen[%d] must be a number or bool", ErrFeedback, i)
			return false
		}
		if picked {
			pos := float64(i)
			if i < len(positions) {
				pos = positions[i]
			}
			out[i] = base * math.Pow(decay, pos)
		}
		i++
		return true
	})
	return err
}

func eventRewards(v gjson.Result, out []float64) error {
	if !v.IsArray() {
		return fmt.Errorf("%w: events must be an array", ErrFeedback)
	}
	var err error
	k := 0
	v.ForEach(func(_, e gjson.Result) bool {
		idx := e.Get("index")
		if !idx.Exists() {
			idx = e.Get("idx")
		}
		if idx.Type != gjson.Number || idx.Float() != math.Trunc(idx.Float()) {
			err = fmt.Errorf("%w: events[%d] needs an integer index", ErrFeedback, k)
			return false
		}
		i := int(idx.Int())
		if i < 0 || i >= len(out) {
			err = fmt.Errorf("%w: events[%d] index %d outside batch of %d", ErrFeedback, k, i, len(out))
			return false
		}
		r := e.Get("reward")
		if r.Type != gjson.Number {
			err = fmt.Errorf("%w: events[%d] needs a numeric reward", ErrFeedback, k)
			return false
		}
		out[i] += r.Float()
		k++
		return true
	})
	return err
}

func number(v gjson.Result, key string, def float64) (float64, error) {
	if !v.Exists() {
		return def, nil
	}
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s must be a number", ErrFeedback, key)
	}
	return v.Float(), nil
}

// numbers reads an array of numbers, wrapping failures in sentinel.
func numbers(v gjson.Result, key string, sentinel error) ([]float64, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", sentinel, key)
	}
	var (
		out []float64
		err error
	)
	v.ForEach(func(_, n gjson.Result) bool {
		if n.Type != gjson.Number {
			err = fmt.Errorf("%w: %s must hold numbers", sentinel, key)
			return false
		}
		out = append(out, n.Float())
		return true
	})
	return out, err
}

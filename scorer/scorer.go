// Package scorer is an online linear scorer for candidate batches. A Scorer
// keeps one history slot, the most recently scored batch, and learns from
// feedback addressed to that batch.
package scorer

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Mode is the candidate encoding handed to the scorer.
type Mode int

const (
	// ModeSelect is one byte per item, nonzero meaning selected.
	ModeSelect Mode = iota
	// ModeAssign is one signed byte per item holding a group index or -1.
	ModeAssign
)

// State is the scorer lifecycle.
type State int

const (
	StateCreated State = iota // no batch scored yet
	StateReady                // a batch is cached for Learn
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const maxFeatDim = 4096

// Config is the parsed scorer configuration.
type Config struct {
	Weight    float64 // w_rl: multiplies the learned term
	Alpha     float64 // blend factor for feedback updates, in (0, 1]
	FeatDim   int
	ModelPath string
	// Strict requires feedback to name its batch and allows one Learn per batch.
	Strict bool
}

// DefaultConfig holds the values used for keys a config omits.
func DefaultConfig() Config {
	return Config{Weight: 1, Alpha: 0.1, FeatDim: 8}
}

// ParseConfig reads a scorer config document. Unknown keys are rejected.
func ParseConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(text) == "" {
		return cfg, fmt.Errorf("%w: empty document", ErrConfig)
	}
	if !gjson.Valid(text) {
		return cfg, fmt.Errorf("%w: invalid JSON", ErrConfig)
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return cfg, fmt.Errorf("%w: top level must be an object", ErrConfig)
	}

	var err error
	root.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		switch key {
		case "w_rl", "alpha":
			if v.Type != gjson.Number {
				err = fmt.Errorf("%w: %s must be a number", ErrConfig, key)
			} else if key == "w_rl" {
				cfg.Weight = v.Float()
			} else {
				cfg.Alpha = v.Float()
			}
		case "feat_dim":
			if v.Type != gjson.Number || v.Float() != math.Trunc(v.Float()) {
				err = fmt.Errorf("%w: feat_dim must be an integer", ErrConfig)
			} else {
				cfg.FeatDim = int(v.Int())
			}
		case "model_path":
			if v.Type != gjson.String {
				err = fmt.Errorf("%w: model_path must be a string", ErrConfig)
			} else {
				cfg.ModelPath = v.String()
			}
		case "strict":
			if v.Type != gjson.True && v.Type != gjson.False {
				err = fmt.Errorf("%w: strict must be a bool", ErrConfig)
			} else {
				cfg.Strict = v.Bool()
			}
		default:
			err = fmt.Errorf("%w: unknown key %q", ErrConfig, key)
		}
		return err == nil
	})
	if err != nil {
		return cfg, err
	}

	switch {
	case math.IsNaN(cfg.Weight) || math.IsInf(cfg.Weight, 0):
		return cfg, fmt.Errorf("%w: w_rl must be finite", ErrConfig)
	case !(cfg.Alpha > 0 && cfg.Alpha <= 1):
		return cfg, fmt.Errorf("%w: alpha %v not in (0, 1]", ErrConfig, cfg.Alpha)
	case cfg.FeatDim < 1 || cfg.FeatDim > maxFeatDim:
		return cfg, fmt.Errorf("%w: feat_dim %d not in [1, %d]", ErrConfig, cfg.FeatDim, maxFeatDim)
	}
	return cfg, nil
}

// Scores is the output of one scoring call.
type Scores struct {
	Values []float64
	// Batch identifies the scored batch; feedback may echo it as "batch".
	Batch string
}

// Update reports what a Learn call applied.
type Update struct {
	Schema  Schema
	Rewards []float64
	Batch   string
}

// Scorer is one single-history scoring session. Calls on one Scorer are
// serialized internally; separate Scorers share nothing.
type Scorer struct {
	mu    sync.Mutex
	id    uuid.UUID
	cfg   Config
	raw   string
	state State

	theta []float64
	bonus float64 // model bonus, log(artifact size + 1)

	lastFeat    []float32
	lastN       int
	lastBatch   string
	lastLearned bool
}

// New parses the config and builds a scorer. When a model path is set the
// artifact must exist; its size feeds the model bonus.
func New(configText string) (*Scorer, error) {
	cfg, err := ParseConfig(configText)
	if err != nil {
		return nil, err
	}
	s := &Scorer{
		id:    uuid.New(),
		cfg:   cfg,
		raw:   configText,
		theta: make([]float64, cfg.FeatDim),
	}
	if cfg.ModelPath != "" {
		fi, err := os.Stat(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("%w: model_path: %w", ErrConfig, err)
		}
		s.bonus = math.Log(float64(fi.Size()) + 1)
	}
	return s, nil
}

// ID identifies the session.
func (s *Scorer) ID() string { return s.id.String() }

// Config returns the parsed configuration.
func (s *Scorer) Config() Config { return s.cfg }

// State returns the lifecycle state.
func (s *Scorer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ModelBonus returns the artifact-size placeholder term, zero without a model.
func (s *Scorer) ModelBonus() float64 { return s.bonus }

// PrepareFeatures maps n select-mode candidates of numItems bytes each into
// a row-major n×FeatDim matrix. It does not touch the cached batch.
func (s *Scorer) PrepareFeatures(cands []byte, numItems, n int, mode Mode) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil, ErrClosed
	}
	if mode != ModeSelect {
		return nil, fmt.Errorf("%w: prepare features takes select-mode candidates", ErrUnsupportedMode)
	}
	return buildFeatures(cands, numItems, n, s.cfg.FeatDim)
}

// ScoreWithFeatures scores caller-prepared features and caches them as
// the current batch.
func (s *Scorer) ScoreWithFeatures(features []float32, featDim, n int) (Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return Scores{}, ErrClosed
	}
	if featDim != s.cfg.FeatDim {
		return Scores{}, fmt.Errorf("%w: feature dim %d, scorer expects %d", ErrShape, featDim, s.cfg.FeatDim)
	}
	if n < 0 || len(features) != n*featDim {
		return Scores{}, fmt.Errorf("%w: %d floats for %d rows of %d", ErrShape, len(features), n, featDim)
	}
	return s.score(append([]float32(nil), features...), n, nil), nil
}

// ScoreBatch prepares features internally and scores them. The context
// document may carry rule penalties, {"penalties":[...]}, subtracted from
// the learned score of the matching candidate.
func (s *Scorer) ScoreBatch(contextText string, cands []byte, numItems, n int, mode Mode) (Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return Scores{}, ErrClosed
	}
	if mode != ModeSelect {
		return Scores{}, fmt.Errorf("%w: internal features take select-mode candidates", ErrUnsupportedMode)
	}
	penalties, err := contextPenalties(contextText, n)
	if err != nil {
		return Scores{}, err
	}
	feat, err := buildFeatures(cands, numItems, n, s.cfg.FeatDim)
	if err != nil {
		return Scores{}, err
	}
	return s.score(feat, n, penalties), nil
}

// score computes w_rl * (θ·x + bonus) - penalty per row and makes feat the
// current batch.
func (s *Scorer) score(feat []float32, n int, penalties []float64) Scores {
	out := make([]float64, n)
	for i := range out {
		v := s.cfg.Weight * (s.dot(feat, i) + s.bonus)
		if penalties != nil {
			v -= penalties[i]
		}
		out[i] = v
	}
	s.lastFeat = feat
	s.lastN = n
	s.lastBatch = uuid.NewString()
	s.lastLearned = false
	s.state = StateReady
	return Scores{Values: out, Batch: s.lastBatch}
}

func (s *Scorer) dot(feat []float32, row int) float64 {
	d := s.cfg.FeatDim
	var v float64
	for k, x := range feat[row*d : (row+1)*d] {
		v += s.theta[k] * float64(x)
	}
	return v
}

// Learn applies feedback to the most recently scored batch and returns the
// effective rewards. Each row moves θ by alpha * (reward - θ·x) * x.
func (s *Scorer) Learn(feedbackText string) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return Update{}, ErrClosed
	case StateCreated:
		return Update{}, ErrNoBatch
	}
	fb, err := parseFeedback(feedbackText, s.lastN)
	if err != nil {
		return Update{}, err
	}
	switch {
	case fb.batch != "" && fb.batch != s.lastBatch:
		return Update{}, fmt.Errorf("%w: feedback for %s, current batch is %s", ErrStaleBatch, fb.batch, s.lastBatch)
	case s.cfg.Strict && fb.batch == "":
		return Update{}, fmt.Errorf("%w: strict scorer needs the batch id in feedback", ErrStaleBatch)
	case s.cfg.Strict && s.lastLearned:
		return Update{}, fmt.Errorf("%w: batch %s already learned", ErrStaleBatch, s.lastBatch)
	}

	d := s.cfg.FeatDim
	for i, r := range fb.rewards {
		delta := s.cfg.Alpha * (r - s.dot(s.lastFeat, i))
		for k, x := range s.lastFeat[i*d : (i+1)*d] {
			s.theta[k] += delta * float64(x)
		}
	}
	s.lastLearned = true
	return Update{Schema: fb.schema, Rewards: fb.rewards, Batch: s.lastBatch}, nil
}

// ── Getters ─────────────────────────────────────────────────────────

// FeatDim returns the feature dimension, -1 once closed.
func (s *Scorer) FeatDim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return -1
	}
	return s.cfg.FeatDim
}

// LastBatchSize returns the row count of the cached batch, 0 if none.
func (s *Scorer) LastBatchSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastN
}

// LastBatch returns the id of the cached batch, empty if none.
func (s *Scorer) LastBatch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBatch
}

// CopyLastFeatures copies up to len(dst) floats of the cached batch.
func (s *Scorer) CopyLastFeatures(dst []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return 0, ErrClosed
	}
	return copy(dst, s.lastFeat), nil
}

// CopyConfig copies up to len(dst) bytes of the original config text.
func (s *Scorer) CopyConfig(dst []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return 0, ErrClosed
	}
	return copy(dst, s.raw), nil
}

// Weights returns a copy of the learned weight vector.
func (s *Scorer) Weights() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.theta...)
}

// Close releases the buffers. Closing twice returns ErrClosed.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	s.state = StateClosed
	s.theta = nil
	s.lastFeat = nil
	s.lastN = 0
	s.lastBatch = ""
	return nil
}

func contextPenalties(text string, n int) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: context is not valid JSON", ErrShape)
	}
	p := gjson.Get(text, "penalties")
	if !p.Exists() {
		return nil, nil
	}
	nums, err := numbers(p, "penalties", ErrShape)
	if err != nil {
		return nil, err
	}
	if len(nums) != n {
		return nil, fmt.Errorf("%w: %d penalties for %d candidates", ErrShape, len(nums), n)
	}
	return nums, nil
}

package abi

import (
	"errors"

	"go.uber.org/zap"

	"knapsack-optimizer/scorer"
)

// Scorer status codes. Every fallible scorer call returns one of these and,
// on failure, writes a message into the caller's error buffer.
const (
	StatusOK          = 0
	StatusBadHandle   = -1
	StatusBadArgument = -2
	StatusClosed      = -3
	StatusNoBatch     = -4
	StatusStaleBatch  = -5
	StatusParse       = -6
	StatusUnsupported = -7
	StatusInternal    = -8
)

var scorers registry[*scorer.Scorer]

func statusOf(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, scorer.ErrClosed):
		return StatusClosed
	case errors.Is(err, scorer.ErrNoBatch):
		return StatusNoBatch
	case errors.Is(err, scorer.ErrStaleBatch):
		return StatusStaleBatch
	case errors.Is(err, scorer.ErrConfig), errors.Is(err, scorer.ErrFeedback):
		return StatusParse
	case errors.Is(err, scorer.ErrUnsupportedMode):
		return StatusUnsupported
	case errors.Is(err, scorer.ErrShape):
		return StatusBadArgument
	}
	return StatusInternal
}

// fail writes err into errBuf and returns its status.
func fail(errBuf []byte, err error) int {
	writeErr(errBuf, err.Error())
	return statusOf(err)
}

// guard converts a panic into StatusInternal. Use as defer guard(&rc, errBuf).
func guard(rc *int, errBuf []byte) {
	if r := recover(); r != nil {
		zap.L().Error("scorer call panicked", zap.Any("panic", r))
		writeErrf(errBuf, "internal error: %v", r)
		*rc = StatusInternal
	}
}

func lookup(h Handle, errBuf []byte) (*scorer.Scorer, bool) {
	s, ok := scorers.get(h)
	if !ok {
		writeErrf(errBuf, "unknown or closed scorer handle %d", h)
	}
	return s, ok
}

// ScorerInit builds a scorer from its config text. It returns 0 and fills
// errBuf on failure.
func ScorerInit(configText string, errBuf []byte) (h Handle) {
	defer func() {
		if r := recover(); r != nil {
			writeErrf(errBuf, "internal error: %v", r)
			h = 0
		}
	}()
	s, err := scorer.New(configText)
	if err != nil {
		writeErr(errBuf, err.Error())
		return 0
	}
	h, ok := scorers.put(s)
	if !ok {
		_ = s.Close()
		writeErr(errBuf, "too many open scorer handles")
		return 0
	}
	return h
}

// ScorerPrepare writes the n×FeatDim feature matrix of select-mode
// candidates into out, which must hold at least n*FeatDim floats.
func ScorerPrepare(h Handle, cands []byte, numItems, n int, mode scorer.Mode, out []float32, errBuf []byte) (rc int) {
	defer guard(&rc, errBuf)
	s, ok := lookup(h, errBuf)
	if !ok {
		return StatusBadHandle
	}
	feat, err := s.PrepareFeatures(cands, numItems, n, mode)
	if err != nil {
		return fail(errBuf, err)
	}
	if len(out) < len(feat) {
		writeErrf(errBuf, "output holds %d floats, need %d", len(out), len(feat))
		return StatusBadArgument
	}
	copy(out, feat)
	return StatusOK
}

// ScorerScore prepares features internally and writes n scores into out.
// contextText may be empty.
func ScorerScore(h Handle, contextText string, cands []byte, numItems, n int, mode scorer.Mode, out []float64, errBuf []byte) (rc int) {
	defer guard(&rc, errBuf)
	s, ok := lookup(h, errBuf)
	if !ok {
		return StatusBadHandle
	}
	if len(out) < n {
		writeErrf(errBuf, "output holds %d scores, need %d", len(out), n)
		return StatusBadArgument
	}
	res, err := s.ScoreBatch(contextText, cands, numItems, n, mode)
	if err != nil {
		return fail(errBuf, err)
	}
	copy(out, res.Values)
	return StatusOK
}

// ScorerScoreWithFeatures scores caller-prepared features and writes n
// scores into out.
func ScorerScoreWithFeatures(h Handle, features []float32, featDim, n int, out []float64, errBuf []byte) (rc int) {
	defer guard(&rc, errBuf)
	s, ok := lookup(h, errBuf)
	if !ok {
		return StatusBadHandle
	}
	if len(out) < n {
		writeErrf(errBuf, "output holds %d scores, need %d", len(out), n)
		return StatusBadArgument
	}
	res, err := s.ScoreWithFeatures(features, featDim, n)
	if err != nil {
		return fail(errBuf, err)
	}
	copy(out, res.Values)
	return StatusOK
}

// ScorerLearn applies feedback to the most recently scored batch.
func ScorerLearn(h Handle, feedbackText string, errBuf []byte) (rc int) {
	defer guard(&rc, errBuf)
	s, ok := lookup(h, errBuf)
	if !ok {
		return StatusBadHandle
	}
	if _, err := s.Learn(feedbackText); err != nil {
		return fail(errBuf, err)
	}
	return StatusOK
}

// ScorerFeatDim returns the feature dimension, or -1 for a bad handle.
func ScorerFeatDim(h Handle) int {
	s, ok := scorers.get(h)
	if !ok {
		return -1
	}
	return s.FeatDim()
}

// ScorerLastBatchSize returns the size of the last scored batch, or -1 for
// a bad handle.
func ScorerLastBatchSize(h Handle) int {
	s, ok := scorers.get(h)
	if !ok {
		return -1
	}
	return s.LastBatchSize()
}

// ScorerLastFeatures copies up to len(dst) floats of the last batch's
// features and returns how many were written, or -1 for a bad handle.
func ScorerLastFeatures(h Handle, dst []float32) int {
	s, ok := scorers.get(h)
	if !ok {
		return -1
	}
	n, err := s.CopyLastFeatures(dst)
	if err != nil {
		return -1
	}
	return n
}

// ScorerConfigJSON copies up to len(dst) bytes of the original config text
// and returns how many were written, or -1 for a bad handle.
func ScorerConfigJSON(h Handle, dst []byte) int {
	s, ok := scorers.get(h)
	if !ok {
		return -1
	}
	n, err := s.CopyConfig(dst)
	if err != nil {
		return -1
	}
	return n
}

// ScorerClose closes the scorer and retires its handle. Later calls with
// the same handle report StatusBadHandle.
func ScorerClose(h Handle) int {
	s, ok := scorers.take(h)
	if !ok {
		return StatusBadHandle
	}
	if err := s.Close(); err != nil {
		return statusOf(err)
	}
	return StatusOK
}

package scorer

import "errors"

var (
	// ErrClosed is returned by every call on a closed scorer.
	ErrClosed = errors.New("scorer: closed")
	// ErrNoBatch is returned by Learn before anything was scored.
	ErrNoBatch = errors.New("scorer: no scored batch")
	// ErrStaleBatch is returned when feedback targets a batch other than
	// the most recently scored one, or one already learned in strict mode.
	ErrStaleBatch = errors.New("scorer: stale batch")
	// ErrUnsupportedMode is returned for candidate encodings other than select.
	ErrUnsupportedMode = errors.New("scorer: unsupported mode")
	// ErrShape is returned when buffer lengths disagree with the declared sizes.
	ErrShape = errors.New("scorer: shape mismatch")
	// ErrConfig is wrapped by every config validation failure.
	ErrConfig = errors.New("scorer: invalid config")
	// ErrFeedback is wrapped by every feedback parsing failure.
	ErrFeedback = errors.New("scorer: invalid feedback")
)

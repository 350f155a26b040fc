package knapsack

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyConfig is returned when no config text was supplied.
	ErrEmptyConfig = errors.New("knapsack: empty config")
	// ErrUnsupportedMode is returned for a well-formed config whose mode the
	// chosen entry point or evaluator cannot solve.
	ErrUnsupportedMode = errors.New("knapsack: unsupported mode")
	// ErrNoCandidates is returned when the search produced nothing to pick from.
	ErrNoCandidates = errors.New("knapsack: no candidate survived generation")
	// ErrBatchShape is returned when a batch does not match its problem.
	ErrBatchShape = errors.New("knapsack: batch does not match problem shape")
	// ErrNoEntities is returned by the trip planner on empty input.
	ErrNoEntities = errors.New("knapsack: no entities")
)

// ErrorKind classifies parse and validation failures.
type ErrorKind int

const (
	KindMalformed ErrorKind = iota
	KindMissingKey
	KindWrongType
	KindOutOfRange
	KindUnknownKey
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindMissingKey:
		return "missing key"
	case KindWrongType:
		return "wrong type"
	case KindOutOfRange:
		return "out of range"
	case KindUnknownKey:
		return "unknown key"
	}
	return "unknown"
}

// OptionError reports a bad solver options document.
type OptionError struct {
	Kind ErrorKind
	Key  string
	Msg  string
}

func (e *OptionError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("options: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("options: %s %q: %s", e.Kind, e.Key, e.Msg)
}

// ConfigError reports a bad problem config document.
type ConfigError struct {
	Kind ErrorKind
	Key  string
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("config: %s %q: %s", e.Kind, e.Key, e.Msg)
}

// CatalogError reports an item list that parsed but cannot form a catalog.
type CatalogError struct {
	Index int
	Msg   string
}

func (e *CatalogError) Error() string {
	if e.Index < 0 {
		return "catalog: " + e.Msg
	}
	return fmt.Sprintf("catalog: item %d: %s", e.Index, e.Msg)
}

// Code is the status returned across the solver boundary.
type Code int

const (
	CodeOK              Code = 0
	CodeNilOutput       Code = -1
	CodeNilConfig       Code = -2
	CodeInvalidConfig   Code = -3
	CodeInvalidCatalog  Code = -4
	CodeUnsupportedMode Code = -5
	CodeSolverFailed    Code = -6
	CodeAllocFailed     Code = -7
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeNilOutput:
		return "nil output"
	case CodeNilConfig:
		return "nil config"
	case CodeInvalidConfig:
		return "invalid config"
	case CodeInvalidCatalog:
		return "invalid catalog"
	case CodeUnsupportedMode:
		return "unsupported mode"
	case CodeSolverFailed:
		return "solver failed"
	case CodeAllocFailed:
		return "allocation failed"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// CodeOf maps an error returned by SolveFromConfig to its boundary code.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var (
		optErr *OptionError
		cfgErr *ConfigError
		catErr *CatalogError
	)
	switch {
	case errors.Is(err, ErrEmptyConfig), errors.As(err, &cfgErr), errors.As(err, &optErr):
		return CodeInvalidConfig
	case errors.As(err, &catErr):
		return CodeInvalidCatalog
	case errors.Is(err, ErrUnsupportedMode):
		return CodeUnsupportedMode
	}
	return CodeSolverFailed
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ComputeError reports a failed queueing computation. Op names the operation
// (e.g. "erlanga.Solve") and Err is one of the engine sentinels below.
type ComputeError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ComputeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Detail)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

// Invalid returns an ErrInvalidParameter for op.
func Invalid(op, format string, args ...any) error {
	return &ComputeError{Op: op, Detail: fmt.Sprintf(format, args...), Err: ErrInvalidParameter}
}

// NotConverged returns an ErrNonConvergence for op after the given number of iterations.
func NotConverged(op string, iterations int) error {
	return &ComputeError{Op: op, Detail: fmt.Sprintf("no convergence after %d iterations", iterations), Err: ErrNonConvergence}
}

// Parse errors
var (
	ErrInvalidFieldCount    = fmt.Errorf("invalid field count")
	ErrInvalidDuration      = fmt.Errorf("invalid duration")
	ErrInvalidStartTime     = fmt.Errorf("invalid start time")
	ErrInvalidEndTime       = fmt.Errorf("invalid end time")
	ErrInvalidNumberOfCalls = fmt.Errorf("invalid number of calls")
	ErrInvalidPriority      = fmt.Errorf("invalid priority")
	ErrInvalidPatience      = fmt.Errorf("invalid patience")
	ErrEmptyRecord          = fmt.Errorf("empty record")
)

// Engine errors
var (
	ErrInvalidParameter = fmt.Errorf("invalid parameter")
	ErrNonConvergence   = fmt.Errorf("no convergence")
	ErrConsistency      = fmt.Errorf("inconsistent result")
	ErrNotFound         = fmt.Errorf("exceeds capacity")
)

// Kind returns a short label for the engine sentinel wrapped by err,
// suitable as a metric label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case stderrors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case stderrors.Is(err, ErrNonConvergence):
		return "non_convergence"
	case stderrors.Is(err, ErrConsistency):
		return "consistency"
	case stderrors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

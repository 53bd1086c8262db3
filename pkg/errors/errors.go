// Package errors defines the error taxonomy shared by the index build
// pipeline and the query engine. Fatal build errors abort the current
// generation and leave the previously published one untouched; data-quality
// errors are recovered locally and never abort a batch.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrDataQuality marks a single record that failed normalization. It is
	// logged and skipped, never fatal.
	ErrDataQuality = errors.New("record failed normalization")

	// ErrResourceExhaustion marks a block whose memory budget cannot be
	// honored, e.g. one posting list alone exceeds the budget.
	ErrResourceExhaustion = errors.New("block memory budget exhausted")

	// ErrMergeConsistency marks a missing, truncated, or out-of-order block
	// file discovered during the merge.
	ErrMergeConsistency = errors.New("block merge consistency violation")

	// ErrConfigMismatch marks a document count inconsistent with the
	// document ids observed in the final index.
	ErrConfigMismatch = errors.New("document count mismatch")

	// ErrNoGeneration is returned when no index generation has been
	// published yet.
	ErrNoGeneration = errors.New("no published index generation")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// BuildError wraps a sentinel with the pipeline stage and a detail message.
type BuildError struct {
	Err     error
	Stage   string
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// New creates a BuildError for the given stage.
func New(sentinel error, stage string, message string) *BuildError {
	return &BuildError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

// Newf creates a BuildError with a formatted message.
func Newf(sentinel error, stage string, format string, args ...any) *BuildError {
	return &BuildError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsFatal reports whether err aborts the current build. Everything in the
// taxonomy is fatal except data-quality skips.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDataQuality)
}

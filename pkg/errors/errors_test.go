package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildErrorWrapsSentinel(t *testing.T) {
	err := Newf(ErrMergeConsistency, "block-merger", "block %d missing", 3)
	assert.ErrorIs(t, err, ErrMergeConsistency)
	assert.Contains(t, err.Error(), "block-merger")
	assert.Contains(t, err.Error(), "block 3 missing")
}

func TestBuildErrorSurvivesFurtherWrapping(t *testing.T) {
	inner := New(ErrConfigMismatch, "weight-calculator", "doc 9 out of range")
	outer := fmt.Errorf("computing weights: %w", inner)
	assert.ErrorIs(t, outer, ErrConfigMismatch)

	var be *BuildError
	assert.True(t, errors.As(outer, &be))
	assert.Equal(t, "weight-calculator", be.Stage)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(New(ErrDataQuality, "block-builder", "empty after normalization")))
	assert.True(t, IsFatal(New(ErrResourceExhaustion, "block-builder", "record exceeds budget")))
	assert.True(t, IsFatal(ErrMergeConsistency))
	assert.True(t, IsFatal(errors.New("anything else")))
}

package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/tweakctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Value out of range", errFactory.New(errors.ErrOutOfRange).Error())
	assert.Equal(t, "Value out of range: 150", errFactory.WithData(errors.ErrOutOfRange, 150).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrOutOfRange, "custom").Error())

	wrapped := errFactory.Wrap(errors.ErrSpawnFailed, fmt.Errorf("exec: not found"))
	assert.Equal(t, "Failed to start backend command: exec: not found", wrapped.Error())
}

func TestWithMessageDoesNotMutate(t *testing.T) {
	base := errors.New().New(errors.ErrUnavailable)
	derived := base.WithMessage("cpu fan speed is not controllable")

	assert.Equal(t, "Control is not available", base.Error())
	assert.Equal(t, "cpu fan speed is not controllable", derived.Error())
	assert.Equal(t, errors.ErrUnavailable, derived.Code())
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("apply: %w", errors.New().New(errors.ErrPermissionDenied))

	assert.Equal(t, errors.ErrPermissionDenied, errors.CodeOf(err))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(fmt.Errorf("plain")))
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrProbeTimeout)
	outer := errors.New().Wrap(errors.ErrProbeFailed, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrProbeFailed))
	assert.True(t, errors.HasCode(outer, errors.ErrProbeTimeout))
	assert.False(t, errors.HasCode(outer, errors.ErrSpawnFailed))
	assert.False(t, errors.HasCode(nil, errors.ErrSpawnFailed))
}

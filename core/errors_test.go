package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestUnrecoverableFactoryError(t *testing.T) {
	err := NewUnrecoverableFactoryError(errors.New("doh"))

	assert.True(t, IsUnrecoverable(err))
	assert.Contains(t, err.Error(), "create")
	assert.Contains(t, err.Error(), "doh")
}

func TestUnrecoverableCommitError(t *testing.T) {
	err := NewUnrecoverableCommitError(errors.New("doh"))

	assert.True(t, IsUnrecoverable(err))
	assert.Contains(t, err.Error(), "commit")
}

func TestWrappedUnrecoverableErrorIsStillDetected(t *testing.T) {
	err := errors.Wrap(NewUnrecoverableCommitError(errors.New("doh")), "outer")

	assert.True(t, IsUnrecoverable(err))
}

func TestPlainErrorsAreRecoverable(t *testing.T) {
	assert.False(t, IsUnrecoverable(errors.New("doh")))
	assert.False(t, IsUnrecoverable(nil))
}

package errdefs

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartial_UnwrapsBothKinds(t *testing.T) {
	cause := errors.New("disk full")
	err := Partial("createItem", "insert file", cause)

	assert.ErrorIs(t, err, ErrPartialComposite)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert file")

	var composite *CompositeError
	assert.True(t, errors.As(err, &composite))
	assert.Equal(t, "createItem", composite.Op)
}

func TestPartial_NilError(t *testing.T) {
	assert.NoError(t, Partial("op", "step", nil))
	assert.NoError(t, IO("write", nil))
}

func TestIO_WrapsCause(t *testing.T) {
	err := IO("open file", os.ErrPermission)

	assert.ErrorIs(t, err, ErrIOFailure)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Contains(t, Message(ErrNotFound), "could not be found")
	assert.Contains(t, Message(Partial("op", "step", ErrNotFound)), "partially")
	assert.Equal(t, "plain", Message(errors.New("plain")))
}

package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	t.Run("known code keeps its status", func(t *testing.T) {
		err := NewError(ErrInvalidParams)
		assert.Equal(t, ErrInvalidParams, err.Code)
		assert.Equal(t, http.StatusBadRequest, err.Status)
	})

	t.Run("missing status defaults to 200", func(t *testing.T) {
		err := NewError(ErrInvalidPayload)
		assert.Equal(t, http.StatusOK, err.Status)
	})

	t.Run("details fill the template", func(t *testing.T) {
		err := NewError(ErrUnknownEventType, "bogus")
		assert.Equal(t, `Unknown event type "bogus".`, err.Message)
	})

	t.Run("unknown code falls back", func(t *testing.T) {
		err := NewError(424242)
		assert.Equal(t, ErrUnknown, err.Code)
		assert.Equal(t, http.StatusInternalServerError, err.Status)
	})

	t.Run("templates are not mutated", func(t *testing.T) {
		_ = NewError(ErrUnknownEventType, "first")
		err := NewError(ErrUnknownEventType, "second")
		assert.Equal(t, `Unknown event type "second".`, err.Message)
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrInvalidPayload, CodeOf(NewError(ErrInvalidPayload)))
	assert.Equal(t, ErrInvalidPayload, CodeOf(fmt.Errorf("decode: %w", NewError(ErrInvalidPayload))))
	assert.Equal(t, ErrUnknown, CodeOf(errors.New("plain")))
}

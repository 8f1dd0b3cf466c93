package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodesSurviveWrapping(t *testing.T) {
	base := New(CodeNotFound, "task not found")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeForbidden))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeStoreUnavailable, "failed to load task")

	require.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeStoreUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("title", "title is required")

	de, ok := From(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
	assert.Equal(t, "title", de.Field)
	assert.Contains(t, err.Error(), "field: title")
}

func TestCodeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeOrderPersistence, "failed to place order")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeOrderPersistence))
	assert.Equal(t, "failed to place order: connection reset", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
}

func TestHasCodeThroughFmtWrap(t *testing.T) {
	inner := New(CodeInvalidQuantity, "quantity must be a positive integer")
	outer := fmt.Errorf("set quantity: %w", inner)

	assert.True(t, HasCode(outer, CodeInvalidQuantity))
	assert.False(t, HasCode(outer, CodeValidation))
	assert.Equal(t, CodeInvalidQuantity, CodeOf(outer))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestErrorIsComparesCodeAndMessage(t *testing.T) {
	err := New(CodeUnauthorized, "invalid token")
	assert.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
}

package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(validationErr("bad input")))
	assert.Equal(t, KindForbidden, KindOf(forbiddenErr()))
	assert.Equal(t, KindNotFound, KindOf(notFoundErr("missing")))
	assert.Equal(t, KindConflict, KindOf(conflictErr("taken")))
	assert.Equal(t, KindInternal, KindOf(internalErr("query", errors.New("boom"))))

	// Untyped errors are internal by default.
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))

	// The kind survives wrapping.
	wrapped := fmt.Errorf("outer: %w", notFoundErr("missing"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := notFoundErr("product not found")
	assert.Equal(t, "product not found", err.Error())

	cause := errors.New("connection reset")
	internal := internalErr("list products", cause)
	assert.Equal(t, "list products: connection reset", internal.Error())
	assert.ErrorIs(t, internal, cause)
}

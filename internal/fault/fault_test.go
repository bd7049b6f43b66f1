package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := NotFound("order not found")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindForbidden))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := InvalidState("cannot accept order with status %s", "ACCEPTED")
	wrapped := fmt.Errorf("accept order: %w", inner)
	assert.Equal(t, KindInvalidState, KindOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindValidation, cause, "bad input")
	assert.Equal(t, "bad input: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindValidation, KindOf(err))
}

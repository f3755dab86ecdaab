package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("row missing")
	err := fmt.Errorf("load record: %w", Wrap(base, CodeNotFound, "record not found"))

	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeExpired))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestCodeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "forbidden: wrong subject", New(CodeForbidden, "wrong subject").Error())
	assert.Equal(t, "conflict: dup: boom", Wrap(errors.New("boom"), CodeConflict, "dup").Error())
}

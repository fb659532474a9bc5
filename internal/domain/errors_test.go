package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("upload: %w", Timeout("dataserver upload", context.DeadlineExceeded))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNetwork)

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, ErrKindTimeout, kind)
}

func TestKindOfBareSentinel(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("wrapped: %w", ErrNotFound))
	assert.True(t, ok)
	assert.Equal(t, ErrKindNotFound, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "remove: not found", NotFound("remove", nil).Error())
	assert.Equal(t, "persist: disk full", Storage("persist", errors.New("disk full")).Error())
}

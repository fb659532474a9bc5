package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDGeneratorMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	gen := NewIDGenerator(func() time.Time { return fixed })

	first := gen.Next()
	second := gen.Next()
	third := gen.Next()

	assert.Equal(t, fixed.UnixMilli(), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)
}

func TestIDGeneratorObserve(t *testing.T) {
	fixed := time.UnixMilli(1000)
	gen := NewIDGenerator(func() time.Time { return fixed })

	gen.Observe(5000)
	assert.Equal(t, int64(5001), gen.Next())

	gen.Observe(10)
	assert.Equal(t, int64(5002), gen.Next())
}

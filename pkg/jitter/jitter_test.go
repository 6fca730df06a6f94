package jitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffNext(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second)

	tests := []struct {
		attempt int
		min     time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{20, time.Second},
	}

	for _, tt := range tests {
		got := b.Next(tt.attempt)
		assert.GreaterOrEqual(t, got, tt.min, "attempt %d", tt.attempt)
		assert.Less(t, got, tt.min+time.Duration(float64(tt.min)*DefaultFactor)+1, "attempt %d", tt.attempt)
	}
}

func TestSpreadWithoutFactor(t *testing.T) {
	assert.Equal(t, time.Second, Spread(time.Second, 0))
	assert.Equal(t, time.Duration(0), Spread(0, DefaultFactor))
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStarsMapping(t *testing.T) {
	tests := []struct {
		avg  float64
		full int
		half int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{2, 1, 0},
		{5.5, 2, 1},
		{6.2, 3, 0},
		{6.9, 3, 0},
		{7.0, 3, 1},
		{9.0, 4, 1},
		{10, 5, 0},
	}
	for _, tt := range tests {
		got := Stars(tt.avg)
		assert.Equal(t, tt.full, got.Full, "avg %.1f full", tt.avg)
		assert.Equal(t, tt.half, got.Half, "avg %.1f half", tt.avg)
		assert.Equal(t, 5-tt.full-tt.half, got.Empty, "avg %.1f empty", tt.avg)
	}
}

func TestStarsClampsOutOfRange(t *testing.T) {
	assert.Equal(t, StarRating{Full: 0, Half: 0, Empty: 5}, Stars(-3))
	assert.Equal(t, StarRating{Full: 5, Half: 0, Empty: 0}, Stars(14))
}

func TestStarsMonotonic(t *testing.T) {
	prev := 0
	for avg := 0.0; avg <= 10.0; avg += 0.1 {
		s := Stars(avg)
		halves := s.Full*2 + s.Half
		assert.GreaterOrEqual(t, halves, prev, "avg %.1f", avg)
		prev = halves
	}
}

func TestStarDisplay(t *testing.T) {
	assert.Equal(t, "No rating", StarDisplay(0, 0))
	assert.Equal(t, "No rating", StarDisplay(9.9, 0))
	assert.Equal(t, "★★★☆☆ (6.2/10)", StarDisplay(6.2, 4))
	assert.Equal(t, "★★★★★ (10.0/10)", StarDisplay(10, 1))
}

func TestToneForBoundaries(t *testing.T) {
	assert.Equal(t, ToneGood, ToneFor(7.0))
	assert.Equal(t, ToneGood, ToneFor(9.5))
	assert.Equal(t, ToneBad, ToneFor(4.0))
	assert.Equal(t, ToneBad, ToneFor(1.0))
	assert.Equal(t, ToneNeutral, ToneFor(4.1))
	assert.Equal(t, ToneNeutral, ToneFor(6.9))
	assert.Equal(t, ToneNeutral, ToneFor(5.5))
}

func TestTonePoolsPick(t *testing.T) {
	pools := TonePools{
		Good:    []string{"g1", "g2"},
		Bad:     []string{"b1"},
		Neutral: []string{"n1"},
	}
	first := func(n int) int { return 0 }

	assert.Equal(t, "g1", pools.Pick(8.0, first))
	assert.Equal(t, "b1", pools.Pick(2.0, first))
	assert.Equal(t, "n1", pools.Pick(5.0, first))

	last := func(n int) int { return n - 1 }
	assert.Equal(t, "g2", pools.Pick(8.0, last))

	assert.Equal(t, "", TonePools{}.Pick(8.0, first))
}

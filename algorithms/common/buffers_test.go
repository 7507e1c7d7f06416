package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingKeepsMostRecentOldestFirst(t *testing.T) {
	r := NewRing[int](10)
	for i := 1; i <= 15; i++ {
		r.Push(i)
	}

	assert := assert.New(t)
	assert.Equal(10, r.Len())
	assert.Equal(r.Cap(), r.Len())
	assert.Equal([]int{6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, r.Last(10))
	assert.Equal([]int{13, 14, 15}, r.Last(3))
}

func TestRingLastClampsToCount(t *testing.T) {
	r := NewRing[string](4)
	r.Push("a")
	r.Push("b")

	assert := assert.New(t)
	assert.Equal([]string{"a", "b"}, r.Last(10))
	assert.Empty(r.Last(0))
	assert.Empty(r.Last(-1))
}

func TestRingClear(t *testing.T) {
	r := NewRing[int](3)
	r.Push(1)
	r.Push(2)
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Last(3))

	r.Push(7)
	assert.Equal(t, []int{7}, r.Last(3))
}

func TestNewRingMinimumCapacity(t *testing.T) {
	r := NewRing[int](0)
	r.Push(1)
	r.Push(2)

	assert.Equal(t, 1, r.Cap())
	assert.Equal(t, []int{2}, r.Last(1))
}

func TestSlidingWindowEmitsEveryHop(t *testing.T) {
	sw := NewSlidingWindow(4, 2)

	samples := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	frames := sw.AddSamples(samples)

	assert := assert.New(t)
	assert.Equal([][]float64{
		{1, 2, 3, 4},
		{3, 4, 5, 6},
		{5, 6, 7, 8},
	}, frames)

	// The trailing window is kept for the next block
	assert.Equal([][]float64{{7, 8, 9, 10}}, sw.AddSamples([]float64{9, 10}))
}

func TestSlidingWindowAcrossBlocks(t *testing.T) {
	sw := NewSlidingWindow(4, 4)

	assert := assert.New(t)
	assert.Empty(sw.AddSamples([]float64{1, 2, 3}))
	assert.Equal([][]float64{{1, 2, 3, 4}}, sw.AddSamples([]float64{4, 5}))
	assert.Equal([][]float64{{5, 6, 7, 8}}, sw.AddSamples([]float64{6, 7, 8}))
}

func TestSlidingWindowInvalidHopFallsBackToWindow(t *testing.T) {
	samples := make([]float64, 16)
	for i := range samples {
		samples[i] = float64(i)
	}

	for _, hop := range []int{0, 20} {
		frames := NewSlidingWindow(8, hop).AddSamples(samples)
		assert.Len(t, frames, 2, "hop %d", hop)
		assert.Equal(t, samples[8:], frames[1], "hop %d", hop)
	}
}

func TestSlidingWindowReset(t *testing.T) {
	sw := NewSlidingWindow(2, 1)
	sw.AddSamples([]float64{1, 2, 3})
	sw.Reset()

	assert.Equal(t, [][]float64{{9, 10}}, sw.AddSamples([]float64{9, 10}))
}

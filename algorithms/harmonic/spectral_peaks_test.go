package harmonic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPeaksSortedAndCapped(t *testing.T) {
	// fftSize 16 at 16 Hz gives 1 Hz bins
	mags := []float64{0, 1, 0, 3, 0, 2, 0, 0, 5}
	sp := NewSpectralPeaks(16, 0, 0, 2)

	peaks := sp.DetectPeaks(mags, 16)
	require.Len(t, peaks, 2)

	assert := assert.New(t)
	assert.Equal(3, peaks[0].BinIndex)
	assert.Equal(3.0, peaks[0].Magnitude)
	assert.Equal(3.0, peaks[0].Frequency)
	assert.Equal(5, peaks[1].BinIndex)
}

func TestDetectPeaksIgnoresPlateausAndEdges(t *testing.T) {
	mags := []float64{9, 1, 2, 2, 1, 9}
	sp := NewSpectralPeaks(10, 0, 0, 5)

	assert.Empty(t, sp.DetectPeaks(mags, 10))
	assert.Empty(t, sp.DetectPeaks([]float64{1, 2}, 10))
}

func TestDetectPeaksMinHeight(t *testing.T) {
	mags := []float64{0, 0.5, 0, 2, 0}
	sp := NewSpectralPeaks(8, 1, 0, 5)

	peaks := sp.DetectPeaks(mags, 8)
	require.Len(t, peaks, 1)
	assert.Equal(t, 3, peaks[0].BinIndex)
}

func TestRefineWithInterpolationMovesTowardsHigherNeighbour(t *testing.T) {
	mags := []float64{0, 1, 4, 3, 0}
	sp := NewSpectralPeaks(8, 0, 0, 1)

	peaks := sp.DetectPeaks(mags, 8)
	require.Len(t, peaks, 1)

	refined := sp.RefineWithInterpolation(mags, peaks, 8)
	require.Len(t, refined, 1)

	// offset = (3-1) / (2*(8-1-3)) = 0.25
	assert.InDelta(t, 2.25, refined[0].Frequency, 1e-12)
	assert.Greater(t, refined[0].Magnitude, 4.0)
}

func TestSetSampleRate(t *testing.T) {
	mags := []float64{0, 0, 1, 0}
	sp := NewSpectralPeaks(4, 0, 0, 1)
	sp.SetSampleRate(8)

	peaks := sp.DetectPeaks(mags, 4)
	require.Len(t, peaks, 1)
	assert.Equal(t, 4.0, peaks[0].Frequency)
}

func TestDetectPeaksWithoutSampleRate(t *testing.T) {
	mags := []float64{0, 2, 0, 1, 0}
	sp := NewSpectralPeaks(0, 0, 5, 5)

	peaks := sp.DetectPeaks(mags, 8)
	require.Len(t, peaks, 2)
	assert.Equal(t, 1, peaks[0].BinIndex)
	assert.Equal(t, 0.0, peaks[0].Frequency)
}

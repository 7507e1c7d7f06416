package filters

import (
	"math"
)

// DCBlocker is a one-pole high-pass filter that removes the DC offset many
// sound cards add to captured audio:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// State carries across calls, so consecutive capture blocks filter as one stream.
type DCBlocker struct {
	pole float64 // R, 0 < R < 1
	x1   float64
	y1   float64
}

// NewDCBlocker creates a blocker whose -3 dB point sits near cutoffHz.
// R = 1 - 2*pi*fc/fs, clamped to [0.9, 0.9999].
func NewDCBlocker(sampleRate int, cutoffHz float64) *DCBlocker {
	pole := 0.995
	if sampleRate > 0 && cutoffHz > 0 {
		pole = 1 - 2*math.Pi*cutoffHz/float64(sampleRate)
	}
	pole = math.Max(0.9, math.Min(0.9999, pole))

	return &DCBlocker{pole: pole}
}

// Process filters one sample
func (dc *DCBlocker) Process(x float64) float64 {
	y := x - dc.x1 + dc.pole*dc.y1
	dc.x1 = x
	dc.y1 = y
	return y
}

// ProcessInPlace filters a block, overwriting it
func (dc *DCBlocker) ProcessInPlace(block []float64) {
	for i, x := range block {
		block[i] = dc.Process(x)
	}
}

// Reset clears the filter state between discontinuous streams
func (dc *DCBlocker) Reset() {
	dc.x1 = 0
	dc.y1 = 0
}

// CutoffFrequency returns the approximate -3 dB frequency, fc = (1-R)*fs/(2*pi)
func (dc *DCBlocker) CutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return (1 - dc.pole) * float64(sampleRate) / (2 * math.Pi)
}

package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-2 sizes as well
	return fft.FFTReal(x)
}

// MagnitudeSpectrum returns |X[k]| for k in [0, N/2], scaled by 2/gain.
// With gain set to the analysis window's coefficient sum, a sinusoid of
// amplitude A peaks at roughly A.
func (f *FFT) MagnitudeSpectrum(x []float64, gain float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}
	if gain <= 0 {
		gain = float64(len(x))
	}

	spectrum := f.Compute(x)
	bins := len(x)/2 + 1
	magnitudes := make([]float64, bins)
	scale := 2.0 / gain

	for k := range bins {
		magnitudes[k] = cmplx.Abs(spectrum[k]) * scale
	}

	return magnitudes
}

// BinFrequency converts a (possibly fractional) bin index to Hz
func BinFrequency(bin float64, sampleRate, fftSize int) float64 {
	if fftSize <= 0 {
		return 0
	}
	return bin * float64(sampleRate) / float64(fftSize)
}

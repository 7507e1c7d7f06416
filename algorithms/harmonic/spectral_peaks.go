package harmonic

import (
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
)

// SpectralPeak represents a detected spectral peak
type SpectralPeak struct {
	Frequency float64 // Peak frequency in Hz
	Magnitude float64 // Peak magnitude
	BinIndex  int     // Original FFT bin index
}

// SpectralPeaks finds the strongest local maxima of a magnitude spectrum
type SpectralPeaks struct {
	sampleRate      int
	minPeakHeight   float64
	minPeakDistance float64 // Minimum distance between peaks in Hz
	maxPeaks        int
}

// NewSpectralPeaks creates a new spectral peaks analyzer
func NewSpectralPeaks(sampleRate int, minPeakHeight, minPeakDistance float64, maxPeaks int) *SpectralPeaks {
	if maxPeaks <= 0 {
		maxPeaks = 1
	}
	return &SpectralPeaks{
		sampleRate:      sampleRate,
		minPeakHeight:   minPeakHeight,
		minPeakDistance: minPeakDistance,
		maxPeaks:        maxPeaks,
	}
}

// DetectPeaks detects spectral peaks in a magnitude spectrum computed with an
// fftSize-point transform. Peaks come back sorted by magnitude, strongest first.
func (sp *SpectralPeaks) DetectPeaks(magnitudeSpectrum []float64, fftSize int) []SpectralPeak {
	if len(magnitudeSpectrum) < 3 || fftSize <= 0 {
		return []SpectralPeak{}
	}

	freqResolution := spectral.BinFrequency(1, sp.sampleRate, fftSize)
	minDistanceBins := 1
	if freqResolution > 0 {
		minDistanceBins = max(int(sp.minPeakDistance/freqResolution), 1)
	}

	var peaks []SpectralPeak

	for i := 1; i < len(magnitudeSpectrum)-1; i++ {
		if magnitudeSpectrum[i] <= magnitudeSpectrum[i-1] ||
			magnitudeSpectrum[i] <= magnitudeSpectrum[i+1] ||
			magnitudeSpectrum[i] < sp.minPeakHeight {
			continue
		}

		validPeak := true
		for j, existingPeak := range peaks {
			binDistance := int(math.Abs(float64(i - existingPeak.BinIndex)))
			if binDistance < minDistanceBins {
				// Keep the higher peak
				if magnitudeSpectrum[i] > existingPeak.Magnitude {
					peaks = append(peaks[:j], peaks[j+1:]...)
				} else {
					validPeak = false
				}
				break
			}
		}

		if validPeak {
			peaks = append(peaks, SpectralPeak{
				Frequency: spectral.BinFrequency(float64(i), sp.sampleRate, fftSize),
				Magnitude: magnitudeSpectrum[i],
				BinIndex:  i,
			})
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	if len(peaks) > sp.maxPeaks {
		peaks = peaks[:sp.maxPeaks]
	}

	return peaks
}

// RefineWithInterpolation refines peak locations using parabolic interpolation
func (sp *SpectralPeaks) RefineWithInterpolation(magnitudeSpectrum []float64, peaks []SpectralPeak, fftSize int) []SpectralPeak {
	refinedPeaks := make([]SpectralPeak, len(peaks))

	for i, peak := range peaks {
		refinedPeak := peak
		binIdx := peak.BinIndex

		if binIdx > 0 && binIdx < len(magnitudeSpectrum)-1 {
			y1 := magnitudeSpectrum[binIdx-1]
			y2 := magnitudeSpectrum[binIdx]
			y3 := magnitudeSpectrum[binIdx+1]

			denom := 2.0 * (2.0*y2 - y1 - y3)
			if math.Abs(denom) > 1e-12 {
				offset := (y3 - y1) / denom

				a := 0.5 * (y1 - 2.0*y2 + y3)
				b := 0.5 * (y3 - y1)

				refinedPeak.Frequency = spectral.BinFrequency(float64(binIdx)+offset, sp.sampleRate, fftSize)
				refinedPeak.Magnitude = y2 + a*offset*offset + b*offset
			}
		}

		refinedPeaks[i] = refinedPeak
	}

	return refinedPeaks
}

// SetSampleRate updates the sample rate used to convert bins to Hz
func (sp *SpectralPeaks) SetSampleRate(sampleRate int) {
	sp.sampleRate = sampleRate
}

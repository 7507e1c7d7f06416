package tonal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
	"github.com/RyanBlaney/sonido-tuner/algorithms/harmonic"
	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tuner/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tuner/logging"
)

// Strategy names accepted by EstimatorParams.Primary
const (
	StrategySpectral        = "spectral"
	StrategyAutocorrelation = "autocorrelation"
)

// AudioFrame is one block of normalized samples and the rate they were captured at
type AudioFrame struct {
	Samples    []float64
	SampleRate int
}

// PitchEstimate is a raw fundamental estimate; the zero value means no pitch
type PitchEstimate struct {
	Frequency float64 `json:"frequency"`
	Voiced    bool    `json:"voiced"`
	Method    string  `json:"method,omitempty"`
}

// NoPitch reports that a frame carried no usable pitch
var NoPitch = PitchEstimate{}

// PitchStrategy estimates the fundamental of one frame
type PitchStrategy interface {
	Name() string
	Estimate(frame AudioFrame) (PitchEstimate, error)
}

// MinPeakCandidates is the fewest spectral peaks the spectral strategy may extract per frame
const MinPeakCandidates = 10

// EstimatorParams contains parameters for frequency estimation
type EstimatorParams struct {
	Primary string `json:"primary"` // "spectral" or "autocorrelation"

	// Autocorrelation
	SilenceRMS       float64 `json:"silence_rms"`       // RMS gate below which a frame is silent
	CorrelationFloor float64 `json:"correlation_floor"` // Similarity a lag must exceed to open a peak region
	MinLag           int     `json:"min_lag"`           // First lag examined, in samples

	// Spectral
	MaxPeaks      int     `json:"max_peaks"`      // Peak candidates extracted per frame
	PeakThreshold float64 `json:"peak_threshold"` // Minimum normalized magnitude of the strongest peak
	ZeroPadding   int     `json:"zero_padding"`   // FFT size multiplier
}

// DefaultEstimatorParams returns the tuned defaults. The thresholds are empirical.
func DefaultEstimatorParams() EstimatorParams {
	return EstimatorParams{
		Primary:          StrategySpectral,
		SilenceRMS:       0.01,
		CorrelationFloor: 0.9,
		MinLag:           8,
		MaxPeaks:         10,
		PeakThreshold:    0.01,
		ZeroPadding:      4,
	}
}

// Validate checks the parameters for consistency
func (p EstimatorParams) Validate() error {
	switch p.Primary {
	case StrategySpectral, StrategyAutocorrelation:
	default:
		return fmt.Errorf("unsupported primary strategy: %q", p.Primary)
	}
	if p.SilenceRMS < 0 {
		return fmt.Errorf("silence_rms must be non-negative, got %g", p.SilenceRMS)
	}
	if p.CorrelationFloor <= 0 || p.CorrelationFloor >= 1 {
		return fmt.Errorf("correlation_floor must be in (0, 1), got %g", p.CorrelationFloor)
	}
	if p.MinLag < 1 {
		return fmt.Errorf("min_lag must be at least 1, got %d", p.MinLag)
	}
	if p.MaxPeaks < MinPeakCandidates {
		return fmt.Errorf("max_peaks must be at least %d, got %d", MinPeakCandidates, p.MaxPeaks)
	}
	if p.ZeroPadding < 1 {
		return fmt.Errorf("zero_padding must be at least 1, got %d", p.ZeroPadding)
	}
	return nil
}

// MinFrameSize is the shortest frame that leaves at least one lag to examine
func (p EstimatorParams) MinFrameSize() int {
	return 2 * (p.MinLag + 1)
}

// AutocorrelationStrategy is the always-available time-domain estimator.
// It returns the first local maximum of lag similarity above the floor,
// which keeps later, weaker correlations from causing octave errors.
type AutocorrelationStrategy struct {
	silenceRMS       float64
	correlationFloor float64
	minLag           int
}

// NewAutocorrelationStrategy creates the fallback estimator
func NewAutocorrelationStrategy(params EstimatorParams) *AutocorrelationStrategy {
	return &AutocorrelationStrategy{
		silenceRMS:       params.SilenceRMS,
		correlationFloor: params.CorrelationFloor,
		minLag:           params.MinLag,
	}
}

// Name returns the strategy name
func (a *AutocorrelationStrategy) Name() string {
	return StrategyAutocorrelation
}

// Estimate runs the gated, early-exit lag scan
func (a *AutocorrelationStrategy) Estimate(frame AudioFrame) (PitchEstimate, error) {
	samples := frame.Samples
	half := len(samples) / 2

	if common.RMS(samples) < a.silenceRMS {
		return NoPitch, nil
	}

	bestLag := -1
	bestC := 0.0
	lastC := 1.0
	inPeak := false

	for lag := a.minLag; lag < half; lag++ {
		c := 1 - common.SumAbsDifference(samples[:half], samples[lag:lag+half])/float64(half)

		if c > a.correlationFloor && c > lastC {
			inPeak = true
			if c > bestC {
				bestC = c
				bestLag = lag
			}
		} else if inPeak {
			return a.voiced(frame.SampleRate, bestLag), nil
		}

		lastC = c
	}

	if bestLag != -1 {
		return a.voiced(frame.SampleRate, bestLag), nil
	}
	return NoPitch, nil
}

func (a *AutocorrelationStrategy) voiced(sampleRate, lag int) PitchEstimate {
	return PitchEstimate{
		Frequency: float64(sampleRate) / float64(lag),
		Voiced:    true,
		Method:    StrategyAutocorrelation,
	}
}

// SpectralPeakStrategy picks the strongest peak of a Hann-windowed, zero-padded spectrum
type SpectralPeakStrategy struct {
	fft           *spectral.FFT
	peaks         *harmonic.SpectralPeaks
	peakThreshold float64
	zeroPadding   int

	windows map[int]*windowing.Hann
	padded  []float64
}

// NewSpectralPeakStrategy creates the primary estimator
func NewSpectralPeakStrategy(params EstimatorParams) *SpectralPeakStrategy {
	return &SpectralPeakStrategy{
		fft:           spectral.NewFFT(),
		peaks:         harmonic.NewSpectralPeaks(44100, 0, 0, params.MaxPeaks),
		peakThreshold: params.PeakThreshold,
		zeroPadding:   max(params.ZeroPadding, 1),
		windows:       make(map[int]*windowing.Hann),
	}
}

// Name returns the strategy name
func (s *SpectralPeakStrategy) Name() string {
	return StrategySpectral
}

// Estimate returns the strongest spectral peak. Panics from the FFT backend
// are reported as errors so the caller can fall back.
func (s *SpectralPeakStrategy) Estimate(frame AudioFrame) (estimate PitchEstimate, err error) {
	defer func() {
		if r := recover(); r != nil {
			estimate = NoPitch
			err = fmt.Errorf("spectral backend failed: %v", r)
		}
	}()

	n := len(frame.Samples)
	window := s.window(n)
	fftSize := common.NextPowerOfTwo(n * s.zeroPadding)
	if cap(s.padded) < fftSize {
		s.padded = make([]float64, fftSize)
	}
	padded := s.padded[:fftSize]

	if err := window.ApplyPadded(frame.Samples, padded); err != nil {
		return NoPitch, fmt.Errorf("failed to window frame: %w", err)
	}

	magnitudes := s.fft.MagnitudeSpectrum(padded, window.Sum())

	s.peaks.SetSampleRate(frame.SampleRate)
	peaks := s.peaks.DetectPeaks(magnitudes, fftSize)
	if len(peaks) == 0 || peaks[0].Magnitude <= s.peakThreshold {
		return NoPitch, nil
	}

	refined := s.peaks.RefineWithInterpolation(magnitudes, peaks[:1], fftSize)

	return PitchEstimate{
		Frequency: refined[0].Frequency,
		Voiced:    true,
		Method:    StrategySpectral,
	}, nil
}

func (s *SpectralPeakStrategy) window(size int) *windowing.Hann {
	w, ok := s.windows[size]
	if !ok {
		w = windowing.NewHann(size, false)
		s.windows[size] = w
	}
	return w
}

// FrequencyEstimator runs the primary strategy and falls back to autocorrelation.
// After the primary's first failure it stays on the fallback until Reset.
type FrequencyEstimator struct {
	primary      PitchStrategy
	fallback     PitchStrategy
	minFrameSize int
	tripped      bool
	logger       logging.Logger
}

// NewFrequencyEstimator builds an estimator from parameters
func NewFrequencyEstimator(params EstimatorParams) (*FrequencyEstimator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid estimator parameters: %w", err)
	}

	var primary PitchStrategy
	if params.Primary == StrategySpectral {
		primary = NewSpectralPeakStrategy(params)
	}

	return NewFrequencyEstimatorWithStrategies(primary, NewAutocorrelationStrategy(params), params.MinFrameSize()), nil
}

// NewFrequencyEstimatorWithStrategies wires arbitrary strategies. primary may be nil.
func NewFrequencyEstimatorWithStrategies(primary, fallback PitchStrategy, minFrameSize int) *FrequencyEstimator {
	return &FrequencyEstimator{
		primary:      primary,
		fallback:     fallback,
		minFrameSize: minFrameSize,
		logger: logging.WithFields(logging.Fields{
			"component": "frequency_estimator",
		}),
	}
}

// SetLogger replaces the estimator's logger
func (e *FrequencyEstimator) SetLogger(logger logging.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Estimate returns the best raw estimate for a frame. Malformed frames
// (too short, non-finite samples, bad sample rate) yield NoPitch.
func (e *FrequencyEstimator) Estimate(frame AudioFrame) PitchEstimate {
	if frame.SampleRate <= 0 || len(frame.Samples) < e.minFrameSize || !common.AllFinite(frame.Samples) {
		return NoPitch
	}

	if e.primary != nil && !e.tripped {
		estimate, err := e.primary.Estimate(frame)
		if err == nil {
			return estimate
		}

		e.tripped = true
		e.logger.Warn("primary pitch strategy failed, switching to fallback for this session", logging.Fields{
			"primary":  e.primary.Name(),
			"fallback": e.fallback.Name(),
			"error":    err.Error(),
		})
	}

	estimate, err := e.fallback.Estimate(frame)
	if err != nil {
		e.logger.Error(err, "fallback pitch strategy failed", logging.Fields{
			"fallback": e.fallback.Name(),
		})
		return NoPitch
	}
	return estimate
}

// Tripped reports whether the estimator is pinned to the fallback
func (e *FrequencyEstimator) Tripped() bool {
	return e.tripped
}

// Active returns the name of the strategy that will serve the next frame
func (e *FrequencyEstimator) Active() string {
	if e.primary != nil && !e.tripped {
		return e.primary.Name()
	}
	return e.fallback.Name()
}

// Reset re-arms the primary strategy
func (e *FrequencyEstimator) Reset() {
	e.tripped = false
}

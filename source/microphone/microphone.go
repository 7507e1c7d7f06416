// Package microphone captures frames from the default input device through PortAudio.
package microphone

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
	"github.com/RyanBlaney/sonido-tuner/algorithms/filters"
	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/source"
)

// dcCutoffHz sits well below the lowest accepted fundamental
const dcCutoffHz = 10.0

// Source reads mono float32 blocks of hopSize samples, strips the DC offset and
// assembles them into overlapping frames of frameSize samples.
type Source struct {
	sampleRate int
	frameSize  int
	hopSize    int

	mu          sync.Mutex
	stream      *portaudio.Stream
	initialized bool
	buf         []float32
	block       []float64
	window      *common.SlidingWindow
	dc          *filters.DCBlocker
	logger      logging.Logger
}

// New creates a microphone source. Nothing is opened until Start.
func New(sampleRate, frameSize, hopSize int) (*Source, error) {
	if frameSize <= 0 || hopSize <= 0 || hopSize > frameSize {
		return nil, fmt.Errorf("%w: frame=%d hop=%d", source.ErrInvalidFrameSize, frameSize, hopSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &Source{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
		buf:        make([]float32, hopSize),
		block:      make([]float64, hopSize),
		window:     common.NewSlidingWindow(frameSize, hopSize),
		dc:         filters.NewDCBlocker(sampleRate, dcCutoffHz),
		logger: logging.WithFields(logging.Fields{
			"component": "microphone",
		}),
	}, nil
}

// Start opens and starts the default input stream
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	s.initialized = true

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(s.sampleRate), s.hopSize, s.buf)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	s.stream = stream

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	s.window.Reset()
	s.dc.Reset()

	s.logger.Info("microphone capture started", logging.Fields{
		"sample_rate": s.sampleRate,
		"frame_size":  s.frameSize,
		"hop_size":    s.hopSize,
		"dc_cutoff":   s.dc.CutoffFrequency(s.sampleRate),
	})
	return nil
}

// NextFrame blocks until a full frame has been captured. Only the newest
// frame is returned when one read completes several.
func (s *Source) NextFrame(ctx context.Context) (tonal.AudioFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return tonal.AudioFrame{}, source.ErrNotStarted
	}

	for {
		if err := ctx.Err(); err != nil {
			return tonal.AudioFrame{}, err
		}

		if err := s.stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return tonal.AudioFrame{}, fmt.Errorf("failed to read input stream: %w", err)
			}
			s.logger.Debug("input overflow, samples dropped")
		}

		for i, v := range s.buf {
			s.block[i] = float64(v)
		}
		s.dc.ProcessInPlace(s.block)

		frames := s.window.AddSamples(s.block)
		if len(frames) > 0 {
			return tonal.AudioFrame{
				Samples:    frames[len(frames)-1],
				SampleRate: s.sampleRate,
			}, nil
		}
	}
}

// SampleRate returns the capture rate
func (s *Source) SampleRate() int {
	return s.sampleRate
}

// Stop stops and closes the stream and releases PortAudio. Safe after a failed Start.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop input stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close input stream: %w", err))
		}
		s.stream = nil
	}
	if s.initialized {
		if err := portaudio.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate portaudio: %w", err))
		}
		s.initialized = false
	}

	if len(errs) > 0 {
		s.logger.Warn("microphone did not shut down cleanly")
	}
	return errors.Join(errs...)
}

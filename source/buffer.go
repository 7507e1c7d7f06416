// Package source provides AudioSource implementations backed by decoded files,
// in-memory buffers and synthetic tones.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/transcode"
)

// ErrInvalidFrameSize is returned when frame or hop sizes are not positive
var ErrInvalidFrameSize = errors.New("frame size and hop size must be positive")

// ErrNotStarted is returned by NextFrame before Start
var ErrNotStarted = errors.New("audio source not started")

// BufferSource replays mono samples as overlapping frames. A source can be
// started again after Stop and replays from the beginning.
type BufferSource struct {
	samples    []float64
	sampleRate int
	frameSize  int
	hopSize    int

	mu      sync.Mutex
	pos     int
	started bool
}

// NewBufferSource creates a source over mono samples
func NewBufferSource(samples []float64, sampleRate, frameSize, hopSize int) (*BufferSource, error) {
	if frameSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("%w: frame=%d hop=%d", ErrInvalidFrameSize, frameSize, hopSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &BufferSource{
		samples:    samples,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hopSize:    hopSize,
	}, nil
}

// NewAudioDataSource creates a source over decoded audio, downmixing to mono
func NewAudioDataSource(data *transcode.AudioData, frameSize, hopSize int) (*BufferSource, error) {
	if data == nil {
		return nil, errors.New("audio data is nil")
	}
	return NewBufferSource(transcode.ToMono(data.PCM, data.Channels), data.SampleRate, frameSize, hopSize)
}

// Start rewinds the source
func (b *BufferSource) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = 0
	b.started = true
	return nil
}

// NextFrame returns the next frame, or io.EOF once fewer than frameSize samples remain
func (b *BufferSource) NextFrame(ctx context.Context) (tonal.AudioFrame, error) {
	if err := ctx.Err(); err != nil {
		return tonal.AudioFrame{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return tonal.AudioFrame{}, ErrNotStarted
	}
	if b.pos+b.frameSize > len(b.samples) {
		return tonal.AudioFrame{}, io.EOF
	}

	frame := make([]float64, b.frameSize)
	copy(frame, b.samples[b.pos:b.pos+b.frameSize])
	b.pos += b.hopSize

	return tonal.AudioFrame{Samples: frame, SampleRate: b.sampleRate}, nil
}

// SampleRate returns the rate of the buffered samples
func (b *BufferSource) SampleRate() int {
	return b.sampleRate
}

// Stop marks the source stopped
func (b *BufferSource) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	return nil
}

// Remaining returns the number of frames left before io.EOF
func (b *BufferSource) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	left := len(b.samples) - b.pos - b.frameSize
	if left < 0 {
		return 0
	}
	return left/b.hopSize + 1
}

// FileSource decodes a WAV file when started and replays it
type FileSource struct {
	path      string
	frameSize int
	hopSize   int
	decoder   *transcode.Decoder
	logger    logging.Logger

	buffer *BufferSource
}

// NewFileSource creates a source for the WAV file at path. Decoding is deferred
// to Start so a missing file surfaces as a start failure.
func NewFileSource(path string, frameSize, hopSize int) (*FileSource, error) {
	if frameSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("%w: frame=%d hop=%d", ErrInvalidFrameSize, frameSize, hopSize)
	}
	return &FileSource{
		path:      path,
		frameSize: frameSize,
		hopSize:   hopSize,
		decoder:   transcode.NewDecoder(nil),
		logger: logging.WithFields(logging.Fields{
			"component": "file_source",
			"path":      path,
		}),
	}, nil
}

// Start decodes the file
func (f *FileSource) Start(ctx context.Context) error {
	data, err := f.decoder.DecodeFile(f.path)
	if err != nil {
		return err
	}

	buffer, err := NewAudioDataSource(data, f.frameSize, f.hopSize)
	if err != nil {
		return err
	}

	f.logger.Info("decoded audio file", logging.Fields{
		"sample_rate": data.SampleRate,
		"duration":    data.Duration.String(),
		"frames":      buffer.Remaining(),
	})

	f.buffer = buffer
	return f.buffer.Start(ctx)
}

// NextFrame returns the next frame of the decoded file
func (f *FileSource) NextFrame(ctx context.Context) (tonal.AudioFrame, error) {
	if f.buffer == nil {
		return tonal.AudioFrame{}, ErrNotStarted
	}
	return f.buffer.NextFrame(ctx)
}

// SampleRate returns the file's sample rate, or 0 before Start
func (f *FileSource) SampleRate() int {
	if f.buffer == nil {
		return 0
	}
	return f.buffer.SampleRate()
}

// Stop releases the decoded samples
func (f *FileSource) Stop() error {
	f.buffer = nil
	return nil
}

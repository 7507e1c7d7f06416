package transcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-tuner/logging"
)

// ErrInvalidWAV is returned for input that is not a readable PCM WAV stream
var ErrInvalidWAV = errors.New("invalid wav file")

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64      `json:"-"` // Samples in [-1, 1], interleaved when Channels > 1
	SampleRate int            `json:"sample_rate"`
	Channels   int            `json:"channels"`
	Duration   time.Duration  `json:"duration"`
	Metadata   *AudioMetadata `json:"metadata,omitempty"`
}

// AudioMetadata describes the source file
type AudioMetadata struct {
	Path       string `json:"path,omitempty"`
	Format     string `json:"format"`
	BitDepth   int    `json:"bit_depth"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetChannels int           `json:"target_channels"` // 1 downmixes to mono, 0 keeps the source layout
	MaxDuration    time.Duration `json:"max_duration"`    // 0 means no limit
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetChannels: 1, // Mono for pitch detection
		MaxDuration:    0,
	}
}

// Decoder turns WAV files into normalized float samples
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a decoder; a nil config uses DefaultDecoderConfig
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes the WAV file at filename
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "wav_decoder",
		"function":  "DecodeFile",
		"file":      filepath.Base(filename),
	})

	logger.Debug("Starting audio file decode")

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	data, err := d.DecodeReader(f)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}
	data.Metadata.Path = filename

	logger.Debug("Audio file decoded", logging.Fields{
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"samples":     len(data.PCM),
		"duration":    data.Duration.String(),
	})

	return data, nil
}

// DecodeReader decodes a WAV stream
func (d *Decoder) DecodeReader(r io.ReadSeeker) (*AudioData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
		}
		return nil, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("%w: channels=%d sample_rate=%d bit_depth=%d", ErrInvalidWAV, channels, sampleRate, bitDepth)
	}

	pcm := intsToFloat64(buf.Data, bitDepth)

	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds()*float64(sampleRate)) * channels
		if limit < len(pcm) {
			pcm = pcm[:limit]
		}
	}

	metadata := &AudioMetadata{
		Format:     "wav",
		BitDepth:   bitDepth,
		SampleRate: sampleRate,
		Channels:   channels,
	}

	outChannels := channels
	if d.config.TargetChannels == 1 && channels > 1 {
		pcm = ToMono(pcm, channels)
		outChannels = 1
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   outChannels,
		Duration:   samplesDuration(len(pcm)/outChannels, sampleRate),
		Metadata:   metadata,
	}, nil
}

// ToMono averages interleaved channels; a trailing partial frame is dropped
func ToMono(pcm []float64, channels int) []float64 {
	if channels <= 1 {
		return pcm
	}

	frames := len(pcm) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += pcm[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

func intsToFloat64(data []int, bitDepth int) []float64 {
	scale := float64(int64(1) << (bitDepth - 1))
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v) / scale
	}
	return out
}

func samplesDuration(frames, sampleRate int) time.Duration {
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

package transcode

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM format tag
const wavFormatPCM = 1

// Encode writes data as PCM WAV at the given bit depth (16, 24 or 32).
// Samples are clipped to [-1, 1].
func Encode(w io.WriteSeeker, data *AudioData, bitDepth int) error {
	if data == nil || data.SampleRate <= 0 || data.Channels <= 0 {
		return fmt.Errorf("cannot encode audio without sample rate and channels")
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	encoder := wav.NewEncoder(w, data.SampleRate, bitDepth, data.Channels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: data.Channels,
			SampleRate:  data.SampleRate,
		},
		Data:           float64ToInts(data.PCM, bitDepth),
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write pcm data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav header: %w", err)
	}
	return nil
}

// WriteFile encodes data to a new WAV file at path
func WriteFile(path string, data *AudioData, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Encode(f, data, bitDepth); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func float64ToInts(pcm []float64, bitDepth int) []int {
	maxVal := float64(int64(1)<<(bitDepth-1) - 1)
	out := make([]int, len(pcm))
	for i, v := range pcm {
		v = math.Max(-1, math.Min(1, v))
		out[i] = int(math.Round(v * maxVal))
	}
	return out
}

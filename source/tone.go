package source

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/sonido-tuner/transcode"
)

// ToneStep is one segment of a synthetic signal. A zero frequency is silence.
type ToneStep struct {
	Frequency float64       `json:"frequency"`
	Duration  time.Duration `json:"duration"`
	Amplitude float64       `json:"amplitude"`
}

// Render synthesizes the steps as mono PCM. Phase is carried across steps
// so frequency changes do not click.
func Render(steps []ToneStep, sampleRate int) (*transcode.AudioData, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if len(steps) == 0 {
		return nil, errors.New("at least one tone step is required")
	}

	total := 0
	for i, step := range steps {
		if step.Duration <= 0 {
			return nil, fmt.Errorf("tone step %d: duration must be positive", i)
		}
		if step.Frequency < 0 || step.Frequency >= float64(sampleRate)/2 {
			return nil, fmt.Errorf("tone step %d: frequency %g Hz is outside [0, %d)", i, step.Frequency, sampleRate/2)
		}
		total += stepSamples(step, sampleRate)
	}

	pcm := make([]float64, 0, total)
	phase := 0.0
	for _, step := range steps {
		inc := 2 * math.Pi * step.Frequency / float64(sampleRate)
		for range stepSamples(step, sampleRate) {
			if step.Frequency == 0 {
				pcm = append(pcm, 0)
				continue
			}
			pcm = append(pcm, step.Amplitude*math.Sin(phase))
			phase = math.Mod(phase+inc, 2*math.Pi)
		}
	}

	return &transcode.AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   time.Duration(float64(len(pcm)) / float64(sampleRate) * float64(time.Second)),
		Metadata: &transcode.AudioMetadata{
			Format:     "synthetic",
			SampleRate: sampleRate,
			Channels:   1,
		},
	}, nil
}

// NewToneSource creates a source that plays the synthesized steps once
func NewToneSource(steps []ToneStep, sampleRate, frameSize, hopSize int) (*BufferSource, error) {
	data, err := Render(steps, sampleRate)
	if err != nil {
		return nil, err
	}
	return NewAudioDataSource(data, frameSize, hopSize)
}

func stepSamples(step ToneStep, sampleRate int) int {
	return int(step.Duration.Seconds() * float64(sampleRate))
}

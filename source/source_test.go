package source

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/transcode"
)

func TestBufferSourceFrames(t *testing.T) {
	src, err := NewBufferSource([]float64{1, 2, 3, 4, 5, 6, 7}, 8000, 4, 2)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, src.Start(ctx))
	assert.Equal(t, 2, src.Remaining())

	frame, err := src.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, frame.Samples)
	assert.Equal(t, 8000, frame.SampleRate)

	frame, err = src.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5, 6}, frame.Samples)

	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, src.Remaining())

	// Restart replays from the beginning
	require.NoError(t, src.Stop())
	require.NoError(t, src.Start(ctx))
	frame, err = src.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, frame.Samples)
}

func TestBufferSourceHonoursContext(t *testing.T) {
	src, err := NewBufferSource(make([]float64, 16), 8000, 4, 4)
	require.NoError(t, err)
	require.NoError(t, src.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBufferSourceValidation(t *testing.T) {
	_, err := NewBufferSource(nil, 8000, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidFrameSize)

	_, err = NewBufferSource(nil, 8000, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidFrameSize)

	_, err = NewBufferSource(nil, 0, 4, 4)
	assert.Error(t, err)

	_, err = NewAudioDataSource(nil, 4, 4)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	data, err := Render([]ToneStep{
		{Frequency: 440, Duration: 100 * time.Millisecond, Amplitude: 0.5},
		{Frequency: 0, Duration: 50 * time.Millisecond, Amplitude: 0.5},
	}, 8000)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(1, data.Channels)
	assert.Equal(8000, data.SampleRate)
	assert.Len(data.PCM, 1200)

	peak := 0.0
	for _, v := range data.PCM[:800] {
		peak = max(peak, v)
	}
	assert.InDelta(0.5, peak, 0.01)

	for _, v := range data.PCM[800:] {
		assert.Equal(0.0, v)
	}
}

func TestRenderValidation(t *testing.T) {
	_, err := Render(nil, 8000)
	assert.Error(t, err)

	_, err = Render([]ToneStep{{Frequency: 440, Duration: time.Second}}, 0)
	assert.Error(t, err)

	_, err = Render([]ToneStep{{Frequency: 5000, Duration: time.Second}}, 8000)
	assert.Error(t, err)

	_, err = Render([]ToneStep{{Frequency: 440}}, 8000)
	assert.Error(t, err)
}

func TestToneSourceIsDetectable(t *testing.T) {
	src, err := NewToneSource([]ToneStep{{Frequency: 110, Duration: 200 * time.Millisecond, Amplitude: 0.8}}, 44100, 2048, 1024)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, src.Start(ctx))

	frame, err := src.NextFrame(ctx)
	require.NoError(t, err)

	estimate, err := tonal.NewAutocorrelationStrategy(tonal.DefaultEstimatorParams()).Estimate(frame)
	require.NoError(t, err)
	assert.InDelta(t, 110.0, estimate.Frequency, 1.0)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	data, err := Render([]ToneStep{{Frequency: 220, Duration: 100 * time.Millisecond, Amplitude: 0.5}}, 8000)
	require.NoError(t, err)
	require.NoError(t, transcode.WriteFile(path, data, 16))

	src, err := NewFileSource(path, 256, 128)
	require.NoError(t, err)
	assert.Equal(t, 0, src.SampleRate())

	ctx := context.Background()
	_, err = src.NextFrame(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, src.Start(ctx))
	assert.Equal(t, 8000, src.SampleRate())

	frames := 0
	for {
		_, err := src.NextFrame(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		frames++
	}
	// 800 samples, 256-sample frames every 128
	assert.Equal(t, 5, frames)
	assert.NoError(t, src.Stop())
}

func TestFileSourceMissingFileFailsStart(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "missing.wav"), 256, 128)
	require.NoError(t, err)

	assert.Error(t, src.Start(context.Background()))
	assert.NoError(t, src.Stop())
}

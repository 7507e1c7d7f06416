package tuner

import (
	"context"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
)

// AudioSource produces fixed-size frames for a session.
//
// Start acquires the underlying resource and may fail; a session never enters
// Listening when it does. NextFrame blocks until a frame is available and returns
// io.EOF once a finite source is exhausted. Stop releases the resource and must be
// safe to call after a failed Start.
type AudioSource interface {
	Start(ctx context.Context) error
	NextFrame(ctx context.Context) (tonal.AudioFrame, error)
	SampleRate() int
	Stop() error
}

package tuner

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/tuner/config"
)

const (
	testSampleRate = 44100
	testFrameSize  = 2048
)

func sine(freq float64) []float64 {
	samples := make([]float64, testFrameSize)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return samples
}

// scriptedSource plays back a fixed list of frames, then io.EOF. With loop set
// it repeats the list forever.
type scriptedSource struct {
	mu       sync.Mutex
	frames   [][]float64
	loop     bool
	startErr error
	pos      int
	starts   int
	stops    int
}

func (s *scriptedSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.pos = 0
	return s.startErr
}

func (s *scriptedSource) NextFrame(ctx context.Context) (tonal.AudioFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return tonal.AudioFrame{}, io.EOF
		}
		s.pos = 0
	}
	frame := s.frames[s.pos]
	s.pos++
	return tonal.AudioFrame{Samples: frame, SampleRate: testSampleRate}, nil
}

func (s *scriptedSource) SampleRate() int { return testSampleRate }

func (s *scriptedSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Render(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]EventKind, len(l.events))
	for i, e := range l.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (l *eventLog) last(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return Event{}, false
}

type brokenStrategy struct{}

func (brokenStrategy) Name() string { return "broken" }

func (brokenStrategy) Estimate(frame tonal.AudioFrame) (tonal.PitchEstimate, error) {
	return tonal.NoPitch, errors.New("backend unavailable")
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Estimator.Primary = tonal.StrategyAutocorrelation
	cfg.TickIntervalMs = 1
	return cfg
}

func newTestSession(t *testing.T, cfg *config.Config, src AudioSource, opts ...Option) (*Session, *eventLog) {
	t.Helper()

	events := &eventLog{}
	opts = append([]Option{
		WithLogger(&logging.NoOpLogger{}),
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	}, opts...)

	s, err := NewSession(cfg, src, events, opts...)
	require.NoError(t, err)
	return s, events
}

func chordFrames() [][]float64 {
	return [][]float64{sine(82.41), sine(110.0), sine(146.83)}
}

func TestSessionStartListening(t *testing.T) {
	src := &scriptedSource{}
	s, events := newTestSession(t, testConfig(), src)

	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Start(context.Background()))

	assert := assert.New(t)
	assert.Equal(StateListening, s.State())
	assert.NotEmpty(s.ID())
	assert.Equal([]EventKind{EventListening}, events.kinds())

	e, _ := events.last(EventListening)
	assert.Equal(s.ID(), e.SessionID)
	assert.Equal(time.Unix(1700000000, 0), e.Time)

	assert.ErrorIs(s.Start(context.Background()), ErrSessionActive)
}

func TestSessionFailedStartStaysIdle(t *testing.T) {
	startErr := errors.New("no input device")
	src := &scriptedSource{startErr: startErr}
	s, events := newTestSession(t, testConfig(), src)

	err := s.Start(context.Background())

	assert := assert.New(t)
	assert.ErrorIs(err, startErr)
	assert.Contains(err.Error(), "failed to start audio source")
	assert.Equal(StateIdle, s.State())
	assert.Empty(events.kinds())
	assert.ErrorIs(s.Tick(context.Background()), ErrSessionIdle)
}

func TestSessionDetectsNotesAndChord(t *testing.T) {
	src := &scriptedSource{frames: chordFrames()}
	s, events := newTestSession(t, testConfig(), src)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.Tick(ctx))
	note, ok := events.last(EventNote)
	require.True(t, ok)
	require.NotNil(t, note.Note)

	assert := assert.New(t)
	assert.Equal("E", note.Note.Reading.Label)
	assert.Equal(2, note.Note.Reading.Octave)
	assert.Equal(tonal.InTune, note.Note.Tuning)
	assert.Equal(tonal.StrategyAutocorrelation, note.Note.Strategy)
	require.NotNil(t, note.Note.String)
	assert.Equal(1, note.Note.String.String.Number)
	assert.Equal(1, note.Note.Stability.Readings)
	assert.Equal(0.0, note.Note.Stability.SpreadCents)

	chord, ok := events.last(EventChord)
	require.True(t, ok)
	assert.Equal(tonal.ChordTooFewSamples, chord.Chord.Status)

	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Tick(ctx))

	chord, _ = events.last(EventChord)
	assert.True(chord.Chord.Matched())
	assert.Equal("Em", chord.Chord.Name)
	assert.Equal(3, s.HistoryLen())

	// E2 +0.5, A2 -0.4 and D3 +2.0 cents
	note, _ = events.last(EventNote)
	assert.Equal(3, note.Note.Stability.Readings)
	assert.InDelta(0.7, note.Note.Stability.MeanCents, 0.2)
	assert.Greater(note.Note.Stability.SpreadCents, 0.5)
	assert.Less(note.Note.Stability.SpreadCents, 2.0)

	recent := s.RecentNotes(3)
	assert.Equal("E", recent[0].Label)
	assert.Equal("A", recent[1].Label)
	assert.Equal("D", recent[2].Label)

	assert.ErrorIs(s.Tick(ctx), io.EOF)
}

func TestSessionSilenceLeavesHistoryUntouched(t *testing.T) {
	src := &scriptedSource{frames: [][]float64{sine(110), make([]float64, testFrameSize)}}
	s, events := newTestSession(t, testConfig(), src)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Tick(ctx))
	require.NoError(t, s.Tick(ctx))

	assert.Equal(t, 1, s.HistoryLen())
	assert.Equal(t, []EventKind{EventListening, EventNote, EventChord, EventListening}, events.kinds())
}

func TestSessionOutOfBandIsIgnored(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFrequency = 100

	src := &scriptedSource{frames: [][]float64{sine(110)}}
	s, events := newTestSession(t, cfg, src)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Tick(ctx))

	assert.Equal(t, 0, s.HistoryLen())
	assert.Equal(t, []EventKind{EventListening, EventListening}, events.kinds())
}

func TestSessionStopClearsHistory(t *testing.T) {
	src := &scriptedSource{frames: chordFrames()}
	s, events := newTestSession(t, testConfig(), src)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Tick(ctx))
	require.Equal(t, 1, s.HistoryLen())

	require.NoError(t, s.Stop())

	assert := assert.New(t)
	assert.Equal(StateIdle, s.State())
	assert.Equal(0, s.HistoryLen())
	assert.Equal(1, src.stops)

	kinds := events.kinds()
	assert.Equal(EventIdle, kinds[len(kinds)-1])

	// Idempotent
	require.NoError(t, s.Stop())
	assert.Equal(1, src.stops)
	assert.Len(events.kinds(), len(kinds))
}

func TestSessionRestartResetsState(t *testing.T) {
	params := tonal.DefaultEstimatorParams()
	estimator := tonal.NewFrequencyEstimatorWithStrategies(brokenStrategy{}, tonal.NewAutocorrelationStrategy(params), params.MinFrameSize())

	src := &scriptedSource{frames: chordFrames()}
	s, _ := newTestSession(t, testConfig(), src, WithEstimator(estimator))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	firstID := s.ID()
	assert.Equal(t, "broken", s.ActiveStrategy())

	require.NoError(t, s.Tick(ctx))
	assert.Equal(t, tonal.StrategyAutocorrelation, s.ActiveStrategy())
	assert.Equal(t, 1, s.HistoryLen())

	require.NoError(t, s.Stop())
	require.NoError(t, s.Start(ctx))

	assert.Equal(t, "broken", s.ActiveStrategy())
	assert.Equal(t, 0, s.HistoryLen())
	assert.NotEqual(t, firstID, s.ID())
}

func TestSessionRunUntilEOF(t *testing.T) {
	src := &scriptedSource{frames: chordFrames()}
	s, events := newTestSession(t, testConfig(), src)

	require.NoError(t, s.Run(context.Background()))

	assert := assert.New(t)
	assert.Equal(StateIdle, s.State())
	assert.Equal(1, src.stops)

	chord, ok := events.last(EventChord)
	require.True(t, ok)
	assert.Equal("Em", chord.Chord.Name)

	kinds := events.kinds()
	assert.Equal(EventIdle, kinds[len(kinds)-1])
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	src := &scriptedSource{frames: [][]float64{make([]float64, testFrameSize)}, loop: true}
	s, _ := newTestSession(t, testConfig(), src)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionRunStopsOnStop(t *testing.T) {
	src := &scriptedSource{frames: [][]float64{make([]float64, testFrameSize)}, loop: true}
	s, _ := newTestSession(t, testConfig(), src)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return s.State() == StateListening }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionRunFailedStart(t *testing.T) {
	src := &scriptedSource{startErr: errors.New("busy")}
	s, _ := newTestSession(t, testConfig(), src)

	assert.Error(t, s.Run(context.Background()))
	assert.Equal(t, StateIdle, s.State())
}

func TestNewSessionValidation(t *testing.T) {
	_, err := NewSession(testConfig(), nil, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.HopSize = 0
	_, err = NewSession(cfg, &scriptedSource{}, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	s, err := NewSession(nil, &scriptedSource{}, nil, WithLogger(&logging.NoOpLogger{}))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), s.Config())
}

func TestEventKindText(t *testing.T) {
	text, err := EventChord.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "chord", string(text))
	assert.Equal(t, "listening", StateListening.String())
}

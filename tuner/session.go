package tuner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/tuner/config"
)

var (
	// ErrSessionActive is returned by Start on a session that is already listening
	ErrSessionActive = errors.New("session already listening")
	// ErrSessionIdle is returned by Tick on a session that is not listening
	ErrSessionIdle = errors.New("session not listening")
)

// State is the lifecycle state of a Session
type State int

const (
	StateIdle State = iota
	StateListening
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// Session is the detection loop: it pulls frames from an AudioSource, turns them
// into readings and chord matches, and pushes the results to a Display.
//
// Ticks and lifecycle transitions are serialized, so an in-flight tick always
// completes before Stop tears the session down. Display.Render runs while that
// serialization is held and must not call back into the session.
type Session struct {
	cfg        *config.Config
	source     AudioSource
	display    Display
	estimator  *tonal.FrequencyEstimator
	history    *tonal.NoteHistory
	recognizer *tonal.ChordRecognizer
	tuning     []tonal.GuitarString
	logger     logging.Logger
	now        func() time.Time

	mu     sync.Mutex
	state  State
	id     string
	stopCh chan struct{}
}

// Option customizes a Session
type Option func(*Session)

// WithEstimator replaces the estimator built from the configuration
func WithEstimator(estimator *tonal.FrequencyEstimator) Option {
	return func(s *Session) {
		if estimator != nil {
			s.estimator = estimator
		}
	}
}

// WithLogger replaces the session logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTuning replaces the reference strings used for nearest-string lookup
func WithTuning(tuning []tonal.GuitarString) Option {
	return func(s *Session) {
		s.tuning = tuning
	}
}

// NewSession creates an idle session. A nil display discards events.
func NewSession(cfg *config.Config, source AudioSource, display Display, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("audio source is required")
	}
	if display == nil {
		display = DisplayFunc(func(Event) {})
	}

	estimator, err := tonal.NewFrequencyEstimator(cfg.Estimator)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:        cfg,
		source:     source,
		display:    display,
		estimator:  estimator,
		history:    tonal.NewNoteHistory(cfg.HistoryCapacity),
		recognizer: tonal.NewChordRecognizer(cfg.Chords),
		tuning:     tonal.StandardTuning,
		logger: logging.WithFields(logging.Fields{
			"component": "tuner_session",
		}),
		now:   time.Now,
		state: StateIdle,
	}

	for _, opt := range opts {
		opt(s)
	}
	s.estimator.SetLogger(s.logger)

	return s, nil
}

// Start moves the session to Listening. History and the estimator breaker are
// reset first; if the source cannot start, the session stays Idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateListening {
		return ErrSessionActive
	}

	s.history.Clear()
	s.estimator.Reset()

	if err := s.source.Start(ctx); err != nil {
		s.logger.Error(err, "audio source failed to start")
		// Release anything the source acquired before failing
		if stopErr := s.source.Stop(); stopErr != nil {
			s.logger.Debug("audio source stop after failed start", logging.Fields{
				"error": stopErr.Error(),
			})
		}
		return fmt.Errorf("failed to start audio source: %w", err)
	}

	s.id = uuid.NewString()
	s.stopCh = make(chan struct{})
	s.state = StateListening

	s.logger.Info("session listening", logging.Fields{
		"session_id":  s.id,
		"sample_rate": s.source.SampleRate(),
		"strategy":    s.estimator.Active(),
	})

	s.emit(Event{Kind: EventListening})
	return nil
}

// Tick runs one detection iteration. io.EOF is returned once a finite source
// is exhausted.
func (s *Session) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateListening {
		return ErrSessionIdle
	}

	frame, err := s.source.NextFrame(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("failed to read audio frame: %w", err)
	}

	estimate := s.estimator.Estimate(frame)
	if !estimate.Voiced || !s.cfg.Accepts(estimate.Frequency) {
		s.emit(Event{Kind: EventListening})
		return nil
	}

	reading, ok := tonal.ToNote(estimate.Frequency)
	if !ok {
		s.emit(Event{Kind: EventListening})
		return nil
	}

	s.history.Push(reading)
	mean, spread := s.history.CentsSpread()

	detail := &NoteDetail{
		Reading:  reading,
		Tuning:   s.cfg.Tuning.Classify(reading.Cents),
		Needle:   tonal.NeedlePosition(reading.Cents),
		Strategy: estimate.Method,
		Stability: Stability{
			MeanCents:   mean,
			SpreadCents: spread,
			Readings:    s.history.Len(),
		},
	}
	if match, ok := tonal.NearestString(reading.Frequency, s.tuning); ok {
		detail.String = &match
	}
	s.emit(Event{Kind: EventNote, Note: detail})

	result := s.recognizer.Match(s.history)
	if result.Matched() {
		s.logger.Debug("chord matched", logging.Fields{
			"chord": result.Name,
			"score": result.Score,
		})
	}
	s.emit(Event{Kind: EventChord, Chord: &result})

	return nil
}

// Run starts the session and ticks it every TickInterval until ctx is done,
// Stop is called, or the source is exhausted. The session is always stopped
// on return. Cancellation and end of stream are not errors.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()

	s.mu.Lock()
	stopCh := s.stopCh
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("session cancelled")
			return nil
		case <-stopCh:
			return nil
		case <-ticker.C:
			err := s.Tick(ctx)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF):
				s.logger.Info("audio source exhausted")
				return nil
			case errors.Is(err, ErrSessionIdle):
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return err
			}
		}
	}
}

// Stop returns the session to Idle. It is safe to call more than once and
// from any goroutine.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return nil
	}

	close(s.stopCh)
	err := s.source.Stop()
	s.history.Clear()
	s.state = StateIdle

	s.logger.Info("session stopped", logging.Fields{
		"session_id": s.id,
	})
	s.emit(Event{Kind: EventIdle})

	if err != nil {
		return fmt.Errorf("failed to stop audio source: %w", err)
	}
	return nil
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the identifier of the current or most recent listening span
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// HistoryLen returns the number of readings currently held
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// RecentNotes returns up to k of the most recent readings, oldest first
func (s *Session) RecentNotes(k int) []tonal.NoteReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Recent(k)
}

// ActiveStrategy names the strategy that will serve the next frame
func (s *Session) ActiveStrategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.Active()
}

// Config returns the session configuration
func (s *Session) Config() *config.Config {
	return s.cfg
}

func (s *Session) emit(event Event) {
	event.SessionID = s.id
	event.Time = s.now()
	s.display.Render(event)
}

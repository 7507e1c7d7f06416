package display

import (
	"sync"

	"github.com/RyanBlaney/sonido-tuner/tuner"
)

// Recorder keeps every rendered event; tests and the file command use it
type Recorder struct {
	mu     sync.RWMutex
	events []tuner.Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Render implements tuner.Display
func (r *Recorder) Render(event tuner.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []tuner.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]tuner.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event of a kind
func (r *Recorder) Last(kind tuner.EventKind) (tuner.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return tuner.Event{}, false
}

// Reset discards recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans events out to several displays in order
type Multi []tuner.Display

// Render implements tuner.Display
func (m Multi) Render(event tuner.Event) {
	for _, d := range m {
		if d != nil {
			d.Render(event)
		}
	}
}

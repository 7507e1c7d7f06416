package tuner

import (
	"time"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
)

// EventKind identifies the payload of an Event
type EventKind int

const (
	// EventIdle: the session is not listening
	EventIdle EventKind = iota
	// EventListening: listening, but the current frame carried no usable note
	EventListening
	// EventNote: a note was detected
	EventNote
	// EventChord: the result of chord recognition for the tick's note
	EventChord
)

func (k EventKind) String() string {
	switch k {
	case EventIdle:
		return "idle"
	case EventListening:
		return "listening"
	case EventNote:
		return "note"
	case EventChord:
		return "chord"
	default:
		return "unknown"
	}
}

// MarshalText lets the kind appear by name in JSON payloads
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Stability summarizes the cents deviation across the readings held in history
type Stability struct {
	MeanCents   float64 `json:"mean_cents"`
	SpreadCents float64 `json:"spread_cents"` // Sample standard deviation
	Readings    int     `json:"readings"`
}

// NoteDetail decorates a reading with its tuning presentation
type NoteDetail struct {
	Reading   tonal.NoteReading  `json:"reading"`
	Tuning    tonal.TuningState  `json:"tuning"`
	Needle    float64            `json:"needle"`
	String    *tonal.StringMatch `json:"string,omitempty"`
	Strategy  string             `json:"strategy"`
	Stability Stability          `json:"stability"`
}

// Event is one value pushed to a Display
type Event struct {
	Kind      EventKind               `json:"kind"`
	SessionID string                  `json:"session_id"`
	Time      time.Time               `json:"time"`
	Note      *NoteDetail             `json:"note,omitempty"`
	Chord     *tonal.ChordMatchResult `json:"chord,omitempty"`
}

// Display consumes detection results. Render is called from the session's
// goroutine and should not block for longer than a tick.
type Display interface {
	Render(event Event)
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(event Event)

// Render calls f(event)
func (f DisplayFunc) Render(event Event) {
	f(event)
}

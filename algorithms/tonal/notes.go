package tonal

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
)

const (
	// ReferenceA4 is the tuning reference in Hz
	ReferenceA4 = 440.0
	// ReferenceA4Semitone is the absolute semitone number of A4 (MIDI numbering)
	ReferenceA4Semitone = 69
	// ReferenceA0 anchors octave 0 for note ids such as "E2"
	ReferenceA0 = 27.5
	// MinMappableFrequency is the floor below which no note is reported
	MinMappableFrequency = 20.0
)

// NoteNamesUS labels pitch classes 0-11, C first
var NoteNamesUS = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteNamesLocalized labels pitch classes 0-11 in fixed-do solfège, C first
var NoteNamesLocalized = [12]string{"Do", "Do#", "Ré", "Ré#", "Mi", "Fa", "Fa#", "Sol", "Sol#", "La", "La#", "Si"}

// ErrInvalidNoteID is returned for note ids that are not a note name followed by one octave digit
var ErrInvalidNoteID = errors.New("invalid note id")

// NoteReading is a frequency resolved to the nearest equal-tempered semitone
type NoteReading struct {
	PitchClass     int     `json:"pitch_class"`     // 0=C ... 11=B
	Cents          int     `json:"cents"`           // Rounded deviation, [-50, 50]
	Deviation      float64 `json:"deviation"`       // Unrounded deviation in cents
	Semitone       int     `json:"semitone"`        // Absolute semitone number, 69 = A4
	Octave         int     `json:"octave"`          // Scientific pitch octave
	Frequency      float64 `json:"frequency"`       // Originating frequency in Hz
	Label          string  `json:"label"`           // US label
	LocalizedLabel string  `json:"localized_label"` // Solfège label
}

// ID returns the note id, e.g. "E2"
func (n NoteReading) ID() string {
	return fmt.Sprintf("%s%d", n.Label, n.Octave)
}

// ToNote maps a frequency to its nearest semitone and cents deviation,
// both derived from a single continuous semitone number.
func ToNote(freq float64) (NoteReading, bool) {
	if !common.IsFinite(freq) || freq < MinMappableFrequency {
		return NoteReading{}, false
	}

	n := 12*math.Log2(freq/ReferenceA4) + ReferenceA4Semitone
	k := common.RoundHalfUp(n)
	deviation := (n - k) * 100
	semitone := int(k)
	pitchClass := ((semitone % 12) + 12) % 12

	return NoteReading{
		PitchClass:     pitchClass,
		Cents:          int(common.RoundHalfUp(deviation)),
		Deviation:      deviation,
		Semitone:       semitone,
		Octave:         floorDiv(semitone, 12) - 1,
		Frequency:      freq,
		Label:          NoteNamesUS[pitchClass],
		LocalizedLabel: NoteNamesLocalized[pitchClass],
	}, true
}

// FrequencyFromReading reconstructs the frequency a reading was derived from
func FrequencyFromReading(r NoteReading) float64 {
	return ReferenceA4 * math.Pow(2, (float64(r.Semitone-ReferenceA4Semitone)+r.Deviation/100)/12)
}

// NoteNameToFreq converts a note id such as "E2" or "C#3" to Hz, anchored on A0 = 27.5 Hz
func NoteNameToFreq(id string) (float64, error) {
	pitchClass, octave, err := ParseNoteID(id)
	if err != nil {
		return 0, err
	}

	semitones := float64(pitchClass - 9)
	return ReferenceA0 * math.Pow(2, float64(octave)+semitones/12), nil
}

// ParseNoteID splits a note id into pitch class and octave
func ParseNoteID(id string) (pitchClass, octave int, err error) {
	if len(id) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidNoteID, id)
	}

	name := id[:len(id)-1]
	octave, err = strconv.Atoi(id[len(id)-1:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidNoteID, id)
	}

	pitchClass = PitchClassOf(name)
	if pitchClass < 0 {
		return 0, 0, fmt.Errorf("%w: unknown note name %q", ErrInvalidNoteID, name)
	}

	return pitchClass, octave, nil
}

// PitchClassOf returns the pitch class of a US note name, or -1
func PitchClassOf(name string) int {
	for i, n := range NoteNamesUS {
		if n == name {
			return i
		}
	}
	return -1
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

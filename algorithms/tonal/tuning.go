package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
)

// TuningState classifies how far a reading is from its nearest semitone
type TuningState int

const (
	InTune TuningState = iota
	SlightlyOff
	FarOff
)

func (s TuningState) String() string {
	switch s {
	case InTune:
		return "in_tune"
	case SlightlyOff:
		return "slightly_off"
	case FarOff:
		return "far_off"
	default:
		return "unknown"
	}
}

// MarshalText lets the state appear by name in JSON payloads
func (s TuningState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TuningParams holds the cents thresholds for Classify
type TuningParams struct {
	InTuneCents      int `json:"in_tune_cents"`
	SlightlyOffCents int `json:"slightly_off_cents"`
}

// DefaultTuningParams returns the thresholds of the reference tuner UI
func DefaultTuningParams() TuningParams {
	return TuningParams{
		InTuneCents:      5,
		SlightlyOffCents: 20,
	}
}

// Classify places a cents deviation into a TuningState
func (p TuningParams) Classify(cents int) TuningState {
	abs := cents
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs <= p.InTuneCents:
		return InTune
	case abs <= p.SlightlyOffCents:
		return SlightlyOff
	default:
		return FarOff
	}
}

// NeedlePosition maps cents to a 2-98 percent needle offset, 50 being centered
func NeedlePosition(cents int) float64 {
	return common.Clamp(50+float64(cents)/100*50, 2, 98)
}

// GuitarString is one string of the six-string reference set
type GuitarString struct {
	Number         int     `json:"number"` // 1 = low E
	NoteID         string  `json:"note_id"`
	Label          string  `json:"label"`
	LocalizedLabel string  `json:"localized_label"`
	Frequency      float64 `json:"frequency"`
}

// StandardTuning is the six-string reference set, lowest string first
var StandardTuning = []GuitarString{
	{Number: 1, NoteID: "E2", Label: "E", LocalizedLabel: "Mi", Frequency: 82.41},
	{Number: 2, NoteID: "A2", Label: "A", LocalizedLabel: "La", Frequency: 110.00},
	{Number: 3, NoteID: "D3", Label: "D", LocalizedLabel: "Ré", Frequency: 146.83},
	{Number: 4, NoteID: "G3", Label: "G", LocalizedLabel: "Sol", Frequency: 196.00},
	{Number: 5, NoteID: "B3", Label: "B", LocalizedLabel: "Si", Frequency: 246.94},
	{Number: 6, NoteID: "E4", Label: "e", LocalizedLabel: "Mi", Frequency: 329.63},
}

// StringMatch is the nearest reference string for a frequency
type StringMatch struct {
	String GuitarString `json:"string"`
	Cents  float64      `json:"cents"` // Offset from the string's target, positive = sharp
}

// NearestString finds the reference string closest to freq in cents
func NearestString(freq float64, tuning []GuitarString) (StringMatch, bool) {
	if len(tuning) == 0 || !common.IsFinite(freq) || freq <= 0 {
		return StringMatch{}, false
	}

	best := StringMatch{Cents: math.Inf(1)}
	for _, s := range tuning {
		cents := 1200 * math.Log2(freq/s.Frequency)
		if math.Abs(cents) < math.Abs(best.Cents) {
			best = StringMatch{String: s, Cents: cents}
		}
	}

	return best, true
}

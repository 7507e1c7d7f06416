package tonal

import (
	"fmt"
	"math"
)

// ChordStatus distinguishes why a match did or did not happen
type ChordStatus int

const (
	ChordTooFewSamples ChordStatus = iota
	ChordNoMatch
	ChordMatched
)

func (s ChordStatus) String() string {
	switch s {
	case ChordTooFewSamples:
		return "too_few_samples"
	case ChordNoMatch:
		return "no_match"
	case ChordMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// MarshalText lets the status appear by name in JSON payloads
func (s ChordStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ChordFingerprint is a named chord shape over the three lowest strings
type ChordFingerprint struct {
	Name      string    `json:"name"`
	Notes     [3]string `json:"notes"`     // Note ids, lowest string first
	Tolerance float64   `json:"tolerance"` // Cents
}

// ChordMatchResult is the outcome of one recognition pass
type ChordMatchResult struct {
	Status      ChordStatus       `json:"status"`
	Name        string            `json:"name,omitempty"`
	Score       float64           `json:"score"`
	Fingerprint *ChordFingerprint `json:"fingerprint,omitempty"`
}

// Matched reports whether a fingerprint was accepted
func (r ChordMatchResult) Matched() bool {
	return r.Status == ChordMatched
}

// DefaultChordCatalog returns the open-position shapes, strings 6-5-4
func DefaultChordCatalog() []ChordFingerprint {
	return []ChordFingerprint{
		{Name: "Em", Notes: [3]string{"E2", "A2", "D3"}, Tolerance: 8},
		{Name: "Am", Notes: [3]string{"E2", "A2", "C3"}, Tolerance: 8},
		{Name: "G", Notes: [3]string{"E2", "B2", "G3"}, Tolerance: 8},
		{Name: "D", Notes: [3]string{"D2", "A2", "D3"}, Tolerance: 8},
		{Name: "A", Notes: [3]string{"E2", "A2", "E3"}, Tolerance: 8},
		{Name: "E", Notes: [3]string{"E2", "B2", "E3"}, Tolerance: 8},
		{Name: "C", Notes: [3]string{"E2", "G2", "C3"}, Tolerance: 8},
	}
}

// ChordParams contains parameters for chord recognition
type ChordParams struct {
	MinScore         float64            `json:"min_score"`          // Total a fingerprint must exceed
	ToleranceFactor  float64            `json:"tolerance_factor"`   // Multiplier on each fingerprint's tolerance
	StrictPitchClass bool               `json:"strict_pitch_class"` // Also require the expected pitch class per position
	Catalog          []ChordFingerprint `json:"catalog"`
}

// DefaultChordParams returns the reference thresholds and catalog
func DefaultChordParams() ChordParams {
	return ChordParams{
		MinScore:        1.5,
		ToleranceFactor: 2,
		Catalog:         DefaultChordCatalog(),
	}
}

// Validate checks every catalog entry resolves to frequencies
func (p ChordParams) Validate() error {
	if p.ToleranceFactor <= 0 {
		return fmt.Errorf("tolerance_factor must be positive, got %g", p.ToleranceFactor)
	}
	for _, fp := range p.Catalog {
		if fp.Name == "" {
			return fmt.Errorf("chord fingerprint with notes %v has no name", fp.Notes)
		}
		if fp.Tolerance <= 0 {
			return fmt.Errorf("chord %s: tolerance must be positive, got %g", fp.Name, fp.Tolerance)
		}
		for _, id := range fp.Notes {
			if _, err := NoteNameToFreq(id); err != nil {
				return fmt.Errorf("chord %s: %w", fp.Name, err)
			}
		}
	}
	return nil
}

// chordPosition is a catalog note resolved once at construction
type chordPosition struct {
	expected NoteReading
	valid    bool
}

// ChordRecognizer matches the three most recent readings against a catalog.
// Positions are compared in order (lowest string first), not combinatorially.
type ChordRecognizer struct {
	params    ChordParams
	positions [][3]chordPosition
}

// NewChordRecognizer creates a recognizer over params.Catalog
func NewChordRecognizer(params ChordParams) *ChordRecognizer {
	cr := &ChordRecognizer{
		params:    params,
		positions: make([][3]chordPosition, len(params.Catalog)),
	}

	for i, fp := range params.Catalog {
		for j, id := range fp.Notes {
			freq, err := NoteNameToFreq(id)
			if err != nil {
				continue
			}
			expected, ok := ToNote(freq)
			cr.positions[i][j] = chordPosition{expected: expected, valid: ok}
		}
	}

	return cr
}

// Match scores every fingerprint and returns the best one above MinScore
func (cr *ChordRecognizer) Match(view NoteView) ChordMatchResult {
	if view == nil || view.Len() < 3 {
		return ChordMatchResult{Status: ChordTooFewSamples}
	}

	recent := view.Recent(3)
	observed := make([]NoteReading, len(recent))
	mapped := make([]bool, len(recent))
	for i, r := range recent {
		observed[i], mapped[i] = ToNote(r.Frequency)
	}

	bestIdx := -1
	bestScore := 0.0

	for i, fp := range cr.params.Catalog {
		limit := fp.Tolerance * cr.params.ToleranceFactor
		score := 0.0

		for j, pos := range cr.positions[i] {
			if !pos.valid || !mapped[j] {
				continue
			}
			if cr.params.StrictPitchClass && observed[j].PitchClass != pos.expected.PitchClass {
				continue
			}

			diff := math.Abs(float64(observed[j].Cents))
			if diff < limit {
				score += (100 - diff) / 100
			}
		}

		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore <= cr.params.MinScore {
		return ChordMatchResult{Status: ChordNoMatch, Score: bestScore}
	}

	fp := cr.params.Catalog[bestIdx]
	return ChordMatchResult{
		Status:      ChordMatched,
		Name:        fp.Name,
		Score:       bestScore,
		Fingerprint: &fp,
	}
}

// Catalog returns a copy of the recognizer's fingerprints
func (cr *ChordRecognizer) Catalog() []ChordFingerprint {
	out := make([]ChordFingerprint, len(cr.params.Catalog))
	copy(out, cr.params.Catalog)
	return out
}

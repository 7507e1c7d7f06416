package tonal

import (
	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
)

// DefaultHistoryCapacity is the number of readings kept for chord recognition
const DefaultHistoryCapacity = 10

// NoteView is the read-only face of a NoteHistory
type NoteView interface {
	Len() int
	Recent(k int) []NoteReading
}

// NoteHistory is a bounded, oldest-first record of recent readings
type NoteHistory struct {
	ring *common.Ring[NoteReading]
}

// NewNoteHistory creates a history holding at most capacity readings
func NewNoteHistory(capacity int) *NoteHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &NoteHistory{ring: common.NewRing[NoteReading](capacity)}
}

// Push appends a reading, evicting the oldest once full
func (h *NoteHistory) Push(reading NoteReading) {
	h.ring.Push(reading)
}

// Clear empties the history
func (h *NoteHistory) Clear() {
	h.ring.Clear()
}

// Recent returns the k most recent readings in chronological order
func (h *NoteHistory) Recent(k int) []NoteReading {
	return h.ring.Last(k)
}

// Len returns the number of readings held
func (h *NoteHistory) Len() int {
	return h.ring.Len()
}

// Cap returns the capacity
func (h *NoteHistory) Cap() int {
	return h.ring.Cap()
}

// CentsSpread returns the mean and sample standard deviation of the held
// readings' unrounded cents. The spread is 0 with fewer than two readings.
func (h *NoteHistory) CentsSpread() (mean, stddev float64) {
	readings := h.ring.Last(h.ring.Len())
	if len(readings) == 0 {
		return 0, 0
	}

	cents := make([]float64, len(readings))
	for i, r := range readings {
		cents[i] = r.Deviation
	}

	return common.Mean(cents), common.StandardDeviation(cents)
}

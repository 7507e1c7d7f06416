package windowing

import (
	"fmt"
	"math"
)

// Hann is a Hann (raised cosine) window with precomputed coefficients
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
	sum          float64
}

// NewHann creates a new Hann window
func NewHann(size int, symmetric bool) *Hann {
	h := &Hann{
		size:      size,
		symmetric: symmetric,
	}
	h.generate()
	return h
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)
	h.sum = 0

	if h.size == 1 {
		h.coefficients[0] = 1.0
		h.sum = 1.0
		return
	}

	denominator := float64(h.size)
	if h.symmetric {
		denominator = float64(h.size - 1)
	}

	for i := range h.size {
		c := 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
		h.coefficients[i] = c
		h.sum += c
	}
}

// ApplyPadded writes the windowed signal into dst and zeroes the remainder of dst.
// dst must be at least as long as the window.
func (h *Hann) ApplyPadded(signal, dst []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}
	if len(dst) < h.size {
		return fmt.Errorf("destination length (%d) shorter than window size (%d)", len(dst), h.size)
	}

	for i := 0; i < h.size; i++ {
		dst[i] = signal[i] * h.coefficients[i]
	}
	for i := h.size; i < len(dst); i++ {
		dst[i] = 0
	}

	return nil
}

// Sum returns the sum of all coefficients (the window's coherent gain times its size)
func (h *Hann) Sum() float64 {
	return h.sum
}

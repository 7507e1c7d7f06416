package common

// Ring is a fixed-capacity FIFO that overwrites its oldest element once full
type Ring[T any] struct {
	buffer   []T
	size     int
	writePos int
	count    int
}

// NewRing creates a new ring with the given capacity (minimum 1)
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{
		buffer: make([]T, size),
		size:   size,
	}
}

// Push appends an element, evicting the oldest one when the ring is full
func (r *Ring[T]) Push(value T) {
	r.buffer[r.writePos] = value
	r.writePos = (r.writePos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Last returns up to k of the most recently pushed elements, oldest first
func (r *Ring[T]) Last(k int) []T {
	if k > r.count {
		k = r.count
	}
	if k <= 0 {
		return []T{}
	}

	out := make([]T, k)
	start := (r.writePos - k + r.size) % r.size
	for i := range k {
		out[i] = r.buffer[(start+i)%r.size]
	}
	return out
}

// Len returns the number of stored elements
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return r.size
}

// Clear empties the ring
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buffer {
		r.buffer[i] = zero
	}
	r.writePos = 0
	r.count = 0
}

// SlidingWindow turns an arbitrary stream of sample blocks into fixed-size frames
// that always hold the most recent windowSize samples.
type SlidingWindow struct {
	buffer     []float64
	windowSize int
	hopSize    int
	sinceFrame int
}

// NewSlidingWindow creates a new sliding window
func NewSlidingWindow(windowSize, hopSize int) *SlidingWindow {
	if hopSize <= 0 || hopSize > windowSize {
		hopSize = windowSize
	}
	return &SlidingWindow{
		buffer:     make([]float64, 0, 2*windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}
}

// AddSamples adds samples and returns every frame completed by them
func (sw *SlidingWindow) AddSamples(samples []float64) [][]float64 {
	var frames [][]float64

	for _, sample := range samples {
		sw.buffer = append(sw.buffer, sample)
		sw.sinceFrame++

		if len(sw.buffer) >= sw.windowSize && sw.sinceFrame >= sw.hopSize {
			frame := make([]float64, sw.windowSize)
			copy(frame, sw.buffer[len(sw.buffer)-sw.windowSize:])
			frames = append(frames, frame)
			sw.sinceFrame = 0
		}

		// Only the trailing window is ever needed
		if len(sw.buffer) == cap(sw.buffer) {
			sw.trim()
		}
	}
	sw.trim()

	return frames
}

func (sw *SlidingWindow) trim() {
	if len(sw.buffer) <= sw.windowSize {
		return
	}
	n := copy(sw.buffer, sw.buffer[len(sw.buffer)-sw.windowSize:])
	sw.buffer = sw.buffer[:n]
}

// Reset clears the sliding window
func (sw *SlidingWindow) Reset() {
	sw.buffer = sw.buffer[:0]
	sw.sinceFrame = 0
}

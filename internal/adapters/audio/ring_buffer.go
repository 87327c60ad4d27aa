// Package audio holds the capture pipeline pieces that need no sound
// hardware: pre-roll buffering, spectral-flux voice activity detection and
// WAV encoding.
package audio

// RingBuffer keeps the most recent samples seen before speech was detected,
// so the first syllable is not lost when capture starts.
type RingBuffer struct {
	buffer []int16
	head   int
	filled int
}

// NewRingBuffer creates a ring buffer holding up to size samples.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{buffer: make([]int16, size)}
}

// Add appends samples, overwriting the oldest once full.
func (r *RingBuffer) Add(samples []int16) {
	if len(r.buffer) == 0 {
		return
	}

	for _, s := range samples {
		r.buffer[r.head] = s
		r.head = (r.head + 1) % len(r.buffer)
	}

	r.filled = min(r.filled+len(samples), len(r.buffer))
}

// Read returns the buffered samples oldest first.
func (r *RingBuffer) Read() []int16 {
	samples := make([]int16, r.filled)
	start := (r.head - r.filled + len(r.buffer)) % max(len(r.buffer), 1)

	for i := range r.filled {
		samples[i] = r.buffer[(start+i)%len(r.buffer)]
	}

	return samples
}

// Len returns the number of buffered samples.
func (r *RingBuffer) Len() int { return r.filled }

// Clear drops all buffered samples.
func (r *RingBuffer) Clear() {
	clear(r.buffer)
	r.head = 0
	r.filled = 0
}

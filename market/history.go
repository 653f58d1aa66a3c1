package market

import "time"

// Observation records one cycle's view of a market.
type Observation struct {
	Microprice float64
	Ts         time.Time
}

// History is a fixed-capacity ring of per-cycle observations, oldest
// evicted first. Each market's processing owns its history exclusively,
// so there is no locking here.
type History struct {
	buf  []Observation
	head int
	n    int
}

// NewHistory creates a history holding at most capacity observations.
func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = 2
	}
	return &History{buf: make([]Observation, capacity)}
}

// Push appends an observation, evicting the oldest when full.
func (h *History) Push(o Observation) {
	idx := (h.head + h.n) % len(h.buf)
	h.buf[idx] = o
	if h.n < len(h.buf) {
		h.n++
	} else {
		h.head = (h.head + 1) % len(h.buf)
	}
}

// Len returns the number of stored observations.
func (h *History) Len() int { return h.n }

// At returns the i-th observation, oldest first.
func (h *History) At(i int) Observation {
	return h.buf[(h.head+i)%len(h.buf)]
}

// Last returns the most recent observation.
func (h *History) Last() (Observation, bool) {
	if h.n == 0 {
		return Observation{}, false
	}
	return h.At(h.n - 1), true
}

// Microprices copies the stored microprice series, oldest first.
func (h *History) Microprices() []float64 {
	out := make([]float64, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.At(i).Microprice
	}
	return out
}

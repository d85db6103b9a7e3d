package metrics

import "sync"

// DefaultHistorySize is the number of samples retained in memory
const DefaultHistorySize = 1000

// History is a bounded in-memory window of samples.
// When full, appending evicts the oldest sample.
type History struct {
	mu    sync.RWMutex
	buf   []Sample
	start int // index of the oldest sample
	size  int
}

// NewHistory creates a history holding at most capacity samples
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]Sample, capacity)}
}

// Append adds s as the newest sample
func (h *History) Append(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = s
		h.size++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// Recent returns up to limit most recent samples in chronological order.
// A limit <= 0 or larger than the stored count returns everything.
func (h *History) Recent(limit int) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.size
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Sample, n)
	first := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.start+first+i)%len(h.buf)]
	}
	return out
}

// Latest returns the newest sample
func (h *History) Latest() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.size == 0 {
		return Sample{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}

// Len returns the number of stored samples
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the maximum number of stored samples
func (h *History) Cap() int {
	return len(h.buf)
}

// Clear drops every stored sample
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.buf)
	h.start, h.size = 0, 0
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// DefaultTrackerWindow is the trailing window request performance is computed over
const DefaultTrackerWindow = time.Minute

// request is one observed request
type request struct {
	at          time.Time
	duration    time.Duration
	failed      bool // 5xx or transport error
	unavailable bool // 502/503/504 or timeout
}

// RequestTracker records served requests and derives performance over a
// trailing window. It implements PerformanceSource.
type RequestTracker struct {
	mu       sync.Mutex
	window   time.Duration
	requests []request
	now      func() time.Time
}

// NewRequestTracker creates a tracker; window <= 0 uses DefaultTrackerWindow
func NewRequestTracker(window time.Duration) *RequestTracker {
	if window <= 0 {
		window = DefaultTrackerWindow
	}
	return &RequestTracker{window: window, now: time.Now}
}

// Record records one finished request
func (t *RequestTracker) Record(duration time.Duration, status int, err error) {
	r := request{
		duration:    duration,
		failed:      err != nil || status >= http.StatusInternalServerError,
		unavailable: isUnavailable(status, err),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	r.at = t.now()
	t.requests = append(t.requests, r)
	t.prune(r.at)
}

// Performance implements PerformanceSource.
// An empty window reports full availability and no errors.
func (t *RequestTracker) Performance(_ context.Context) (Performance, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)

	n := len(t.requests)
	if n == 0 {
		return DefaultPerformance(), nil
	}

	var (
		total       time.Duration
		failed      int
		unavailable int
	)
	for _, r := range t.requests {
		total += r.duration
		if r.failed {
			failed++
		}
		if r.unavailable {
			unavailable++
		}
	}

	return Performance{
		ResponseTime: float64(total.Milliseconds()) / float64(n),
		Throughput:   float64(n) / t.window.Seconds(),
		ErrorRate:    float64(failed) / float64(n),
		Availability: 1 - float64(unavailable)/float64(n),
	}, nil
}

// Len returns the number of requests in the window
func (t *RequestTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.requests)
}

// Reset drops every recorded request
func (t *RequestTracker) Reset() {
	t.mu.Lock()
	t.requests = nil
	t.mu.Unlock()
}

// prune drops requests older than the window; caller holds mu
func (t *RequestTracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.requests) && t.requests[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.requests = append(t.requests[:0], t.requests[i:]...)
	}
}

func isUnavailable(status int, err error) bool {
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || isTimeout(err)) {
		return true
	}
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

package health

import (
	"maps"
	"time"
)

// Status is the tri-state health of a service
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusDegraded, StatusDown:
		return true
	}
	return false
}

// Rank orders statuses by severity, healthy lowest
func (s Status) Rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusDown:
		return 2
	}
	return -1
}

// Result is the outcome of one probe run
type Result struct {
	Service      string         `json:"service"`
	Status       Status         `json:"status"`
	ResponseTime int64          `json:"response_time"` // milliseconds
	LastCheck    time.Time      `json:"last_check"`
	Details      map[string]any `json:"details,omitempty"`
}

// Clone returns a copy that shares no mutable state with r
func (r Result) Clone() Result {
	r.Details = maps.Clone(r.Details)
	return r
}

// Down builds a down result carrying err in its details
func Down(err error) Result {
	return Result{Status: StatusDown, Details: map[string]any{"error": err.Error()}}
}

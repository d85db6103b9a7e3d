package alert

import (
	"maps"
	"time"
)

// Type classifies an alert
type Type string

const (
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Severity ranks an alert
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether t is a known alert type
func (t Type) Valid() bool {
	switch t {
	case TypeError, TypeWarning, TypeInfo:
		return true
	}
	return false
}

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alert is a record of a detected abnormal condition
type Alert struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Severity   Severity       `json:"severity"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Timestamp  time.Time      `json:"timestamp"`
	Source     string         `json:"source"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Resolved   bool           `json:"resolved"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

// clone returns a copy that shares no mutable state with a
func (a *Alert) clone() Alert {
	c := *a
	c.Metadata = maps.Clone(a.Metadata)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}

package alert

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/ncobase/pulse/ecode"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/utils/nanoid"
)

// DefaultCapacity is the number of alerts retained in memory
const DefaultCapacity = 100

// Config represents engine configuration
type Config struct {
	Capacity int           // maximum number of retained alerts
	Cooldown time.Duration // minimum gap between two firings of one rule, 0 disables
	Rules    []Rule        // threshold rules, DefaultRules when empty
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Capacity: DefaultCapacity,
		Rules:    DefaultRules(),
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return errors.New(ecode.FieldIsInvalid("alert capacity"))
	}
	if c.Cooldown < 0 {
		return errors.New(ecode.FieldIsInvalid("alert cooldown"))
	}
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Engine is the single authority for alert creation and resolution.
// Alerts are kept newest-first in a bounded list.
type Engine struct {
	mu        sync.RWMutex
	alerts    []*Alert
	capacity  int
	cooldown  time.Duration
	rules     []Rule
	lastFired map[string]time.Time

	publisher event.Publisher
	newID     func() string
	now       func() time.Time
}

// NewEngine creates a new alert engine publishing through publisher
func NewEngine(cfg *Config, publisher event.Publisher) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid alert config: %w", err)
	}

	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	return &Engine{
		alerts:    make([]*Alert, 0, cfg.Capacity),
		capacity:  cfg.Capacity,
		cooldown:  cfg.Cooldown,
		rules:     rules,
		lastFired: make(map[string]time.Time),
		publisher: publisher,
		newID:     nanoid.PrimaryKeyFunc(),
		now:       time.Now,
	}, nil
}

// Create records a new alert and publishes it. It always succeeds.
// No deduplication against open alerts is performed.
func (e *Engine) Create(typ Type, severity Severity, title, message, source string, metadata map[string]any) Alert {
	a := &Alert{
		ID:        e.newID(),
		Type:      typ,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: e.now(),
		Source:    source,
		Metadata:  maps.Clone(metadata),
	}

	e.mu.Lock()
	e.alerts = append(e.alerts, nil)
	copy(e.alerts[1:], e.alerts)
	e.alerts[0] = a
	if len(e.alerts) > e.capacity {
		e.alerts[len(e.alerts)-1] = nil
		e.alerts = e.alerts[:e.capacity]
	}
	created := a.clone()
	e.mu.Unlock()

	logger.WithComponent(context.Background(), "alert").
		WithField("severity", severity).
		WithField("source", source).
		Warnf("alert raised: %s", title)

	e.publish(event.TypeAlert, created)
	return created
}

// Resolve marks the alert with id as resolved.
// It returns false if no unresolved alert with that id exists.
func (e *Engine) Resolve(id string) bool {
	e.mu.Lock()
	var resolved *Alert
	for _, a := range e.alerts {
		if a.ID == id {
			if !a.Resolved {
				now := e.now()
				a.Resolved = true
				a.ResolvedAt = &now
				resolved = a
			}
			break
		}
	}
	var snapshot Alert
	if resolved != nil {
		snapshot = resolved.clone()
	}
	e.mu.Unlock()

	if resolved == nil {
		return false
	}

	e.publish(event.TypeAlertResolved, snapshot)
	return true
}

// List returns the alerts newest-first, optionally without resolved ones
func (e *Engine) List(includeResolved bool) []Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if !includeResolved && a.Resolved {
			continue
		}
		out = append(out, a.clone())
	}
	return out
}

// Get returns the alert with id
func (e *Engine) Get(id string) (Alert, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, a := range e.alerts {
		if a.ID == id {
			return a.clone(), true
		}
	}
	return Alert{}, false
}

// Len returns the number of retained alerts
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.alerts)
}

// Rules returns the configured threshold rules
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Reset drops every retained alert
func (e *Engine) Reset() {
	e.mu.Lock()
	e.alerts = make([]*Alert, 0, e.capacity)
	e.lastFired = make(map[string]time.Time)
	e.mu.Unlock()
}

func (e *Engine) publish(eventType string, a Alert) {
	if e.publisher != nil {
		e.publisher.Publish(eventType, a)
	}
}

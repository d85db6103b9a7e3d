package alert

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ncobase/pulse/ecode"
)

// Readings exposes named numeric values to threshold rules
type Readings interface {
	Reading(metric string) (float64, bool)
}

// Operator compares a reading with a threshold
type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Unit controls how values are rendered in alert messages
type Unit string

const (
	UnitRatio  Unit = "ratio"
	UnitMillis Unit = "ms"
	UnitNone   Unit = ""
)

// Rule is a fixed threshold over one metric
type Rule struct {
	Name      string   `json:"name" yaml:"name"`
	Metric    string   `json:"metric" yaml:"metric"`
	Operator  Operator `json:"operator" yaml:"operator"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
	Type      Type     `json:"type" yaml:"type"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Title     string   `json:"title" yaml:"title"`
	Unit      Unit     `json:"unit" yaml:"unit"`
}

// DefaultRules returns the built-in threshold rules
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "high_error_rate",
			Metric:    "error_rate",
			Operator:  OpGreater,
			Threshold: 0.05,
			Type:      TypeError,
			Severity:  SeverityHigh,
			Title:     "High Error Rate",
			Unit:      UnitRatio,
		},
		{
			Name:      "slow_response_time",
			Metric:    "response_time",
			Operator:  OpGreater,
			Threshold: 5000,
			Type:      TypeWarning,
			Severity:  SeverityMedium,
			Title:     "Slow Response Time",
			Unit:      UnitMillis,
		},
		{
			Name:      "low_availability",
			Metric:    "availability",
			Operator:  OpLess,
			Threshold: 0.99,
			Type:      TypeError,
			Severity:  SeverityCritical,
			Title:     "Low Availability",
			Unit:      UnitRatio,
		},
		{
			Name:      "high_memory_usage",
			Metric:    "memory_usage",
			Operator:  OpGreater,
			Threshold: 0.8,
			Type:      TypeWarning,
			Severity:  SeverityMedium,
			Title:     "High Memory Usage",
			Unit:      UnitRatio,
		},
	}
}

// Validate validates the rule definition
func (r *Rule) Validate() error {
	switch {
	case r.Name == "":
		return errors.New(ecode.FieldIsRequired("rule name"))
	case r.Metric == "":
		return errors.New(ecode.FieldIsRequired("rule metric"))
	case r.Title == "":
		return errors.New(ecode.FieldIsRequired("rule title"))
	case !r.Type.Valid():
		return errors.New(ecode.FieldIsInvalid("rule type"))
	case !r.Severity.Valid():
		return errors.New(ecode.FieldIsInvalid("rule severity"))
	}
	switch r.Operator {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return nil
	}
	return errors.New(ecode.FieldIsInvalid("rule operator"))
}

// Breached reports whether value violates the rule
func (r *Rule) Breached(value float64) bool {
	switch r.Operator {
	case OpGreater:
		return value > r.Threshold
	case OpGreaterEqual:
		return value >= r.Threshold
	case OpLess:
		return value < r.Threshold
	case OpLessEqual:
		return value <= r.Threshold
	}
	return false
}

// message renders the alert body for a breaching value
func (r *Rule) message(value float64) string {
	return fmt.Sprintf("%s is %s (threshold %s %s)",
		r.Metric, r.format(value), r.Operator, r.format(r.Threshold))
}

func (r *Rule) format(v float64) string {
	switch r.Unit {
	case UnitRatio:
		return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
	case UnitMillis:
		return strconv.FormatFloat(v, 'f', 0, 64) + "ms"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Evaluate checks every rule against readings and raises an alert for each breach.
// Rules are independent and several may fire for one set of readings.
func (e *Engine) Evaluate(source string, readings Readings) []Alert {
	if readings == nil {
		return nil
	}

	var fired []Alert
	for i := range e.rules {
		rule := &e.rules[i]

		value, ok := readings.Reading(rule.Metric)
		if !ok || !rule.Breached(value) {
			continue
		}
		if !e.allowFiring(source, rule.Name) {
			continue
		}

		fired = append(fired, e.Create(rule.Type, rule.Severity, rule.Title, rule.message(value), source, map[string]any{
			"rule":      rule.Name,
			"metric":    rule.Metric,
			"value":     value,
			"threshold": rule.Threshold,
		}))
	}
	return fired
}

// allowFiring applies the optional per-rule cool-down
func (e *Engine) allowFiring(source, rule string) bool {
	if e.cooldown <= 0 {
		return true
	}

	key := source + "/" + rule
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
		return false
	}
	e.lastFired[key] = now
	return true
}

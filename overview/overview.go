package overview

import (
	"time"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/metrics"
)

// AlertCounts summarizes unresolved alerts
type AlertCounts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
}

// Overview is a point-in-time summary of system state
type Overview struct {
	Status    health.Status            `json:"status"`
	Metrics   *metrics.Sample          `json:"metrics"`
	Alerts    AlertCounts              `json:"alerts"`
	Services  map[string]health.Status `json:"services"`
	Timestamp time.Time                `json:"timestamp"`
}

// Summarize derives the overall status from the latest sample, the unresolved
// alerts and the current health results. The system is down when any service
// is down or any unresolved alert is critical, degraded when any service is
// degraded, and healthy otherwise. Resolved alerts passed in are ignored.
func Summarize(latest *metrics.Sample, unresolved []alert.Alert, checks map[string]health.Result) Overview {
	o := Overview{
		Status:    health.StatusHealthy,
		Services:  make(map[string]health.Status, len(checks)),
		Timestamp: time.Now(),
	}

	if latest != nil {
		s := *latest
		o.Metrics = &s
	}

	for _, a := range unresolved {
		if a.Resolved {
			continue
		}
		o.Alerts.Total++
		switch a.Severity {
		case alert.SeverityCritical:
			o.Alerts.Critical++
		case alert.SeverityHigh:
			o.Alerts.High++
		}
	}

	var down, degraded bool
	for name, r := range checks {
		o.Services[name] = r.Status
		switch r.Status {
		case health.StatusDown:
			down = true
		case health.StatusDegraded:
			degraded = true
		}
	}

	switch {
	case down || o.Alerts.Critical > 0:
		o.Status = health.StatusDown
	case degraded:
		o.Status = health.StatusDegraded
	}
	return o
}

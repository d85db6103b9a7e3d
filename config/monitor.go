package config

import (
	"fmt"
	"time"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/data"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/metrics"
	"github.com/ncobase/pulse/monitor"
	"github.com/spf13/viper"
)

// Monitor holds the monitoring engine settings
type Monitor struct {
	Metrics  *Metrics
	Health   *Health
	Alerts   *Alerts
	Business *Business
}

// Metrics metrics collection config struct
type Metrics struct {
	Interval       time.Duration `json:"interval" yaml:"interval"`
	HistorySize    int           `json:"history_size" yaml:"history_size"`
	MemoryLimit    int64         `json:"memory_limit" yaml:"memory_limit"`
	ActiveUsersKey string        `json:"active_users_key" yaml:"active_users_key"`
	ActiveWindow   time.Duration `json:"active_window" yaml:"active_window"`
	TrackerWindow  time.Duration `json:"tracker_window" yaml:"tracker_window"`
}

// Health health probing config struct
type Health struct {
	Interval      time.Duration      `json:"interval" yaml:"interval"`
	ProbeTimeout  time.Duration      `json:"probe_timeout" yaml:"probe_timeout"`
	SlowThreshold time.Duration      `json:"slow_threshold" yaml:"slow_threshold"`
	AlertPolicy   health.AlertPolicy `json:"alert_policy" yaml:"alert_policy"`
	Endpoints     []string           `json:"endpoints" yaml:"endpoints"`
	PoolName      string             `json:"pool_name" yaml:"pool_name"`
	Pool          []data.PoolMember  `json:"pool" yaml:"pool"`
}

// Alerts alert engine config struct
type Alerts struct {
	Capacity int           `json:"capacity" yaml:"capacity"`
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
	Rules    []alert.Rule  `json:"rules" yaml:"rules"` // added to the default rules
}

// Business business counters config struct
type Business struct {
	Queries data.BusinessQueries `json:"queries" yaml:"queries"`
	Window  time.Duration        `json:"window" yaml:"window"`
}

func getMonitorConfig(v *viper.Viper) (*Monitor, error) {
	h, err := getHealthConfig(v)
	if err != nil {
		return nil, err
	}
	a, err := getAlertsConfig(v)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		Metrics:  getMetricsConfig(v),
		Health:   h,
		Alerts:   a,
		Business: getBusinessConfig(v),
	}, nil
}

func getMetricsConfig(v *viper.Viper) *Metrics {
	return &Metrics{
		Interval:       getDurationOrDefault(v, "monitor.metrics.interval", metrics.DefaultInterval),
		HistorySize:    getIntOrDefault(v, "monitor.metrics.history_size", metrics.DefaultHistorySize),
		MemoryLimit:    getInt64OrDefault(v, "monitor.metrics.memory_limit", metrics.DefaultMemoryLimit),
		ActiveUsersKey: v.GetString("monitor.metrics.active_users_key"),
		ActiveWindow:   getDurationOrDefault(v, "monitor.metrics.active_window", data.DefaultActiveWindow),
		TrackerWindow:  getDurationOrDefault(v, "monitor.metrics.tracker_window", metrics.DefaultTrackerWindow),
	}
}

func getHealthConfig(v *viper.Viper) (*Health, error) {
	var pool []data.PoolMember
	if err := v.UnmarshalKey("monitor.health.pool.members", &pool); err != nil {
		return nil, fmt.Errorf("failed to read monitor.health.pool.members: %w", err)
	}

	return &Health{
		Interval:      getDurationOrDefault(v, "monitor.health.interval", health.DefaultInterval),
		ProbeTimeout:  getDurationOrDefault(v, "monitor.health.probe_timeout", health.DefaultProbeTimeout),
		SlowThreshold: getDurationOrDefault(v, "monitor.health.slow_threshold", health.DefaultSlowThreshold),
		AlertPolicy:   health.AlertPolicy(getStringOrDefault(v, "monitor.health.alert_policy", string(health.PolicyTransition))),
		Endpoints:     v.GetStringSlice("monitor.health.endpoints"),
		PoolName:      getStringOrDefault(v, "monitor.health.pool.name", "providers"),
		Pool:          pool,
	}, nil
}

func getAlertsConfig(v *viper.Viper) (*Alerts, error) {
	var rules []alert.Rule
	if err := v.UnmarshalKey("monitor.alerts.rules", &rules); err != nil {
		return nil, fmt.Errorf("failed to read monitor.alerts.rules: %w", err)
	}

	return &Alerts{
		Capacity: getIntOrDefault(v, "monitor.alerts.capacity", alert.DefaultCapacity),
		Cooldown: getDurationOrDefault(v, "monitor.alerts.cooldown", 0),
		Rules:    rules,
	}, nil
}

func getBusinessConfig(v *viper.Viper) *Business {
	return &Business{
		Queries: data.BusinessQueries{
			Created:   v.GetString("monitor.business.queries.created"),
			Succeeded: v.GetString("monitor.business.queries.succeeded"),
			Failed:    v.GetString("monitor.business.queries.failed"),
			Revenue:   v.GetString("monitor.business.queries.revenue"),
		},
		Window: getDurationOrDefault(v, "monitor.business.window", data.DefaultBusinessWindow),
	}
}

// ServiceConfig returns the monitoring service configuration
func (m *Monitor) ServiceConfig() *monitor.Config {
	return &monitor.Config{
		Metrics: &metrics.Config{
			Interval:    m.Metrics.Interval,
			HistorySize: m.Metrics.HistorySize,
		},
		Health: &health.Config{
			Interval:     m.Health.Interval,
			ProbeTimeout: m.Health.ProbeTimeout,
			AlertPolicy:  m.Health.AlertPolicy,
		},
		Alerts: &alert.Config{
			Capacity: m.Alerts.Capacity,
			Cooldown: m.Alerts.Cooldown,
			Rules:    append(alert.DefaultRules(), m.Alerts.Rules...),
		},
	}
}

// SourceOptions returns the options for the data backed metrics sources
func (m *Monitor) SourceOptions() data.SourceOptions {
	return data.SourceOptions{
		Memory:         metrics.NewMemoryReader(m.Metrics.MemoryLimit),
		ActiveUsersKey: m.Metrics.ActiveUsersKey,
		ActiveWindow:   m.Metrics.ActiveWindow,
		Business:       m.Business.Queries,
		BusinessWindow: m.Business.Window,
	}
}

package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/metrics"
	"github.com/ncobase/pulse/overview"
)

// ErrInvalidConfig is returned when the schedules cannot be started
var ErrInvalidConfig = errors.New("invalid monitor config")

// Config represents service configuration. Nil sections use their defaults.
type Config struct {
	Metrics *metrics.Config
	Health  *health.Config
	Alerts  *alert.Config
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Metrics: metrics.DefaultConfig(),
		Health:  health.DefaultConfig(),
		Alerts:  alert.DefaultConfig(),
	}
}

// Options holds the collaborators observed by the service
type Options struct {
	Sources metrics.Sources
	Probes  []health.Probe
	// Manual leaves both schedules stopped. Cycles then run only through
	// CollectNow and CheckNow.
	Manual bool
}

// Service samples metrics, probes dependencies and manages alerts.
// Both schedules run from New until Shutdown.
type Service struct {
	bus          *event.Bus
	alerts       *alert.Engine
	collector    *metrics.Collector
	orchestrator *health.Orchestrator

	shutdown sync.Once
	closed   atomic.Bool
}

// New creates the service and, unless opts.Manual is set, starts both
// schedules. The schedules outlive ctx cancellation and stop only on Shutdown.
func New(ctx context.Context, cfg *Config, opts Options) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	bus := event.NewBus()

	engine, err := alert.NewEngine(cfg.Alerts, bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	registry := health.NewRegistry()
	for _, p := range opts.Probes {
		if p == nil {
			continue
		}
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	collector, err := metrics.NewCollector(cfg.Metrics, opts.Sources, engine, bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	orchestrator, err := health.NewOrchestrator(cfg.Health, registry, engine, bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Service{
		bus:          bus,
		alerts:       engine,
		collector:    collector,
		orchestrator: orchestrator,
	}

	if opts.Manual {
		logger.Infof(ctx, "monitoring ready with %d probes, schedules not started", registry.Len())
		return s, nil
	}

	runCtx := context.WithoutCancel(ctx)
	if err := collector.Start(runCtx); err != nil {
		return nil, fmt.Errorf("failed to start metrics collector: %w", err)
	}
	if err := orchestrator.Start(runCtx); err != nil {
		collector.Stop()
		return nil, fmt.Errorf("failed to start health orchestrator: %w", err)
	}

	logger.Infof(ctx, "monitoring started with %d probes", registry.Len())
	return s, nil
}

// Subscribe registers handler for live metrics, health and alert events
func (s *Service) Subscribe(handler event.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(handler)
}

// GetMetrics returns the limit most recent samples, oldest first.
// limit <= 0 returns the whole history.
func (s *Service) GetMetrics(limit int) []metrics.Sample {
	return s.collector.Recent(limit)
}

// GetAlerts returns alerts newest first
func (s *Service) GetAlerts(includeResolved bool) []alert.Alert {
	return s.alerts.List(includeResolved)
}

// GetHealthChecks returns the latest result per service
func (s *Service) GetHealthChecks() map[string]health.Result {
	return s.orchestrator.Snapshot()
}

// GetSystemOverview summarizes the latest sample, open alerts and health
func (s *Service) GetSystemOverview() overview.Overview {
	var latest *metrics.Sample
	if sample, ok := s.collector.Latest(); ok {
		latest = &sample
	}
	return overview.Summarize(latest, s.alerts.List(false), s.orchestrator.Snapshot())
}

// CreateAlert records a manual alert
func (s *Service) CreateAlert(typ alert.Type, severity alert.Severity, title, message, source string, metadata map[string]any) alert.Alert {
	return s.alerts.Create(typ, severity, title, message, source, metadata)
}

// ResolveAlert resolves alert id, false when unknown or already resolved
func (s *Service) ResolveAlert(id string) bool {
	return s.alerts.Resolve(id)
}

// CollectNow runs one metrics cycle outside the schedule
func (s *Service) CollectNow(ctx context.Context) (metrics.Sample, error) {
	return s.collector.Collect(ctx)
}

// CheckNow runs one health cycle outside the schedule
func (s *Service) CheckNow(ctx context.Context) []health.Result {
	return s.orchestrator.RunCycle(ctx)
}

// Probes returns the probe registry. Probes may be added or removed at any time.
func (s *Service) Probes() *health.Registry {
	return s.orchestrator.Registry()
}

// Stats returns event bus statistics
func (s *Service) Stats() map[string]any {
	return s.bus.Stats()
}

// Closed reports whether Shutdown was called
func (s *Service) Closed() bool {
	return s.closed.Load()
}

// Shutdown stops both schedules and clears every store and subscriber.
// Probe calls still in flight are abandoned. Calling it again is a no-op.
func (s *Service) Shutdown() {
	s.shutdown.Do(func() {
		s.closed.Store(true)

		s.orchestrator.Stop()
		s.collector.Stop()

		s.collector.Reset()
		s.orchestrator.Reset()
		s.alerts.Reset()
		s.bus.Close()

		logger.Info(context.Background(), "monitoring stopped")
	})
}

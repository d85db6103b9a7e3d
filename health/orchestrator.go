package health

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/ecode"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/logging/observes"
	"go.opentelemetry.io/otel/attribute"
)

// Source is the alert source of health alerts
const Source = "health"

const (
	DefaultInterval     = 60 * time.Second
	DefaultProbeTimeout = 5 * time.Second
)

var (
	// ErrProbeTimeout reports a probe that did not finish before its deadline
	ErrProbeTimeout = errors.New("probe timed out")
	// ErrProbePanic reports a probe that panicked
	ErrProbePanic = errors.New("probe panicked")
)

// AlertPolicy decides when non-healthy results raise alerts
type AlertPolicy string

const (
	// PolicyTransition alerts when a service changes into degraded or down
	PolicyTransition AlertPolicy = "transition"
	// PolicyEveryCycle alerts on every cycle a service is degraded or down
	PolicyEveryCycle AlertPolicy = "every_cycle"
)

// Alerter raises alerts for the orchestrator
type Alerter interface {
	Create(typ alert.Type, severity alert.Severity, title, message, source string, metadata map[string]any) alert.Alert
}

// Config represents orchestrator configuration
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	AlertPolicy  AlertPolicy
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:     DefaultInterval,
		ProbeTimeout: DefaultProbeTimeout,
		AlertPolicy:  PolicyTransition,
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New(ecode.FieldIsInvalid("health interval"))
	}
	if c.ProbeTimeout <= 0 {
		return errors.New(ecode.FieldIsInvalid("health probe timeout"))
	}
	switch c.AlertPolicy {
	case PolicyTransition, PolicyEveryCycle:
		return nil
	}
	return errors.New(ecode.FieldIsInvalid("health alert policy"))
}

// Orchestrator runs the registered probes on a fixed schedule and keeps the
// latest result per service
type Orchestrator struct {
	config    *Config
	registry  *Registry
	alerter   Alerter
	publisher event.Publisher
	now       func() time.Time

	cycleMu  sync.Mutex // serializes cycles
	mu       sync.RWMutex
	snapshot map[string]Result

	// Runtime state
	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates a new probe orchestrator
func NewOrchestrator(cfg *Config, registry *Registry, alerter Alerter, publisher event.Publisher) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	conf := *cfg
	if conf.AlertPolicy == "" {
		conf.AlertPolicy = PolicyTransition
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid health config: %w", err)
	}
	if registry == nil {
		registry = NewRegistry()
	}

	return &Orchestrator{
		config:    &conf,
		registry:  registry,
		alerter:   alerter,
		publisher: publisher,
		now:       time.Now,
		snapshot:  make(map[string]Result),
	}, nil
}

// Registry returns the probe registry
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Start runs a first cycle and then one cycle every interval until Stop or
// ctx cancellation. Starting a running orchestrator is a no-op.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifeMu.Lock()
	defer o.lifeMu.Unlock()

	if o.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.checkLoop(loopCtx)
	}()

	return nil
}

// Stop stops the schedule. Probes abandoned after their deadline are not awaited.
func (o *Orchestrator) Stop() {
	o.lifeMu.Lock()
	if !o.running {
		o.lifeMu.Unlock()
		return
	}
	o.running = false
	o.cancel()
	o.lifeMu.Unlock()

	o.wg.Wait()
}

func (o *Orchestrator) checkLoop(ctx context.Context) {
	ticker := time.NewTicker(o.config.Interval)
	defer ticker.Stop()

	o.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RunCycle(ctx)
		}
	}
}

// RunCycle runs every registered probe concurrently and returns the results
// ordered by service. The snapshot is replaced, alerts raised and a health
// event published unless ctx was cancelled during the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) []Result {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	ctx, span := observes.StartSpan(ctx, "health.cycle")
	defer span.End()

	probes := o.registry.Probes()
	results := make([]Result, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = o.runProbe(ctx, p)
		}(i, p)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("health.probes", len(results)))

	if ctx.Err() != nil {
		return results
	}

	next := make(map[string]Result, len(results))
	for _, r := range results {
		next[r.Service] = r
	}

	o.mu.Lock()
	previous := o.snapshot
	o.snapshot = next
	o.mu.Unlock()

	o.raiseAlerts(ctx, previous, results)

	if o.publisher != nil {
		o.publisher.Publish(event.TypeHealth, cloneResults(results))
	}

	return cloneResults(results)
}

type outcome struct {
	result Result
	err    error
}

// runProbe runs p under the probe timeout. Errors, panics and timeouts all
// become down results.
func (o *Orchestrator) runProbe(ctx context.Context, p Probe) Result {
	probeCtx, cancel := context.WithTimeout(ctx, o.config.ProbeTimeout)
	defer cancel()

	start := o.now()
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrProbePanic, r)}
			}
		}()
		res, err := p.Check(probeCtx)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-probeCtx.Done():
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			out.err = fmt.Errorf("%w after %s", ErrProbeTimeout, o.config.ProbeTimeout)
		} else {
			out.err = probeCtx.Err()
		}
	}

	elapsed := o.now().Sub(start)
	res := out.result
	if out.err != nil {
		res = Down(out.err)
		logger.WithComponent(ctx, "health").
			WithField("service", p.Name()).
			WithError(out.err).
			Warn("probe failed")
	} else if !res.Status.Valid() {
		res = Down(fmt.Errorf("probe returned invalid status %q", res.Status))
	}

	res.Service = p.Name()
	res.LastCheck = o.now()
	if res.ResponseTime == 0 {
		res.ResponseTime = elapsed.Milliseconds()
	}
	return res
}

// raiseAlerts raises alerts for degraded and down results under the alert policy
func (o *Orchestrator) raiseAlerts(ctx context.Context, previous map[string]Result, results []Result) {
	if o.alerter == nil {
		return
	}

	for _, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if o.config.AlertPolicy == PolicyTransition {
			if prev, ok := previous[r.Service]; ok && prev.Status == r.Status {
				continue
			}
		}

		metadata := map[string]any{
			"service":       r.Service,
			"status":        string(r.Status),
			"response_time": r.ResponseTime,
		}
		if msg, ok := r.Details["error"]; ok {
			metadata["error"] = msg
		}

		switch r.Status {
		case StatusDegraded:
			o.alerter.Create(alert.TypeWarning, alert.SeverityMedium,
				"Service Degraded: "+r.Service, describe(r), Source, metadata)
		case StatusDown:
			o.alerter.Create(alert.TypeError, alert.SeverityCritical,
				"Service Down: "+r.Service, describe(r), Source, metadata)
		}
	}

	logger.Debugf(ctx, "health cycle finished with %d results", len(results))
}

func describe(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is %s", r.Service, r.Status)
	if msg, ok := r.Details["error"]; ok {
		fmt.Fprintf(&b, ": %v", msg)
	} else {
		fmt.Fprintf(&b, " (response time %dms)", r.ResponseTime)
	}
	return b.String()
}

// Snapshot returns a copy of the latest result per service
func (o *Orchestrator) Snapshot() map[string]Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]Result, len(o.snapshot))
	for k, v := range o.snapshot {
		out[k] = v.Clone()
	}
	return out
}

// Results returns the latest results ordered by service
func (o *Orchestrator) Results() []Result {
	snap := o.Snapshot()
	out := make([]Result, 0, len(snap))
	for _, k := range slices.Sorted(maps.Keys(snap)) {
		out = append(out, snap[k])
	}
	return out
}

// Reset drops the current snapshot
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.snapshot = make(map[string]Result)
	o.mu.Unlock()
}

func cloneResults(results []Result) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}

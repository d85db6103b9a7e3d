package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/ecode"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/logging/observes"
	"go.opentelemetry.io/otel/attribute"
)

// Source is the alert source of collector alerts
const Source = "metrics"

// DefaultInterval is the default sampling interval
const DefaultInterval = 30 * time.Second

// ErrCollectionFailed reports a collection cycle that produced no sample
var ErrCollectionFailed = errors.New("metrics collection failed")

// Alerter raises alerts for the collector
type Alerter interface {
	Create(typ alert.Type, severity alert.Severity, title, message, source string, metadata map[string]any) alert.Alert
	Evaluate(source string, readings alert.Readings) []alert.Alert
}

// Config represents collector configuration
type Config struct {
	Interval    time.Duration // sampling interval
	HistorySize int           // maximum retained samples
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:    DefaultInterval,
		HistorySize: DefaultHistorySize,
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New(ecode.FieldIsInvalid("metrics interval"))
	}
	if c.HistorySize <= 0 {
		return errors.New(ecode.FieldIsInvalid("metrics history size"))
	}
	return nil
}

// Collector samples metrics on a fixed schedule into a bounded history
type Collector struct {
	config    *Config
	sources   Sources
	history   *History
	alerter   Alerter
	publisher event.Publisher
	now       func() time.Time

	// cycle state
	cycleMu sync.Mutex
	last    Sample

	// Runtime state
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCollector creates a new metrics collector
func NewCollector(cfg *Config, sources Sources, alerter Alerter, publisher event.Publisher) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Collector{
		config:    cfg,
		sources:   sources,
		history:   NewHistory(cfg.HistorySize),
		alerter:   alerter,
		publisher: publisher,
		now:       time.Now,
		last:      Sample{Performance: DefaultPerformance()},
	}, nil
}

// Start takes a first sample and then samples every interval until Stop or
// ctx cancellation. Starting a running collector is a no-op.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.collectLoop(loopCtx)
	}()

	return nil
}

// Stop stops the schedule and waits for the running cycle to finish
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// collectLoop periodically collects samples
func (c *Collector) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	_, _ = c.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.Collect(ctx)
		}
	}
}

// Collect runs one collection cycle. Cycles are serialized so history stays
// in timestamp order.
// A failed cycle raises a high severity alert and returns ErrCollectionFailed.
func (c *Collector) Collect(ctx context.Context) (sample Sample, err error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	ctx, span := observes.StartSpan(ctx, "metrics.collect")
	defer func() {
		if r := recover(); r != nil {
			sample = Sample{}
			err = fmt.Errorf("%w: panic: %v", ErrCollectionFailed, r)
		}
		if err != nil {
			c.reportFailure(ctx, err)
		}
		observes.EndSpan(span, err)
	}()

	sample, configured, failed := c.gather(ctx)
	span.SetAttributes(
		attribute.Int("metrics.categories", configured),
		attribute.Int("metrics.failed_categories", failed),
	)
	if configured > 0 && failed == configured {
		return Sample{}, fmt.Errorf("%w: all %d categories failed", ErrCollectionFailed, failed)
	}

	c.history.Append(sample)
	if c.alerter != nil {
		c.alerter.Evaluate(Source, sample)
	}
	if c.publisher != nil {
		c.publisher.Publish(event.TypeMetrics, sample)
	}

	return sample, nil
}

// gather reads every configured category. A failed category keeps its last
// known value. It returns the sample with the configured and failed counts.
// The caller holds cycleMu.
func (c *Collector) gather(ctx context.Context) (Sample, int, int) {
	var configured, failed int
	fallback := func(category string, err error) {
		failed++
		logger.WithComponent(ctx, "metrics").
			WithField("category", category).
			WithError(err).
			Warn("category collection failed, keeping last known value")
	}

	s := c.last
	s.Timestamp = c.now()

	if src := c.sources.Performance; src != nil {
		configured++
		if v, err := collect(ctx, src.Performance); err != nil {
			fallback("performance", err)
		} else {
			s.Performance = v
		}
	}

	if src := c.sources.Resources; src != nil {
		configured++
		if v, err := collect(ctx, src.Resources); err != nil {
			fallback("resources", err)
		} else {
			v.CacheHitRate = s.Resources.CacheHitRate
			s.Resources = v
		}
	}

	if src := c.sources.Cache; src != nil {
		configured++
		if v, err := collect(ctx, src.CacheStats); err != nil {
			fallback("cache", err)
		} else {
			s.Resources.CacheHitRate = v.HitRate
		}
	}

	if src := c.sources.Business; src != nil {
		configured++
		if v, err := collect(ctx, src.Business); err != nil {
			fallback("business", err)
		} else {
			s.Business = v
		}
	}

	c.last = s
	return s, configured, failed
}

// collect calls fetch, converting a panic into an error
func collect[T any](ctx context.Context, fetch func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panic: %v", r)
		}
	}()
	return fetch(ctx)
}

func (c *Collector) reportFailure(ctx context.Context, err error) {
	logger.Errorf(ctx, "metrics collection cycle failed: %v", err)
	if c.alerter == nil {
		return
	}
	c.alerter.Create(alert.TypeError, alert.SeverityHigh, "Metrics Collection Failed", err.Error(), Source, nil)
}

// History returns the sample history
func (c *Collector) History() *History {
	return c.history
}

// Recent returns up to limit most recent samples, oldest first
func (c *Collector) Recent(limit int) []Sample {
	return c.history.Recent(limit)
}

// Latest returns the newest sample
func (c *Collector) Latest() (Sample, bool) {
	return c.history.Latest()
}

// Reset clears the history and the last known values
func (c *Collector) Reset() {
	c.history.Clear()

	c.cycleMu.Lock()
	c.last = Sample{Performance: DefaultPerformance()}
	c.cycleMu.Unlock()
}

package metrics

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/event"
)

func newTestCollector(t *testing.T, sources Sources) (*Collector, *alert.Engine, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	engine, err := alert.NewEngine(nil, bus)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCollector(nil, sources, engine, bus)
	if err != nil {
		t.Fatalf("failed to create collector: %v", err)
	}
	return c, engine, bus
}

func TestCollector_CollectAppendsAndPublishes(t *testing.T) {
	sources := Sources{
		Performance: PerformanceFunc(func(context.Context) (Performance, error) {
			return Performance{ResponseTime: 50, ErrorRate: 0.01, Availability: 1}, nil
		}),
		Resources: ResourceFunc(func(context.Context) (Resources, error) {
			return Resources{MemoryUsage: 0.2, DatabaseConnections: 4}, nil
		}),
		Cache: CacheFunc(func(context.Context) (CacheStats, error) {
			return CacheStats{HitRate: 0.9}, nil
		}),
	}
	c, engine, bus := newTestCollector(t, sources)

	var got []event.Event
	bus.Subscribe(func(e event.Event) { got = append(got, e) })

	s, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if s.Resources.CacheHitRate != 0.9 || s.Resources.DatabaseConnections != 4 {
		t.Errorf("unexpected resources: %+v", s.Resources)
	}
	if c.History().Len() != 1 {
		t.Errorf("history len = %d, want 1", c.History().Len())
	}
	if engine.Len() != 0 {
		t.Errorf("healthy sample raised %d alerts", engine.Len())
	}
	if len(got) != 1 || got[0].Type != event.TypeMetrics {
		t.Errorf("expected one metrics event, got %+v", got)
	}
}

func TestCollector_HighErrorRateRaisesAlert(t *testing.T) {
	c, engine, _ := newTestCollector(t, Sources{
		Performance: PerformanceFunc(func(context.Context) (Performance, error) {
			return Performance{ErrorRate: 0.10, Availability: 1}, nil
		}),
	})

	if _, err := c.Collect(context.Background()); err != nil {
		t.Fatal(err)
	}

	alerts := engine.List(false)
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	if alerts[0].Severity != alert.SeverityHigh || !strings.Contains(alerts[0].Title, "High Error Rate") {
		t.Errorf("unexpected alert: %+v", alerts[0])
	}
}

func TestCollector_FailedCategoryKeepsLastKnown(t *testing.T) {
	var calls atomic.Int32
	c, _, _ := newTestCollector(t, Sources{
		Performance: PerformanceFunc(func(context.Context) (Performance, error) {
			return Performance{ResponseTime: 10, Availability: 1}, nil
		}),
		Resources: ResourceFunc(func(context.Context) (Resources, error) {
			switch calls.Add(1) {
			case 1:
				return Resources{MemoryUsage: 0.4}, nil
			case 2:
				return Resources{}, errors.New("stats unavailable")
			}
			panic("resource reader crashed")
		}),
	})

	for i := 0; i < 3; i++ {
		s, err := c.Collect(context.Background())
		if err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
		if s.Resources.MemoryUsage != 0.4 {
			t.Errorf("cycle %d memory usage = %v, want last known 0.4", i, s.Resources.MemoryUsage)
		}
		if s.Performance.ResponseTime != 10 {
			t.Errorf("cycle %d sibling category affected: %+v", i, s.Performance)
		}
	}
	if c.History().Len() != 3 {
		t.Errorf("history len = %d, want 3", c.History().Len())
	}
}

func TestCollector_FailedCategoryWithoutHistoryUsesDefault(t *testing.T) {
	c, _, _ := newTestCollector(t, Sources{
		Performance: PerformanceFunc(func(context.Context) (Performance, error) {
			return Performance{}, errors.New("no data")
		}),
		Business: BusinessFunc(func(context.Context) (Business, error) {
			return Business{DocumentsCreated: 3}, nil
		}),
	})

	s, err := c.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Performance.Availability != 1 {
		t.Errorf("default availability = %v, want 1", s.Performance.Availability)
	}
	if s.Business.DocumentsCreated != 3 {
		t.Errorf("business = %+v", s.Business)
	}
}

func TestCollector_CycleFailureRaisesAlert(t *testing.T) {
	failing := errors.New("down")
	c, engine, _ := newTestCollector(t, Sources{
		Performance: PerformanceFunc(func(context.Context) (Performance, error) { return Performance{}, failing }),
		Business:    BusinessFunc(func(context.Context) (Business, error) { return Business{}, failing }),
	})

	_, err := c.Collect(context.Background())
	if !errors.Is(err, ErrCollectionFailed) {
		t.Fatalf("err = %v, want ErrCollectionFailed", err)
	}
	if c.History().Len() != 0 {
		t.Error("failed cycle should not append a sample")
	}

	alerts := engine.List(false)
	if len(alerts) != 1 || alerts[0].Title != "Metrics Collection Failed" || alerts[0].Severity != alert.SeverityHigh {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
}

type panickingAlerter struct {
	created atomic.Int32
}

func (p *panickingAlerter) Create(alert.Type, alert.Severity, string, string, string, map[string]any) alert.Alert {
	p.created.Add(1)
	return alert.Alert{}
}

func (p *panickingAlerter) Evaluate(string, alert.Readings) []alert.Alert {
	panic("rule evaluation crashed")
}

func TestCollector_PanicInCycleIsContained(t *testing.T) {
	a := &panickingAlerter{}
	c, err := NewCollector(nil, Sources{}, a, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Collect(context.Background()); !errors.Is(err, ErrCollectionFailed) {
		t.Fatalf("err = %v, want ErrCollectionFailed", err)
	}
	if a.created.Load() != 1 {
		t.Errorf("expected one failure alert, got %d", a.created.Load())
	}
	if c.History().Len() != 1 {
		t.Errorf("sample is stored before evaluation, history len = %d", c.History().Len())
	}
}

// blockingAlerter blocks its first Evaluate until release is closed
type blockingAlerter struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingAlerter) Create(alert.Type, alert.Severity, string, string, string, map[string]any) alert.Alert {
	return alert.Alert{}
}

func (b *blockingAlerter) Evaluate(string, alert.Readings) []alert.Alert {
	if b.calls.Add(1) == 1 {
		close(b.entered)
		<-b.release
	}
	return nil
}

func TestCollector_OverlappingCyclesKeepHistoryOrdered(t *testing.T) {
	a := &blockingAlerter{entered: make(chan struct{}), release: make(chan struct{})}
	c, err := NewCollector(nil, Sources{}, a, nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{}, 2)
	go func() {
		_, _ = c.Collect(context.Background())
		done <- struct{}{}
	}()
	<-a.entered

	go func() {
		_, _ = c.Collect(context.Background())
		done <- struct{}{}
	}()
	time.Sleep(50 * time.Millisecond)
	close(a.release)
	<-done
	<-done

	samples := c.Recent(0)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[1].Timestamp.Before(samples[0].Timestamp) {
		t.Errorf("history out of order: %v then %v", samples[0].Timestamp, samples[1].Timestamp)
	}
}

func TestCollector_StartStop(t *testing.T) {
	var calls atomic.Int32
	cfg := &Config{Interval: 5 * time.Millisecond, HistorySize: 10}
	c, err := NewCollector(cfg, Sources{
		Performance: PerformanceFunc(func(context.Context) (Performance, error) {
			calls.Add(1)
			return DefaultPerformance(), nil
		}),
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = c.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Stop()
	c.Stop()

	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 cycles, got %d", calls.Load())
	}
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != stopped {
		t.Error("collector kept sampling after Stop")
	}
	if c.History().Len() > 10 {
		t.Errorf("history exceeded capacity: %d", c.History().Len())
	}
}

func TestNewCollector_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  *Config
	}{
		{"zero interval", &Config{Interval: 0, HistorySize: 1}},
		{"zero history", &Config{Interval: time.Second, HistorySize: 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCollector(tc.cfg, Sources{}, nil, nil); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestResourceReader(t *testing.T) {
	r := &ResourceReader{
		Memory:      NewMemoryReader(1 << 40),
		Connections: connections(5),
		Users:       users{n: 12},
	}
	res, err := r.Resources(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.DatabaseConnections != 5 || res.ActiveUsers != 12 {
		t.Errorf("unexpected resources: %+v", res)
	}
	if res.MemoryUsage <= 0 || res.MemoryUsage >= 1 {
		t.Errorf("memory usage out of range: %v", res.MemoryUsage)
	}

	r.Users = users{err: errors.New("redis down")}
	if _, err := r.Resources(context.Background()); err == nil {
		t.Error("expected active users error to surface")
	}
}

type connections int

func (c connections) OpenConnections() int { return int(c) }

type users struct {
	n   int
	err error
}

func (u users) ActiveUsers(context.Context) (int, error) { return u.n, u.err }

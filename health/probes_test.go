package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ncobase/pulse/metrics"
)

func TestClassifyLatency(t *testing.T) {
	testCases := []struct {
		name    string
		latency time.Duration
		want    Status
	}{
		{"fast", 20 * time.Millisecond, StatusHealthy},
		{"at threshold", time.Second, StatusHealthy},
		{"slow", 1500 * time.Millisecond, StatusDegraded},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := ClassifyLatency(tc.latency, DefaultSlowThreshold)
			if r.Status != tc.want {
				t.Errorf("status = %s, want %s", r.Status, tc.want)
			}
			if r.ResponseTime != tc.latency.Milliseconds() {
				t.Errorf("response time = %d, want %d", r.ResponseTime, tc.latency.Milliseconds())
			}
		})
	}
}

func TestPingProbe(t *testing.T) {
	slow := NewPingProbe("db", PingerFunc(func(ctx context.Context) error {
		time.Sleep(15 * time.Millisecond)
		return nil
	}), 5*time.Millisecond)

	r, err := slow.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusDegraded {
		t.Errorf("slow ping status = %s, want degraded", r.Status)
	}

	failing := NewPingProbe("db", PingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), 0)
	o, err := NewOrchestrator(nil, NewRegistry(failing), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	results := o.RunCycle(context.Background())
	if results[0].Status != StatusDown || results[0].Details["error"] != "connection refused" {
		t.Errorf("failing ping result = %+v", results[0])
	}
}

func TestClassifyPool(t *testing.T) {
	member := func(active, healthy bool) PoolMember {
		return PoolMember{Name: "p", Active: active, Healthy: healthy}
	}

	testCases := []struct {
		name    string
		members []PoolMember
		want    Status
	}{
		{"no healthy of four", []PoolMember{member(true, false), member(true, false), member(true, false), member(true, false)}, StatusDown},
		{"two of four", []PoolMember{member(true, true), member(true, true), member(true, false), member(true, false)}, StatusDegraded},
		{"three of four", []PoolMember{member(true, true), member(true, true), member(true, true), member(true, false)}, StatusHealthy},
		{"inactive ignored", []PoolMember{member(true, true), member(false, false), member(false, false)}, StatusHealthy},
		{"empty pool", nil, StatusDown},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyPool(tc.members).Status; got != tc.want {
				t.Errorf("status = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassifyCache(t *testing.T) {
	testCases := []struct {
		hitRate float64
		want    Status
	}{
		{0.9, StatusHealthy},
		{0.5, StatusHealthy},
		{0.49, StatusDegraded},
	}
	for _, tc := range testCases {
		r := ClassifyCache(metrics.CacheStats{HitRate: tc.hitRate}, DefaultMinHitRate)
		if r.Status != tc.want {
			t.Errorf("hit rate %v: status = %s, want %s", tc.hitRate, r.Status, tc.want)
		}
	}

	p := NewCacheProbe("cache", metrics.CacheFunc(func(context.Context) (metrics.CacheStats, error) {
		return metrics.CacheStats{}, errors.New("NOAUTH")
	}), 0)
	if _, err := p.Check(context.Background()); err == nil {
		t.Error("expected cache source error")
	}
}

type fakeReacher map[string]error

func (f fakeReacher) Reach(_ context.Context, endpoint string) error {
	return f[endpoint]
}

func TestReachabilityProbe(t *testing.T) {
	down := errors.New("no route to host")
	testCases := []struct {
		name    string
		reacher fakeReacher
		want    Status
	}{
		{"all reachable", fakeReacher{}, StatusHealthy},
		{"some reachable", fakeReacher{"b": down}, StatusDegraded},
		{"none reachable", fakeReacher{"a": down, "b": down, "c": down}, StatusDown},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewReachabilityProbe("external", []string{"a", "b", "c"}, tc.reacher)
			r, err := p.Check(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if r.Status != tc.want {
				t.Errorf("status = %s, want %s", r.Status, tc.want)
			}
		})
	}
}

func TestHTTPReacher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reacher := &HTTPReacher{Client: srv.Client()}
	if err := reacher.Reach(context.Background(), srv.URL); err != nil {
		t.Errorf("responding endpoint should be reachable: %v", err)
	}

	srv.Close()
	if err := reacher.Reach(context.Background(), srv.URL); err == nil {
		t.Error("closed endpoint should be unreachable")
	}
}

package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ncobase/pulse/metrics"
)

const (
	// DefaultSlowThreshold is the round-trip latency above which a ping is degraded
	DefaultSlowThreshold = time.Second
	// DefaultMinHitRate is the cache hit rate below which a cache is degraded
	DefaultMinHitRate = 0.5
)

// Pinger is anything that can verify its connection, such as *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

// PingProbe checks a connection by round trip
type PingProbe struct {
	name          string
	pinger        Pinger
	slowThreshold time.Duration
}

// NewPingProbe creates a ping probe; slow <= 0 uses DefaultSlowThreshold
func NewPingProbe(name string, pinger Pinger, slow time.Duration) *PingProbe {
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	return &PingProbe{name: name, pinger: pinger, slowThreshold: slow}
}

func (p *PingProbe) Name() string { return p.name }

// Check implements Probe
func (p *PingProbe) Check(ctx context.Context) (Result, error) {
	start := time.Now()
	if err := p.pinger.PingContext(ctx); err != nil {
		return Result{}, err
	}
	return ClassifyLatency(time.Since(start), p.slowThreshold), nil
}

// ClassifyLatency classifies a successful round trip
func ClassifyLatency(latency, slow time.Duration) Result {
	status := StatusHealthy
	if latency > slow {
		status = StatusDegraded
	}
	return Result{
		Status:       status,
		ResponseTime: latency.Milliseconds(),
		Details: map[string]any{
			"latency_ms":        latency.Milliseconds(),
			"slow_threshold_ms": slow.Milliseconds(),
		},
	}
}

// CacheProbe checks cache effectiveness
type CacheProbe struct {
	name       string
	source     metrics.CacheSource
	minHitRate float64
}

// NewCacheProbe creates a cache probe; minHitRate <= 0 uses DefaultMinHitRate
func NewCacheProbe(name string, source metrics.CacheSource, minHitRate float64) *CacheProbe {
	if minHitRate <= 0 {
		minHitRate = DefaultMinHitRate
	}
	return &CacheProbe{name: name, source: source, minHitRate: minHitRate}
}

func (p *CacheProbe) Name() string { return p.name }

// Check implements Probe
func (p *CacheProbe) Check(ctx context.Context) (Result, error) {
	stats, err := p.source.CacheStats(ctx)
	if err != nil {
		return Result{}, err
	}
	return ClassifyCache(stats, p.minHitRate), nil
}

// ClassifyCache classifies cache statistics
func ClassifyCache(stats metrics.CacheStats, minHitRate float64) Result {
	status := StatusHealthy
	if stats.HitRate < minHitRate {
		status = StatusDegraded
	}
	return Result{
		Status: status,
		Details: map[string]any{
			"hit_rate":     stats.HitRate,
			"total_items":  stats.TotalItems,
			"memory_usage": stats.MemoryUsage,
		},
	}
}

// PoolMember is one member of a dependent service pool
type PoolMember struct {
	Name    string `json:"name"`
	Active  bool   `json:"active"`
	Healthy bool   `json:"healthy"`
}

// PoolSource reports the members of a service pool
type PoolSource interface {
	Members(ctx context.Context) ([]PoolMember, error)
}

// PoolProbe checks a pool of interchangeable providers
type PoolProbe struct {
	name   string
	source PoolSource
}

// NewPoolProbe creates a pool probe
func NewPoolProbe(name string, source PoolSource) *PoolProbe {
	return &PoolProbe{name: name, source: source}
}

func (p *PoolProbe) Name() string { return p.name }

// Check implements Probe
func (p *PoolProbe) Check(ctx context.Context) (Result, error) {
	members, err := p.source.Members(ctx)
	if err != nil {
		return Result{}, err
	}
	return ClassifyPool(members), nil
}

// ClassifyPool classifies a pool by its healthy active members.
// The pool is down with no healthy member and degraded with at most half.
func ClassifyPool(members []PoolMember) Result {
	var active, healthy int
	var unhealthy []string
	for _, m := range members {
		if !m.Active {
			continue
		}
		active++
		if m.Healthy {
			healthy++
		} else {
			unhealthy = append(unhealthy, m.Name)
		}
	}

	status := StatusHealthy
	switch {
	case healthy == 0:
		status = StatusDown
	case healthy*2 <= active:
		status = StatusDegraded
	}

	details := map[string]any{
		"active":  active,
		"healthy": healthy,
	}
	if len(unhealthy) > 0 {
		details["unhealthy"] = unhealthy
	}
	if healthy == 0 {
		details["error"] = "no healthy members"
	}
	return Result{Status: status, Details: details}
}

// Reacher checks that an endpoint responds
type Reacher interface {
	Reach(ctx context.Context, endpoint string) error
}

// HTTPReacher reaches endpoints with an HTTP HEAD request.
// Any HTTP response counts as reachable.
type HTTPReacher struct {
	Client *http.Client
}

// Reach implements Reacher
func (r *HTTPReacher) Reach(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return err
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// ReachabilityProbe checks a fixed set of external endpoints
type ReachabilityProbe struct {
	name      string
	endpoints []string
	reacher   Reacher
}

// NewReachabilityProbe creates a reachability probe; a nil reacher uses HTTPReacher
func NewReachabilityProbe(name string, endpoints []string, reacher Reacher) *ReachabilityProbe {
	if reacher == nil {
		reacher = &HTTPReacher{}
	}
	return &ReachabilityProbe{name: name, endpoints: endpoints, reacher: reacher}
}

func (p *ReachabilityProbe) Name() string { return p.name }

// Check implements Probe. Endpoints are reached concurrently.
func (p *ReachabilityProbe) Check(ctx context.Context) (Result, error) {
	errs := make([]error, len(p.endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range p.endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			errs[i] = p.reacher.Reach(ctx, endpoint)
		}(i, endpoint)
	}
	wg.Wait()

	return ClassifyReachability(p.endpoints, errs), nil
}

// ClassifyReachability classifies endpoint outcomes; errs[i] belongs to endpoints[i]
func ClassifyReachability(endpoints []string, errs []error) Result {
	reached := 0
	status := make(map[string]any, len(endpoints))
	for i, endpoint := range endpoints {
		if errs[i] == nil {
			reached++
			status[endpoint] = "reachable"
		} else {
			status[endpoint] = errs[i].Error()
		}
	}

	res := Result{
		Status: StatusHealthy,
		Details: map[string]any{
			"reachable": reached,
			"total":     len(endpoints),
			"endpoints": status,
		},
	}
	switch {
	case len(endpoints) == 0:
	case reached == 0:
		res.Status = StatusDown
		res.Details["error"] = fmt.Sprintf("0 of %d endpoints reachable", len(endpoints))
	case reached < len(endpoints):
		res.Status = StatusDegraded
	}
	return res
}

package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ncobase/pulse/health"
	"github.com/sony/gobreaker"
)

// PoolMember is a provider in a dependent service pool
type PoolMember struct {
	Name   string `json:"name" yaml:"name"`
	URL    string `json:"url" yaml:"url"`
	Active bool   `json:"active" yaml:"active"`
}

// HTTPPool checks provider health endpoints, each behind its own circuit breaker
type HTTPPool struct {
	members  []PoolMember
	client   *http.Client
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewHTTPPool creates a pool source; a nil client uses http.DefaultClient
func NewHTTPPool(members []PoolMember, client *http.Client) *HTTPPool {
	if client == nil {
		client = http.DefaultClient
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker, len(members))
	for _, m := range members {
		breakers[m.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        m.Name,
			MaxRequests: 100,
			Interval:    5 * time.Second,
			Timeout:     3 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		})
	}

	return &HTTPPool{members: members, client: client, breakers: breakers}
}

// Members implements health.PoolSource. Active members are checked concurrently.
func (p *HTTPPool) Members(ctx context.Context) ([]health.PoolMember, error) {
	out := make([]health.PoolMember, len(p.members))

	var wg sync.WaitGroup
	for i, m := range p.members {
		out[i] = health.PoolMember{Name: m.Name, Active: m.Active}
		if !m.Active {
			continue
		}
		wg.Add(1)
		go func(i int, m PoolMember) {
			defer wg.Done()
			out[i].Healthy = p.check(ctx, m) == nil
		}(i, m)
	}
	wg.Wait()

	return out, nil
}

func (p *HTTPPool) check(ctx context.Context, m PoolMember) error {
	_, err := p.breakers[m.Name].Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%s returned %d", m.Name, resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// BreakerState returns the circuit state of member name
func (p *HTTPPool) BreakerState(name string) (gobreaker.State, bool) {
	cb, ok := p.breakers[name]
	if !ok {
		return gobreaker.StateClosed, false
	}
	return cb.State(), true
}

package health

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/ncobase/pulse/ecode"
)

// Probe checks the health of one dependency.
// Check must honour ctx; the orchestrator abandons it once the deadline passes.
type Probe interface {
	Name() string
	Check(ctx context.Context) (Result, error)
}

// ProbeFunc adapts a function to a named Probe
func ProbeFunc(name string, fn func(ctx context.Context) (Result, error)) Probe {
	return &funcProbe{name: name, fn: fn}
}

type funcProbe struct {
	name string
	fn   func(ctx context.Context) (Result, error)
}

func (p *funcProbe) Name() string { return p.name }

func (p *funcProbe) Check(ctx context.Context) (Result, error) { return p.fn(ctx) }

// Registry maps probe names to probes
type Registry struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewRegistry creates a registry holding probes
func NewRegistry(probes ...Probe) *Registry {
	r := &Registry{probes: make(map[string]Probe)}
	for _, p := range probes {
		_ = r.Register(p)
	}
	return r
}

// Register adds p, replacing any probe with the same name
func (r *Registry) Register(p Probe) error {
	if p == nil || p.Name() == "" {
		return errors.New(ecode.FieldIsRequired("probe name"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[p.Name()] = p
	return nil
}

// Unregister removes the probe with name
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.probes[name]; !ok {
		return false
	}
	delete(r.probes, name)
	return true
}

// Probes returns the registered probes ordered by name
func (r *Registry) Probes() []Probe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Probe, 0, len(r.probes))
	for _, p := range r.probes {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Probe) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

// Names returns the registered probe names in order
func (r *Registry) Names() []string {
	probes := r.Probes()
	names := make([]string, len(probes))
	for i, p := range probes {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of registered probes
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.probes)
}

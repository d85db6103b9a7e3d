package metrics

import (
	"context"
	"errors"
)

// PerformanceSource reports request performance
type PerformanceSource interface {
	Performance(ctx context.Context) (Performance, error)
}

// ResourceSource reports process and dependency resource usage.
// CacheHitRate is filled by the cache category and ignored here.
type ResourceSource interface {
	Resources(ctx context.Context) (Resources, error)
}

// CacheSource reports cache statistics
type CacheSource interface {
	CacheStats(ctx context.Context) (CacheStats, error)
}

// BusinessSource reports domain counters over a trailing window
type BusinessSource interface {
	Business(ctx context.Context) (Business, error)
}

// CacheStats holds cache statistics
type CacheStats struct {
	HitRate     float64 `json:"hit_rate"` // 0..1
	TotalItems  int64   `json:"total_items"`
	MemoryUsage int64   `json:"memory_usage"` // bytes
}

// Sources groups the category sources of a collector.
// A nil source yields the category default.
type Sources struct {
	Performance PerformanceSource
	Resources   ResourceSource
	Cache       CacheSource
	Business    BusinessSource
}

// PerformanceFunc adapts a function to PerformanceSource
type PerformanceFunc func(ctx context.Context) (Performance, error)

func (f PerformanceFunc) Performance(ctx context.Context) (Performance, error) { return f(ctx) }

// ResourceFunc adapts a function to ResourceSource
type ResourceFunc func(ctx context.Context) (Resources, error)

func (f ResourceFunc) Resources(ctx context.Context) (Resources, error) { return f(ctx) }

// CacheFunc adapts a function to CacheSource
type CacheFunc func(ctx context.Context) (CacheStats, error)

func (f CacheFunc) CacheStats(ctx context.Context) (CacheStats, error) { return f(ctx) }

// BusinessFunc adapts a function to BusinessSource
type BusinessFunc func(ctx context.Context) (Business, error)

func (f BusinessFunc) Business(ctx context.Context) (Business, error) { return f(ctx) }

// ConnectionCounter reports the number of open database connections
type ConnectionCounter interface {
	OpenConnections() int
}

// UserCounter reports the number of recently active users
type UserCounter interface {
	ActiveUsers(ctx context.Context) (int, error)
}

// ResourceReader composes the resource readings into a ResourceSource
type ResourceReader struct {
	Memory      *MemoryReader
	Connections ConnectionCounter
	Users       UserCounter
}

// Resources implements ResourceSource.
// Every configured reader is consulted; their errors are joined.
func (r *ResourceReader) Resources(ctx context.Context) (Resources, error) {
	var (
		res  Resources
		errs []error
	)

	if r.Memory != nil {
		res.MemoryUsage = r.Memory.Usage()
	}
	if r.Connections != nil {
		res.DatabaseConnections = r.Connections.OpenConnections()
	}
	if r.Users != nil {
		n, err := r.Users.ActiveUsers(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		res.ActiveUsers = n
	}

	return res, errors.Join(errs...)
}

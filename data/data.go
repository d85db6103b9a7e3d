package data

import (
	"context"
	"net/http"
	"time"

	"github.com/ncobase/pulse/data/config"
	"github.com/ncobase/pulse/data/connection"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/metrics"
)

// Data represents the data layer the engine observes
type Data struct {
	Conn *connection.Connections
}

// New opens the configured connections.
// The returned cleanup closes them.
func New(ctx context.Context, cfg *config.Config) (*Data, func(), error) {
	conn, err := connection.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	d := &Data{Conn: conn}
	cleanup := func() {
		if err := d.Close(); err != nil {
			logger.Errorf(context.Background(), "data cleanup error: %v", err)
		}
	}
	return d, cleanup, nil
}

// Close closes every connection
func (d *Data) Close() error {
	if d.Conn == nil {
		return nil
	}
	return d.Conn.Close()
}

// Probes returns a probe per configured connection.
// Database and broker probes degrade above slow.
func (d *Data) Probes(slow time.Duration) []health.Probe {
	var probes []health.Probe
	if d.Conn == nil {
		return probes
	}

	if d.Conn.DB != nil {
		probes = append(probes, health.NewPingProbe("database", d.Conn.DB, slow))
	}
	if d.Conn.Redis != nil {
		probes = append(probes,
			health.NewPingProbe("redis", &connection.RedisPinger{Client: d.Conn.Redis}, slow),
			health.NewCacheProbe("cache", NewRedisStats(d.Conn.Redis), health.DefaultMinHitRate),
		)
	}
	if d.Conn.Mongo != nil {
		probes = append(probes, health.NewPingProbe("mongodb", &connection.MongoPinger{Client: d.Conn.Mongo}, slow))
	}
	if d.Conn.Kafka != nil {
		probes = append(probes, health.NewPingProbe("kafka", d.Conn.Kafka, slow))
	}
	if d.Conn.RabbitMQ != nil {
		probes = append(probes, health.NewPingProbe("rabbitmq", d.Conn.RabbitMQ, slow))
	}
	return probes
}

// SourceOptions configures the data backed metrics sources
type SourceOptions struct {
	Memory         *metrics.MemoryReader
	ActiveUsersKey string
	ActiveWindow   time.Duration
	Business       BusinessQueries
	BusinessWindow time.Duration
}

// Sources builds the resource, cache and business sources backed by the
// data layer. The performance source is left to the caller.
func (d *Data) Sources(opts SourceOptions) metrics.Sources {
	var sources metrics.Sources

	reader := &metrics.ResourceReader{Memory: opts.Memory}
	if d.Conn != nil && d.Conn.DB != nil {
		reader.Connections = SQLConnections{DB: d.Conn.DB}
		if opts.Business != (BusinessQueries{}) {
			sources.Business = NewSQLBusiness(d.Conn.DB, opts.Business, opts.BusinessWindow)
		}
	}
	if d.Conn != nil && d.Conn.Redis != nil {
		reader.Users = NewRedisActiveUsers(d.Conn.Redis, opts.ActiveUsersKey, opts.ActiveWindow)
		sources.Cache = NewRedisStats(d.Conn.Redis)
	}
	sources.Resources = reader

	return sources
}

// PoolProbe returns a pool probe over members, or nil without members
func PoolProbe(name string, members []PoolMember, timeout time.Duration) health.Probe {
	if len(members) == 0 {
		return nil
	}
	return health.NewPoolProbe(name, NewHTTPPool(members, &http.Client{Timeout: timeout}))
}

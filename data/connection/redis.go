package connection

import (
	"context"
	"errors"

	"github.com/ncobase/pulse/data/config"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates a new Redis client. The client dials on first use.
func NewRedis(conf *config.Redis) (*redis.Client, error) {
	if conf == nil || conf.Addr == "" {
		return nil, errors.New("redis configuration is nil or empty")
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Username:     conf.Username,
		Password:     conf.Password,
		DB:           conf.Db,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		DialTimeout:  conf.DialTimeout,
		PoolSize:     10,
	})

	return rc, nil
}

// RedisPinger adapts a Redis client to a context pinger
type RedisPinger struct {
	Client redis.UniversalClient
}

// PingContext sends PING
func (p *RedisPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

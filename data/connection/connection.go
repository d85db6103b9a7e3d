package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ncobase/pulse/data/config"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Connections holds the data layer connections. Unconfigured ones are nil.
type Connections struct {
	DB       *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
	Kafka    *KafkaPinger
	RabbitMQ *RabbitMQ
}

// New sets up every configured connection without dialing it, so an
// unreachable dependency shows up in its probe rather than here.
// Only invalid configuration fails the call.
func New(ctx context.Context, conf *config.Config) (*Connections, error) {
	c := &Connections{}
	if conf == nil {
		return c, nil
	}

	var err error
	if conf.Database != nil && conf.Database.Source != "" {
		if c.DB, err = NewDB(conf.Database); err != nil {
			return nil, errors.Join(err, c.Close())
		}
		logger.Infof(ctx, "database configured (%s)", conf.Database.Driver)
	}

	if conf.Redis != nil && conf.Redis.Addr != "" {
		if c.Redis, err = NewRedis(conf.Redis); err != nil {
			return nil, errors.Join(err, c.Close())
		}
		logger.Infof(ctx, "redis configured (%s)", conf.Redis.Addr)
	}

	if conf.MongoDB != nil && conf.MongoDB.URI != "" {
		if c.Mongo, err = NewMongo(ctx, conf.MongoDB); err != nil {
			return nil, errors.Join(err, c.Close())
		}
		logger.Info(ctx, "mongodb configured")
	}

	if conf.Kafka != nil && len(conf.Kafka.Brokers) > 0 {
		if c.Kafka, err = NewKafkaPinger(conf.Kafka); err != nil {
			return nil, errors.Join(err, c.Close())
		}
	}

	if conf.RabbitMQ != nil && conf.RabbitMQ.URL != "" {
		if c.RabbitMQ, err = NewRabbitMQ(conf.RabbitMQ); err != nil {
			return nil, errors.Join(err, c.Close())
		}
		logger.Info(ctx, "rabbitmq configured")
	}

	return c, nil
}

// Close closes every open connection
func (c *Connections) Close() error {
	var errs []error

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close error: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("mongodb close error: %w", err))
		}
	}
	if c.RabbitMQ != nil {
		if err := c.RabbitMQ.Close(); err != nil {
			errs = append(errs, fmt.Errorf("rabbitmq close error: %w", err))
		}
	}

	return errors.Join(errs...)
}

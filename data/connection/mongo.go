package connection

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncobase/pulse/data/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongo creates a MongoDB client. The driver connects in the background,
// so an unreachable server surfaces on the first ping.
func NewMongo(ctx context.Context, conf *config.MongoDB) (*mongo.Client, error) {
	if conf == nil || conf.URI == "" {
		return nil, errors.New("mongodb configuration is nil or empty")
	}

	opts := options.Client().ApplyURI(conf.URI)
	if conf.ConnectTimeout > 0 {
		opts.SetConnectTimeout(conf.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}

	return client, nil
}

// MongoPinger adapts a MongoDB client to a context pinger
type MongoPinger struct {
	Client *mongo.Client
}

// PingContext pings the primary
func (p *MongoPinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}

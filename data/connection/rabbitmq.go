package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ncobase/pulse/data/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ keeps one AMQP connection and redials it on demand
type RabbitMQ struct {
	conf *config.RabbitMQ

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewRabbitMQ creates an unconnected RabbitMQ connection holder.
// The first PingContext dials the broker.
func NewRabbitMQ(conf *config.RabbitMQ) (*RabbitMQ, error) {
	if conf == nil || conf.URL == "" {
		return nil, errors.New("rabbitmq configuration is nil or empty")
	}
	if _, err := amqp.ParseURI(conf.URL); err != nil {
		return nil, fmt.Errorf("rabbitmq url error: %w", err)
	}
	return &RabbitMQ{conf: conf}, nil
}

func (r *RabbitMQ) connect() error {
	timeout := r.conf.ConnectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	conn, err := amqp.DialConfig(r.conf.URL, amqp.Config{
		Heartbeat: r.conf.HeartbeatInterval,
		Dial: func(network, addr string) (net.Conn, error) {
			return net.DialTimeout(network, addr, timeout)
		},
	})
	if err != nil {
		return fmt.Errorf("rabbitmq connect error: %w", err)
	}
	r.conn = conn
	return nil
}

// IsConnected reports whether the connection is open
func (r *RabbitMQ) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil && !r.conn.IsClosed()
}

// PingContext redials a closed connection and opens a channel to verify the broker
func (r *RabbitMQ) PingContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		if err := r.connect(); err != nil {
			return err
		}
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel error: %w", err)
	}
	return ch.Close()
}

// Close closes the connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}

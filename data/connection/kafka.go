package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/pulse/data/config"
	"github.com/segmentio/kafka-go"
)

// KafkaPinger checks broker reachability by dialing the cluster and asking for
// its controller
type KafkaPinger struct {
	brokers []string
	timeout time.Duration
	dialer  *kafka.Dialer
}

// NewKafkaPinger creates a Kafka pinger
func NewKafkaPinger(conf *config.Kafka) (*KafkaPinger, error) {
	if conf == nil || len(conf.Brokers) == 0 {
		return nil, errors.New("kafka configuration is nil or has no brokers")
	}

	timeout := conf.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &KafkaPinger{
		brokers: conf.Brokers,
		timeout: timeout,
		dialer:  &kafka.Dialer{Timeout: timeout},
	}, nil
}

// PingContext succeeds when any broker answers with the cluster controller
func (p *KafkaPinger) PingContext(ctx context.Context) error {
	var errs []error
	for _, broker := range p.brokers {
		conn, err := p.dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		_, err = conn.Controller()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", broker, err))
	}
	return fmt.Errorf("kafka unreachable: %w", errors.Join(errs...))
}

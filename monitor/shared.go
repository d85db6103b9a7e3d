package monitor

import (
	"context"
	"sync"
)

var (
	sharedMu sync.Mutex
	shared   *Service
)

// Shared returns the process-wide service, creating it on the first call.
// Later calls return the same instance and ignore their arguments until that
// instance is shut down; the next call then creates a new one.
func Shared(ctx context.Context, cfg *Config, opts Options) (*Service, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil && !shared.Closed() {
		return shared, nil
	}

	s, err := New(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	shared = s
	return s, nil
}

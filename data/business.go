package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ncobase/pulse/metrics"
)

// DefaultBusinessWindow is the trailing window business counters cover
const DefaultBusinessWindow = 24 * time.Hour

// BusinessQueries are scalar queries taking the window start as their only
// argument. An empty query reports zero.
type BusinessQueries struct {
	Created   string `json:"created" yaml:"created"`
	Succeeded string `json:"succeeded" yaml:"succeeded"`
	Failed    string `json:"failed" yaml:"failed"`
	Revenue   string `json:"revenue" yaml:"revenue"`
}

// SQLBusiness reads business counters from the application database
type SQLBusiness struct {
	db      *sql.DB
	queries BusinessQueries
	window  time.Duration
	now     func() time.Time
}

// NewSQLBusiness creates a business source; window <= 0 uses DefaultBusinessWindow
func NewSQLBusiness(db *sql.DB, queries BusinessQueries, window time.Duration) *SQLBusiness {
	if window <= 0 {
		window = DefaultBusinessWindow
	}
	return &SQLBusiness{db: db, queries: queries, window: window, now: time.Now}
}

// Business implements metrics.BusinessSource
func (s *SQLBusiness) Business(ctx context.Context) (metrics.Business, error) {
	since := s.now().Add(-s.window)

	created, err := s.scalar(ctx, s.queries.Created, since)
	if err != nil {
		return metrics.Business{}, fmt.Errorf("created: %w", err)
	}
	succeeded, err := s.scalar(ctx, s.queries.Succeeded, since)
	if err != nil {
		return metrics.Business{}, fmt.Errorf("succeeded: %w", err)
	}
	failed, err := s.scalar(ctx, s.queries.Failed, since)
	if err != nil {
		return metrics.Business{}, fmt.Errorf("failed: %w", err)
	}
	revenue, err := s.scalar(ctx, s.queries.Revenue, since)
	if err != nil {
		return metrics.Business{}, fmt.Errorf("revenue: %w", err)
	}

	return metrics.Business{
		DocumentsCreated: int64(created),
		Successes:        int64(succeeded),
		Failures:         int64(failed),
		Revenue:          revenue,
	}, nil
}

func (s *SQLBusiness) scalar(ctx context.Context, query string, since time.Time) (float64, error) {
	if query == "" {
		return 0, nil
	}
	var v sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, since).Scan(&v); err != nil {
		return 0, err
	}
	return v.Float64, nil
}

// SQLConnections reports open connections of a database pool
type SQLConnections struct {
	DB *sql.DB
}

// OpenConnections implements metrics.ConnectionCounter
func (s SQLConnections) OpenConnections() int {
	return s.DB.Stats().OpenConnections
}

package metrics

import "time"

// Metric names resolvable through Sample.Reading
const (
	MetricResponseTime        = "response_time"
	MetricThroughput          = "throughput"
	MetricErrorRate           = "error_rate"
	MetricAvailability        = "availability"
	MetricMemoryUsage         = "memory_usage"
	MetricCacheHitRate        = "cache_hit_rate"
	MetricDatabaseConnections = "database_connections"
	MetricActiveUsers         = "active_users"
	MetricDocumentsCreated    = "documents_created"
	MetricSuccesses           = "successes"
	MetricFailures            = "failures"
	MetricRevenue             = "revenue"
)

// Performance holds request-level performance figures
type Performance struct {
	ResponseTime float64 `json:"response_time"` // average, milliseconds
	Throughput   float64 `json:"throughput"`    // requests per second
	ErrorRate    float64 `json:"error_rate"`    // 0..1
	Availability float64 `json:"availability"`  // 0..1
}

// Resources holds process and dependency resource usage
type Resources struct {
	MemoryUsage         float64 `json:"memory_usage"`   // 0..1 of the configured limit
	CacheHitRate        float64 `json:"cache_hit_rate"` // 0..1
	DatabaseConnections int     `json:"database_connections"`
	ActiveUsers         int     `json:"active_users"`
}

// Business holds domain counters over a trailing window
type Business struct {
	DocumentsCreated int64   `json:"documents_created"`
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	Revenue          float64 `json:"revenue"`
}

// Sample is one point-in-time metrics reading.
// Samples are values and are never modified after collection.
type Sample struct {
	Timestamp   time.Time   `json:"timestamp"`
	Performance Performance `json:"performance"`
	Resources   Resources   `json:"resources"`
	Business    Business    `json:"business"`
}

// DefaultPerformance is used when no performance reading has ever succeeded
func DefaultPerformance() Performance {
	return Performance{Availability: 1}
}

// Reading returns the named metric value
func (s Sample) Reading(metric string) (float64, bool) {
	switch metric {
	case MetricResponseTime:
		return s.Performance.ResponseTime, true
	case MetricThroughput:
		return s.Performance.Throughput, true
	case MetricErrorRate:
		return s.Performance.ErrorRate, true
	case MetricAvailability:
		return s.Performance.Availability, true
	case MetricMemoryUsage:
		return s.Resources.MemoryUsage, true
	case MetricCacheHitRate:
		return s.Resources.CacheHitRate, true
	case MetricDatabaseConnections:
		return float64(s.Resources.DatabaseConnections), true
	case MetricActiveUsers:
		return float64(s.Resources.ActiveUsers), true
	case MetricDocumentsCreated:
		return float64(s.Business.DocumentsCreated), true
	case MetricSuccesses:
		return float64(s.Business.Successes), true
	case MetricFailures:
		return float64(s.Business.Failures), true
	case MetricRevenue:
		return s.Business.Revenue, true
	}
	return 0, false
}

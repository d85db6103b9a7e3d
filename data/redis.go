package data

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncobase/pulse/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisStats reads cache statistics from Redis INFO
type RedisStats struct {
	client redis.UniversalClient
}

// NewRedisStats creates a Redis cache statistics source
func NewRedisStats(client redis.UniversalClient) *RedisStats {
	return &RedisStats{client: client}
}

// CacheStats implements metrics.CacheSource
func (r *RedisStats) CacheStats(ctx context.Context) (metrics.CacheStats, error) {
	info, err := r.client.Info(ctx, "stats", "memory").Result()
	if err != nil {
		return metrics.CacheStats{}, fmt.Errorf("redis info: %w", err)
	}
	size, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return metrics.CacheStats{}, fmt.Errorf("redis dbsize: %w", err)
	}
	return ParseCacheStats(info, size), nil
}

// ParseCacheStats derives cache statistics from INFO output.
// A cache that has served no lookups reports a hit rate of 1.
func ParseCacheStats(info string, dbSize int64) metrics.CacheStats {
	fields := parseInfo(info)

	hits, _ := strconv.ParseFloat(fields["keyspace_hits"], 64)
	misses, _ := strconv.ParseFloat(fields["keyspace_misses"], 64)
	memory, _ := strconv.ParseInt(fields["used_memory"], 10, 64)

	hitRate := 1.0
	if total := hits + misses; total > 0 {
		hitRate = hits / total
	}

	return metrics.CacheStats{
		HitRate:     hitRate,
		TotalItems:  dbSize,
		MemoryUsage: memory,
	}
}

// parseInfo parses "key:value" lines, skipping section headers
func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			fields[k] = v
		}
	}
	return fields
}

// DefaultActiveWindow is the trailing window a user counts as active
const DefaultActiveWindow = 15 * time.Minute

// RedisActiveUsers tracks user activity in a sorted set scored by last seen time
type RedisActiveUsers struct {
	client redis.UniversalClient
	key    string
	window time.Duration
	now    func() time.Time
}

// NewRedisActiveUsers creates an active user counter over key
func NewRedisActiveUsers(client redis.UniversalClient, key string, window time.Duration) *RedisActiveUsers {
	if key == "" {
		key = "pulse:active_users"
	}
	if window <= 0 {
		window = DefaultActiveWindow
	}
	return &RedisActiveUsers{client: client, key: key, window: window, now: time.Now}
}

// Touch records activity of userID and drops entries outside the window
func (r *RedisActiveUsers) Touch(ctx context.Context, userID string) error {
	now := r.now()
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.key, redis.Z{Score: float64(now.Unix()), Member: userID})
	pipe.ZRemRangeByScore(ctx, r.key, "-inf", strconv.FormatInt(now.Add(-r.window).Unix(), 10))
	_, err := pipe.Exec(ctx)
	return err
}

// ActiveUsers implements metrics.UserCounter
func (r *RedisActiveUsers) ActiveUsers(ctx context.Context) (int, error) {
	since := strconv.FormatInt(r.now().Add(-r.window).Unix(), 10)
	n, err := r.client.ZCount(ctx, r.key, since, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(n), nil
}

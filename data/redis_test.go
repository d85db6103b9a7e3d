package data

import "testing"

const sampleInfo = "# Stats\r\n" +
	"total_connections_received:42\r\n" +
	"keyspace_hits:300\r\n" +
	"keyspace_misses:100\r\n" +
	"\r\n" +
	"# Memory\r\n" +
	"used_memory:1048576\r\n" +
	"used_memory_human:1.00M\r\n"

func TestParseCacheStats(t *testing.T) {
	stats := ParseCacheStats(sampleInfo, 17)
	if stats.HitRate != 0.75 {
		t.Errorf("hit rate = %v, want 0.75", stats.HitRate)
	}
	if stats.TotalItems != 17 {
		t.Errorf("total items = %d, want 17", stats.TotalItems)
	}
	if stats.MemoryUsage != 1048576 {
		t.Errorf("memory usage = %d, want 1048576", stats.MemoryUsage)
	}
}

func TestParseCacheStats_NoLookups(t *testing.T) {
	stats := ParseCacheStats("# Stats\r\nkeyspace_hits:0\r\nkeyspace_misses:0\r\n", 0)
	if stats.HitRate != 1 {
		t.Errorf("hit rate without lookups = %v, want 1", stats.HitRate)
	}
}

func TestParseInfo(t *testing.T) {
	fields := parseInfo(sampleInfo)
	if fields["used_memory_human"] != "1.00M" {
		t.Errorf("used_memory_human = %q", fields["used_memory_human"])
	}
	if _, ok := fields["# Stats"]; ok {
		t.Error("section headers should be skipped")
	}
}

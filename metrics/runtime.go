package metrics

import (
	"runtime"
	"sync/atomic"
)

// DefaultMemoryLimit is the heap budget memory usage is measured against
const DefaultMemoryLimit int64 = 1024 * 1024 * 1024 // 1GB

// RuntimeMemory holds the runtime memory figures of one reading
type RuntimeMemory struct {
	HeapAlloc  uint64 `json:"heap_alloc"` // Heap allocation in bytes
	HeapSys    uint64 `json:"heap_sys"`   // Heap system memory in bytes
	HeapIdle   uint64 `json:"heap_idle"`  // Heap idle memory in bytes
	GCCount    uint32 `json:"gc_count"`   // Number of completed GC cycles
	GCPause    uint64 `json:"gc_pause"`   // Total GC pause in nanoseconds
	Goroutines int    `json:"goroutines"` // Number of goroutines
}

// MemoryReader measures heap usage against a configured limit
type MemoryReader struct {
	limit int64
	peak  atomic.Uint64

	read func(*runtime.MemStats)
}

// NewMemoryReader creates a memory reader; limit <= 0 uses DefaultMemoryLimit
func NewMemoryReader(limit int64) *MemoryReader {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryReader{limit: limit, read: runtime.ReadMemStats}
}

// Usage returns heap allocation as a fraction of the limit
func (m *MemoryReader) Usage() float64 {
	stats := m.Stats()
	return float64(stats.HeapAlloc) / float64(m.limit)
}

// Stats reads the current runtime memory figures
func (m *MemoryReader) Stats() RuntimeMemory {
	var memStats runtime.MemStats
	m.read(&memStats)

	for {
		peak := m.peak.Load()
		if memStats.HeapAlloc <= peak || m.peak.CompareAndSwap(peak, memStats.HeapAlloc) {
			break
		}
	}

	return RuntimeMemory{
		HeapAlloc:  memStats.HeapAlloc,
		HeapSys:    memStats.HeapSys,
		HeapIdle:   memStats.HeapIdle,
		GCCount:    memStats.NumGC,
		GCPause:    memStats.PauseTotalNs,
		Goroutines: runtime.NumGoroutine(),
	}
}

// Peak returns the highest heap allocation observed
func (m *MemoryReader) Peak() uint64 {
	return m.peak.Load()
}

// Limit returns the configured heap budget in bytes
func (m *MemoryReader) Limit() int64 {
	return m.limit
}

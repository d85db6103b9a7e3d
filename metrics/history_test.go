package metrics

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleAt(i int) Sample {
	return Sample{
		Timestamp:   epoch.Add(time.Duration(i) * time.Second),
		Performance: Performance{Throughput: float64(i), Availability: 1},
	}
}

func TestHistory_RecentAfterOverflow(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	for i := 1; i <= 1005; i++ {
		h.Append(sampleAt(i))
	}

	if h.Len() != 1000 {
		t.Fatalf("len = %d, want 1000", h.Len())
	}

	recent := h.Recent(5)
	if len(recent) != 5 {
		t.Fatalf("got %d samples, want 5", len(recent))
	}
	for i, s := range recent {
		want := float64(1001 + i)
		if s.Performance.Throughput != want {
			t.Errorf("recent[%d] = sample #%v, want #%v", i, s.Performance.Throughput, want)
		}
	}

	all := h.Recent(0)
	if len(all) != 1000 || all[0].Performance.Throughput != 6 {
		t.Errorf("oldest retained sample = #%v, want #6", all[0].Performance.Throughput)
	}
}

func TestHistory_RecentLimits(t *testing.T) {
	h := NewHistory(10)
	for i := 1; i <= 3; i++ {
		h.Append(sampleAt(i))
	}

	testCases := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero returns all", 0, 3},
		{"negative returns all", -1, 3},
		{"larger than length returns all", 50, 3},
		{"exact", 3, 3},
		{"subset", 2, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := h.Recent(tc.limit)
			if len(got) != tc.want {
				t.Errorf("Recent(%d) returned %d samples, want %d", tc.limit, len(got), tc.want)
			}
			if len(got) > 0 && got[len(got)-1].Performance.Throughput != 3 {
				t.Error("last sample should be the newest")
			}
		})
	}
}

func TestHistory_LatestAndClear(t *testing.T) {
	h := NewHistory(2)
	if _, ok := h.Latest(); ok {
		t.Error("empty history should have no latest sample")
	}

	h.Append(sampleAt(1))
	h.Append(sampleAt(2))
	h.Append(sampleAt(3))

	latest, ok := h.Latest()
	if !ok || latest.Performance.Throughput != 3 {
		t.Errorf("latest = %+v", latest)
	}

	h.Clear()
	if h.Len() != 0 || len(h.Recent(0)) != 0 {
		t.Error("history should be empty after Clear")
	}
	h.Append(sampleAt(4))
	if got := h.Recent(0); len(got) != 1 || got[0].Performance.Throughput != 4 {
		t.Errorf("append after clear: %+v", got)
	}
}

// TestProperty_HistoryBounded verifies that appending N samples keeps exactly
// the min(N, cap) most recent, in chronological order.
func TestProperty_HistoryBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(rt, "capacity")
		n := rapid.IntRange(0, 200).Draw(rt, "appends")

		h := NewHistory(capacity)
		for i := 1; i <= n; i++ {
			h.Append(sampleAt(i))
			if h.Len() > capacity {
				rt.Fatalf("len %d exceeds capacity %d", h.Len(), capacity)
			}
		}

		got := h.Recent(capacity)
		want := min(n, capacity)
		if len(got) != want {
			rt.Fatalf("Recent(cap) returned %d, want %d", len(got), want)
		}
		for i, s := range got {
			expected := float64(n - want + 1 + i)
			if s.Performance.Throughput != expected {
				rt.Fatalf("got[%d] = #%v, want #%v", i, s.Performance.Throughput, expected)
			}
		}
	})
}

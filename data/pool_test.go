package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ncobase/pulse/health"
	"github.com/sony/gobreaker"
)

func TestHTTPPool_Members(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	pool := NewHTTPPool([]PoolMember{
		{Name: "ocr-a", URL: up.URL, Active: true},
		{Name: "ocr-b", URL: up.URL, Active: true},
		{Name: "ocr-c", URL: broken.URL, Active: true},
		{Name: "ocr-d", URL: broken.URL, Active: true},
		{Name: "ocr-e", URL: broken.URL, Active: false},
	}, nil)

	members, err := pool.Members(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{"ocr-a": true, "ocr-b": true, "ocr-c": false, "ocr-d": false, "ocr-e": false}
	for _, m := range members {
		if m.Healthy != want[m.Name] {
			t.Errorf("%s healthy = %v, want %v", m.Name, m.Healthy, want[m.Name])
		}
	}

	if got := health.ClassifyPool(members).Status; got != health.StatusDegraded {
		t.Errorf("pool status = %s, want degraded", got)
	}
}

func TestHTTPPool_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	pool := NewHTTPPool([]PoolMember{{Name: "provider", URL: broken.URL, Active: true}}, broken.Client())
	for i := 0; i < 5; i++ {
		if _, err := pool.Members(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	state, ok := pool.BreakerState("provider")
	if !ok || state != gobreaker.StateOpen {
		t.Errorf("breaker state = %v, want open", state)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("provider was called %d times, want 3 before the breaker opened", n)
	}
}

package exporter

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExporter_Handle(t *testing.T) {
	e := New("")
	bus := event.NewBus()
	bus.Subscribe(e.Handle)

	bus.Publish(event.TypeMetrics, metrics.Sample{
		Performance: metrics.Performance{ErrorRate: 0.25, Availability: 0.95},
		Resources:   metrics.Resources{ActiveUsers: 12},
	})
	bus.Publish(event.TypeHealth, []health.Result{
		{Service: "db", Status: health.StatusDegraded, ResponseTime: 1500},
		{Service: "cache", Status: health.StatusHealthy},
	})
	bus.Publish(event.TypeAlert, alert.Alert{Severity: alert.SeverityCritical})
	bus.Publish(event.TypeAlertResolved, alert.Alert{Severity: alert.SeverityCritical, Resolved: true})

	testCases := []struct {
		name string
		got  float64
		want float64
	}{
		{"error rate", testutil.ToFloat64(e.errorRate), 0.25},
		{"availability", testutil.ToFloat64(e.availability), 0.95},
		{"active users", testutil.ToFloat64(e.activeUsers), 12},
		{"db health", testutil.ToFloat64(e.serviceHealth.WithLabelValues("db")), 0.5},
		{"db latency", testutil.ToFloat64(e.serviceLatency.WithLabelValues("db")), 1500},
		{"critical alerts", testutil.ToFloat64(e.alertsRaised.WithLabelValues("critical")), 1},
		{"resolved alerts", testutil.ToFloat64(e.alertsResolved), 1},
		{"metrics events", testutil.ToFloat64(e.events.WithLabelValues(event.TypeMetrics)), 1},
	}
	for _, tc := range testCases {
		if tc.got != tc.want {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestExporter_Handler(t *testing.T) {
	e := New("pulse")
	e.Handle(event.Event{Type: event.TypeMetrics, Data: metrics.Sample{Performance: metrics.Performance{Availability: 1}}})

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "pulse_availability_ratio 1") {
		t.Errorf("exposition missing availability gauge:\n%s", body)
	}
}

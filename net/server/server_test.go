package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/metrics"
	"github.com/ncobase/pulse/metrics/exporter"
	"github.com/ncobase/pulse/monitor"
	"github.com/ncobase/pulse/overview"
)

type fixture struct {
	svc     *monitor.Service
	srv     *Server
	tracker *metrics.RequestTracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := monitor.DefaultConfig()
	cfg.Metrics.Interval = time.Hour
	cfg.Health.Interval = time.Hour

	tracker := metrics.NewRequestTracker(time.Minute)
	svc, err := monitor.New(context.Background(), cfg, monitor.Options{
		Sources: metrics.Sources{Performance: tracker},
		Probes: []health.Probe{
			health.ProbeFunc("database", func(context.Context) (health.Result, error) {
				return health.Result{Status: health.StatusHealthy}, nil
			}),
			health.ProbeFunc("cache", func(context.Context) (health.Result, error) {
				return health.Result{Status: health.StatusHealthy}, nil
			}),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Shutdown)

	srv := New(svc, Options{Tracker: tracker, Exporter: exporter.New(exporter.DefaultNamespace)})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &fixture{svc: svc, srv: srv, tracker: tracker}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestGetMetrics(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		if _, err := f.svc.CollectNow(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	w := f.do(t, http.MethodGet, "/monitor/metrics?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if samples := decode[[]metrics.Sample](t, w); len(samples) != 2 {
		t.Errorf("got %d samples, want 2", len(samples))
	}

	for _, bad := range []string{"abc", "-1"} {
		if w := f.do(t, http.MethodGet, "/monitor/metrics?limit="+bad, ""); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestAlertLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/monitor/alerts",
		`{"type":"error","severity":"high","title":"Queue Backlog","message":"backlog above 10k","metadata":{"queue":"ocr"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	created := decode[alert.Alert](t, w)
	if created.ID == "" || created.Source != manualSource || created.Metadata["queue"] != "ocr" {
		t.Errorf("created = %+v", created)
	}

	open := decode[[]alert.Alert](t, f.do(t, http.MethodGet, "/monitor/alerts", ""))
	if len(open) != 1 || open[0].ID != created.ID {
		t.Errorf("open alerts = %+v", open)
	}

	if w := f.do(t, http.MethodPost, "/monitor/alerts/wrong-id/resolve", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/monitor/alerts/"+created.ID+"/resolve", ""); w.Code != http.StatusOK {
		t.Errorf("resolve: status = %d, want 200", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/monitor/alerts/"+created.ID+"/resolve", ""); w.Code != http.StatusNotFound {
		t.Errorf("second resolve: status = %d, want 404", w.Code)
	}

	if open := decode[[]alert.Alert](t, f.do(t, http.MethodGet, "/monitor/alerts", "")); len(open) != 0 {
		t.Errorf("resolved alert still open: %+v", open)
	}
	all := decode[[]alert.Alert](t, f.do(t, http.MethodGet, "/monitor/alerts?include_resolved=true", ""))
	if len(all) != 1 || !all[0].Resolved || all[0].ResolvedAt == nil {
		t.Errorf("all alerts = %+v", all)
	}
}

func TestCreateAlert_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"type":"error","severity":"high"}`},
		{"bad type", `{"type":"fatal","severity":"high","title":"x"}`},
		{"bad severity", `{"type":"error","severity":"urgent","title":"x"}`},
		{"malformed", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := f.do(t, http.MethodPost, "/monitor/alerts", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
	if w := f.do(t, http.MethodGet, "/monitor/alerts?include_resolved=maybe", ""); w.Code != http.StatusBadRequest {
		t.Errorf("include_resolved=maybe: status = %d, want 400", w.Code)
	}
}

func TestHealthAndOverview(t *testing.T) {
	f := newFixture(t)
	f.svc.CheckNow(context.Background())

	results := decode[[]health.Result](t, f.do(t, http.MethodGet, "/monitor/health", ""))
	if len(results) != 2 || results[0].Service != "cache" || results[1].Service != "database" {
		t.Errorf("results = %+v", results)
	}

	f.svc.CreateAlert(alert.TypeError, alert.SeverityCritical, "Outage", "", "ops", nil)
	ov := decode[overview.Overview](t, f.do(t, http.MethodGet, "/monitor/overview", ""))
	if ov.Status != health.StatusDown || ov.Alerts.Critical != 1 {
		t.Errorf("overview = %+v", ov)
	}
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t)
	before := f.tracker.Len()

	req := httptest.NewRequest(http.MethodGet, "/monitor/stats", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(TraceIDHeader); got != "trace-123" {
		t.Errorf("trace header = %q, want trace-123", got)
	}
	if f.tracker.Len() != before+1 {
		t.Errorf("tracker recorded %d requests, want %d", f.tracker.Len(), before+1)
	}

	w = f.do(t, http.MethodGet, "/monitor/stats", "")
	if w.Header().Get(TraceIDHeader) == "" {
		t.Error("a trace id should be generated")
	}
	stats := decode[map[string]any](t, w)
	if _, ok := stats["stream_clients"]; !ok {
		t.Errorf("stats = %v", stats)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	f := newFixture(t)
	f.svc.CreateAlert(alert.TypeError, alert.SeverityHigh, "Manual", "", "ops", nil)

	w := f.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `pulse_alerts_raised_total{severity="high"} 1`) {
		t.Errorf("alert counter missing from exposition:\n%s", w.Body.String())
	}
}

func TestStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/monitor/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() event.Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var e event.Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v", err)
		}
		return e
	}

	if first := read(); first.Type != TypeOverview {
		t.Fatalf("first message type = %s, want overview", first.Type)
	}

	f.svc.CreateAlert(alert.TypeWarning, alert.SeverityMedium, "Streamed", "", "ops", nil)
	for {
		e := read()
		if e.Type == event.TypeAlert {
			data, _ := json.Marshal(e.Data)
			if !strings.Contains(string(data), "Streamed") {
				t.Errorf("alert event = %s", data)
			}
			break
		}
	}

	if err := f.srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

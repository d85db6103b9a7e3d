package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/metrics"
	"github.com/ncobase/pulse/metrics/exporter"
	"github.com/ncobase/pulse/overview"
)

// Monitor is the monitoring API served over HTTP
type Monitor interface {
	Subscribe(handler event.Handler) (unsubscribe func())
	GetMetrics(limit int) []metrics.Sample
	GetAlerts(includeResolved bool) []alert.Alert
	GetHealthChecks() map[string]health.Result
	GetSystemOverview() overview.Overview
	CreateAlert(typ alert.Type, severity alert.Severity, title, message, source string, metadata map[string]any) alert.Alert
	ResolveAlert(id string) bool
	Stats() map[string]any
}

// Options configures the server
type Options struct {
	Addr     string
	Mode     string                  // gin mode, release when empty
	Tracker  *metrics.RequestTracker // records served requests, optional
	Exporter *exporter.Exporter      // serves /metrics, optional
}

// Server serves the monitoring API
type Server struct {
	engine      *gin.Engine
	http        *http.Server
	monitor     Monitor
	stream      *stream
	unsubscribe func()
}

// New creates the server and registers its routes
func New(m Monitor, opts Options) *Server {
	mode := opts.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	engine.Use(Trace(), Logging(), gin.Recovery())
	if opts.Tracker != nil {
		engine.Use(Track(opts.Tracker))
	}

	s := &Server{
		engine:  engine,
		monitor: m,
		stream:  newStream(m),
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	if opts.Exporter != nil {
		s.unsubscribe = m.Subscribe(opts.Exporter.Handle)
		engine.GET("/metrics", gin.WrapH(opts.Exporter.Handler()))
	}
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	g := s.engine.Group("/monitor")
	g.GET("/metrics", s.getMetrics)
	g.GET("/alerts", s.getAlerts)
	g.POST("/alerts", s.createAlert)
	g.POST("/alerts/:id/resolve", s.resolveAlert)
	g.GET("/health", s.getHealth)
	g.GET("/overview", s.getOverview)
	g.GET("/stats", s.getStats)
	g.GET("/stream", s.stream.serve)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until Shutdown
func (s *Server) ListenAndServe() error {
	logger.Infof(context.Background(), "listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes live streams and waits for
// in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.stream.close()
	return s.http.Shutdown(ctx)
}

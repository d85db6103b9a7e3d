package server

import (
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/pulse/alert"
	"github.com/ncobase/pulse/ecode"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/metrics"
	"github.com/ncobase/pulse/net/resp"
)

// manualSource tags alerts created through the API without a source
const manualSource = "api"

// CreateAlertBody is the request body of POST /monitor/alerts
type CreateAlertBody struct {
	Type     alert.Type     `json:"type"`
	Severity alert.Severity `json:"severity"`
	Title    string         `json:"title" binding:"required"`
	Message  string         `json:"message"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) getMetrics(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsInvalid("limit")))
			return
		}
		limit = n
	}

	samples := s.monitor.GetMetrics(limit)
	if samples == nil {
		samples = []metrics.Sample{}
	}
	resp.Success(c.Writer, samples)
}

func (s *Server) getAlerts(c *gin.Context) {
	includeResolved := false
	if raw := c.Query("include_resolved"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsInvalid("include_resolved")))
			return
		}
		includeResolved = b
	}

	alerts := s.monitor.GetAlerts(includeResolved)
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	resp.Success(c.Writer, alerts)
}

func (s *Server) createAlert(c *gin.Context) {
	var body CreateAlertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsRequired("title"), err.Error()))
		return
	}
	if body.Type == "" {
		body.Type = alert.TypeInfo
	}
	if body.Severity == "" {
		body.Severity = alert.SeverityLow
	}
	if !body.Type.Valid() {
		resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsInvalid("type")))
		return
	}
	if !body.Severity.Valid() {
		resp.Fail(c.Writer, resp.BadRequest(ecode.FieldIsInvalid("severity")))
		return
	}
	if body.Source == "" {
		body.Source = manualSource
	}

	created := s.monitor.CreateAlert(body.Type, body.Severity, body.Title, body.Message, body.Source, body.Metadata)
	resp.WithStatusCode(c.Writer, http.StatusCreated, created)
}

func (s *Server) resolveAlert(c *gin.Context) {
	if !s.monitor.ResolveAlert(c.Param("id")) {
		resp.Fail(c.Writer, resp.NotFound(ecode.NotExist("unresolved alert")))
		return
	}
	resp.Success(c.Writer, "alert resolved")
}

func (s *Server) getHealth(c *gin.Context) {
	checks := s.monitor.GetHealthChecks()
	results := make([]health.Result, 0, len(checks))
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		results = append(results, checks[name])
	}
	resp.Success(c.Writer, results)
}

func (s *Server) getOverview(c *gin.Context) {
	resp.Success(c.Writer, s.monitor.GetSystemOverview())
}

func (s *Server) getStats(c *gin.Context) {
	stats := s.monitor.Stats()
	stats["stream_clients"] = s.stream.len()
	stats["stream_dropped"] = s.stream.dropped.Load()
	resp.Success(c.Writer, stats)
}

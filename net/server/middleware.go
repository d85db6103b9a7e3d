package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/pulse/ctxutil"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/metrics"
	"github.com/sirupsen/logrus"
)

// TraceIDHeader carries the request trace id
const TraceIDHeader = "X-Trace-ID"

// Trace ensures every request carries a trace id, reusing an incoming one
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := c.GetHeader(TraceIDHeader); incoming != "" {
			ctx = ctxutil.SetTraceID(ctx, incoming)
		}
		ctx, traceID := ctxutil.EnsureTraceID(ctx)

		c.Request = c.Request.WithContext(ctx)
		c.Set(ctxutil.TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// Logging logs every served request
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(c.Request.Context(), logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

// Track records the duration and outcome of every request in tracker
func Track(tracker *metrics.RequestTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		tracker.Record(time.Since(start), c.Writer.Status(), err)
	}
}

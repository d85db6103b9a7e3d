package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ncobase/pulse/logging/logger/config"
	"github.com/sirupsen/logrus"
)

// SentryHook forwards error level entries to Sentry
type SentryHook struct {
	hub *sentry.Hub
}

// NewSentryHook creates a hook backed by its own Sentry client
func NewSentryHook(c *config.Sentry) (*SentryHook, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              c.Endpoint,
		Environment:      c.Environment,
		Release:          c.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	return &SentryHook{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Levels returns the levels the hook fires on
func (h *SentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

// Fire sends the log entry to Sentry
func (h *SentryHook) Fire(entry *logrus.Entry) error {
	event := sentry.NewEvent()
	event.Level = sentryLevel(entry.Level)
	event.Message = entry.Message
	event.Timestamp = entry.Time
	event.Extra = make(map[string]any, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		event.Extra[k] = v
	}
	h.hub.CaptureEvent(event)
	return nil
}

// Flush waits for buffered events to be delivered
func (h *SentryHook) Flush(timeout time.Duration) bool {
	return h.hub.Flush(timeout)
}

func sentryLevel(level logrus.Level) sentry.Level {
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return sentry.LevelFatal
	case logrus.ErrorLevel:
		return sentry.LevelError
	case logrus.WarnLevel:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}

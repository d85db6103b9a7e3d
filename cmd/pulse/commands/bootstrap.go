package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ncobase/pulse/config"
	"github.com/ncobase/pulse/data"
	"github.com/ncobase/pulse/health"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/logging/observes"
	"github.com/ncobase/pulse/metrics"
	"github.com/ncobase/pulse/monitor"
	"github.com/ncobase/pulse/version"
)

// app holds everything a command needs once the configuration is loaded
type app struct {
	conf    *config.Config
	svc     *monitor.Service
	tracker *metrics.RequestTracker
}

// bootstrap initializes logging, observability and the data layer, then
// builds the monitoring service. A manual service runs no schedules.
// The returned cleanup releases all of it.
func bootstrap(ctx context.Context, confPath string, manual bool) (*app, func(), error) {
	conf, err := config.LoadConfig(confPath)
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*app, func(), error) {
		cleanup()
		return nil, nil, err
	}

	logger.SetVersion(version.GetVersionInfo().Version)
	cleanupLogger, err := logger.New(conf.Logger)
	if err != nil {
		return fail(fmt.Errorf("failed to init logger: %w", err))
	}
	cleanups = append(cleanups, cleanupLogger)

	if err := observes.NewSentry(conf.Observes.SentryOptions(conf.AppName)); err != nil {
		return fail(err)
	}
	if opts := conf.Observes.TracerOptions(); opts != nil {
		shutdownTracer, err := observes.NewTracer(opts)
		if err != nil {
			return fail(err)
		}
		cleanups = append(cleanups, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				logger.Errorf(ctx, "tracer shutdown error: %v", err)
			}
		})
	}

	d, cleanupData, err := data.New(ctx, conf.Data)
	if err != nil {
		return fail(fmt.Errorf("failed to init data: %w", err))
	}
	cleanups = append(cleanups, cleanupData)

	mon := conf.Monitor
	tracker := metrics.NewRequestTracker(mon.Metrics.TrackerWindow)
	sources := d.Sources(mon.SourceOptions())
	sources.Performance = tracker

	svc, err := monitor.New(ctx, mon.ServiceConfig(), monitor.Options{
		Sources: sources,
		Probes:  probes(d, mon.Health),
		Manual:  manual,
	})
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, svc.Shutdown)

	return &app{conf: conf, svc: svc, tracker: tracker}, cleanup, nil
}

// probes returns the data layer probes plus the configured external ones
func probes(d *data.Data, conf *config.Health) []health.Probe {
	ps := d.Probes(conf.SlowThreshold)

	if len(conf.Endpoints) > 0 {
		reacher := &health.HTTPReacher{Client: &http.Client{Timeout: conf.ProbeTimeout}}
		ps = append(ps, health.NewReachabilityProbe("external", conf.Endpoints, reacher))
	}
	if p := data.PoolProbe(conf.PoolName, conf.Pool, conf.ProbeTimeout); p != nil {
		ps = append(ps, p)
	}
	return ps
}

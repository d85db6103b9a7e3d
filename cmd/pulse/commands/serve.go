package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/ncobase/pulse/config"
	"github.com/ncobase/pulse/logging/logger"
	"github.com/ncobase/pulse/metrics/exporter"
	"github.com/ncobase/pulse/net/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring service and its HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *confPath)
		},
	}
}

func serve(ctx context.Context, confPath string) error {
	a, cleanup, err := bootstrap(ctx, confPath, false)
	if err != nil {
		return err
	}
	defer cleanup()

	a.conf.Watch(func(next *config.Config) {
		logger.StdLogger().SetLevel(logrus.Level(next.Logger.Level))
		logger.Infof(context.Background(), "config reloaded, log level %d", next.Logger.Level)
	}, func(err error) {
		logger.Warnf(context.Background(), "%v", err)
	})

	srv := server.New(a.svc, server.Options{
		Addr:     a.conf.Addr(),
		Mode:     a.conf.RunMode,
		Tracker:  a.tracker,
		Exporter: exporter.New(exporter.DefaultNamespace),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

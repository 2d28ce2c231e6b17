// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/tubemp3/internal/api"
	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/health"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/telemetry"
)

// Options selects the configuration sources of a daemon.
type Options struct {
	Version    string
	ConfigPath string
	EnvFile    string
}

// Bootstrap loads configuration, configures logging and tracing, builds the
// first runtime and returns an App ready to Run.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	loader := config.NewLoader(opts.ConfigPath, opts.Version)
	if opts.EnvFile != "" {
		loader = loader.WithEnvFile(opts.EnvFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stdout,
		Service: telemetry.ServiceName,
		Version: opts.Version,
	})
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str("version", opts.Version).
		Str("listen", cfg.ListenAddr).
		Str(xglog.FieldPath, opts.ConfigPath).
		Msg("starting tubemp3 daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks failed: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.ConfigFromApp(cfg))
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	rebuild := func(c config.AppConfig) (*api.Runtime, error) {
		return api.BuildRuntime(c, api.RuntimeDeps{})
	}
	rt, err := rebuild(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = telemetry.ServiceName
	}
	server := api.New(rt, api.Options{
		Version:        opts.Version,
		TracingService: tracingService,
		ServeMetrics:   cfg.MetricsAddr == "",
	})

	deps := Deps{
		Logger:     logger,
		Config:     cfg,
		APIHandler: server.Handler(),
	}
	if cfg.MetricsAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
	}
	mgr, err := NewManager(deps)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}

	return NewApp(logger, mgr, config.NewHolder(cfg, loader), server, rebuild), nil
}

// WaitForShutdown returns a context cancelled on interrupt or termination.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

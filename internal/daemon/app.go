// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tubemp3/internal/api"
	"github.com/ManuGH/tubemp3/internal/config"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/rs/zerolog"
)

// RuntimeBuilder derives a request runtime from a configuration.
type RuntimeBuilder func(config.AppConfig) (*api.Runtime, error)

// App owns the long-lived runtime lifecycle (config watcher, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	server       *api.Server
	rebuild      RuntimeBuilder
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. holder, server and rebuild may be
// nil, which disables reloading.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, server *api.Server, rebuild RuntimeBuilder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		server:       server,
		rebuild:      rebuild,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts the background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.holder != nil && a.server != nil && a.rebuild != nil {
		a.holder.OnReload(a.applyConfig)
	}

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.holder != nil {
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.holder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// applyConfig swaps in a runtime built from cfg. A runtime that fails to
// build leaves the previous one serving.
func (a *App) applyConfig(cfg config.AppConfig) {
	rt, err := a.rebuild(cfg)
	if err != nil {
		a.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "runtime.rebuild_failed").
			Msg("failed to build runtime from reloaded config, keeping current")
		return
	}
	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "tubemp3",
		Version: cfg.Version,
	})
	a.server.SetRuntime(rt)
}

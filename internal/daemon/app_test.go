// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tubemp3/internal/api"
	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/log"
)

type blockingManager struct {
	started chan struct{}
	err     error
}

func (m *blockingManager) Start(ctx context.Context) error {
	close(m.started)
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return nil
}

func (m *blockingManager) Shutdown(context.Context) error { return nil }

func (m *blockingManager) RegisterShutdownHook(string, ShutdownHook) {}

func buildRuntime(c config.AppConfig) (*api.Runtime, error) {
	return api.BuildRuntime(c, api.RuntimeDeps{})
}

func TestAppRunRequiresManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestAppRunReturnsManagerError(t *testing.T) {
	boom := errors.New("bind failed")
	app := NewApp(log.WithComponent("test"), &blockingManager{started: make(chan struct{}), err: boom}, nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), boom)
}

func TestAppReloadSwapsRuntime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  mode: sequential\n"), 0o600))

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	rt, err := buildRuntime(cfg)
	require.NoError(t, err)

	server := api.New(rt, api.Options{Version: "test"})
	holder := config.NewHolder(cfg, loader)
	mgr := &blockingManager{started: make(chan struct{})}
	app := NewApp(log.WithComponent("test"), mgr, holder, server, buildRuntime)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-mgr.started

	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  mode: race\n"), 0o600))
	require.NoError(t, holder.Reload(ctx))

	assert.NotSame(t, rt, server.Runtime())
	assert.Equal(t, config.ModeRace, server.Runtime().Config.Resolver.Mode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestAppKeepsRuntimeWhenRebuildFails(t *testing.T) {
	cfg := config.Default()
	rt, err := buildRuntime(cfg)
	require.NoError(t, err)
	server := api.New(rt, api.Options{Version: "test"})

	app := NewApp(log.WithComponent("test"), &blockingManager{started: make(chan struct{})}, nil, server,
		func(config.AppConfig) (*api.Runtime, error) { return nil, errors.New("bad provider table") })
	app.applyConfig(cfg)

	assert.Same(t, rt, server.Runtime())
}

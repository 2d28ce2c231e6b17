// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolderReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeFile(t, "config.yaml", "transcode:\n  bitrateKbps: 160\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	require.NoError(t, os.WriteFile(path, []byte("transcode:\n  bitrateKbps: 9000\n"), 0o600))

	err = h.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, 160, h.Get().Transcode.BitrateKbps)
}

func TestHolderReloadNotifiesListeners(t *testing.T) {
	path := writeFile(t, "config.yaml", "transcode:\n  bitrateKbps: 160\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	var got atomic.Int64
	h.OnReload(func(c AppConfig) { got.Store(int64(c.Transcode.BitrateKbps)) })

	require.NoError(t, os.WriteFile(path, []byte("transcode:\n  bitrateKbps: 192\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, int64(192), got.Load())
	assert.Equal(t, 192, h.Get().Transcode.BitrateKbps)
}

func TestHolderWatcherReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "config.yaml", "resolver:\n  mode: sequential\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHolder(initial, loader)
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  mode: race\n"), 0o600))

	require.Eventually(t, func() bool {
		return h.Get().Resolver.Mode == ModeRace
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHolderWatcherWithoutFileIsNoop(t *testing.T) {
	h := NewHolder(Default(), NewLoader("", ""))
	assert.NoError(t, h.StartWatcher(context.Background()))
}

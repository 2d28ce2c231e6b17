// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m := NewManager("v1.2.3")
	assert.NotNil(t, m)
	assert.Equal(t, "v1.2.3", m.version)
	assert.Empty(t, m.checkers)
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["healthy"].Status)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Health_Unhealthy(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "unhealthy", status: StatusUnhealthy})

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 1)
}

func TestManager_Ready(t *testing.T) {
	t.Run("no checkers", func(t *testing.T) {
		resp := NewManager("v1").Ready(context.Background(), false)
		assert.True(t, resp.Ready)
		assert.Equal(t, StatusHealthy, resp.Status)
	})

	t.Run("degraded stays ready", func(t *testing.T) {
		m := NewManager("v1")
		m.RegisterChecker(&mockChecker{name: "a", status: StatusHealthy})
		m.RegisterChecker(&mockChecker{name: "b", status: StatusDegraded})
		resp := m.Ready(context.Background(), false)
		assert.True(t, resp.Ready)
		assert.Equal(t, StatusDegraded, resp.Status)
	})

	t.Run("unhealthy", func(t *testing.T) {
		m := NewManager("v1")
		m.RegisterChecker(&mockChecker{name: "ffmpeg", status: StatusUnhealthy, err: "not found"})
		resp := m.Ready(context.Background(), false)
		assert.False(t, resp.Ready)
		assert.Equal(t, StatusUnhealthy, resp.Status)
		assert.Equal(t, "not found", resp.Checks["ffmpeg"].Error)
	})
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "test", status: StatusHealthy})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	m.ServeHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	req = httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil)
	w = httptest.NewRecorder()
	m.ServeHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp = HealthResponse{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Checks, 1)
}

func TestManager_RegisterCheckerReplacesByName(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "ffmpeg", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "ffmpeg", status: StatusHealthy})

	resp := m.Ready(context.Background(), false)
	assert.True(t, resp.Ready)
	assert.Len(t, resp.Checks, 1)
}

func TestManager_ReadyWorstStatusWins(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "a", status: StatusDegraded})
	m.RegisterChecker(&mockChecker{name: "b", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "c", status: StatusHealthy})

	resp := m.Ready(context.Background(), false)
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 3)
}

func TestManager_ServeHealth_EncodingError(t *testing.T) {
	m := NewManager("v1.0.0")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	m.ServeHealth(&brokenWriter{header: make(http.Header)}, req)
}

func TestManager_ServeReady(t *testing.T) {
	tests := []struct {
		name           string
		checker        Checker
		expectedStatus int
		expectedReady  bool
	}{
		{"healthy", &mockChecker{name: "test", status: StatusHealthy}, http.StatusOK, true},
		{"degraded", &mockChecker{name: "test", status: StatusDegraded}, http.StatusOK, true},
		{"unhealthy", &mockChecker{name: "test", status: StatusUnhealthy}, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(tt.checker)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			m.ServeReady(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedReady, resp.Ready)
		})
	}
}

func TestBinaryChecker(t *testing.T) {
	ok := NewBinaryChecker("ffmpeg", func() (string, error) { return "/usr/bin/ffmpeg", nil }, false)
	assert.Equal(t, "ffmpeg", ok.Name())
	res := ok.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "/usr/bin/ffmpeg", res.Message)

	missing := func() (string, error) { return "", errors.New("ffmpeg not found") }

	res = NewBinaryChecker("ffmpeg", missing, false).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "ffmpeg not found", res.Error)

	res = NewBinaryChecker("yt-dlp", missing, true).Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
}

func TestPathChecker_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	res := NewPathChecker("yt-dlp", "yt-dlp", true).Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestFuncChecker(t *testing.T) {
	c := NewFuncChecker("config", func(context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "3 providers"}
	})
	assert.Equal(t, "config", c.Name())
	assert.Equal(t, "3 providers", c.Check(context.Background()).Message)
}

func TestPerformStartupChecks(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	cfg := config.Default()
	cfg.Transcode.FFmpegBin = ""
	// Missing ffmpeg only warns.
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	cfg.ListenAddr = "no-port"
	require.Error(t, PerformStartupChecks(context.Background(), cfg))

	cfg.ListenAddr = ":8080"
	cfg.MetricsAddr = ":99999"
	require.Error(t, PerformStartupChecks(context.Background(), cfg))
}

type mockChecker struct {
	name    string
	status  Status
	message string
	err     string
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: m.message,
		Error:   m.err,
	}
}

// brokenWriter fails every write.
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, assert.AnError
}

func (w *brokenWriter) WriteHeader(int) {}

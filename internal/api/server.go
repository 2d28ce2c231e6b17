// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the HTTP surface: /convert, /info, /debug and probes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/ManuGH/tubemp3/internal/api/middleware"
	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/health"
	"github.com/ManuGH/tubemp3/internal/log"
)

// Options configures a Server.
type Options struct {
	Version string
	// Health receives the server's checkers; a new manager is created when nil.
	Health *health.Manager
	// TracingService names inbound spans; empty disables HTTP tracing.
	TracingService string
	// ServeMetrics mounts /metrics on the main router.
	ServeMetrics bool
}

// Server owns the HTTP handlers. The runtime is swapped atomically on
// config reload; requests in flight keep the runtime they started with.
type Server struct {
	runtime atomic.Pointer[Runtime]
	health  *health.Manager
	opts    Options
	handler http.Handler
}

// New creates a server around rt.
func New(rt *Runtime, opts Options) *Server {
	if opts.Health == nil {
		opts.Health = health.NewManager(opts.Version)
	}
	s := &Server{health: opts.Health, opts: opts}
	s.runtime.Store(rt)
	s.registerCheckers(rt.Config)
	s.handler = s.routes(rt.Config)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Runtime returns the current runtime.
func (s *Server) Runtime() *Runtime { return s.runtime.Load() }

// SetRuntime swaps in rt. CORS origins are bound at construction and need a
// restart to change.
func (s *Server) SetRuntime(rt *Runtime) {
	old := s.runtime.Swap(rt)
	logger := log.WithComponent("api")
	logger.Info().
		Str(log.FieldEvent, "runtime.swapped").
		Strs("providers", rt.Media.Providers()).
		Str(log.FieldMode, rt.Config.Resolver.Mode).
		Bool("ffmpeg", rt.FFmpegErr == nil).
		Msg("runtime replaced")
	if old != nil && !lo.ElementsMatch(old.Config.CORS.AllowedOrigins, rt.Config.CORS.AllowedOrigins) {
		logger.Warn().Msg("cors.allowedOrigins changed; restart required to apply")
	}
}

func (s *Server) routes(cfg config.AppConfig) http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:     true,
		AllowedOrigins: cfg.CORS.AllowedOrigins,

		EnableSecurityHeaders: true,

		EnableMetrics:  true,
		TracingService: s.opts.TracingService,
		EnableLogging:  true,
	})

	r.Get("/convert", s.handleConvert)
	r.Get("/info", s.handleInfo)
	r.Get("/debug", s.handleDebug)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.opts.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgBadMethod, nil)
	})
	return r
}

func (s *Server) registerCheckers(cfg config.AppConfig) {
	s.health.RegisterChecker(health.NewBinaryChecker("ffmpeg", func() (string, error) {
		rt := s.Runtime()
		if rt.FFmpegErr != nil {
			return "", rt.FFmpegErr
		}
		return rt.FFmpeg, nil
	}, false))

	s.health.RegisterChecker(health.NewFuncChecker("providers", func(context.Context) health.CheckResult {
		rt := s.Runtime()
		names := rt.Media.Providers()
		if len(names) == 0 {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: "no media providers enabled"}
		}
		msg := fmt.Sprintf("%d media providers (%s)", len(names), rt.Config.Resolver.Mode)
		if !rt.Media.HasDownloads() {
			return health.CheckResult{Status: health.StatusDegraded, Message: msg + ", no download tier"}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: msg}
	}))

	if lo.ContainsBy(cfg.Providers, func(p config.ProviderConfig) bool {
		return !p.Disabled && p.Kind == config.KindYtdlp
	}) {
		s.health.RegisterChecker(health.NewPathChecker("yt-dlp", "yt-dlp", true))
	}
}

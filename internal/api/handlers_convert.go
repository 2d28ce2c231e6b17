// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tubemp3/internal/api/middleware"
	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/delivery"
	"github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/resolver"
	"github.com/ManuGH/tubemp3/internal/telemetry"
	"github.com/ManuGH/tubemp3/internal/transcode"
	"github.com/ManuGH/tubemp3/internal/videoref"
)

// handleConvert resolves, transcodes and streams an MP3. Failures before the
// first output byte go to the download tier; failures after it abort the
// connection so the client sees a truncated transfer instead of a short file.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ref, ok := parseRef(w, r)
	if !ok {
		return
	}
	rt := s.Runtime()
	ctx := log.ContextWithVideoID(r.Context(), ref.ID)
	logger := log.WithComponentFromContext(ctx, "convert")
	start := time.Now()

	loc, err := rt.Media.Resolve(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug().Err(err).Msg("client went away during resolution")
			return
		}
		logger.Warn().Err(err).Str(log.FieldEvent, "convert.resolve_failed").Msg("media resolution failed")
		s.fallback(ctx, w, r, rt, ref, failureDetails(nil, err))
		return
	}
	logger = logger.With().Str(log.FieldProvider, loc.Provider).Logger()
	input := "url"
	if loc.IsStream() {
		input = "stream"
	}
	middleware.AddSpanAttributes(r, telemetry.ConvertAttributes(
		ref.ID, rt.Config.Resolver.Mode, loc.Provider, input, rt.Config.Transcode.BitrateKbps)...)

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := rt.Transcoder.Transcode(tctx, loc, rt.Config.Transcode.BitrateKbps)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "convert.transcode_failed").Msg("transcoder did not start")
		s.fallback(ctx, w, r, rt, ref, failureDetails(loc, err))
		return
	}

	gate := delivery.NewGate(w, delivery.Options{FirstByteTimeout: rt.Config.Transcode.FirstByteTimeout})
	err = gate.Serve(tctx, stream, loc.Title())
	cancel()

	switch {
	case err == nil:
		logger.Info().
			Str(log.FieldEvent, "convert.done").
			Int64(log.FieldBytes, gate.Written()).
			Int64(log.FieldDuration, time.Since(start).Milliseconds()).
			Msg("conversion streamed")
	case errors.Is(err, delivery.ErrClientGone):
		logger.Info().Err(err).Int64(log.FieldBytes, gate.Written()).Msg("client disconnected")
	case errors.Is(err, delivery.ErrFailedPreCommit):
		logger.Warn().Err(err).Str(log.FieldEvent, "convert.precommit_failed").Msg("transcode failed before first byte")
		s.fallback(ctx, w, r, rt, ref, failureDetails(loc, err))
	case gate.Committed():
		abort(logger, err, gate.Written())
	default:
		logger.Error().Err(err).Msg("unexpected gate failure")
		writeError(w, http.StatusInternalServerError, msgConvertFailed, nil)
	}
}

// abort drops the connection of a committed response.
func abort(logger zerolog.Logger, err error, written int64) {
	logger.Error().
		Err(err).
		Str(log.FieldEvent, "convert.aborted").
		Int64(log.FieldBytes, written).
		Msg("transcode failed after commit, aborting response")
	panic(http.ErrAbortHandler)
}

// fallback answers a conversion that produced nothing. Under the redirect
// policy the download tier is probed and the client is sent to the first
// usable URL; otherwise, or when nothing is usable, the answer is a 502.
func (s *Server) fallback(ctx context.Context, w http.ResponseWriter, r *http.Request, rt *Runtime, ref videoref.Ref, details map[string]string) {
	logger := log.WithComponentFromContext(ctx, "convert")
	middleware.AddSpanAttributes(r, telemetry.ErrorAttributes("precommit")...)

	if rt.Config.Fallback.Policy == config.FallbackRedirect && rt.Media.HasDownloads() {
		loc, err := rt.Media.FirstUsable(ctx, ref)
		if err == nil {
			logger.Info().
				Str(log.FieldEvent, "convert.redirect").
				Str(log.FieldProvider, loc.Provider).
				Msg("redirecting to download tier")
			metrics.IncFallback("response", "redirect")
			w.Header().Set("Cache-Control", "no-store")
			http.Redirect(w, r, loc.URL, http.StatusFound)
			return
		}
		if ctx.Err() != nil {
			return
		}
		for k, v := range failureDetails(nil, err) {
			details[k] = v
		}
	}

	metrics.IncFallback("response", "error")
	writeError(w, http.StatusBadGateway, msgConvertFailed, details)
}

// failureDetails maps a failure to provider name and short reason. Internal
// paths and ffmpeg output are never included.
func failureDetails(loc *provider.Locator, err error) map[string]string {
	var exhausted *resolver.ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Reasons()
	}

	name := "transcode"
	if loc != nil && loc.Provider != "" {
		name = loc.Provider
	}
	reason := "transcode failed: " + transcode.ErrorClass(err)
	switch {
	case errors.Is(err, delivery.ErrFirstByteDeadline):
		reason = "transcode produced no output in time"
	case errors.Is(err, delivery.ErrEmptyOutput):
		reason = "transcode produced no output"
	}
	return map[string]string{name: reason}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/tubemp3/internal/api/middleware"
	"github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/resolver"
	"github.com/ManuGH/tubemp3/internal/telemetry"
	"github.com/ManuGH/tubemp3/internal/videoref"
)

// parseRef reads the url query parameter. It writes the 400 itself and
// reports false when the request cannot proceed.
func parseRef(w http.ResponseWriter, r *http.Request) (videoref.Ref, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, msgNoURL, nil)
		return videoref.Ref{}, false
	}
	ref, err := videoref.Extract(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidURL, nil)
		return videoref.Ref{}, false
	}
	return ref, true
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ref, ok := parseRef(w, r)
	if !ok {
		return
	}
	ctx := log.ContextWithVideoID(r.Context(), ref.ID)
	logger := log.WithComponentFromContext(ctx, "info")
	middleware.AddSpanAttributes(r, telemetry.VideoAttributes(ref.ID)...)

	card, err := s.Runtime().Metadata.Resolve(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug().Err(err).Msg("client went away during metadata lookup")
			return
		}
		var exhausted *resolver.ExhaustedError
		var details map[string]string
		if errors.As(err, &exhausted) {
			details = exhausted.Reasons()
		}
		logger.Warn().Err(err).Str(log.FieldEvent, "info.failed").Msg("metadata unavailable")
		writeError(w, http.StatusBadGateway, msgInfoFailed, details)
		return
	}

	logger.Debug().Str(log.FieldProvider, card.From).Bool("fallback", card.IsFallback).Msg("metadata resolved")
	writeJSON(w, http.StatusOK, card)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ManuGH/tubemp3/internal/log"
)

// AccessLog logs one line per request once the handler returns, so streamed
// responses are logged with their full duration and byte count.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger := log.WithComponentFromContext(r.Context(), "http")
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				ev := logger.Info()
				if status >= http.StatusInternalServerError {
					ev = logger.Warn()
				}
				ev.Str(log.FieldEvent, "http.request").
					Str("method", r.Method).
					Str(log.FieldPath, r.URL.Path).
					Int("status", status).
					Int(log.FieldBytes, ww.BytesWritten()).
					Int64(log.FieldDuration, time.Since(start).Milliseconds()).
					Str("remote_addr", r.RemoteAddr).
					Str("user_agent", r.UserAgent()).
					Msg("request handled")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

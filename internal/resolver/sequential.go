// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"context"
	"errors"
	"time"

	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("tubemp3/resolver")

// AttemptFunc performs one provider attempt under ctx.
type AttemptFunc[S provider.Source, T any] func(ctx context.Context, src S) (T, error)

// Sequential tries sources in order and returns the first success. Each
// attempt runs under its own timeout (the source's, else defaultTimeout) and
// the deadline of ctx. Failed attempts are recorded and skipped. When ctx
// expires the remaining sources are recorded as skipped.
func Sequential[S provider.Source, T any](ctx context.Context, capability string, sources []S, defaultTimeout time.Duration, fn AttemptFunc[S, T]) (T, []Attempt, error) {
	var zero T
	logger := xglog.WithComponentFromContext(ctx, "resolver")
	attempts := make([]Attempt, 0, len(sources))

	for i, src := range sources {
		name := src.Name()
		if ctx.Err() != nil {
			for _, rest := range sources[i:] {
				attempts = append(attempts, Attempt{Provider: rest.Name(), Outcome: OutcomeSkipped, Reason: "budget exhausted"})
			}
			break
		}

		start := time.Now()
		v, err := runAttempt(ctx, src, defaultTimeout, fn)
		d := time.Since(start)

		if err == nil {
			metrics.ObserveProviderAttempt(name, capability, OutcomeSuccess, d)
			logger.Debug().
				Str(xglog.FieldProvider, name).
				Str(xglog.FieldOutcome, OutcomeSuccess).
				Dur(xglog.FieldDuration, d).
				Msg("provider attempt succeeded")
			attempts = append(attempts, Attempt{Provider: name, Outcome: OutcomeSuccess, Duration: d})
			return v, attempts, nil
		}

		a := failedAttempt(name, err, d)
		metrics.ObserveProviderAttempt(name, capability, a.Outcome, d)
		logger.Info().
			Err(err).
			Str(xglog.FieldProvider, name).
			Str(xglog.FieldOutcome, a.Outcome).
			Dur(xglog.FieldDuration, d).
			Msg("provider attempt failed")
		attempts = append(attempts, a)
	}
	return zero, attempts, &ExhaustedError{Capability: capability, Attempts: attempts}
}

// runAttempt bounds fn by the attempt timeout and normalises its error so a
// provider that ignores its deadline is still reported as a timeout.
func runAttempt[S provider.Source, T any](ctx context.Context, src S, defaultTimeout time.Duration, fn AttemptFunc[S, T]) (T, error) {
	timeout := src.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	actx, span := tracer.Start(actx, "provider "+src.Name())
	span.SetAttributes(telemetry.ProviderAttributes(src.Name())...)
	defer span.End()

	v, err := fn(actx, src)
	if err == nil {
		return v, nil
	}
	defer func() {
		span.RecordError(err)
		span.SetStatus(codes.Error, provider.Reason(err))
	}()
	if errors.Is(actx.Err(), context.DeadlineExceeded) && !errors.Is(err, provider.ErrTimeout) {
		err = provider.Timeout(src.Name(), err)
	} else if !errors.Is(err, provider.ErrUnavailable) {
		err = provider.Unavailable(src.Name(), "", err)
	}
	return v, err
}

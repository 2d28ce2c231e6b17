// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateOutcomes counts first-byte gate results (committed, failed_pre_commit, failed_post_commit, completed).
	GateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_gate_outcomes_total",
		Help: "First-byte gate outcomes",
	}, []string{"outcome"})

	// FirstByteLatency tracks the time from transcode start to the first MP3 byte.
	FirstByteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tubemp3_first_byte_latency_seconds",
		Help:    "Time from transcode start to the first MP3 byte",
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20, 30},
	})

	// FallbackTier counts fallback deliveries by tier and result.
	FallbackTier = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_fallback_tier_total",
		Help: "Fallback tier invocations by tier and result",
	}, []string{"tier", "result"})

	// ConfigReloads counts config reload attempts by result.
	ConfigReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_config_reloads_total",
		Help: "Config reload attempts by result",
	}, []string{"result"})
)

// IncGateOutcome records a gate outcome.
func IncGateOutcome(outcome string) {
	GateOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveFirstByte records first byte latency.
func ObserveFirstByte(d time.Duration) {
	FirstByteLatency.Observe(d.Seconds())
}

// IncFallback records a fallback tier invocation.
func IncFallback(tier, result string) {
	FallbackTier.WithLabelValues(tier, result).Inc()
}

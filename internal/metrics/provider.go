// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderAttempts counts single provider attempts by outcome (success, unavailable, timeout).
	ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_provider_attempts_total",
		Help: "Provider attempts by provider, capability and outcome",
	}, []string{"provider", "capability", "outcome"})

	// ProviderAttemptDuration tracks how long a single provider attempt took.
	ProviderAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tubemp3_provider_attempt_duration_seconds",
		Help:    "Duration of single provider attempts",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	}, []string{"provider", "capability"})

	// ChainResolutions counts chain resolutions by mode and result.
	ChainResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_chain_resolutions_total",
		Help: "Provider chain resolutions by mode and result",
	}, []string{"mode", "result"})

	// MetadataFallbackCards counts degraded metadata responses.
	MetadataFallbackCards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tubemp3_metadata_fallback_cards_total",
		Help: "Metadata requests answered with a fallback card",
	})
)

// ObserveProviderAttempt records the outcome and duration of one attempt.
func ObserveProviderAttempt(provider, capability, outcome string, d time.Duration) {
	ProviderAttempts.WithLabelValues(provider, capability, outcome).Inc()
	ProviderAttemptDuration.WithLabelValues(provider, capability).Observe(d.Seconds())
}

// IncChainResolution records a finished chain resolution.
func IncChainResolution(mode, result string) {
	ChainResolutions.WithLabelValues(mode, result).Inc()
}

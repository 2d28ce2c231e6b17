// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TranscodesActive tracks running transcoder processes.
	TranscodesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tubemp3_transcodes_active",
		Help: "Number of running transcoder processes",
	})

	// TranscodeBytesOutput tracks MP3 bytes produced by the transcoder.
	TranscodeBytesOutput = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tubemp3_transcode_bytes_output_total",
		Help: "Total MP3 bytes produced by the transcoder",
	})

	// TranscodeErrors tracks transcoder failures by classified error type.
	TranscodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_transcode_errors_total",
		Help: "Total transcoder failures by error type",
	}, []string{"error_type"})

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubemp3_proc_terminate_total",
		Help: "Signals sent to helper process groups",
	}, []string{"signal", "result"})
)

// IncProcTerminate records a signal sent to a helper process group.
func IncProcTerminate(signal, result string) {
	procTerminate.WithLabelValues(signal, result).Inc()
}

// IncTranscodeError records a classified transcoder failure.
func IncTranscodeError(errorType string) {
	TranscodeErrors.WithLabelValues(errorType).Inc()
}

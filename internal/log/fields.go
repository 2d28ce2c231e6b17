// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldVideoID   = "video_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	FieldComponent = "component"
	FieldEvent     = "event"

	// Provider / pipeline fields
	FieldProvider = "provider"
	FieldKind     = "kind"
	FieldEndpoint = "endpoint"
	FieldAttempt  = "attempt"
	FieldOutcome  = "outcome"
	FieldMode     = "mode"

	// Gate fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Transcode fields
	FieldPID     = "pid"
	FieldBitrate = "bitrate_kbps"
	FieldBytes   = "bytes"

	FieldPath     = "path"
	FieldDuration = "duration_ms"
)

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used across spans.
const (
	VideoIDKey = "video.id"

	ProviderNameKey = "provider.name"
	ResolverModeKey = "resolver.mode"

	TranscodeBitrateKey = "transcode.bitrate_kbps"
	TranscodeInputKey   = "transcode.input"

	ErrorTypeKey = "error.type"
)

// VideoAttributes identifies the requested video.
func VideoAttributes(videoID string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(VideoIDKey, videoID)}
}

// ProviderAttributes identifies a provider attempt.
func ProviderAttributes(name string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(ProviderNameKey, name)}
}

// ConvertAttributes describes a conversion request.
func ConvertAttributes(videoID, mode, provider, input string, bitrate int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(VideoIDKey, videoID),
		attribute.String(ResolverModeKey, mode),
		attribute.Int(TranscodeBitrateKey, bitrate),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(ProviderNameKey, provider))
	}
	if input != "" {
		attrs = append(attrs, attribute.String(TranscodeInputKey, input))
	}
	return attrs
}

// ErrorAttributes classifies a failure.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(ErrorTypeKey, errorType)}
}

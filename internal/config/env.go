// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tubemp3/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys.
const (
	EnvListenAddr       = "TUBEMP3_LISTEN_ADDR"
	EnvMetricsAddr      = "TUBEMP3_METRICS_ADDR"
	EnvLogLevel         = "TUBEMP3_LOG_LEVEL"
	EnvLogFormat        = "TUBEMP3_LOG_FORMAT"
	EnvFFmpegBin        = "TUBEMP3_FFMPEG_BIN"
	EnvBitrateKbps      = "TUBEMP3_BITRATE_KBPS"
	EnvFirstByteTimeout = "TUBEMP3_FIRST_BYTE_TIMEOUT"
	EnvMaxDuration      = "TUBEMP3_MAX_DURATION"
	EnvInputMode        = "TUBEMP3_INPUT_MODE"
	EnvResolverMode     = "TUBEMP3_RESOLVER_MODE"
	EnvProviderTimeout  = "TUBEMP3_PROVIDER_TIMEOUT"
	EnvResolverBudget   = "TUBEMP3_RESOLVER_BUDGET"
	EnvMetadataBudget   = "TUBEMP3_METADATA_BUDGET"
	EnvFallbackCard     = "TUBEMP3_FALLBACK_CARD"
	EnvFallbackPolicy   = "TUBEMP3_FALLBACK_POLICY"
	EnvProviderOrder    = "TUBEMP3_PROVIDER_ORDER"
	EnvProvidersOff     = "TUBEMP3_PROVIDERS_DISABLED"
	EnvAllowPrivate     = "TUBEMP3_ALLOW_PRIVATE_UPSTREAMS"
	EnvCORSOrigins      = "TUBEMP3_CORS_ORIGINS"
	EnvOTelEnabled      = "TUBEMP3_OTEL_ENABLED"
	EnvOTelExporter     = "TUBEMP3_OTEL_EXPORTER"
	EnvOTelEndpoint     = "TUBEMP3_OTEL_ENDPOINT"
	EnvOTelSampling     = "TUBEMP3_OTEL_SAMPLING_RATE"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (string, error) {
		return s, nil
	})
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(log.WithComponent("config"), key, defaultValue, strconv.Atoi)
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(log.WithComponent("config"), key, defaultValue, time.ParseDuration)
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// ParseList reads a comma separated list; blank items are dropped.
func ParseList(key string, defaultValue []string) []string {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	})
}

func parseEnv[T any](logger zerolog.Logger, key string, defaultValue T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(key)
	if !ok {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	if v == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return defaultValue
	}
	parsed, err := parse(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}

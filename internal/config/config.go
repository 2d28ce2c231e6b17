// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads the service configuration.
//
// Precedence: defaults < YAML file < .env file < process environment.
// The provider table is configuration data: its order is the resolution priority.
package config

import "time"

// Provider kinds.
const (
	KindInnertube = "innertube"
	KindYtdlp     = "ytdlp"
	KindDirectory = "directory"
	KindOEmbed    = "oembed"
	KindDownload  = "download"
)

// Provider capabilities.
const (
	CapabilityMedia    = "media"
	CapabilityMetadata = "metadata"
	CapabilityDownload = "download"
)

// Resolver modes.
const (
	ModeSequential = "sequential"
	ModeRace       = "race"
)

// Fallback policies for failures before the first MP3 byte.
const (
	FallbackRedirect = "redirect"
	FallbackNone     = "none"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr  string `yaml:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr,omitempty"`

	Log       LogConfig        `yaml:"log"`
	Server    ServerConfig     `yaml:"server"`
	CORS      CORSConfig       `yaml:"cors"`
	Transcode TranscodeConfig  `yaml:"transcode"`
	Resolver  ResolverConfig   `yaml:"resolver"`
	Metadata  MetadataConfig   `yaml:"metadata"`
	Fallback  FallbackConfig   `yaml:"fallback"`
	Upstream  UpstreamConfig   `yaml:"upstream"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Providers []ProviderConfig `yaml:"providers"`
}

// LogConfig configures the zerolog base logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server timeouts. No write timeout: MP3 responses
// stream for as long as the transcode runs.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// TranscodeConfig configures the ffmpeg filter and the first-byte gate.
type TranscodeConfig struct {
	FFmpegBin        string        `yaml:"ffmpegBin"`
	BitrateKbps      int           `yaml:"bitrateKbps"`
	FirstByteTimeout time.Duration `yaml:"firstByteTimeout"`
	MaxDuration      time.Duration `yaml:"maxDuration"`
	KillGrace        time.Duration `yaml:"killGrace"`
	// InputMode is "pipe" (fetch in-process, feed stdin) or "url" (ffmpeg fetches).
	InputMode string `yaml:"inputMode"`
}

// ResolverConfig configures the media provider chain.
type ResolverConfig struct {
	Mode            string        `yaml:"mode"`
	ProviderTimeout time.Duration `yaml:"providerTimeout"`
	Budget          time.Duration `yaml:"budget"`
	RaceTieWindow   time.Duration `yaml:"raceTieWindow"`
}

// MetadataConfig configures the metadata resolver.
type MetadataConfig struct {
	Budget       time.Duration `yaml:"budget"`
	FallbackCard bool          `yaml:"fallbackCard"`
}

// FallbackConfig configures the final-resort download tier.
type FallbackConfig struct {
	Policy       string        `yaml:"policy"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
	Budget       time.Duration `yaml:"budget"`
}

// UpstreamConfig restricts which provider supplied URLs are fetched.
type UpstreamConfig struct {
	AllowPrivate bool `yaml:"allowPrivate"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// ProviderConfig is one row of the provider table.
type ProviderConfig struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Schema       string   `yaml:"schema,omitempty"`
	Capabilities []string `yaml:"capabilities"`
	// Endpoints are base URLs (directory) or URL templates (oembed, download).
	// Templates may use {id} and {url}.
	Endpoints       []string          `yaml:"endpoints,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Timeout         time.Duration     `yaml:"timeout,omitempty"`
	EndpointTimeout time.Duration     `yaml:"endpointTimeout,omitempty"`
	// Format is the yt-dlp format selector.
	Format   string `yaml:"format,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Has reports whether the provider declares capability c.
func (p ProviderConfig) Has(c string) bool {
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

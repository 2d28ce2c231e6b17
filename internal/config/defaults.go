// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// MobileSafariUA is sent to upstreams that block non-browser clients.
const MobileSafariUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1"

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		ListenAddr:  ":8080",
		MetricsAddr: "",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
		Transcode: TranscodeConfig{
			BitrateKbps:      128,
			FirstByteTimeout: 20 * time.Second,
			MaxDuration:      30 * time.Minute,
			KillGrace:        2 * time.Second,
			InputMode:        "pipe",
		},
		Resolver: ResolverConfig{
			Mode:            ModeSequential,
			ProviderTimeout: 10 * time.Second,
			Budget:          30 * time.Second,
			RaceTieWindow:   250 * time.Millisecond,
		},
		Metadata: MetadataConfig{
			Budget:       12 * time.Second,
			FallbackCard: true,
		},
		Fallback: FallbackConfig{
			Policy:       FallbackRedirect,
			ProbeTimeout: 8 * time.Second,
			Budget:       15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Providers: DefaultProviders(),
	}
}

// DefaultProviders is the built-in provider table, highest priority first.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:         "ytdl",
			Kind:         KindInnertube,
			Capabilities: []string{CapabilityMedia, CapabilityMetadata},
			Headers: map[string]string{
				"User-Agent":      MobileSafariUA,
				"Accept":          "*/*",
				"Accept-Language": "en-US,en;q=0.5",
			},
			Timeout: 10 * time.Second,
		},
		{
			Name:         "invidious",
			Kind:         KindDirectory,
			Schema:       "invidious",
			Capabilities: []string{CapabilityMedia, CapabilityMetadata},
			Endpoints: []string{
				"https://inv.riverside.rocks",
				"https://yewtu.be",
				"https://invidious.snopyta.org",
				"https://invidious.flokinet.to",
				"https://invidious.kavin.rocks",
			},
			Headers:         map[string]string{"User-Agent": MobileSafariUA},
			Timeout:         20 * time.Second,
			EndpointTimeout: 5 * time.Second,
		},
		{
			Name:         "piped",
			Kind:         KindDirectory,
			Schema:       "piped",
			Capabilities: []string{CapabilityMedia, CapabilityMetadata},
			Endpoints: []string{
				"https://pipedapi.kavin.rocks",
				"https://pipedapi.adminforge.de",
			},
			Headers:         map[string]string{"User-Agent": MobileSafariUA},
			Timeout:         12 * time.Second,
			EndpointTimeout: 5 * time.Second,
		},
		{
			Name:         "ytdlp",
			Kind:         KindYtdlp,
			Capabilities: []string{CapabilityMedia, CapabilityMetadata},
			Format:       "bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio",
			Timeout:      25 * time.Second,
		},
		{
			Name:         "oembed",
			Kind:         KindOEmbed,
			Capabilities: []string{CapabilityMetadata},
			Endpoints: []string{
				"https://www.youtube.com/oembed?url={url}&format=json",
				"https://noembed.com/embed?url={url}",
			},
			Timeout: 5 * time.Second,
		},
		{
			Name:         "vevioz",
			Kind:         KindDownload,
			Capabilities: []string{CapabilityDownload},
			Endpoints:    []string{"https://api.vevioz.com/@download/128-mp3/{id}"},
			Timeout:      8 * time.Second,
		},
	}
}

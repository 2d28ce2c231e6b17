// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/tubemp3/internal/validate"
	"github.com/samber/lo"
)

var kindCapabilities = map[string][]string{
	KindInnertube: {CapabilityMedia, CapabilityMetadata},
	KindYtdlp:     {CapabilityMedia, CapabilityMetadata},
	KindDirectory: {CapabilityMedia, CapabilityMetadata},
	KindOEmbed:    {CapabilityMetadata},
	KindDownload:  {CapabilityDownload},
}

var directorySchemas = []string{"invidious", "piped"}

// Validate checks the whole configuration and returns a validate.ValidationError
// listing every problem found.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("listenAddr", cfg.ListenAddr)
	if cfg.MetricsAddr != "" {
		v.ListenAddr("metricsAddr", cfg.MetricsAddr)
	}
	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error"})
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	v.PositiveDuration("server.readHeaderTimeout", cfg.Server.ReadHeaderTimeout)
	v.PositiveDuration("server.shutdownTimeout", cfg.Server.ShutdownTimeout)

	v.Range("transcode.bitrateKbps", cfg.Transcode.BitrateKbps, 32, 320)
	v.PositiveDuration("transcode.firstByteTimeout", cfg.Transcode.FirstByteTimeout)
	v.PositiveDuration("transcode.maxDuration", cfg.Transcode.MaxDuration)
	v.PositiveDuration("transcode.killGrace", cfg.Transcode.KillGrace)
	v.OneOf("transcode.inputMode", cfg.Transcode.InputMode, []string{"pipe", "url"})

	v.OneOf("resolver.mode", cfg.Resolver.Mode, []string{ModeSequential, ModeRace})
	v.PositiveDuration("resolver.providerTimeout", cfg.Resolver.ProviderTimeout)
	v.PositiveDuration("resolver.budget", cfg.Resolver.Budget)
	if cfg.Resolver.RaceTieWindow < 0 {
		v.AddError("resolver.raceTieWindow", "must not be negative", cfg.Resolver.RaceTieWindow)
	}
	v.PositiveDuration("metadata.budget", cfg.Metadata.Budget)

	v.OneOf("fallback.policy", cfg.Fallback.Policy, []string{FallbackRedirect, FallbackNone})
	v.PositiveDuration("fallback.probeTimeout", cfg.Fallback.ProbeTimeout)
	v.PositiveDuration("fallback.budget", cfg.Fallback.Budget)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.samplingRate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}

	validateProviders(v, cfg.Providers)
	return v.Err()
}

func validateProviders(v *validate.Validator, providers []ProviderConfig) {
	v.Unique("providers[].name", lo.Map(providers, func(p ProviderConfig, _ int) string { return p.Name }))

	enabledMedia := lo.CountBy(providers, func(p ProviderConfig) bool {
		return !p.Disabled && p.Has(CapabilityMedia)
	})
	if enabledMedia == 0 {
		v.AddError("providers", "at least one enabled media provider is required", len(providers))
	}

	for i, p := range providers {
		field := fmt.Sprintf("providers[%d]", i)
		v.NotEmpty(field+".name", p.Name)

		allowed, ok := kindCapabilities[p.Kind]
		if !ok {
			v.AddError(field+".kind", fmt.Sprintf("unknown provider kind %q", p.Kind), p.Kind)
			continue
		}
		if len(p.Capabilities) == 0 {
			v.AddError(field+".capabilities", "at least one capability is required", p.Capabilities)
		}
		for _, c := range p.Capabilities {
			if !lo.Contains(allowed, c) {
				v.AddError(field+".capabilities",
					fmt.Sprintf("kind %s does not support capability %q", p.Kind, c), c)
			}
		}

		switch p.Kind {
		case KindDirectory:
			v.OneOf(field+".schema", p.Schema, directorySchemas)
			fallthrough
		case KindOEmbed, KindDownload:
			if len(p.Endpoints) == 0 {
				v.AddError(field+".endpoints", "at least one endpoint is required", p.Endpoints)
			}
			for j, e := range p.Endpoints {
				v.URL(fmt.Sprintf("%s.endpoints[%d]", field, j), e, []string{"http", "https"})
			}
		}

		if p.Timeout < 0 {
			v.AddError(field+".timeout", "must not be negative", p.Timeout)
		}
		if p.EndpointTimeout < 0 {
			v.AddError(field+".endpointTimeout", "must not be negative", p.EndpointTimeout)
		}
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/delivery"
	"github.com/ManuGH/tubemp3/internal/metadata"
	"github.com/ManuGH/tubemp3/internal/platform/httpx"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/resolver"
	"github.com/ManuGH/tubemp3/internal/transcode"
	"github.com/ManuGH/tubemp3/internal/videoref"
)

// MediaResolver turns a reference into a media locator and owns the
// final-resort download tier.
type MediaResolver interface {
	Resolve(ctx context.Context, ref videoref.Ref) (*provider.Locator, error)
	FirstUsable(ctx context.Context, ref videoref.Ref) (*provider.Locator, error)
	HasDownloads() bool
	Providers() []string
}

// MetadataResolver answers /info.
type MetadataResolver interface {
	Resolve(ctx context.Context, ref videoref.Ref) (metadata.Card, error)
}

// Transcoder starts an MP3 encode of a locator.
type Transcoder interface {
	Transcode(ctx context.Context, loc *provider.Locator, bitrateKbps int) (delivery.Stream, error)
}

// TranscoderFunc adapts a function to a Transcoder.
type TranscoderFunc func(ctx context.Context, loc *provider.Locator, bitrateKbps int) (delivery.Stream, error)

func (f TranscoderFunc) Transcode(ctx context.Context, loc *provider.Locator, bitrateKbps int) (delivery.Stream, error) {
	return f(ctx, loc, bitrateKbps)
}

// FilterTranscoder adapts the ffmpeg filter.
func FilterTranscoder(f *transcode.Filter) Transcoder {
	return TranscoderFunc(func(ctx context.Context, loc *provider.Locator, bitrateKbps int) (delivery.Stream, error) {
		s, err := f.Transcode(ctx, loc, bitrateKbps)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Runtime is everything a request needs that is derived from configuration.
// It is immutable; a config reload builds a new one and swaps it in.
type Runtime struct {
	Config     config.AppConfig
	Media      MediaResolver
	Metadata   MetadataResolver
	Transcoder Transcoder

	// FFmpeg is the resolved binary path; FFmpegErr is set when resolution failed.
	FFmpeg    string
	FFmpegErr error
}

// RuntimeDeps are the injectable collaborators of BuildRuntime.
type RuntimeDeps struct {
	Providers provider.Deps
	// Probe performs download tier probes.
	Probe *http.Client
}

// BuildRuntime wires the provider table, both resolvers and the transcoder.
// A missing ffmpeg is not an error here: /info keeps working and /convert
// falls through to the download tier.
func BuildRuntime(cfg config.AppConfig, deps RuntimeDeps) (*Runtime, error) {
	if deps.Providers.Stream == nil {
		deps.Providers.Stream = httpx.Instrument(httpx.NewStreamingClient(0))
	}
	set, err := provider.Build(cfg.Providers, deps.Providers)
	if err != nil {
		return nil, err
	}

	probe := deps.Probe
	if probe == nil {
		probe = httpx.Instrument(httpx.NewClient(cfg.Fallback.ProbeTimeout))
	}

	bin, binErr := transcode.ResolveBinary(cfg.Transcode.FFmpegBin)
	filterBin := bin
	if binErr != nil {
		filterBin = cfg.Transcode.FFmpegBin
	}
	filter := transcode.NewFilter(transcode.OptionsFromConfig(cfg, filterBin, deps.Providers.Stream))

	return &Runtime{
		Config:     cfg,
		Media:      resolver.NewChain(set.Media, set.Downloads, resolver.OptionsFromConfig(cfg, probe)),
		Metadata:   metadata.NewResolver(set.Metadata, metadata.OptionsFromConfig(cfg)),
		Transcoder: FilterTranscoder(filter),
		FFmpeg:     bin,
		FFmpegErr:  binErr,
	}, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/platform/httpx"
	"github.com/samber/lo"
)

// Deps are the collaborators shared by every provider instance.
type Deps struct {
	// API is used for short JSON calls. Defaults to an instrumented httpx client.
	API *http.Client
	// Stream is used for media downloads. Defaults to an instrumented streaming client.
	Stream *http.Client
	// Ytdlp runs yt-dlp. Defaults to the go-ytdlp backed runner.
	Ytdlp YtdlpRunner
}

func (d Deps) withDefaults() Deps {
	if d.API == nil {
		d.API = httpx.Instrument(httpx.NewClient(15 * time.Second))
	}
	if d.Stream == nil {
		d.Stream = httpx.Instrument(httpx.NewStreamingClient(0))
	}
	if d.Ytdlp == nil {
		d.Ytdlp = ExecYtdlp{}
	}
	return d
}

// Set is the provider table turned into capability lists, in table order.
type Set struct {
	Media     []MediaSource
	Metadata  []MetadataSource
	Downloads []CandidateSource
}

// Names returns the names of the sources in order.
func Names[S Source](sources []S) []string {
	return lo.Map(sources, func(s S, _ int) string { return s.Name() })
}

// Build instantiates every enabled row of the provider table. Malformed rows
// fail the whole build with ErrInvalidProviderConfig.
func Build(table []config.ProviderConfig, deps Deps) (*Set, error) {
	deps = deps.withDefaults()
	set := &Set{}

	for i, pc := range table {
		if pc.Disabled {
			continue
		}
		src, err := build(pc, deps)
		if err != nil {
			return nil, fmt.Errorf("providers[%d] %q: %w", i, pc.Name, err)
		}
		if pc.Has(config.CapabilityMedia) {
			ms, ok := src.(MediaSource)
			if !ok {
				return nil, fmt.Errorf("providers[%d] %q: %w: kind %s cannot resolve media", i, pc.Name, ErrInvalidProviderConfig, pc.Kind)
			}
			set.Media = append(set.Media, ms)
		}
		if pc.Has(config.CapabilityMetadata) {
			ms, ok := src.(MetadataSource)
			if !ok {
				return nil, fmt.Errorf("providers[%d] %q: %w: kind %s cannot resolve metadata", i, pc.Name, ErrInvalidProviderConfig, pc.Kind)
			}
			set.Metadata = append(set.Metadata, ms)
		}
		if pc.Has(config.CapabilityDownload) {
			cs, ok := src.(CandidateSource)
			if !ok {
				return nil, fmt.Errorf("providers[%d] %q: %w: kind %s has no download candidates", i, pc.Name, ErrInvalidProviderConfig, pc.Kind)
			}
			set.Downloads = append(set.Downloads, cs)
		}
	}
	return set, nil
}

func build(pc config.ProviderConfig, deps Deps) (Source, error) {
	if pc.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidProviderConfig)
	}
	b := base{name: pc.Name, timeout: pc.Timeout, header: toHeader(pc.Headers)}

	switch pc.Kind {
	case config.KindInnertube:
		return newInnertube(b, deps.Stream), nil
	case config.KindYtdlp:
		return newYtdlp(b, pc.Format, deps.Ytdlp), nil
	case config.KindDirectory, config.KindOEmbed:
		schemaName := pc.Schema
		if pc.Kind == config.KindOEmbed {
			schemaName = "oembed"
		}
		s, ok := schemas[schemaName]
		if !ok {
			return nil, fmt.Errorf("%w: unknown schema %q", ErrInvalidProviderConfig, pc.Schema)
		}
		if len(pc.Endpoints) == 0 {
			return nil, fmt.Errorf("%w: no endpoints", ErrInvalidProviderConfig)
		}
		b.client = deps.API
		d := &directory{base: b, endpoints: pc.Endpoints, endpointTimeout: pc.EndpointTimeout, schema: s}
		if pc.Kind == config.KindOEmbed {
			return &oembed{d: d}, nil
		}
		return d, nil
	case config.KindDownload:
		if len(pc.Endpoints) == 0 {
			return nil, fmt.Errorf("%w: no endpoints", ErrInvalidProviderConfig)
		}
		return &download{base: b, templates: pc.Endpoints}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidProviderConfig, pc.Kind)
	}
}

type base struct {
	name    string
	timeout time.Duration
	header  http.Header
	client  *http.Client
}

func (b *base) Name() string           { return b.name }
func (b *base) Timeout() time.Duration { return b.timeout }

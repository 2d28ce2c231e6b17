// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metadata answers "what is this video" from the first metadata
// provider that responds, degrading to a placeholder card.
package metadata

import (
	"context"
	"time"

	"github.com/ManuGH/tubemp3/internal/config"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/resolver"
	"github.com/ManuGH/tubemp3/internal/videoref"
)

// Placeholder values of the fallback card.
const (
	FallbackTitle  = "YouTube Video"
	FallbackAuthor = "Unknown"
	FallbackFrom   = "fallback"
)

// Card is the /info response body.
type Card struct {
	Title         string `json:"title"`
	Thumbnail     string `json:"thumbnail"`
	Author        string `json:"author"`
	LengthSeconds int    `json:"lengthSeconds"`
	From          string `json:"from"`
	IsFallback    bool   `json:"isFallback"`
	VideoID       string `json:"videoId,omitempty"`
}

// FallbackCard is the card served when no provider answered. Its thumbnail
// is derived from the ID alone.
func FallbackCard(ref videoref.Ref) Card {
	return Card{
		Title:      FallbackTitle,
		Thumbnail:  ref.ThumbnailURL(),
		Author:     FallbackAuthor,
		From:       FallbackFrom,
		IsFallback: true,
		VideoID:    ref.ID,
	}
}

// FromMetadata converts provider metadata. Missing thumbnails and authors are
// filled from the reference.
func FromMetadata(m *provider.Metadata, ref videoref.Ref) Card {
	c := Card{
		Title:         m.Title,
		Thumbnail:     m.Thumbnail,
		Author:        m.Author,
		LengthSeconds: m.LengthSeconds,
		From:          m.From,
	}
	if c.Thumbnail == "" {
		c.Thumbnail = ref.ThumbnailURL()
	}
	if c.Author == "" {
		c.Author = FallbackAuthor
	}
	return c
}

// Options configures a Resolver.
type Options struct {
	DefaultTimeout time.Duration
	Budget         time.Duration
	// FallbackCard turns exhaustion into a placeholder card instead of an error.
	FallbackCard bool
}

// OptionsFromConfig maps the metadata section.
func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		DefaultTimeout: cfg.Resolver.ProviderTimeout,
		Budget:         cfg.Metadata.Budget,
		FallbackCard:   cfg.Metadata.FallbackCard,
	}
}

// Resolver walks metadata sources in priority order.
type Resolver struct {
	sources []provider.MetadataSource
	opts    Options
}

// NewResolver creates a resolver.
func NewResolver(sources []provider.MetadataSource, opts Options) *Resolver {
	return &Resolver{sources: sources, opts: opts}
}

// Resolve returns the card of the first provider that answers. On exhaustion
// it returns FallbackCard, or the *resolver.ExhaustedError when fallback
// cards are disabled. A cancelled ctx returns its error.
func (r *Resolver) Resolve(ctx context.Context, ref videoref.Ref) (Card, error) {
	rctx := ctx
	if r.opts.Budget > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, r.opts.Budget)
		defer cancel()
	}

	m, attempts, err := resolver.Sequential(rctx, config.CapabilityMetadata, r.sources, r.opts.DefaultTimeout,
		func(ctx context.Context, src provider.MetadataSource) (*provider.Metadata, error) {
			m, err := src.ResolveMetadata(ctx, ref)
			if err == nil && (m == nil || m.Title == "") {
				return nil, provider.Unavailablef(src.Name(), "empty metadata")
			}
			return m, err
		})
	if cerr := ctx.Err(); cerr != nil {
		return Card{}, cerr
	}
	if err == nil {
		return FromMetadata(m, ref), nil
	}

	if !r.opts.FallbackCard {
		return Card{}, err
	}
	metrics.MetadataFallbackCards.Inc()
	logger := xglog.WithComponentFromContext(ctx, "metadata")
	logger.Warn().
		Str(xglog.FieldVideoID, ref.ID).
		Interface("attempts", attempts).
		Msg("metadata providers exhausted, serving fallback card")
	return FallbackCard(ref), nil
}

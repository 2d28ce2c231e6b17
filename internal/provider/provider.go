// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package provider defines the capability interfaces shared by every upstream
// that can locate media bytes or describe a video, and builds concrete
// providers from the declarative provider table.
package provider

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/tubemp3/internal/videoref"
)

// Source is the common part of every provider.
type Source interface {
	// Name is the provenance tag reported for results of this provider.
	Name() string
	// Timeout is the per-attempt budget; zero means the resolver default.
	Timeout() time.Duration
}

// MediaSource resolves a reference into raw media bytes or a locator for them.
type MediaSource interface {
	Source
	ResolveMedia(ctx context.Context, ref videoref.Ref) (*Locator, error)
}

// MetadataSource resolves descriptive metadata for a reference.
type MetadataSource interface {
	Source
	ResolveMetadata(ctx context.Context, ref videoref.Ref) (*Metadata, error)
}

// CandidateSource lists direct download URLs that still need validation
// before they can be handed to a client.
type CandidateSource interface {
	Source
	Candidates(ctx context.Context, ref videoref.Ref) ([]*Locator, error)
}

// OpenFunc opens the media byte stream. It is called at most once, with the
// context of the consumer rather than the resolution attempt.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Locator points at media bytes that are not transcoded yet. Exactly one
// consumer reads it. Either Open is set (in-process stream) or URL is.
type Locator struct {
	Provider    string
	URL         string
	Header      http.Header
	ContentType string
	Open        OpenFunc
	// Meta is set when the provider learned metadata while resolving.
	Meta *Metadata
}

// IsStream reports whether the locator is an in-process stream.
func (l *Locator) IsStream() bool { return l != nil && l.Open != nil }

// Discard drops the stream of a locator that will not be served, so a
// stale reference can never open it.
func (l *Locator) Discard() {
	if l != nil {
		l.Open = nil
	}
}

// Title returns the best known title, or "".
func (l *Locator) Title() string {
	if l == nil || l.Meta == nil {
		return ""
	}
	return l.Meta.Title
}

// Metadata describes a video.
type Metadata struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Thumbnail     string `json:"thumbnail"`
	LengthSeconds int    `json:"lengthSeconds"`
	From          string `json:"from"`
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package videoref extracts canonical video IDs from user supplied references.
package videoref

import (
	"errors"
	"regexp"
	"strings"
)

// IDLength is the length of a canonical video ID.
const IDLength = 11

// ErrInvalidReference is returned when no canonical ID can be found in the input.
// It is terminal for the request and never retried.
var ErrInvalidReference = errors.New("invalid video reference")

var (
	rawIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

	// Ordered: explicit markers first, trailing path segment last.
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=([0-9A-Za-z_-]{11})(?:[&#]|$)`),
		regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})(?:[?&#/]|$)`),
		regexp.MustCompile(`/(?:shorts|embed|live|v)/([0-9A-Za-z_-]{11})(?:[?&#/]|$)`),
		regexp.MustCompile(`/([0-9A-Za-z_-]{11})/?(?:[?#]|$)`),
	}
)

// Ref is a caller supplied reference plus its canonical ID.
type Ref struct {
	Source string
	ID     string
}

// Extract parses the canonical ID out of raw, which may be a bare ID or any
// URL form that carries one. It performs no I/O.
func Extract(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, ErrInvalidReference
	}
	if rawIDPattern.MatchString(s) {
		return Ref{Source: raw, ID: s}, nil
	}
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return Ref{Source: raw, ID: m[1]}, nil
		}
	}
	return Ref{}, ErrInvalidReference
}

// FromID builds a Ref for an already canonical ID.
func FromID(id string) (Ref, error) {
	if !rawIDPattern.MatchString(id) {
		return Ref{}, ErrInvalidReference
	}
	return Ref{Source: id, ID: id}, nil
}

// WatchURL returns the canonical watch page URL for the reference.
func (r Ref) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.ID
}

// ThumbnailURL returns the thumbnail URL derived purely from the ID.
func (r Ref) ThumbnailURL() string {
	return "https://img.youtube.com/vi/" + r.ID + "/mqdefault.jpg"
}

// IsZero reports whether r carries no ID.
func (r Ref) IsZero() bool { return r.ID == "" }

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"

	"github.com/ManuGH/tubemp3/internal/videoref"
)

// download expands direct-download URL templates. The URLs are unverified:
// such sites answer 200 with HTML error pages, so callers must sniff them.
type download struct {
	base
	templates []string
}

func (d *download) Candidates(_ context.Context, ref videoref.Ref) ([]*Locator, error) {
	out := make([]*Locator, 0, len(d.templates))
	for _, tmpl := range d.templates {
		out = append(out, &Locator{
			Provider:    d.name,
			URL:         Expand(tmpl, ref),
			Header:      d.header.Clone(),
			ContentType: "audio/mpeg",
		})
	}
	return out, nil
}

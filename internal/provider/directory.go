// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	xglog "github.com/ManuGH/tubemp3/internal/log"
	platformnet "github.com/ManuGH/tubemp3/internal/platform/net"
	"github.com/ManuGH/tubemp3/internal/videoref"
)

const maxPayloadBytes = 4 << 20

var errMalformedPayload = errors.New("malformed payload")

// payload is what a schema extracts from one endpoint response.
type payload struct {
	mediaURL    string
	contentType string
	meta        Metadata
}

// schema describes one response family of multi-endpoint JSON providers.
type schema interface {
	// endpointURL builds the request URL from a configured endpoint.
	endpointURL(endpoint string, ref videoref.Ref) string
	// parse decodes a response body; endpoint resolves relative URLs.
	parse(r io.Reader, endpoint string) (*payload, error)
}

// directory queries a list of endpoints in registration order. A failing or
// malformed endpoint only disqualifies itself; running out of provider time
// ends the attempt as a timeout.
type directory struct {
	base
	endpoints       []string
	endpointTimeout time.Duration
	schema          schema
}

func (d *directory) ResolveMedia(ctx context.Context, ref videoref.Ref) (*Locator, error) {
	p, err := d.lookup(ctx, ref, true)
	if err != nil {
		return nil, err
	}
	meta := p.meta
	return &Locator{
		Provider:    d.name,
		URL:         p.mediaURL,
		Header:      d.header.Clone(),
		ContentType: p.contentType,
		Meta:        &meta,
	}, nil
}

func (d *directory) ResolveMetadata(ctx context.Context, ref videoref.Ref) (*Metadata, error) {
	p, err := d.lookup(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	meta := p.meta
	return &meta, nil
}

// oembed is a directory over metadata-only endpoints. It has no
// ResolveMedia, so Build rejects rows that claim media for it.
type oembed struct{ d *directory }

func (o *oembed) Name() string           { return o.d.Name() }
func (o *oembed) Timeout() time.Duration { return o.d.Timeout() }

func (o *oembed) ResolveMetadata(ctx context.Context, ref videoref.Ref) (*Metadata, error) {
	return o.d.ResolveMetadata(ctx, ref)
}

func (d *directory) lookup(ctx context.Context, ref videoref.Ref, needMedia bool) (*payload, error) {
	logger := xglog.WithComponentFromContext(ctx, "provider").With().Str(xglog.FieldProvider, d.name).Logger()

	var errs []error
	for _, ep := range d.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, Timeout(d.name, errors.Join(append(errs, err)...))
		}

		target := d.schema.endpointURL(ep, ref)
		p, err := d.fetch(ctx, target, ep)
		if err == nil && needMedia && p.mediaURL == "" {
			err = fmt.Errorf("%w: no audio format", errMalformedPayload)
		}
		if err == nil {
			p.meta.From = d.name
			return p, nil
		}

		logger.Debug().
			Err(err).
			Str(xglog.FieldEndpoint, platformnet.SanitizeURL(target)).
			Msg("endpoint failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", platformnet.SanitizeURL(ep), err))

		if ctx.Err() != nil {
			return nil, Timeout(d.name, errors.Join(errs...))
		}
	}
	return nil, Unavailable(d.name, fmt.Sprintf("all %d endpoints failed", len(d.endpoints)), errors.Join(errs...))
}

func (d *directory) fetch(ctx context.Context, target, endpoint string) (*payload, error) {
	if d.endpointTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.endpointTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range d.header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	p, err := d.schema.parse(io.LimitReader(resp.Body, maxPayloadBytes), endpoint)
	if err != nil {
		return nil, err
	}
	if p.meta.Title == "" {
		return nil, fmt.Errorf("%w: missing title", errMalformedPayload)
	}
	return p, nil
}

// resolveRef makes thumbnail URLs absolute; some instances return proxied paths.
func resolveRef(endpoint, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	if u.Host != "" {
		// Protocol-relative.
		u.Scheme = "https"
		return u.String()
	}
	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(u).String()
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	return nil
}

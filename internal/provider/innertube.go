// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/tubemp3/internal/platform/httpx"
	"github.com/ManuGH/tubemp3/internal/videoref"
	"github.com/kkdai/youtube/v2"
)

// innertube talks to the player API directly through kkdai/youtube. Media is
// an in-process stream: the library downloads in ranged chunks, which avoids
// the throttling applied to single long reads of the signed URL.
type innertube struct {
	base
	client *youtube.Client
}

func newInnertube(b base, stream *http.Client) *innertube {
	return &innertube{
		base:   b,
		client: &youtube.Client{HTTPClient: httpx.WithHeaders(stream, b.header)},
	}
}

func (p *innertube) video(ctx context.Context, ref videoref.Ref) (*youtube.Video, error) {
	v, err := p.client.GetVideoContext(ctx, ref.ID)
	if err != nil {
		return nil, Unavailable(p.name, youtubeReason(err), err)
	}
	return v, nil
}

func (p *innertube) ResolveMedia(ctx context.Context, ref videoref.Ref) (*Locator, error) {
	v, err := p.video(ctx, ref)
	if err != nil {
		return nil, err
	}
	format := bestAudioFormat(v.Formats)
	if format == nil {
		return nil, Unavailablef(p.name, "no audio format")
	}

	client := p.client
	return &Locator{
		Provider:    p.name,
		ContentType: mimeBase(format.MimeType),
		Meta:        videoMetadata(v, p.name),
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			rc, _, err := client.GetStreamContext(ctx, v, format)
			return rc, err
		},
	}, nil
}

func (p *innertube) ResolveMetadata(ctx context.Context, ref videoref.Ref) (*Metadata, error) {
	v, err := p.video(ctx, ref)
	if err != nil {
		return nil, err
	}
	return videoMetadata(v, p.name), nil
}

// bestAudioFormat prefers audio-only webm, then audio-only mp4, then any
// format with audio; highest bitrate within a class.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	rank := func(f *youtube.Format) int {
		switch mime := mimeBase(f.MimeType); {
		case mime == "audio/webm":
			return 3
		case mime == "audio/mp4":
			return 2
		case strings.HasPrefix(mime, "audio/"):
			return 1
		}
		return 0
	}

	var best *youtube.Format
	for _, f := range formats.WithAudioChannels() {
		f := f
		if best == nil ||
			rank(&f) > rank(best) ||
			(rank(&f) == rank(best) && f.Bitrate > best.Bitrate) {
			best = &f
		}
	}
	return best
}

func videoMetadata(v *youtube.Video, from string) *Metadata {
	m := &Metadata{
		Title:         v.Title,
		Author:        v.Author,
		LengthSeconds: int(v.Duration.Seconds()),
		From:          from,
	}
	var width uint
	for _, t := range v.Thumbnails {
		if t.Width >= width {
			width = t.Width
			m.Thumbnail = t.URL
		}
	}
	return m
}

func youtubeReason(err error) string {
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate):
		return "video private"
	case errors.Is(err, youtube.ErrLoginRequired), errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return "login required"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "player request failed"
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ManuGH/tubemp3/internal/videoref"
)

var schemas = map[string]schema{
	"invidious": invidiousSchema{},
	"piped":     pipedSchema{},
	"oembed":    oembedSchema{},
}

// flexInt accepts numbers encoded as JSON numbers or strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// invidious: GET <base>/api/v1/videos/<id>

type invidiousSchema struct{}

type invidiousVideo struct {
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	LengthSeconds   flexInt   `json:"lengthSeconds"`
	VideoThumbnails []struct {
		Quality string `json:"quality"`
		URL     string `json:"url"`
	} `json:"videoThumbnails"`
	AdaptiveFormats []struct {
		Type    string  `json:"type"`
		URL     string  `json:"url"`
		Bitrate flexInt `json:"bitrate"`
	} `json:"adaptiveFormats"`
	FormatStreams []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"formatStreams"`
}

func (invidiousSchema) endpointURL(endpoint string, ref videoref.Ref) string {
	return joinEndpoint(endpoint, "/api/v1/videos/"+ref.ID)
}

func (invidiousSchema) parse(r io.Reader, endpoint string) (*payload, error) {
	var v invidiousVideo
	if err := decodeJSON(r, &v); err != nil {
		return nil, err
	}
	p := &payload{meta: Metadata{
		Title:         v.Title,
		Author:        v.Author,
		LengthSeconds: int(v.LengthSeconds),
	}}

	for _, t := range v.VideoThumbnails {
		if t.Quality == "maxresdefault" || t.Quality == "high" {
			p.meta.Thumbnail = resolveRef(endpoint, t.URL)
			break
		}
	}
	if p.meta.Thumbnail == "" && len(v.VideoThumbnails) > 0 {
		p.meta.Thumbnail = resolveRef(endpoint, v.VideoThumbnails[0].URL)
	}

	var best flexInt = -1
	for _, f := range v.AdaptiveFormats {
		mime := mimeBase(f.Type)
		if (mime == "audio/webm" || mime == "audio/mp4") && f.URL != "" && f.Bitrate > best {
			best = f.Bitrate
			p.mediaURL, p.contentType = f.URL, mime
		}
	}
	if p.mediaURL == "" && len(v.FormatStreams) > 0 {
		p.mediaURL, p.contentType = v.FormatStreams[0].URL, mimeBase(v.FormatStreams[0].Type)
	}
	return p, nil
}

// piped: GET <base>/streams/<id>

type pipedSchema struct{}

type pipedStreams struct {
	Title        string  `json:"title"`
	Uploader     string  `json:"uploader"`
	Duration     flexInt `json:"duration"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	AudioStreams []struct {
		URL      string  `json:"url"`
		MimeType string  `json:"mimeType"`
		Bitrate  flexInt `json:"bitrate"`
	} `json:"audioStreams"`
}

func (pipedSchema) endpointURL(endpoint string, ref videoref.Ref) string {
	return joinEndpoint(endpoint, "/streams/"+ref.ID)
}

func (pipedSchema) parse(r io.Reader, endpoint string) (*payload, error) {
	var v pipedStreams
	if err := decodeJSON(r, &v); err != nil {
		return nil, err
	}
	p := &payload{meta: Metadata{
		Title:         v.Title,
		Author:        v.Uploader,
		Thumbnail:     resolveRef(endpoint, v.ThumbnailURL),
		LengthSeconds: int(v.Duration),
	}}
	var best flexInt = -1
	for _, s := range v.AudioStreams {
		if s.URL != "" && s.Bitrate > best {
			best = s.Bitrate
			p.mediaURL, p.contentType = s.URL, mimeBase(s.MimeType)
		}
	}
	return p, nil
}

// oembed: endpoint is a full URL template; metadata only, no duration.

type oembedSchema struct{}

type oembedDoc struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	Error        string `json:"error"`
}

func (oembedSchema) endpointURL(endpoint string, ref videoref.Ref) string {
	return Expand(endpoint, ref)
}

func (oembedSchema) parse(r io.Reader, _ string) (*payload, error) {
	var v oembedDoc
	if err := decodeJSON(r, &v); err != nil {
		return nil, err
	}
	if v.Error != "" {
		return nil, fmt.Errorf("%w: %s", errMalformedPayload, v.Error)
	}
	return &payload{meta: Metadata{
		Title:     v.Title,
		Author:    v.AuthorName,
		Thumbnail: v.ThumbnailURL,
	}}, nil
}

// mimeBase strips parameters: `audio/webm; codecs="opus"` -> audio/webm.
func mimeBase(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeYtdlp struct {
	out    string
	err    error
	block  bool
	format string
	target string
}

func (f *fakeYtdlp) Print(ctx context.Context, format, _ string, target string) (string, error) {
	f.format, f.target = format, target
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.out, f.err
}

func TestYtdlpResolveMedia(t *testing.T) {
	runner := &fakeYtdlp{out: "WARNING: noise\nhttps://rr1.example/audio\tTitle\tUploader\t213.5\thttps://i/x.jpg\twebm\n"}
	p := newYtdlp(base{name: "ytdlp"}, "", runner)

	loc, err := p.ResolveMedia(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, defaultYtdlpFormat, runner.format)
	assert.Equal(t, "https://www.youtube.com/watch?v="+testID, runner.target)
	assert.Equal(t, "https://rr1.example/audio", loc.URL)
	assert.Equal(t, "audio/webm", loc.ContentType)
	assert.Equal(t, &Metadata{Title: "Title", Author: "Uploader", Thumbnail: "https://i/x.jpg", LengthSeconds: 213, From: "ytdlp"}, loc.Meta)
}

func TestYtdlpMissingFields(t *testing.T) {
	p := newYtdlp(base{name: "ytdlp"}, "bestaudio", &fakeYtdlp{out: "NA\tOnly Title\tNA\tNA\tNA\tNA"})

	_, err := p.ResolveMedia(context.Background(), testRef(t))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "no media url", Reason(err))

	meta, err := p.ResolveMetadata(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "Only Title", meta.Title)
	assert.Empty(t, meta.Author)
}

func TestYtdlpFailures(t *testing.T) {
	p := newYtdlp(base{name: "ytdlp"}, "", &fakeYtdlp{err: errors.New("exit status 1")})
	_, err := p.ResolveMedia(context.Background(), testRef(t))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "yt-dlp failed", Reason(err))

	p = newYtdlp(base{name: "ytdlp"}, "", &fakeYtdlp{out: "garbage"})
	_, err = p.ResolveMetadata(context.Background(), testRef(t))
	assert.Equal(t, "unexpected yt-dlp output", Reason(err))

	p = newYtdlp(base{name: "ytdlp"}, "", &fakeYtdlp{block: true})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.ResolveMedia(ctx, testRef(t))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExpandTemplate(t *testing.T) {
	ref := testRef(t)
	assert.Equal(t, "https://x/"+testID+"/128", Expand("https://x/{id}/128", ref))
	assert.Equal(t, "https://x/?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3D"+testID, Expand("https://x/?url={url}", ref))
}

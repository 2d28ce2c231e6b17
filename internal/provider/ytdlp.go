// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/tubemp3/internal/videoref"
	"github.com/lrstanley/go-ytdlp"
)

const ytdlpPrintTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(ext)s"

const defaultYtdlpFormat = "bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio"

// YtdlpRunner runs yt-dlp for one target and returns its stdout.
type YtdlpRunner interface {
	Print(ctx context.Context, format, template, target string) (string, error)
}

// ExecYtdlp runs the yt-dlp binary found on PATH.
type ExecYtdlp struct{}

// Print runs yt-dlp in simulate mode and returns the printed template lines.
func (ExecYtdlp) Print(ctx context.Context, format, template, target string) (string, error) {
	res, err := ytdlp.New().
		Format(format).
		Print(template).
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", target)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return "", fmt.Errorf("%w: %s", err, lastLine(res.Stderr))
		}
		return "", err
	}
	return res.Stdout, nil
}

type ytdlpProvider struct {
	base
	format string
	runner YtdlpRunner
}

func newYtdlp(b base, format string, runner YtdlpRunner) *ytdlpProvider {
	if format == "" {
		format = defaultYtdlpFormat
	}
	return &ytdlpProvider{base: b, format: format, runner: runner}
}

type ytdlpResult struct {
	url  string
	ext  string
	meta Metadata
}

func (p *ytdlpProvider) run(ctx context.Context, ref videoref.Ref) (*ytdlpResult, error) {
	out, err := p.runner.Print(ctx, p.format, ytdlpPrintTemplate, ref.WatchURL())
	if err != nil {
		if ctx.Err() != nil {
			return nil, Timeout(p.name, err)
		}
		return nil, Unavailable(p.name, "yt-dlp failed", err)
	}
	res, err := parseYtdlpLine(out)
	if err != nil {
		return nil, Unavailable(p.name, "unexpected yt-dlp output", err)
	}
	res.meta.From = p.name
	return res, nil
}

func (p *ytdlpProvider) ResolveMedia(ctx context.Context, ref videoref.Ref) (*Locator, error) {
	res, err := p.run(ctx, ref)
	if err != nil {
		return nil, err
	}
	if res.url == "" {
		return nil, Unavailablef(p.name, "no media url")
	}
	meta := res.meta
	return &Locator{
		Provider:    p.name,
		URL:         res.url,
		Header:      p.header.Clone(),
		ContentType: extContentType(res.ext),
		Meta:        &meta,
	}, nil
}

func (p *ytdlpProvider) ResolveMetadata(ctx context.Context, ref videoref.Ref) (*Metadata, error) {
	res, err := p.run(ctx, ref)
	if err != nil {
		return nil, err
	}
	if res.meta.Title == "" {
		return nil, Unavailablef(p.name, "no title")
	}
	meta := res.meta
	return &meta, nil
}

// parseYtdlpLine reads the first complete line printed with ytdlpPrintTemplate.
func parseYtdlpLine(out string) (*ytdlpResult, error) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(fields) < 6 {
			continue
		}
		res := &ytdlpResult{
			url: na(fields[0]),
			ext: na(fields[5]),
			meta: Metadata{
				Title:     na(fields[1]),
				Author:    na(fields[2]),
				Thumbnail: na(fields[4]),
			},
		}
		if d, err := strconv.ParseFloat(na(fields[3]), 64); err == nil {
			res.meta.LengthSeconds = int(d)
		}
		return res, nil
	}
	return nil, errors.New("no complete output line")
}

// na maps yt-dlp's placeholder for missing fields to "".
func na(s string) string {
	if s == "NA" {
		return ""
	}
	return strings.TrimSpace(s)
}

func extContentType(ext string) string {
	switch ext {
	case "webm":
		return "audio/webm"
	case "m4a", "mp4":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "opus", "ogg":
		return "audio/ogg"
	}
	return ""
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

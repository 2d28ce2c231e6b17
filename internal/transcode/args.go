// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	// PipeInput reads the source from stdin.
	PipeInput = "pipe:0"
	pipeOutput = "pipe:1"
)

// BuildArgs returns the ffmpeg arguments for an audio-only MP3 encode of
// input to stdout. header is only used for URL inputs.
func BuildArgs(input string, header http.Header, bitrateKbps int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if input != PipeInput {
		args = append(args, "-nostdin")
		if h := formatHeaders(header); h != "" {
			args = append(args, "-headers", h)
		}
	}
	return append(args,
		"-i", input,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
		"-f", "mp3",
		pipeOutput,
	)
}

// formatHeaders renders headers the way ffmpeg's -headers expects them:
// CRLF terminated, stable order.
func formatHeaders(h http.Header) string {
	if len(h) == 0 {
		return ""
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range h[k] {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}

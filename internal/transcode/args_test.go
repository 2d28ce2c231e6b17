// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestBuildArgsPipe(t *testing.T) {
	got := BuildArgs(PipeInput, http.Header{"User-Agent": {"ignored"}}, 128)
	want := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-vn", "-c:a", "libmp3lame", "-b:a", "128k",
		"-f", "mp3", "pipe:1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildArgsURL(t *testing.T) {
	h := http.Header{"User-Agent": {"UA"}, "Referer": {"https://www.youtube.com/"}}
	got := BuildArgs("https://cdn/a", h, 320)
	want := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-headers", "Referer: https://www.youtube.com/\r\nUser-Agent: UA\r\n",
		"-i", "https://cdn/a",
		"-vn", "-c:a", "libmp3lame", "-b:a", "320k",
		"-f", "mp3", "pipe:1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestLineTail(t *testing.T) {
	tail := newLineTail(3)
	_, _ = tail.Write([]byte("one\ntw"))
	_, _ = tail.Write([]byte("o\r\n\nthree\nfour\nfi"))
	assert.Equal(t, []string{"two", "three", "four", "fi"}, tail.Lines())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassNetwork, classify([]string{"https://x: Server returned 403 Forbidden"}))
	assert.Equal(t, ClassInputInvalid, classify([]string{"pipe:0: Invalid data found when processing input"}))
	assert.Equal(t, ClassEncoderMissing, classify([]string{"Unknown encoder 'libmp3lame'"}))
	assert.Equal(t, ClassExit, classify([]string{"something else"}))
	assert.Equal(t, ClassExit, classify(nil))
}

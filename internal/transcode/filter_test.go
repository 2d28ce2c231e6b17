// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package transcode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	platformnet "github.com/ManuGH/tubemp3/internal/platform/net"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func streamLocator(data string) *provider.Locator {
	return &provider.Locator{
		Provider: "test",
		Open: func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(data)), nil
		},
	}
}

func newTestFilter(bin string, mutate ...func(*Options)) *Filter {
	opts := Options{
		Binary:    bin,
		KillGrace: 200 * time.Millisecond,
		Client:    &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		Upstream:  platformnet.UpstreamPolicy{AllowPrivate: true},
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewFilter(opts)
}

func waitErr(t *testing.T, s *Stream) (error, bool) {
	t.Helper()
	select {
	case err, ok := <-s.Err():
		return err, ok
	case <-time.After(5 * time.Second):
		t.Fatal("stream never finished")
		return nil, false
	}
}

func TestTranscodePipesStreamThrough(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "exec cat"))
	payload := strings.Repeat("mp3-frame ", 10000)

	s, err := f.Transcode(context.Background(), streamLocator(payload), 128)
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))

	err, ok := waitErr(t, s)
	assert.False(t, ok, "no failure expected, got %v", err)
}

func TestTranscodeNonZeroExit(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, `cat >/dev/null
echo "pipe:0: Invalid data found when processing input" >&2
exit 1`))

	s, err := f.Transcode(context.Background(), streamLocator("not media"), 128)
	require.NoError(t, err)
	defer s.Close()

	_, err = io.ReadAll(s)
	require.Error(t, err)

	var pe *ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.ExitCode)
	assert.Equal(t, ClassInputInvalid, pe.Class)
	assert.ErrorIs(t, err, ErrProcessFailed)

	asyncErr, ok := <-s.Err()
	require.True(t, ok)
	assert.Same(t, err, asyncErr)
	_, ok = <-s.Err()
	assert.False(t, ok)
}

func TestTranscodeSourceFailureIsReported(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "exec cat"))
	loc := &provider.Locator{
		Provider: "test",
		Open: func(context.Context) (io.ReadCloser, error) {
			return nil, errors.New("403 from cdn")
		},
	}

	s, err := f.Transcode(context.Background(), loc, 128)
	require.NoError(t, err)
	defer s.Close()

	err, ok := waitErr(t, s)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrSourceFetch)
}

func TestTranscodeFetchesURLLocators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0 test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("webm-bytes"))
	}))
	defer srv.Close()

	f := newTestFilter(fakeFFmpeg(t, "exec cat"))
	loc := &provider.Locator{Provider: "dir", URL: srv.URL + "/audio", Header: http.Header{"User-Agent": {"Mozilla/5.0 test"}}}

	s, err := f.Transcode(context.Background(), loc, 128)
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(got))
}

func TestTranscodeUpstreamStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFilter(fakeFFmpeg(t, "exec cat"))
	s, err := f.Transcode(context.Background(), &provider.Locator{Provider: "dir", URL: srv.URL}, 128)
	require.NoError(t, err)
	defer s.Close()

	_, err = io.ReadAll(s)
	assert.ErrorIs(t, err, ErrSourceFetch)
}

func TestTranscodeRejectsPrivateURLByDefault(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "exec cat"), func(o *Options) { o.Upstream.AllowPrivate = false })
	_, err := f.Transcode(context.Background(), &provider.Locator{Provider: "dir", URL: "http://127.0.0.1:1/a"}, 128)
	assert.ErrorIs(t, err, ErrSourceFetch)
}

func TestTranscodeURLInputModePassesHeaders(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, `printf '%s\n' "$@"`), func(o *Options) { o.InputMode = InputURL })
	loc := &provider.Locator{Provider: "dir", URL: "https://203.0.113.7/audio", Header: http.Header{"User-Agent": {"UA"}}}

	s, err := f.Transcode(context.Background(), loc, 192)
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(got)), "\n")
	assert.Contains(t, args, "-nostdin")
	assert.Contains(t, args, "https://203.0.113.7/audio")
	assert.Contains(t, args, "192k")
	assert.Contains(t, string(got), "User-Agent: UA")
}

func TestCloseTerminatesProcess(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "exec sleep 30"))
	s, err := f.Transcode(context.Background(), streamLocator(""), 128)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed after Close")
	}
	_, ok := <-s.Err()
	assert.False(t, ok, "cancellation is not a failure")
}

func TestCloseKillsProcessIgnoringTerm(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "trap '' TERM\nwhile true; do sleep 1; done"))
	s, err := f.Transcode(context.Background(), streamLocator(""), 128)
	require.NoError(t, err)

	// Let the shell install its trap.
	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	require.NoError(t, s.Close())
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestContextCancelTerminates(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "exec sleep 30"))
	ctx, cancel := context.WithCancel(context.Background())
	s, err := f.Transcode(ctx, streamLocator(""), 128)
	require.NoError(t, err)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("process survived context cancellation")
	}
	require.NoError(t, s.Close())
}

func TestMaxDuration(t *testing.T) {
	f := newTestFilter(fakeFFmpeg(t, "exec sleep 30"), func(o *Options) { o.MaxDuration = 100 * time.Millisecond })
	s, err := f.Transcode(context.Background(), streamLocator(""), 128)
	require.NoError(t, err)
	defer s.Close()

	err, ok := waitErr(t, s)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrMaxDuration)
}

func TestMissingBinary(t *testing.T) {
	f := newTestFilter(filepath.Join(t.TempDir(), "nope"))
	_, err := f.Transcode(context.Background(), streamLocator(""), 128)
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestInvalidInput(t *testing.T) {
	f := newTestFilter("ffmpeg")
	_, err := f.Transcode(context.Background(), nil, 128)
	assert.Error(t, err)
	_, err = f.Transcode(context.Background(), streamLocator(""), 0)
	assert.Error(t, err)
}

func TestResolveBinary(t *testing.T) {
	bin := fakeFFmpeg(t, "exit 0")
	got, err := ResolveBinary(bin)
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	plain := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
	_, err = ResolveBinary(plain)
	assert.ErrorIs(t, err, ErrBinaryNotFound)

	t.Setenv("PATH", filepath.Dir(bin))
	got, err = ResolveBinary("")
	require.NoError(t, err)
	assert.Equal(t, bin, got)

	_, err = ResolveBinary("definitely-not-installed-ffmpeg")
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestStderrTailKeptOnFailure(t *testing.T) {
	var script bytes.Buffer
	for i := 0; i < 40; i++ {
		script.WriteString("echo line >&2\n")
	}
	script.WriteString("echo \"Unknown encoder 'libmp3lame'\" >&2\nexit 8")
	f := newTestFilter(fakeFFmpeg(t, script.String()))

	s, err := f.Transcode(context.Background(), streamLocator(""), 128)
	require.NoError(t, err)
	defer s.Close()

	err, ok := waitErr(t, s)
	require.True(t, ok)
	var pe *ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ClassEncoderMissing, pe.Class)
	assert.Equal(t, 8, pe.ExitCode)
	assert.Len(t, s.Stderr(), stderrTailLines)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transcode pipes source media through ffmpeg and exposes the MP3
// output as a stream with an asynchronous failure channel.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/ManuGH/tubemp3/internal/config"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
	platformnet "github.com/ManuGH/tubemp3/internal/platform/net"
	"github.com/ManuGH/tubemp3/internal/procgroup"
	"github.com/ManuGH/tubemp3/internal/provider"
)

// Input modes.
const (
	InputPipe = "pipe"
	InputURL  = "url"
)

const (
	defaultKillGrace = 2 * time.Second
	stderrTailLines  = 32
)

// Options configures a Filter.
type Options struct {
	// Binary is the resolved ffmpeg path.
	Binary      string
	MaxDuration time.Duration
	KillGrace   time.Duration
	// InputMode decides who fetches URL locators: we (pipe) or ffmpeg (url).
	InputMode string
	// Client fetches URL locators in pipe mode.
	Client   *http.Client
	Upstream platformnet.UpstreamPolicy
}

// OptionsFromConfig maps the transcode section. binary must already be resolved.
func OptionsFromConfig(cfg config.AppConfig, binary string, client *http.Client) Options {
	return Options{
		Binary:      binary,
		MaxDuration: cfg.Transcode.MaxDuration,
		KillGrace:   cfg.Transcode.KillGrace,
		InputMode:   cfg.Transcode.InputMode,
		Client:      client,
		Upstream:    platformnet.UpstreamPolicy{AllowPrivate: cfg.Upstream.AllowPrivate},
	}
}

// Filter starts one ffmpeg process per transcode.
type Filter struct {
	opts Options
}

// NewFilter creates a filter.
func NewFilter(opts Options) *Filter {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = defaultKillGrace
	}
	if opts.InputMode == "" {
		opts.InputMode = InputPipe
	}
	return &Filter{opts: opts}
}

// Transcode starts encoding loc to MP3 at bitrateKbps. It returns once the
// process runs; source fetching happens in the background and its failures
// are reported through Stream.Err. Cancelling ctx terminates the process.
func (f *Filter) Transcode(ctx context.Context, loc *provider.Locator, bitrateKbps int) (*Stream, error) {
	if loc == nil {
		return nil, errors.New("transcode: nil locator")
	}
	if bitrateKbps <= 0 {
		return nil, fmt.Errorf("transcode: invalid bitrate %d", bitrateKbps)
	}

	feed := true
	input := PipeInput
	if !loc.IsStream() {
		if _, err := platformnet.CheckUpstreamURL(ctx, loc.URL, f.opts.Upstream); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceFetch, err)
		}
		if f.opts.InputMode == InputURL {
			feed = false
			input = loc.URL
		}
	}

	var (
		sctx   context.Context
		cancel context.CancelFunc
	)
	if f.opts.MaxDuration > 0 {
		sctx, cancel = context.WithTimeoutCause(ctx, f.opts.MaxDuration, ErrMaxDuration)
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}

	// #nosec G204 -- binary comes from configuration, arguments are built here.
	cmd := exec.Command(f.opts.Binary, BuildArgs(input, loc.Header, bitrateKbps)...)
	procgroup.Set(cmd)
	cmd.WaitDelay = f.opts.KillGrace

	tail := newLineTail(stderrTailLines)
	cmd.Stderr = tail

	var stdin io.WriteCloser
	if feed {
		w, err := cmd.StdinPipe()
		if err != nil {
			cancel()
			return nil, err
		}
		stdin = w
	}

	// Our own pipe: exec's StdoutPipe would be closed by Wait while the
	// consumer may still be reading buffered output.
	out, outW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, err
	}
	cmd.Stdout = outW

	if err := cmd.Start(); err != nil {
		cancel()
		_ = out.Close()
		_ = outW.Close()
		if stdin != nil {
			_ = stdin.Close()
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	_ = outW.Close()

	logger := xglog.WithContext(ctx, xglog.WithComponent("transcode")).With().
		Int(xglog.FieldPID, cmd.Process.Pid).
		Str(xglog.FieldProvider, loc.Provider).
		Int(xglog.FieldBitrate, bitrateKbps).
		Logger()
	logger.Debug().Str("input", inputLabel(input)).Msg("ffmpeg started")

	s := &Stream{
		out:     out,
		cmd:     cmd,
		tail:    tail,
		cancel:  cancel,
		grace:   f.opts.KillGrace,
		errCh:   make(chan error, 1),
		done:    make(chan struct{}),
		waitCh:  make(chan error, 1),
		logger:  logger,
		started: time.Now(),
	}
	metrics.TranscodesActive.Inc()

	feederDone := make(chan struct{})
	if feed {
		go func() {
			defer close(feederDone)
			s.feed(sctx, loc, stdin, f.opts.Client)
		}()
	} else {
		close(feederDone)
	}
	go func() { s.waitCh <- cmd.Wait() }()
	go s.supervise(sctx, feederDone)

	return s, nil
}

func inputLabel(input string) string {
	if input == PipeInput {
		return input
	}
	return platformnet.SanitizeURL(input)
}

// openSource returns the byte stream for loc.
func openSource(ctx context.Context, loc *provider.Locator, client *http.Client) (io.ReadCloser, error) {
	if loc.IsStream() {
		return loc.Open(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range loc.Header {
		req.Header[k] = vs
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

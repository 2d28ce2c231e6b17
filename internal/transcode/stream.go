// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/tubemp3/internal/metrics"
	"github.com/ManuGH/tubemp3/internal/procgroup"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/rs/zerolog"
)

// Stream is the MP3 output of one ffmpeg process. Exactly one consumer reads
// it. Read returns io.EOF only after a clean exit; otherwise the final Read
// returns the failure that Err also delivers.
type Stream struct {
	out    *os.File
	cmd    *exec.Cmd
	tail   *lineTail
	cancel context.CancelFunc
	grace  time.Duration
	logger zerolog.Logger

	errCh  chan error
	waitCh chan error
	done   chan struct{}

	mu       sync.Mutex
	src      io.Closer
	failure  error
	reported bool

	started   time.Time
	closeOnce sync.Once
}

// Read reads MP3 bytes.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	if n > 0 {
		metrics.TranscodeBytesOutput.Add(float64(n))
	}
	if errors.Is(err, io.EOF) {
		<-s.done
		if ferr := s.Failure(); ferr != nil {
			return n, ferr
		}
	}
	return n, err
}

// Err delivers at most one asynchronous failure and is closed once the
// process and every helper goroutine have finished.
func (s *Stream) Err() <-chan error { return s.errCh }

// Done is closed when the process has exited and all resources are released.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Failure returns the reported failure, if any.
func (s *Stream) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Stderr returns the last lines ffmpeg wrote to stderr.
func (s *Stream) Stderr() []string { return s.tail.Lines() }

// Close terminates the process group, closes the source and waits for every
// goroutine of the stream. It is idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		_ = s.out.Close()
	})
	return nil
}

// fail records err as the stream failure unless one is already recorded.
func (s *Stream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reported {
		return
	}
	s.reported = true
	s.failure = err
	s.errCh <- err
}

func (s *Stream) setSource(src io.Closer) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
}

func (s *Stream) closeSource() {
	s.mu.Lock()
	src := s.src
	s.src = nil
	s.mu.Unlock()
	if src != nil {
		_ = src.Close()
	}
}

// feed copies the source into ffmpeg's stdin and closes it at EOF.
func (s *Stream) feed(ctx context.Context, loc *provider.Locator, stdin io.WriteCloser, client *http.Client) {
	defer func() { _ = stdin.Close() }()

	src, err := openSource(ctx, loc, client)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(fmt.Errorf("%w: %v", ErrSourceFetch, err))
		}
		return
	}
	s.setSource(src)
	if ctx.Err() != nil {
		s.closeSource()
		return
	}

	r := &errReader{r: src}
	_, _ = io.Copy(stdin, r)
	// Write errors mean ffmpeg stopped reading; its exit status tells why.
	if r.err != nil && ctx.Err() == nil {
		s.fail(fmt.Errorf("%w: %v", ErrSourceFetch, r.err))
	}
}

// errReader remembers the first non-EOF read error.
type errReader struct {
	r   io.Reader
	err error
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && e.err == nil {
		e.err = err
	}
	return n, err
}

// supervise waits for the process or the context, tears everything down and
// reports the outcome.
func (s *Stream) supervise(ctx context.Context, feederDone <-chan struct{}) {
	var waitErr error
	terminated := false
	select {
	case waitErr = <-s.waitCh:
	case <-ctx.Done():
		terminated = true
		waitErr = procgroup.Terminate(s.cmd, s.waitCh, s.grace)
	}

	s.cancel()
	s.closeSource()
	<-feederDone

	switch {
	case terminated && errors.Is(context.Cause(ctx), ErrMaxDuration):
		s.fail(ErrMaxDuration)
	case terminated:
		// Consumer went away; nobody is left to tell.
	case waitErr != nil:
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		tail := s.tail.Lines()
		s.fail(&ProcessError{ExitCode: code, Class: classify(tail), Tail: tail})
	}

	ev := s.logger.Debug()
	if ferr := s.Failure(); ferr != nil {
		metrics.IncTranscodeError(ErrorClass(ferr))
		ev = s.logger.Warn().Err(ferr).Strs("stderr", s.tail.Lines())
	}
	ev.Bool("terminated", terminated).
		Dur("elapsed", time.Since(s.started)).
		Msg("ffmpeg finished")

	metrics.TranscodesActive.Dec()
	close(s.errCh)
	close(s.done)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package delivery writes a transcoded stream to an HTTP response without
// committing the response before the first output byte exists.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
)

var (
	// ErrFailedPreCommit means nothing was written; the caller still owns the response.
	ErrFailedPreCommit = errors.New("stream failed before first byte")
	// ErrFailedPostCommit means headers and some bytes are out; the connection must be aborted.
	ErrFailedPostCommit = errors.New("stream failed after commit")
	// ErrClientGone means the client disconnected.
	ErrClientGone = errors.New("client disconnected")

	// ErrFirstByteDeadline is wrapped by ErrFailedPreCommit when no byte arrived in time.
	ErrFirstByteDeadline = errors.New("first byte deadline exceeded")
	// ErrEmptyOutput is wrapped by ErrFailedPreCommit when the stream ended empty.
	ErrEmptyOutput = errors.New("transcoder produced no output")
)

const (
	defaultFirstByteTimeout = 20 * time.Second
	defaultChunkSize        = 32 << 10
)

// Stream is what the gate consumes: a single-reader byte stream with an
// asynchronous failure channel that is closed when the producer is done.
type Stream interface {
	io.ReadCloser
	Err() <-chan error
}

// Options configures a Gate.
type Options struct {
	FirstByteTimeout time.Duration
	ChunkSize        int
}

// Gate holds an HTTP response uncommitted until the stream yields bytes.
type Gate struct {
	w    http.ResponseWriter
	opts Options

	mu        sync.Mutex
	state     State
	written   int64
	committed bool
}

// NewGate creates a gate in StateIdle.
func NewGate(w http.ResponseWriter, opts Options) *Gate {
	if opts.FirstByteTimeout <= 0 {
		opts.FirstByteTimeout = defaultFirstByteTimeout
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	return &Gate{w: w, opts: opts}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Written returns the number of body bytes written.
func (g *Gate) Written() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.written
}

// Committed reports whether headers went out.
func (g *Gate) Committed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.committed
}

// Done moves the gate to StateDone. It is idempotent.
func (g *Gate) Done() {
	g.transition(context.Background(), StateDone)
}

func (g *Gate) transition(ctx context.Context, to State) bool {
	g.mu.Lock()
	from := g.state
	if !canTransition(from, to) {
		g.mu.Unlock()
		return false
	}
	g.state = to
	g.mu.Unlock()

	logger := xglog.WithComponentFromContext(ctx, "delivery")
	logger.Debug().
		Str(xglog.FieldOldState, from.String()).
		Str(xglog.FieldNewState, to.String()).
		Msg("gate transition")
	return true
}

type chunk struct {
	buf []byte
	err error
}

// Serve copies s to the response. It always closes s and ends in StateDone.
//
// Errors: ErrFailedPreCommit (nothing written), ErrFailedPostCommit (the
// response is truncated and must be aborted), ErrClientGone.
func (g *Gate) Serve(ctx context.Context, s Stream, filename string) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	chunks := make(chan chunk)
	var wg sync.WaitGroup

	defer func() {
		cancel()
		_ = s.Close()
		wg.Wait()
		g.Done()
		metrics.IncGateOutcome(outcome(err))
	}()

	if !g.transition(ctx, StateAwaitingFirstByte) {
		return fmt.Errorf("gate: serve from state %s", g.State())
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		g.pump(ctx, s, chunks)
	}()

	start := time.Now()
	timer := time.NewTimer(g.opts.FirstByteTimeout)
	defer timer.Stop()
	errCh := s.Err()

	// Awaiting first byte.
	for committed := false; !committed; {
		select {
		case <-ctx.Done():
			return ErrClientGone
		case <-timer.C:
			g.transition(ctx, StateFailedPreCommit)
			return fmt.Errorf("%w: %w", ErrFailedPreCommit, ErrFirstByteDeadline)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			g.transition(ctx, StateFailedPreCommit)
			return fmt.Errorf("%w: %w", ErrFailedPreCommit, e)
		case c := <-chunks:
			if len(c.buf) == 0 {
				if c.err == nil || errors.Is(c.err, io.EOF) {
					c.err = ErrEmptyOutput
				}
				g.transition(ctx, StateFailedPreCommit)
				return fmt.Errorf("%w: %w", ErrFailedPreCommit, c.err)
			}
			g.commit(filename)
			g.transition(ctx, StateCommitted)
			metrics.ObserveFirstByte(time.Since(start))
			if werr := g.write(c.buf); werr != nil {
				return fmt.Errorf("%w: %v", ErrClientGone, werr)
			}
			if c.err != nil {
				return g.finish(c.err)
			}
			committed = true
		}
	}

	// Committed.
	for {
		select {
		case <-ctx.Done():
			return ErrClientGone
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return fmt.Errorf("%w: %w", ErrFailedPostCommit, e)
		case c := <-chunks:
			if len(c.buf) > 0 {
				if werr := g.write(c.buf); werr != nil {
					return fmt.Errorf("%w: %v", ErrClientGone, werr)
				}
			}
			if c.err != nil {
				return g.finish(c.err)
			}
		}
	}
}

// finish maps the terminal read error of a committed stream.
func (g *Gate) finish(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFailedPostCommit, err)
}

// pump reads s into chunks until a read error or cancellation.
func (g *Gate) pump(ctx context.Context, s Stream, out chan<- chunk) {
	for {
		buf := make([]byte, g.opts.ChunkSize)
		n, err := s.Read(buf)
		if n == 0 && err == nil {
			continue
		}
		select {
		case out <- chunk{buf: buf[:n], err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (g *Gate) commit(filename string) {
	h := g.w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Content-Disposition", ContentDisposition(filename))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	g.w.WriteHeader(http.StatusOK)
	g.mu.Lock()
	g.committed = true
	g.mu.Unlock()
}

func (g *Gate) write(p []byte) error {
	n, err := g.w.Write(p)
	g.mu.Lock()
	g.written += int64(n)
	g.mu.Unlock()
	if err != nil {
		return err
	}
	if err := http.NewResponseController(g.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrFailedPreCommit):
		return "failed_pre_commit"
	case errors.Is(err, ErrFailedPostCommit):
		return "failed_post_commit"
	case errors.Is(err, ErrClientGone):
		return "client_gone"
	}
	return "error"
}

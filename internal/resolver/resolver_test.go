// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/tubemp3/internal/config"
	platformnet "github.com/ManuGH/tubemp3/internal/platform/net"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/videoref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeMedia struct {
	name    string
	timeout time.Duration
	delay   time.Duration
	url     string
	err     error
	stream  bool
	calls   atomic.Int32
	last    atomic.Pointer[provider.Locator]
}

func (f *fakeMedia) Name() string           { return f.name }
func (f *fakeMedia) Timeout() time.Duration { return f.timeout }

func (f *fakeMedia) ResolveMedia(ctx context.Context, _ videoref.Ref) (*provider.Locator, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, provider.Unavailable(f.name, "", ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	u := f.url
	if u == "" {
		// Documentation range: public, no DNS lookup.
		u = "https://203.0.113.10/" + f.name + "/audio"
	}
	loc := &provider.Locator{Provider: f.name, URL: u}
	if f.stream {
		loc.URL = ""
		loc.Open = func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("audio")), nil
		}
	}
	f.last.Store(loc)
	return loc, nil
}

func ok(name string) *fakeMedia { return &fakeMedia{name: name} }

func failing(name, reason string) *fakeMedia {
	return &fakeMedia{name: name, err: provider.Unavailablef(name, "%s", reason)}
}

func slow(name string, delay time.Duration) *fakeMedia {
	return &fakeMedia{name: name, delay: delay}
}

func mediaSources(fs ...*fakeMedia) []provider.MediaSource {
	out := make([]provider.MediaSource, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}

func testRef(t *testing.T) videoref.Ref {
	t.Helper()
	ref, err := videoref.FromID("dQw4w9WgXcQ")
	require.NoError(t, err)
	return ref
}

func TestSequentialShortCircuits(t *testing.T) {
	a, b, c := failing("a", "boom"), ok("b"), ok("c")
	chain := NewChain(mediaSources(a, b, c), nil, Options{DefaultTimeout: time.Second})

	loc, err := chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "b", loc.Provider)
	assert.EqualValues(t, 1, a.calls.Load())
	assert.EqualValues(t, 1, b.calls.Load())
	assert.EqualValues(t, 0, c.calls.Load())
}

func TestSequentialExhaustedReasons(t *testing.T) {
	a := failing("a", "video private")
	b := slow("b", time.Second)
	b.timeout = 20 * time.Millisecond
	c := &fakeMedia{name: "c", err: errors.New("plain failure")}

	chain := NewChain(mediaSources(a, b, c), nil, Options{DefaultTimeout: time.Second})
	_, err := chain.Resolve(context.Background(), testRef(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	require.Len(t, ex.Attempts, 3)
	assert.Equal(t, map[string]string{
		"a": "video private",
		"b": "timeout",
		"c": "plain failure",
	}, ex.Reasons())
	assert.Equal(t, OutcomeTimeout, ex.Attempts[1].Outcome)
	assert.Equal(t, OutcomeUnavailable, ex.Attempts[2].Outcome)
}

func TestSequentialBudgetSkipsRemaining(t *testing.T) {
	a := slow("a", time.Second)
	b := ok("b")
	chain := NewChain(mediaSources(a, b), nil, Options{DefaultTimeout: time.Second, Budget: 30 * time.Millisecond})

	_, err := chain.Resolve(context.Background(), testRef(t))
	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, OutcomeTimeout, ex.Attempts[0].Outcome)
	assert.Equal(t, OutcomeSkipped, ex.Attempts[1].Outcome)
	assert.EqualValues(t, 0, b.calls.Load())
}

func TestResolveCancelledReturnsContextError(t *testing.T) {
	chain := NewChain(mediaSources(slow("a", time.Second)), nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := chain.Resolve(ctx, testRef(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAllProvidersExhausted)
}

func TestResolveRejectsPrivateUpstream(t *testing.T) {
	a := &fakeMedia{name: "a", url: "http://127.0.0.1:9/audio"}
	chain := NewChain(mediaSources(a, ok("b")), nil, Options{})

	loc, err := chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "b", loc.Provider)

	chain = NewChain(mediaSources(a), nil, Options{Upstream: platformnet.UpstreamPolicy{AllowPrivate: true}})
	loc, err = chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "a", loc.Provider)
}

func TestRacePrefersHigherPriorityWithinTieWindow(t *testing.T) {
	chain := NewChain(mediaSources(slow("a", 40*time.Millisecond), ok("b")), nil, Options{
		Mode:      config.ModeRace,
		TieWindow: 500 * time.Millisecond,
	})
	loc, err := chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "a", loc.Provider)
}

func TestRaceTieWindowExpires(t *testing.T) {
	a := slow("a", 2*time.Second)
	chain := NewChain(mediaSources(a, ok("b")), nil, Options{
		Mode:      config.ModeRace,
		TieWindow: 20 * time.Millisecond,
	})
	start := time.Now()
	loc, err := chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "b", loc.Provider)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRaceHigherPriorityFailureDecidesImmediately(t *testing.T) {
	chain := NewChain(mediaSources(failing("a", "nope"), ok("b"), slow("c", time.Second)), nil, Options{
		Mode:      config.ModeRace,
		TieWindow: time.Second,
	})
	start := time.Now()
	loc, err := chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "b", loc.Provider)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRaceDiscardsLoserLocators(t *testing.T) {
	a := &fakeMedia{name: "a", delay: 30 * time.Millisecond, stream: true}
	b := &fakeMedia{name: "b", stream: true}
	chain := NewChain(mediaSources(a, b), nil, Options{
		Mode:      config.ModeRace,
		TieWindow: 500 * time.Millisecond,
	})
	loc, err := chain.Resolve(context.Background(), testRef(t))
	require.NoError(t, err)
	assert.Equal(t, "a", loc.Provider)
	assert.True(t, loc.IsStream())

	loser := b.last.Load()
	require.NotNil(t, loser)
	assert.False(t, loser.IsStream())
}

func TestRaceExhausted(t *testing.T) {
	chain := NewChain(mediaSources(failing("a", "x"), failing("b", "y")), nil, Options{Mode: config.ModeRace})
	_, err := chain.Resolve(context.Background(), testRef(t))
	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, map[string]string{"a": "x", "b": "y"}, ex.Reasons())
}

func TestEmptyChainIsExhausted(t *testing.T) {
	for _, mode := range []string{config.ModeSequential, config.ModeRace} {
		_, err := NewChain(nil, nil, Options{Mode: mode}).Resolve(context.Background(), testRef(t))
		assert.ErrorIs(t, err, ErrAllProvidersExhausted, mode)
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resolver turns a video reference into a media locator by walking an
// ordered chain of unreliable providers.
package resolver

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/tubemp3/internal/config"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
	"github.com/ManuGH/tubemp3/internal/platform/httpx"
	platformnet "github.com/ManuGH/tubemp3/internal/platform/net"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/videoref"
	"golang.org/x/sync/errgroup"
)

const capabilityMedia = config.CapabilityMedia

// Options configures a Chain.
type Options struct {
	// Mode is config.ModeSequential (default) or config.ModeRace.
	Mode string
	// DefaultTimeout bounds attempts of providers without their own timeout.
	DefaultTimeout time.Duration
	// Budget bounds a whole Resolve call; zero means unbounded.
	Budget time.Duration
	// TieWindow is how long a lower priority race winner waits for higher
	// priority providers still in flight.
	TieWindow time.Duration

	// ProbeTimeout bounds a single download candidate probe.
	ProbeTimeout time.Duration
	// FallbackBudget bounds a whole FirstUsable call.
	FallbackBudget time.Duration
	// ProbeClient performs the candidate probes.
	ProbeClient *http.Client

	Upstream platformnet.UpstreamPolicy
}

// OptionsFromConfig maps the resolver related configuration sections.
func OptionsFromConfig(cfg config.AppConfig, probe *http.Client) Options {
	return Options{
		Mode:           cfg.Resolver.Mode,
		DefaultTimeout: cfg.Resolver.ProviderTimeout,
		Budget:         cfg.Resolver.Budget,
		TieWindow:      cfg.Resolver.RaceTieWindow,
		ProbeTimeout:   cfg.Fallback.ProbeTimeout,
		FallbackBudget: cfg.Fallback.Budget,
		ProbeClient:    probe,
		Upstream:       platformnet.UpstreamPolicy{AllowPrivate: cfg.Upstream.AllowPrivate},
	}
}

// Chain resolves media through an ordered provider list. The order is the
// priority; it comes from configuration.
type Chain struct {
	media     []provider.MediaSource
	downloads []provider.CandidateSource
	opts      Options
}

// NewChain creates a chain over the given sources.
func NewChain(media []provider.MediaSource, downloads []provider.CandidateSource, opts Options) *Chain {
	if opts.Mode == "" {
		opts.Mode = config.ModeSequential
	}
	if opts.ProbeClient == nil {
		opts.ProbeClient = httpx.NewClient(10 * time.Second)
	}
	return &Chain{media: media, downloads: downloads, opts: opts}
}

// Providers returns the media provider names in priority order.
func (c *Chain) Providers() []string { return provider.Names(c.media) }

// HasDownloads reports whether a final-resort tier is configured.
func (c *Chain) HasDownloads() bool { return len(c.downloads) > 0 }

// Resolve returns a locator from the highest priority provider that works.
// On exhaustion the error is an *ExhaustedError. A cancelled ctx returns the
// context error instead.
func (c *Chain) Resolve(ctx context.Context, ref videoref.Ref) (*provider.Locator, error) {
	rctx := ctx
	if c.opts.Budget > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, c.opts.Budget)
		defer cancel()
	}

	var (
		loc      *provider.Locator
		attempts []Attempt
		err      error
	)
	if c.opts.Mode == config.ModeRace {
		loc, attempts, err = c.race(rctx, ref)
	} else {
		loc, attempts, err = Sequential(rctx, capabilityMedia, c.media, c.opts.DefaultTimeout, c.attemptMedia(ref))
	}

	if cerr := ctx.Err(); cerr != nil {
		metrics.IncChainResolution(c.opts.Mode, "cancelled")
		return nil, cerr
	}
	if err != nil {
		metrics.IncChainResolution(c.opts.Mode, "exhausted")
		logger := xglog.WithComponentFromContext(ctx, "resolver")
		logger.Warn().
			Str(xglog.FieldMode, c.opts.Mode).
			Interface("attempts", attempts).
			Msg("media providers exhausted")
		return nil, err
	}
	metrics.IncChainResolution(c.opts.Mode, "resolved")
	return loc, nil
}

// attemptMedia resolves one provider and rejects locators we would refuse to fetch.
func (c *Chain) attemptMedia(ref videoref.Ref) AttemptFunc[provider.MediaSource, *provider.Locator] {
	return func(ctx context.Context, src provider.MediaSource) (*provider.Locator, error) {
		loc, err := src.ResolveMedia(ctx, ref)
		if err != nil {
			return nil, err
		}
		if loc == nil || (!loc.IsStream() && loc.URL == "") {
			return nil, provider.Unavailablef(src.Name(), "empty locator")
		}
		if !loc.IsStream() {
			if _, err := platformnet.CheckUpstreamURL(ctx, loc.URL, c.opts.Upstream); err != nil {
				return nil, provider.Unavailable(src.Name(), "upstream not allowed", err)
			}
		}
		return loc, nil
	}
}

type raceResult struct {
	idx int
	loc *provider.Locator
	err error
	dur time.Duration
}

// race starts every provider at once. The winner is the highest priority
// success: a lower priority success is held for at most TieWindow while a
// higher priority provider is still running.
func (c *Chain) race(ctx context.Context, ref videoref.Ref) (*provider.Locator, []Attempt, error) {
	n := len(c.media)
	if n == 0 {
		return nil, nil, &ExhaustedError{Capability: capabilityMedia}
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult, n)
	attempt := c.attemptMedia(ref)
	var g errgroup.Group
	for i, src := range c.media {
		g.Go(func() error {
			start := time.Now()
			loc, err := runAttempt(raceCtx, src, c.opts.DefaultTimeout, attempt)
			results <- raceResult{idx: i, loc: loc, err: err, dur: time.Since(start)}
			return nil
		})
	}

	done := make([]*raceResult, n)
	winner := -1
	var tie *time.Timer
	var tieC <-chan time.Time

collect:
	for received := 0; received < n; {
		select {
		case r := <-results:
			received++
			done[r.idx] = &r
			if w, decided := pickWinner(done); decided {
				winner = w
				break collect
			}
			if tie == nil && r.err == nil {
				tie = time.NewTimer(c.opts.TieWindow)
				tieC = tie.C
			}
		case <-tieC:
			winner = bestSuccess(done)
			break collect
		case <-ctx.Done():
			winner = bestSuccess(done)
			break collect
		}
	}
	if tie != nil {
		tie.Stop()
	}

	// Providers still running are cancelled; their results arrive afterwards.
	decided := make([]bool, n)
	for i, r := range done {
		decided[i] = r != nil
	}
	cancel()
	_ = g.Wait()
	close(results)
	for r := range results {
		done[r.idx] = &r
	}

	attempts := make([]Attempt, 0, n)
	for i, r := range done {
		name := c.media[i].Name()
		var a Attempt
		switch {
		case i == winner:
			a = Attempt{Provider: name, Outcome: OutcomeSuccess, Duration: r.dur}
		case r.err == nil || (winner >= 0 && !decided[i]):
			r.loc.Discard()
			a = Attempt{Provider: name, Outcome: OutcomeCancelled, Reason: "lost race", Duration: r.dur}
		default:
			a = failedAttempt(name, r.err, r.dur)
		}
		metrics.ObserveProviderAttempt(name, capabilityMedia, a.Outcome, a.Duration)
		attempts = append(attempts, a)
	}

	if winner < 0 {
		return nil, attempts, &ExhaustedError{Capability: capabilityMedia, Attempts: attempts}
	}
	return done[winner].loc, attempts, nil
}

// pickWinner returns the first success when every higher priority provider
// has already failed. decided is also true when all providers failed.
func pickWinner(done []*raceResult) (winner int, decided bool) {
	for i, r := range done {
		if r == nil {
			return -1, false
		}
		if r.err == nil {
			return i, true
		}
	}
	return -1, true
}

func bestSuccess(done []*raceResult) int {
	for i, r := range done {
		if r != nil && r.err == nil {
			return i
		}
	}
	return -1
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/tubemp3/internal/config"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/metrics"
	platformnet "github.com/ManuGH/tubemp3/internal/platform/net"
	"github.com/ManuGH/tubemp3/internal/provider"
	"github.com/ManuGH/tubemp3/internal/videoref"
	"golang.org/x/sync/errgroup"
)

// sniffLen is the number of leading bytes requested from a candidate and
// handed to http.DetectContentType (which looks at 512 at most).
const sniffLen = 1024

var errNotMedia = errors.New("not a media response")

// FirstUsable is the final-resort tier. Every download source lists its
// candidate URLs concurrently and every candidate is probed; the first one
// whose leading bytes look like audio wins and the rest are cancelled.
// Direct-download sites answer 200 with HTML error pages, so a success
// status alone never qualifies a candidate.
func (c *Chain) FirstUsable(ctx context.Context, ref videoref.Ref) (*provider.Locator, error) {
	logger := xglog.WithComponentFromContext(ctx, "resolver")
	if c.opts.FallbackBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FallbackBudget)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		winner   *provider.Locator
		attempts []Attempt
	)
	record := func(a Attempt) {
		mu.Lock()
		attempts = append(attempts, a)
		mu.Unlock()
		metrics.ObserveProviderAttempt(a.Provider, config.CapabilityDownload, a.Outcome, a.Duration)
	}
	win := func(loc *provider.Locator) bool {
		mu.Lock()
		defer mu.Unlock()
		if winner != nil {
			return false
		}
		winner = loc
		cancel()
		return true
	}

	hasWinner := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return winner != nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range c.downloads {
		g.Go(func() error {
			start := time.Now()
			cands, err := runAttempt(gctx, src, c.opts.DefaultTimeout,
				func(ctx context.Context, s provider.CandidateSource) ([]*provider.Locator, error) {
					return s.Candidates(ctx, ref)
				})
			if err != nil {
				record(failedAttempt(src.Name(), err, time.Since(start)))
				return nil
			}
			for _, cand := range cands {
				g.Go(func() error {
					pstart := time.Now()
					loc, err := c.probe(gctx, cand)
					d := time.Since(pstart)
					switch {
					case err == nil && win(loc):
						record(Attempt{Provider: cand.Provider, Outcome: OutcomeSuccess, Duration: d})
						logger.Info().
							Str(xglog.FieldProvider, cand.Provider).
							Str(xglog.FieldEndpoint, platformnet.SanitizeURL(cand.URL)).
							Dur(xglog.FieldDuration, d).
							Msg("download candidate usable")
					case err == nil || gctx.Err() != nil:
						record(interrupted(cand.Provider, hasWinner(), gctx.Err(), d))
					default:
						a := failedAttempt(cand.Provider, err, d)
						if errors.Is(err, errNotMedia) || errors.Is(err, platformnet.ErrUpstreamNotAllowed) {
							a.Outcome = OutcomeRejected
						}
						record(a)
					}
					return nil
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	if winner != nil {
		metrics.IncFallback("download", "usable")
		return winner, nil
	}
	metrics.IncFallback("download", "exhausted")
	return nil, &ExhaustedError{Capability: config.CapabilityDownload, Attempts: attempts}
}

// interrupted labels a candidate cut short before it finished. Only a real
// winner justifies "cancelled"; a spent budget is a timeout.
func interrupted(name string, won bool, cause error, d time.Duration) Attempt {
	switch {
	case won:
		return Attempt{Provider: name, Outcome: OutcomeCancelled, Reason: "another candidate won", Duration: d}
	case errors.Is(cause, context.DeadlineExceeded):
		return Attempt{Provider: name, Outcome: OutcomeTimeout, Reason: "fallback budget exhausted", Duration: d}
	default:
		return Attempt{Provider: name, Outcome: OutcomeCancelled, Reason: "request cancelled", Duration: d}
	}
}

// probe fetches the first bytes of a candidate and checks they are audio.
func (c *Chain) probe(ctx context.Context, cand *provider.Locator) (*provider.Locator, error) {
	name := cand.Provider
	if _, err := platformnet.CheckUpstreamURL(ctx, cand.URL, c.opts.Upstream); err != nil {
		return nil, provider.Unavailable(name, "upstream not allowed", err)
	}
	if c.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ProbeTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cand.URL, nil)
	if err != nil {
		return nil, provider.Unavailable(name, "bad candidate url", err)
	}
	for k, vs := range cand.Header {
		req.Header[k] = vs
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffLen-1))

	resp, err := c.opts.ProbeClient.Do(req)
	if err != nil {
		return nil, provider.Unavailable(name, "probe failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, provider.Unavailablef(name, "probe status %d", resp.StatusCode)
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, provider.Unavailable(name, "probe read failed", err)
	}
	if n == 0 {
		return nil, provider.Unavailable(name, "empty body", errNotMedia)
	}

	declared := mediaType(resp.Header.Get("Content-Type"))
	sniffed := mediaType(http.DetectContentType(buf[:n]))
	if !usable(declared, sniffed) {
		return nil, provider.Unavailable(name, "not audio ("+sniffed+")", errNotMedia)
	}

	loc := *cand
	loc.ContentType = sniffed
	if !strings.HasPrefix(sniffed, "audio/") && strings.HasPrefix(declared, "audio/") {
		loc.ContentType = declared
	}
	return &loc, nil
}

// usable rejects anything that sniffs or declares itself as a document.
// MP3 without an ID3 tag sniffs as application/octet-stream.
func usable(declared, sniffed string) bool {
	if isDocument(sniffed) || isDocument(declared) {
		return false
	}
	return strings.HasPrefix(sniffed, "audio/") ||
		strings.HasPrefix(sniffed, "video/") ||
		sniffed == "application/octet-stream" ||
		sniffed == "application/ogg"
}

func isDocument(t string) bool {
	return strings.HasPrefix(t, "text/") ||
		t == "application/json" ||
		t == "application/xml" ||
		t == "application/pdf"
}

func mediaType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resolver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/tubemp3/internal/provider"
)

// ErrAllProvidersExhausted is matched by the error returned when every
// provider of a chain failed.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// Attempt outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timeout"
	OutcomeRejected    = "rejected"
	OutcomeCancelled   = "cancelled"
	OutcomeSkipped     = "skipped"
)

// Attempt records what happened to one provider during a resolution.
type Attempt struct {
	Provider string        `json:"provider"`
	Outcome  string        `json:"outcome"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ExhaustedError lists one attempt per provider of a failed resolution.
type ExhaustedError struct {
	Capability string
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no %s providers configured", ErrAllProvidersExhausted, e.Capability)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Provider+": "+a.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", ErrAllProvidersExhausted, e.Capability, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllProvidersExhausted }

// Reasons maps provider name to failure reason.
func (e *ExhaustedError) Reasons() map[string]string {
	out := make(map[string]string, len(e.Attempts))
	for _, a := range e.Attempts {
		out[a.Provider] = a.Reason
	}
	return out
}

func failedAttempt(name string, err error, d time.Duration) Attempt {
	outcome := OutcomeUnavailable
	if errors.Is(err, provider.ErrTimeout) {
		outcome = OutcomeTimeout
	}
	return Attempt{Provider: name, Outcome: outcome, Reason: provider.Reason(err), Duration: d}
}

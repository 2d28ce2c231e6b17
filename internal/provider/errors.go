// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable matches every error a provider returns for a failed attempt.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrTimeout additionally matches attempts that ran out of time.
	ErrTimeout = errors.New("provider timeout")
	// ErrInvalidProviderConfig is returned by Build for malformed table rows.
	ErrInvalidProviderConfig = errors.New("invalid provider config")
)

// UnavailableError is the only error shape that leaves a provider.
type UnavailableError struct {
	Provider string
	Reason   string
	Timeout  bool
	Err      error
}

func (e *UnavailableError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Timeout {
		b.WriteString(": timeout")
	} else {
		b.WriteString(": unavailable")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is match ErrUnavailable for every attempt failure and
// ErrTimeout for timeouts.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable || (target == ErrTimeout && e.Timeout)
}

// Unavailable wraps err as an attempt failure of provider. Deadline overruns
// are marked as timeouts. An error that already is an UnavailableError of the
// same provider is returned as is.
func Unavailable(provider, reason string, err error) error {
	var ue *UnavailableError
	if errors.As(err, &ue) && ue.Provider == provider {
		return ue
	}
	return &UnavailableError{
		Provider: provider,
		Reason:   reason,
		Timeout:  errors.Is(err, context.DeadlineExceeded),
		Err:      err,
	}
}

// Unavailablef is Unavailable without a cause.
func Unavailablef(provider, format string, args ...any) error {
	return &UnavailableError{Provider: provider, Reason: fmt.Sprintf(format, args...)}
}

// Timeout builds a timeout failure for provider.
func Timeout(provider string, err error) error {
	return &UnavailableError{Provider: provider, Reason: "deadline exceeded", Timeout: true, Err: err}
}

// Reason returns a short human readable failure reason for err.
func Reason(err error) string {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		switch {
		case ue.Timeout:
			return "timeout"
		case ue.Reason != "":
			return ue.Reason
		case ue.Err != nil:
			return ue.Err.Error()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBinaryNotFound is returned when ffmpeg cannot be located.
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")
	// ErrSourceFetch wraps failures reading the source media.
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrMaxDuration is reported when a transcode exceeds its time bound.
	ErrMaxDuration = errors.New("transcode exceeded max duration")
	// ErrProcessFailed is matched by every *ProcessError.
	ErrProcessFailed = errors.New("ffmpeg failed")
)

// Failure classes derived from the stderr tail.
const (
	ClassInputInvalid   = "input_invalid"
	ClassNetwork        = "network"
	ClassEncoderMissing = "encoder_missing"
	ClassExit           = "exit"
)

// ProcessError is a non-zero ffmpeg exit.
type ProcessError struct {
	ExitCode int
	Class    string
	Tail     []string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d (%s)", e.ExitCode, e.Class)
	if n := len(e.Tail); n > 0 {
		msg += ": " + e.Tail[n-1]
	}
	return msg
}

func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }

var classPatterns = []struct {
	class    string
	patterns []string
}{
	{ClassEncoderMissing, []string{"Unknown encoder", "Encoder not found"}},
	{ClassNetwork, []string{"Connection refused", "Connection timed out", "Server returned", "HTTP error", "I/O error", "Input/output error"}},
	{ClassInputInvalid, []string{"Invalid data found", "could not find codec parameters", "does not contain any stream", "End of file", "moov atom not found"}},
}

// classify maps ffmpeg's stderr to a failure class.
func classify(tail []string) string {
	for _, c := range classPatterns {
		for _, line := range tail {
			for _, p := range c.patterns {
				if strings.Contains(line, p) {
					return c.class
				}
			}
		}
	}
	return ClassExit
}

// ErrorClass labels err for metrics and client facing failure details.
func ErrorClass(err error) string {
	var pe *ProcessError
	switch {
	case errors.As(err, &pe):
		return pe.Class
	case errors.Is(err, ErrBinaryNotFound):
		return "binary_missing"
	case errors.Is(err, ErrSourceFetch):
		return "source"
	case errors.Is(err, ErrMaxDuration):
		return "max_duration"
	}
	return "other"
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"bytes"
	"sync"
)

// lineTail keeps the last lines written to it. It is the stderr sink of the
// ffmpeg process; partial lines are held until their newline arrives.
type lineTail struct {
	mu      sync.Mutex
	lines   []string
	head    int
	full    bool
	partial []byte
}

func newLineTail(capacity int) *lineTail {
	if capacity < 1 {
		capacity = 32
	}
	return &lineTail{lines: make([]string, capacity)}
}

func (t *lineTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			t.partial = append(t.partial, data...)
			break
		}
		line := append(t.partial, data[:i]...)
		t.partial = t.partial[:0]
		t.push(string(bytes.TrimRight(line, "\r")))
		data = data[i+1:]
	}
	return len(p), nil
}

func (t *lineTail) push(line string) {
	if line == "" {
		return
	}
	t.lines[t.head] = line
	t.head = (t.head + 1) % len(t.lines)
	if t.head == 0 {
		t.full = true
	}
}

// Lines returns the kept lines oldest first, including an unterminated last line.
func (t *lineTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	if t.full {
		out = append(out, t.lines[t.head:]...)
	}
	out = append(out, t.lines[:t.head]...)
	if len(t.partial) > 0 {
		out = append(out, string(t.partial))
	}
	return out
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

// State is the lifecycle position of a Gate.
type State int

const (
	StateIdle State = iota
	StateAwaitingFirstByte
	StateCommitted
	StateFailedPreCommit
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstByte:
		return "awaiting_first_byte"
	case StateCommitted:
		return "committed"
	case StateFailedPreCommit:
		return "failed_pre_commit"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// allowed lists the legal transitions. Done is reachable from everywhere.
var allowed = map[State][]State{
	StateIdle:              {StateAwaitingFirstByte},
	StateAwaitingFirstByte: {StateCommitted, StateFailedPreCommit},
	StateCommitted:         {},
	StateFailedPreCommit:   {},
}

func canTransition(from, to State) bool {
	if to == StateDone {
		return from != StateDone
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"slices"
)

// State is a process lifecycle state.
type State int

const (
	// StateUnstarted means the process is admitted but not yet
	// executing: freshly registered, or re-queued after a restart.
	StateUnstarted State = iota

	// StateRunning means the process is executing.
	StateRunning

	// StateYielded means the process voluntarily gave up the core and
	// is waiting for an upcall.
	StateYielded

	// StateFaulted means the runtime trapped a process-level fault
	// (invalid memory access, bad instruction). The fault policy
	// decides what happens next.
	StateFaulted

	// StateCredentialsFailed means admission rejected the image's
	// credentials. The record exists for diagnosis but the process
	// never runs. Terminal.
	StateCredentialsFailed

	// StateStopped means the process was halted by the fault policy or
	// an operator. An operator may restart it (back to Unstarted).
	StateStopped
)

var stateNames = map[State]string{
	StateUnstarted:         "unstarted",
	StateRunning:           "running",
	StateYielded:           "yielded",
	StateFaulted:           "faulted",
	StateCredentialsFailed: "credentials-failed",
	StateStopped:           "stopped",
}

// String returns the lowercase state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState parses a lowercase state name.
func ParseState(name string) (State, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("registry: unknown state %q", name)
}

// validTransitions lists the states each state may move to through
// UpdateState. CredentialsFailed has no entries: an image that failed
// admission never runs and never transitions again. Unregister is the
// only exit from it.
var validTransitions = map[State][]State{
	StateUnstarted: {StateRunning, StateStopped},
	StateRunning:   {StateYielded, StateFaulted, StateStopped},
	StateYielded:   {StateRunning, StateFaulted, StateStopped},
	StateFaulted:   {StateUnstarted, StateStopped},
	StateStopped:   {StateUnstarted},
}

// CanTransition reports whether UpdateState accepts a move from s to
// next.
func (s State) CanTransition(next State) bool {
	return slices.Contains(validTransitions[s], next)
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package faultpolicy decides what happens to a process after a
// fault: restart it, stop it, or halt the whole board.
//
// Policies are pure functions of the fault event, chosen once at
// configuration time. The fault path increments the process's restart
// count before consulting the policy, so Event.RestartCount already
// includes the fault being handled: a threshold of 3 restarts the
// first two faults and stops on the third.
package faultpolicy

import (
	"fmt"

	"github.com/warden-project/warden/lib/registry"
	"github.com/warden-project/warden/lib/shortid"
)

// Action is a fault policy's verdict.
type Action int

const (
	// ActionRestart re-queues the process for execution from a fresh
	// state. Its restart count is retained.
	ActionRestart Action = iota

	// ActionStop halts the process permanently (until an operator
	// intervenes). Other processes are unaffected.
	ActionStop

	// ActionPanic halts the whole board. Only ever chosen explicitly,
	// for debug builds where a fault means a bug worth a stacktrace.
	ActionPanic
)

// String returns "restart", "stop", or "panic".
func (a Action) String() string {
	switch a {
	case ActionRestart:
		return "restart"
	case ActionStop:
		return "stop"
	case ActionPanic:
		return "panic"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// Event describes one process fault. Ephemeral: built by the fault
// path, consumed by the policy, discarded.
type Event struct {
	// Process is the faulted process's handle.
	Process registry.ProcessID

	// ShortId is the process's identity; Fixed means the process was
	// admitted with a verified credential.
	ShortId shortid.ShortId

	// RestartCount is the process's restart count including this
	// fault.
	RestartCount uint32
}

// Policy maps a fault to an action. Implementations are pure and
// synchronous: the fault trap runs on kernel time.
type Policy interface {
	Action(event Event) Action
}

// Panic halts the board on any fault.
type Panic struct{}

// Action implements Policy.
func (Panic) Action(Event) Action { return ActionPanic }

// AlwaysRestart restarts every faulted process forever, regardless of
// trust or count.
type AlwaysRestart struct{}

// Action implements Policy.
func (AlwaysRestart) Action(Event) Action { return ActionRestart }

// Threshold restarts trusted processes a limited number of times.
// Untrusted (locally-unique) processes stop on their first fault: an
// unverified image that faults gets no second chance. Trusted
// processes restart while their count is below Limit and stop once it
// reaches Limit.
type Threshold struct {
	// Limit is the restart budget. Zero stops every process on its
	// first fault.
	Limit uint32
}

// Action implements Policy.
func (p Threshold) Action(event Event) Action {
	if _, fixed := event.ShortId.IsFixed(); !fixed {
		return ActionStop
	}
	if event.RestartCount < p.Limit {
		return ActionRestart
	}
	return ActionStop
}

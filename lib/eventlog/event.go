// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"github.com/warden-project/warden/lib/registry"
	"github.com/warden-project/warden/lib/shortid"
)

// Kind classifies a journal event.
type Kind string

const (
	// KindAdmit records an image admitted and registered runnable.
	KindAdmit Kind = "admit"

	// KindReject records an image refused at admission (malformed
	// footer, failed credentials, duplicate identity).
	KindReject Kind = "reject"

	// KindDeny records a syscall denied by the filter policy.
	KindDeny Kind = "deny"

	// KindFault records a process fault and the policy's verdict.
	KindFault Kind = "fault"

	// KindStop records an operator stop of a process.
	KindStop Kind = "stop"

	// KindUnload records a process removed from the registry.
	KindUnload Kind = "unload"

	// KindState records a lifecycle transition reported by the
	// runtime or an operator.
	KindState Kind = "state"
)

// Event is one journal record.
type Event struct {
	// Seq is the journal sequence number, monotonic across daemon
	// restarts.
	Seq uint64 `cbor:"seq"`

	// Time is the event time in Unix milliseconds.
	Time int64 `cbor:"time"`

	// Kind classifies the event.
	Kind Kind `cbor:"kind"`

	// Package is the image's package name, when known.
	Package string `cbor:"package,omitempty"`

	// Process is the process handle, when one exists. Zero means the
	// event never reached registration.
	Process registry.ProcessID `cbor:"process,omitempty"`

	// ShortId is the process identity involved.
	ShortId shortid.ShortId `cbor:"short_id"`

	// Detail is a human-readable summary: the rejection reason, the
	// denied resource, the fault action taken.
	Detail string `cbor:"detail,omitempty"`
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"github.com/warden-project/warden/lib/eventlog"
)

// Actions understood by the daemon.
const (
	// ActionLoad submits an image for admission.
	ActionLoad = "load"

	// ActionFilter asks whether a caller may reach a resource.
	ActionFilter = "filter"

	// ActionFault reports a process fault and applies the fault
	// policy's verdict.
	ActionFault = "fault"

	// ActionReportState records a runtime lifecycle transition.
	ActionReportState = "report-state"

	// ActionStart schedules an unstarted or stopped process.
	ActionStart = "start"

	// ActionStop halts a process, keeping its record and identity.
	ActionStop = "stop"

	// ActionUnload removes a process record, freeing its identity.
	ActionUnload = "unload"

	// ActionPs lists registered processes.
	ActionPs = "ps"

	// ActionStatus summarizes daemon health.
	ActionStatus = "status"

	// ActionEvents returns recent journal events.
	ActionEvents = "events"

	// ActionVersion returns the daemon's build version.
	ActionVersion = "version"
)

// Request is one CBOR-encoded request to the daemon. Action selects
// the operation; the remaining fields are per-action parameters.
type Request struct {
	// Action is the request type. One of the Action constants.
	Action string `cbor:"action"`

	// Package is the image's package name (for "load"), or a process
	// selector by name (for "start", "stop", "unload" when Process is
	// zero). A name selector must match exactly one live process.
	Package string `cbor:"package,omitempty"`

	// Image is the raw application image, credential footers included
	// (for "load").
	Image []byte `cbor:"image,omitempty"`

	// Process is the registry handle of the target process (for
	// "fault", "report-state", "start", "stop", "unload"). Zero means
	// unset; handles are minted from one.
	Process uint64 `cbor:"process,omitempty"`

	// Caller is the calling process identity in its text form,
	// "locally-unique" or "fixed:0x%08x" (for "filter").
	Caller string `cbor:"caller,omitempty"`

	// Resource is the target driver number (for "filter").
	Resource uint32 `cbor:"resource,omitempty"`

	// Operation is the syscall class: "command", "allow", or
	// "subscribe" (for "filter").
	Operation string `cbor:"operation,omitempty"`

	// State is the reported lifecycle state name (for "report-state").
	State string `cbor:"state,omitempty"`

	// Count bounds how many journal events are returned (for
	// "events"). Zero means the server default.
	Count int `cbor:"count,omitempty"`
}

// Response is the daemon's CBOR-encoded answer. OK is false only for
// malformed requests and daemon-side failures; policy verdicts (an
// image rejected at admission, a syscall denied) ride in the per-action
// fields of a successful response.
type Response struct {
	// OK indicates whether the request was processed.
	OK bool `cbor:"ok"`

	// Error describes the failure when OK is false.
	Error string `cbor:"error,omitempty"`

	// Load is the admission verdict (for "load").
	Load *LoadResult `cbor:"load,omitempty"`

	// Allowed is the filter verdict (for "filter"). False means the
	// caller sees no such device.
	Allowed bool `cbor:"allowed,omitempty"`

	// FaultAction is the applied fault verdict: "restart", "stop", or
	// "panic" (for "fault").
	FaultAction string `cbor:"fault_action,omitempty"`

	// FaultCount is the process's fault count after this fault (for
	// "fault").
	FaultCount uint32 `cbor:"fault_count,omitempty"`

	// Process is the record the operation acted on (for "start",
	// "stop", "unload", "report-state").
	Process *ProcessInfo `cbor:"process,omitempty"`

	// Processes lists registered processes (for "ps").
	Processes []ProcessInfo `cbor:"processes,omitempty"`

	// Status summarizes daemon health (for "status").
	Status *StatusInfo `cbor:"status,omitempty"`

	// Events are recent journal records, newest last (for "events").
	Events []eventlog.Event `cbor:"events,omitempty"`

	// Version is the daemon build version (for "version").
	Version string `cbor:"version,omitempty"`
}

// LoadResult is the admission verdict for one submitted image.
type LoadResult struct {
	// Admitted reports whether the image was registered runnable.
	Admitted bool `cbor:"admitted"`

	// Process is the registered record. Present for admitted images
	// and for credential failures, which leave a diagnostic record;
	// absent when the image never reached registration (malformed
	// footer, duplicate identity).
	Process *ProcessInfo `cbor:"process,omitempty"`

	// Reason explains a rejection.
	Reason string `cbor:"reason,omitempty"`
}

// ProcessInfo is the wire form of one registry record.
type ProcessInfo struct {
	// ID is the registry-minted process handle.
	ID uint64 `cbor:"id"`

	// Package is the image's package name.
	Package string `cbor:"package"`

	// ShortId is the identity in its text form.
	ShortId string `cbor:"short_id"`

	// Verified reports whether a credential proved the image.
	Verified bool `cbor:"verified"`

	// RestartCount is how many faults the process has survived.
	RestartCount uint32 `cbor:"restart_count"`

	// State is the lifecycle state name.
	State string `cbor:"state"`

	// RegisteredAt is the registration time in Unix milliseconds.
	RegisteredAt int64 `cbor:"registered_at"`
}

// StatusInfo summarizes the daemon for operator tooling.
type StatusInfo struct {
	// Processes is the registered process count.
	Processes int `cbor:"processes"`

	// States counts processes per lifecycle state name.
	States map[string]int `cbor:"states,omitempty"`

	// JournalSeq is the last journal sequence number, zero without a
	// journal.
	JournalSeq uint64 `cbor:"journal_seq"`

	// StoredImages is the image archive blob count, zero without a
	// store.
	StoredImages int `cbor:"stored_images"`

	// Version is the daemon build version.
	Version string `cbor:"version,omitempty"`
}

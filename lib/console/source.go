// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"

	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/ipc"
)

// Snapshot is a point-in-time view of the daemon: the process table,
// the health summary, and the tail of the journal (oldest first).
type Snapshot struct {
	Processes []ipc.ProcessInfo
	Status    ipc.StatusInfo
	Events    []eventlog.Event
}

// Source abstracts daemon data access for the console. The daemon
// protocol is request/response, so the console polls: each Snapshot
// call fetches fresh state.
type Source interface {
	// Snapshot fetches the current process table, daemon status, and
	// recent journal events in one round of requests.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Lifecycle is an optional interface that Source implementations can
// provide to support operator actions on processes. The console checks
// for it via type assertion; when present, the stop and restart keys
// are enabled. When absent the console is read-only.
type Lifecycle interface {
	// StartProcess schedules an unstarted or stopped process.
	StartProcess(ctx context.Context, process uint64) error

	// StopProcess halts a process, keeping its record and identity.
	StopProcess(ctx context.Context, process uint64) error
}

// DaemonSource reads from a running daemon over its unix socket. It
// implements both Source and Lifecycle.
type DaemonSource struct {
	client     *ipc.Client
	eventCount int
}

// NewDaemonSource creates a DaemonSource for the given socket path.
// eventCount bounds how many journal events each snapshot requests;
// zero means the daemon's default.
func NewDaemonSource(socketPath string, eventCount int) *DaemonSource {
	return &DaemonSource{
		client:     ipc.NewClient(socketPath),
		eventCount: eventCount,
	}
}

// Snapshot issues ps, status, and events requests and assembles the
// results. A failure in any request fails the whole snapshot; the
// console keeps showing its previous state and surfaces the error.
func (source *DaemonSource) Snapshot(ctx context.Context) (Snapshot, error) {
	psResponse, err := source.client.Do(ctx, ipc.Request{Action: ipc.ActionPs})
	if err != nil {
		return Snapshot{}, err
	}

	statusResponse, err := source.client.Do(ctx, ipc.Request{Action: ipc.ActionStatus})
	if err != nil {
		return Snapshot{}, err
	}

	eventsResponse, err := source.client.Do(ctx, ipc.Request{
		Action: ipc.ActionEvents,
		Count:  source.eventCount,
	})
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		Processes: psResponse.Processes,
		Events:    eventsResponse.Events,
	}
	if statusResponse.Status != nil {
		snapshot.Status = *statusResponse.Status
	}
	return snapshot, nil
}

// StartProcess schedules the process with the given handle.
func (source *DaemonSource) StartProcess(ctx context.Context, process uint64) error {
	_, err := source.client.Do(ctx, ipc.Request{
		Action:  ipc.ActionStart,
		Process: process,
	})
	return err
}

// StopProcess halts the process with the given handle.
func (source *DaemonSource) StopProcess(ctx context.Context, process uint64) error {
	_, err := source.client.Do(ctx, ipc.Request{
		Action:  ipc.ActionStop,
		Process: process,
	})
	return err
}

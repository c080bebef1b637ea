// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package console implements a terminal user interface for watching a
// warden daemon. Built on bubbletea (Elm architecture), it shows the
// live process table and the journal event stream, polling the daemon
// over its unix socket via the [Source] interface.
//
// The Source abstraction decouples the UI from the transport:
// [DaemonSource] talks to a running daemon through [ipc.Client]; tests
// substitute an in-memory implementation. When a source also
// implements [Lifecycle], the console enables the stop and restart
// keys; a read-only source hides them.
//
// Data flow:
//
//	[warden daemon]
//	      | (Source interface, polled)
//	  [Model] <- bubbletea event loop
//	      |
//	[terminal output]
package console

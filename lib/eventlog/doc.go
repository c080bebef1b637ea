// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventlog journals the engine's decisions: admissions,
// rejections, syscall denials, fault outcomes, and state changes.
//
// The journal is an append-only file of length-prefixed CBOR records
// plus a fixed-capacity in-memory ring. Appends update the ring
// synchronously and queue the disk write, so a decision path never
// waits on I/O; the writer goroutine batches records and fsyncs on a
// configurable cadence. Tail serves the console and CLI from the
// ring. On open, the journal replays the existing file to continue
// the sequence, truncating a torn final record left by a crash.
package eventlog

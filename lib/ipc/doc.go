// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc is the CBOR request-response protocol spoken on the
// daemon's Unix socket. The wire types, the daemon-side server, and
// the client used by the warden CLI and console live here so the
// protocol is defined once rather than mirrored.
//
// Each connection carries exactly one request-response cycle: the
// client writes a CBOR request, the daemon answers with a CBOR
// response, and the connection closes.
package ipc

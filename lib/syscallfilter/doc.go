// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package syscallfilter decides, before every syscall dispatch,
// whether the calling process may touch the requested resource.
//
// The base policy approves everything. The Protected policy layers
// deny rules over it: each rule names driver resource numbers and the
// fixed identities permitted to use them. A denied request fails with
// ErrNoDevice, the same error the dispatcher returns for a driver
// that is not present, so an unauthorized process cannot probe
// whether a protected resource exists.
//
// Filtering runs on the syscall fast path: policies are immutable
// after construction, perform map lookups only, never block, and
// never allocate.
package syscallfilter

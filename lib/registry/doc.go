// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry tracks every process admitted to the board.
//
// The Registry is the single owner of process records: it mints
// process handles, enforces board-wide uniqueness of fixed short
// identities, guards lifecycle transitions with an explicit state
// table, and counts restarts for the fault policy. It is constructed
// empty at boot by the platform, holds only currently loaded
// processes, and is never persisted.
//
// All mutation goes through the registry's methods under its lock.
// Lookups return value copies; callers never see or share the live
// record.
package registry

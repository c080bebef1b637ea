// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Warden packages.
//
// The Require helpers wrap channel operations with a timeout so a
// deadlocked component fails the test instead of hanging the run.
// Tests that exercise the loader queue, pending verifications, or the
// daemon socket should never select on a channel directly; use these.
package testutil

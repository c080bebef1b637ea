// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon implements the root-level daemon health commands:
// "warden status" and "warden events". They live at the root of the
// command tree because checking on the daemon is a first thing, not a
// subcommand of anything.
package daemon

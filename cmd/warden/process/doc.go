// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package process implements the "warden process" command group and
// the root-level "warden ps" alias: loading images into the daemon and
// driving registered processes through their lifecycle.
//
// Lifecycle commands take a selector argument: a decimal number is a
// process handle from "warden ps", anything else is a package name.
// Name selectors must match exactly one live process; the daemon
// refuses ambiguous names rather than guessing.
package process

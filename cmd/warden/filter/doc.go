// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package filter implements the "warden filter" command group:
// querying the daemon's syscall filter and validating rules files
// before deployment.
package filter

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package store implements the "warden store" command group: direct
// inspection of the admitted-image archive.
//
// These commands open the store directory themselves rather than going
// through the daemon, so they work on a stopped daemon's archive and on
// copies pulled from another machine. The store location comes from
// --path or from store.path in the warden.yaml named by WARDEN_CONFIG;
// encrypted stores additionally need --encryption-key (or the config's
// store.encryption_key).
package store

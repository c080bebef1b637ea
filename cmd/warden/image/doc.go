// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package image implements the "warden image" command group for
// inspecting and credentialing application images. The commands wrap
// the library functions in lib/appimage and lib/keyring, providing
// CLI flag parsing and output formatting. Everything here operates on
// local files; no daemon is involved.
package image

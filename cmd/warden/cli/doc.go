// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the warden
// unified CLI.
//
// The central type is [Command], which represents a named subcommand
// with optional nested [Command.Subcommands], a params struct bound to
// flags via struct tags, and a Run function. Commands are assembled
// into a tree in cmd/warden/commands and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing,
// and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3). This is
// implemented in suggest.go.
//
// [SocketConfig] holds the shared --socket flag and resolution order
// for commands that talk to the daemon: explicit flag, WARDEN_SOCKET,
// the warden.yaml named by WARDEN_CONFIG, then the shipped default
// socket path.
package cli

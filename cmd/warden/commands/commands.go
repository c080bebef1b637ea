// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete warden CLI command tree. The
// warden binary imports this package; keeping the tree in its own
// package lets tests execute commands without a process boundary.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warden-project/warden/cmd/warden/cli"
	daemoncmd "github.com/warden-project/warden/cmd/warden/daemon"
	filtercmd "github.com/warden-project/warden/cmd/warden/filter"
	imagecmd "github.com/warden-project/warden/cmd/warden/image"
	keycmd "github.com/warden-project/warden/cmd/warden/key"
	processcmd "github.com/warden-project/warden/cmd/warden/process"
	storecmd "github.com/warden-project/warden/cmd/warden/store"
	"github.com/warden-project/warden/lib/version"
)

// Root builds and returns the complete warden CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "warden",
		Description: `Warden: process trust and syscall gatekeeping.

Admit application images by their credential footers, assign compact
identities, filter syscalls by identity, and decide what a fault
costs.`,
		Subcommands: []*cli.Command{
			processcmd.PsCommand(),
			daemoncmd.StatusCommand(),
			daemoncmd.EventsCommand(),
			processcmd.Command(),
			imagecmd.Command(),
			keycmd.Command(),
			storecmd.Command(),
			filtercmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("warden %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "See what the daemon has registered",
				Command:     "warden ps",
			},
			{
				Description: "Sign an image and load it",
				Command:     "warden image sign blink.img --key signing.key.age --passphrase-file ./pass && warden process load blink blink.img",
			},
			{
				Description: "Check a syscall verdict without a process",
				Command:     "warden filter check blink 0x40001",
			},
			{
				Description: "Tail the trust decision journal",
				Command:     "warden events -n 50",
			},
		},
	}
}

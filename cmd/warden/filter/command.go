// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"github.com/warden-project/warden/cmd/warden/cli"
)

// Command returns the "filter" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "filter",
		Summary: "Query and validate syscall filter rules",
		Description: `Ask the running daemon whether a caller may reach a driver resource,
and validate rules files locally before pointing filter.rules at
them.

A denial carries no reason: the caller sees the same "no such device"
error it would see for a driver that does not exist. "filter check"
surfaces only the verdict, exactly as a process would observe it.`,
		Usage: "warden filter <subcommand> [flags]",
		Examples: []cli.Example{
			{
				Description: "Would blink reach driver 0x40001?",
				Command:     "warden filter check blink 0x40001",
			},
			{
				Description: "Check a subscribe call for an explicit identity",
				Command:     "warden filter check fixed:0x3be6efaa 0x40001 --operation subscribe",
			},
			{
				Description: "Validate a rules file",
				Command:     "warden filter validate ./rules.jsonc",
			},
		},
		Subcommands: []*cli.Command{
			checkCommand(),
			validateCommand(),
		},
	}
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"strconv"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/ipc"
)

// Command returns the "process" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "process",
		Summary: "Load images and drive process lifecycles",
		Description: `Submit images for admission and move registered processes through
their lifecycle: start, stop, unload, report a scheduler state, or
inject a fault to exercise the fault policy.

Selectors are either a process handle (decimal, from "warden ps") or
a package name. A name must match exactly one live process.`,
		Usage: "warden process <subcommand> [flags]",
		Examples: []cli.Example{
			{
				Description: "Load a signed image",
				Command:     "warden process load blink ./blink.img",
			},
			{
				Description: "Start it by package name",
				Command:     "warden process start blink",
			},
			{
				Description: "Stop it by handle",
				Command:     "warden process stop 3",
			},
		},
		Subcommands: []*cli.Command{
			loadCommand(),
			startCommand(),
			stopCommand(),
			unloadCommand(),
			stateCommand(),
			faultCommand(),
		},
	}
}

// selectorRequest builds a request targeting one process. A decimal
// selector is a registry handle, anything else a package name.
func selectorRequest(action, selector string) ipc.Request {
	request := ipc.Request{Action: action}
	if id, err := strconv.ParseUint(selector, 10, 64); err == nil && id > 0 {
		request.Process = id
	} else {
		request.Package = selector
	}
	return request
}

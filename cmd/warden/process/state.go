// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/ipc"
)

// stateParams holds the parameters for process state.
type stateParams struct {
	cli.SocketConfig
	cli.JSONOutput
}

func stateCommand() *cli.Command {
	var params stateParams

	return &cli.Command{
		Name:    "state",
		Summary: "Report a scheduler state transition",
		Description: `Record that a process entered a runtime state, normally "running" or
"yielded". This is the hook a scheduler integration calls; from the
command line it is mostly useful for scripting and for exercising the
transition rules, which the daemon still enforces.`,
		Usage: "warden process state <selector> <state> [flags]",
		Examples: []cli.Example{
			{
				Description: "Mark a process yielded",
				Command:     "warden process state blink yielded",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("expected <selector> <state>, got %d arguments", len(args))
			}
			request := selectorRequest(ipc.ActionReportState, args[0])
			request.State = args[1]
			response, err := params.Do(ctx, request)
			if err != nil {
				return err
			}
			if response.Process == nil {
				return cli.Internal("daemon returned no process record")
			}

			if done, err := params.EmitJSON(response.Process); done {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s (handle %d): %s\n",
				response.Process.Package, response.Process.ID, response.Process.State)
			return nil
		},
	}
}

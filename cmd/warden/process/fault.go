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

// faultParams holds the parameters for process fault.
type faultParams struct {
	cli.SocketConfig
	cli.JSONOutput
}

// faultResult is the JSON output for process fault.
type faultResult struct {
	Action  string           `json:"action"`
	Count   uint32           `json:"count"`
	Process *ipc.ProcessInfo `json:"process,omitempty"`
}

func faultCommand() *cli.Command {
	var params faultParams

	return &cli.Command{
		Name:    "fault",
		Summary: "Inject a fault into a running process",
		Description: `Report a fault against a process and apply the configured fault
policy's verdict. With the default threshold policy the first faults
come back "restart" (the process returns to Unstarted, ready to
start again) and the fault that reaches the limit comes back "stop".

This is the same path a crash takes; injecting one from the command
line exercises the policy against a live process.`,
		Usage: "warden process fault <selector> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one process selector, got %d arguments", len(args))
			}
			response, err := params.Do(ctx, selectorRequest(ipc.ActionFault, args[0]))
			if err != nil {
				return err
			}

			result := faultResult{
				Action:  response.FaultAction,
				Count:   response.FaultCount,
				Process: response.Process,
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			fmt.Fprintf(os.Stderr, "Fault %d: %s\n", result.Count, result.Action)
			if result.Process != nil {
				fmt.Fprintf(os.Stderr, "  %s (handle %d): %s\n",
					result.Process.Package, result.Process.ID, result.Process.State)
			}
			return nil
		},
	}
}

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

// loadParams holds the parameters for process load.
type loadParams struct {
	cli.SocketConfig
	cli.JSONOutput
}

// loadResult is the JSON output for process load.
type loadResult struct {
	Admitted bool             `json:"admitted"`
	Reason   string           `json:"reason,omitempty"`
	Process  *ipc.ProcessInfo `json:"process,omitempty"`
}

func loadCommand() *cli.Command {
	var params loadParams

	return &cli.Command{
		Name:    "load",
		Summary: "Submit an image for admission",
		Description: `Read an image file and submit it to the daemon under a package name.
The daemon parses the credential footers, verifies them, assigns the
identity, and registers the process Unstarted.

A rejection is reported with the daemon's reason and exit code 1. A
credential failure leaves a diagnostic record visible in "warden ps";
a malformed image or duplicate identity leaves nothing.`,
		Usage: "warden process load <package> <image-file> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("expected <package> <image-file>, got %d arguments", len(args))
			}
			image, err := os.ReadFile(args[1])
			if err != nil {
				return cli.NotFound("reading image: %v", err)
			}

			response, err := params.Do(ctx, ipc.Request{
				Action:  ipc.ActionLoad,
				Package: args[0],
				Image:   image,
			})
			if err != nil {
				return err
			}
			if response.Load == nil || (response.Load.Admitted && response.Load.Process == nil) {
				return cli.Internal("daemon returned an incomplete admission verdict")
			}

			result := loadResult{
				Admitted: response.Load.Admitted,
				Reason:   response.Load.Reason,
				Process:  response.Load.Process,
			}
			if done, err := params.EmitJSON(result); done {
				if !result.Admitted {
					return &cli.ExitError{Code: 1}
				}
				return err
			}

			if !result.Admitted {
				fmt.Fprintf(os.Stderr, "Rejected %s: %s\n", args[0], result.Reason)
				if result.Process != nil {
					fmt.Fprintf(os.Stderr, "  Record kept: handle %d, state %s\n", result.Process.ID, result.Process.State)
				}
				return &cli.ExitError{Code: 1}
			}
			fmt.Fprintf(os.Stderr, "Admitted %s\n", args[0])
			fmt.Fprintf(os.Stderr, "  Handle: %d\n", result.Process.ID)
			fmt.Fprintf(os.Stderr, "  Identity: %s\n", result.Process.ShortId)
			fmt.Fprintf(os.Stderr, "  Verified: %t\n", result.Process.Verified)
			return nil
		},
	}
}

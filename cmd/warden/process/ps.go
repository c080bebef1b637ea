// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/ipc"
)

// psParams holds the parameters for ps.
type psParams struct {
	cli.SocketConfig
	cli.JSONOutput
}

// PsCommand returns the "ps" command. It lives at the root of the
// command tree rather than under "process": listing is the thing an
// operator does most.
func PsCommand() *cli.Command {
	var params psParams

	return &cli.Command{
		Name:    "ps",
		Summary: "List registered processes",
		Usage:   "warden ps [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			response, err := params.Do(ctx, ipc.Request{Action: ipc.ActionPs})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(response.Processes); done {
				return err
			}

			if len(response.Processes) == 0 {
				fmt.Println("no processes")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "ID\tPACKAGE\tIDENTITY\tSTATE\tVERIFIED\tFAULTS\tAGE\n")
			for _, proc := range response.Processes {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%t\t%d\t%s\n",
					proc.ID,
					proc.Package,
					proc.ShortId,
					proc.State,
					proc.Verified,
					proc.RestartCount,
					formatAge(proc.RegisteredAt),
				)
			}
			return writer.Flush()
		},
	}
}

// formatAge renders the time since a Unix-millisecond timestamp.
func formatAge(registeredAt int64) string {
	if registeredAt == 0 {
		return "-"
	}
	age := time.Since(time.UnixMilli(registeredAt))
	if age < 0 {
		age = 0
	}
	days := int(age.Hours()) / 24
	hours := int(age.Hours()) % 24
	minutes := int(age.Minutes()) % 60
	seconds := int(age.Seconds()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

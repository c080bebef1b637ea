// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

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

// eventsParams holds the parameters for events.
type eventsParams struct {
	cli.SocketConfig
	cli.JSONOutput
	Count int `flag:"count,n" desc:"how many events to show (0 = daemon default)"`
}

// EventsCommand returns the "events" command.
func EventsCommand() *cli.Command {
	var params eventsParams

	return &cli.Command{
		Name:    "events",
		Summary: "Show recent trust decisions",
		Description: `Print the tail of the daemon's decision journal: admissions,
rejections, syscall denials, faults, and lifecycle changes, oldest
first. The journal survives daemon restarts; sequence numbers are
monotonic across them.`,
		Usage: "warden events [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			response, err := params.Do(ctx, ipc.Request{
				Action: ipc.ActionEvents,
				Count:  params.Count,
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(response.Events); done {
				return err
			}

			if len(response.Events) == 0 {
				fmt.Println("no events (journal disabled or empty)")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "SEQ\tTIME\tKIND\tPACKAGE\tIDENTITY\tDETAIL\n")
			for _, event := range response.Events {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\t%s\n",
					event.Seq,
					time.UnixMilli(event.Time).Local().Format("2006-01-02T15:04:05"),
					event.Kind,
					event.Package,
					event.ShortId,
					event.Detail,
				)
			}
			return writer.Flush()
		},
	}
}

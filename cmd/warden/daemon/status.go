// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/ipc"
)

// statusParams holds the parameters for status.
type statusParams struct {
	cli.SocketConfig
	cli.JSONOutput
}

// StatusCommand returns the "status" command.
func StatusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Summarize daemon health",
		Usage:   "warden status [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			response, err := params.Do(ctx, ipc.Request{Action: ipc.ActionStatus})
			if err != nil {
				return err
			}
			if response.Status == nil {
				return cli.Internal("daemon returned no status")
			}

			if done, err := params.EmitJSON(response.Status); done {
				return err
			}

			status := response.Status
			fmt.Printf("Daemon:    %s\n", status.Version)
			fmt.Printf("Processes: %d%s\n", status.Processes, stateBreakdown(status.States))
			fmt.Printf("Journal:   seq %d\n", status.JournalSeq)
			fmt.Printf("Store:     %d images\n", status.StoredImages)
			return nil
		},
	}
}

// stateBreakdown renders the per-state counts as a parenthesized
// suffix, sorted by state name for stable output.
func stateBreakdown(states map[string]int) string {
	if len(states) == 0 {
		return ""
	}
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%d %s", states[name], name))
	}
	return fmt.Sprintf(" (%s)", strings.Join(parts, ", "))
}

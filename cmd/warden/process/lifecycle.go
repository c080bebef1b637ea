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

// lifecycleParams holds the shared parameters of start, stop, and
// unload.
type lifecycleParams struct {
	cli.SocketConfig
	cli.JSONOutput
}

// runLifecycle sends a single-target lifecycle action and reports the
// record the daemon acted on.
func runLifecycle(ctx context.Context, params *lifecycleParams, action string, args []string) error {
	if len(args) != 1 {
		return cli.Validation("expected exactly one process selector, got %d arguments", len(args))
	}
	response, err := params.Do(ctx, selectorRequest(action, args[0]))
	if err != nil {
		return err
	}
	if response.Process == nil {
		return cli.Internal("daemon returned no process record")
	}

	if done, err := params.EmitJSON(response.Process); done {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s (handle %d): %s\n",
		actionPastTense(action), response.Process.Package, response.Process.ID, response.Process.State)
	return nil
}

func actionPastTense(action string) string {
	switch action {
	case ipc.ActionStart:
		return "Started"
	case ipc.ActionStop:
		return "Stopped"
	case ipc.ActionUnload:
		return "Unloaded"
	}
	return action
}

func startCommand() *cli.Command {
	var params lifecycleParams

	return &cli.Command{
		Name:    "start",
		Summary: "Schedule a process",
		Description: `Move an Unstarted or Stopped process to Running. Starting from
Stopped retains the identity and the accumulated fault count: a
process stopped at the fault limit stops again on its next fault.`,
		Usage: "warden process start <selector> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			return runLifecycle(ctx, &params, ipc.ActionStart, args)
		},
	}
}

func stopCommand() *cli.Command {
	var params lifecycleParams

	return &cli.Command{
		Name:    "stop",
		Summary: "Halt a process, keeping its record",
		Description: `Move a process to Stopped from any live state. The record and its
identity stay registered; "warden process start" brings it back.`,
		Usage: "warden process stop <selector> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			return runLifecycle(ctx, &params, ipc.ActionStop, args)
		},
	}
}

func unloadCommand() *cli.Command {
	var params lifecycleParams

	return &cli.Command{
		Name:    "unload",
		Summary: "Remove a process record",
		Description: `Unregister a process in any state. Its identity is freed for reuse
by a later load of the same image.`,
		Usage: "warden process unload <selector> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			return runLifecycle(ctx, &params, ipc.ActionUnload, args)
		},
	}
}

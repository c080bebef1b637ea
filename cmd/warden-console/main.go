// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// warden-console is an interactive terminal UI for a running warden
// daemon. It polls the daemon's control socket and shows the process
// table and the journal event stream side by side with the command
// line tools' view of the same data.
//
// Two tabs: Processes (handles, identities, states, fault counts, with
// fuzzy filtering) and Events (the journal tail, pinned to the newest
// records until scrolled). The stop and restart keys drive the same
// daemon actions as "warden process stop" and "warden process start";
// pass --read-only to disable them.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/console"
	"github.com/warden-project/warden/lib/version"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketConfig cli.SocketConfig
	var interval time.Duration
	var eventCount int
	var readOnly bool

	flagSet := pflag.NewFlagSet("warden-console", pflag.ContinueOnError)
	socketConfig.AddFlags(flagSet)
	flagSet.DurationVar(&interval, "interval", 2*time.Second, "how often to poll the daemon")
	flagSet.IntVar(&eventCount, "events", 200, "journal events to fetch per poll")
	flagSet.BoolVar(&readOnly, "read-only", false, "disable the stop and restart keys")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("warden-console %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if args := flagSet.Args(); len(args) > 0 {
		return cli.Validation("unexpected argument: %s", args[0])
	}
	if eventCount < 1 {
		return cli.Validation("--events must be at least 1, got %d", eventCount)
	}

	var source console.Source = console.NewDaemonSource(socketConfig.ResolveSocketPath(), eventCount)
	if readOnly {
		source = readOnlySource{inner: source}
	}

	model := console.NewModel(source)
	model.SetTheme(console.DetectTheme())
	model.SetPollInterval(interval)

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Warden console — interactive terminal UI for a running daemon.

Polls the daemon control socket and shows two tabs: the process table
(1) and the journal event stream (2). The process table supports fuzzy
filtering with / and stop/restart of the selected process; the event
stream follows the newest records until scrolled up.

Keys:
  q / ctrl+c    quit
  1 / 2         switch tabs
  j/k, arrows   move the cursor or scroll
  g / G         jump to the top / bottom
  /             filter the process table (enter confirms, esc clears)
  s             stop the selected process
  r             restart the selected process
  ctrl+r        refresh immediately

Usage:
  warden-console [flags]

Examples:
  # Connect to the default daemon socket
  warden-console

  # Watch a development daemon
  warden-console --socket /tmp/warden-dev/warden.sock --interval 500ms

  # Observe without lifecycle control
  warden-console --read-only

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// readOnlySource hides the daemon source's lifecycle methods so the
// console leaves its stop and restart keys inert.
type readOnlySource struct {
	inner console.Source
}

func (source readOnlySource) Snapshot(ctx context.Context) (console.Snapshot, error) {
	return source.inner.Snapshot(ctx)
}

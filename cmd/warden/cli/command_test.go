// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testContext returns a context that is canceled when the test ends.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "warden",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "ps",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "ps"
					return nil
				},
			},
		},
	}

	if err := root.Execute(testContext(t), []string{"ps"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "ps" {
		t.Errorf("dispatched to %q, want %q", called, "ps")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "warden",
		Subcommands: []*Command{
			{
				Name: "image",
				Subcommands: []*Command{
					{
						Name: "inspect",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							called = "image inspect"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute(testContext(t), []string{"image", "inspect", "blink.img"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "image inspect" {
		t.Errorf("dispatched to %q, want %q", called, "image inspect")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "blink.img" {
		t.Errorf("args = %v, want [blink.img]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	type checkParams struct {
		Socket string `flag:"socket" desc:"socket path" default:"/default.sock"`
	}
	var params checkParams
	var target string

	command := &Command{
		Name:   "check",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute(testContext(t), []string{"--socket", "/custom.sock", "blink"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if params.Socket != "/custom.sock" {
		t.Errorf("Socket = %q, want %q", params.Socket, "/custom.sock")
	}
	if target != "blink" {
		t.Errorf("target = %q, want %q", target, "blink")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	type observeParams struct {
		Readonly bool   `flag:"readonly" desc:"read-only mode"`
		Socket   string `flag:"socket" desc:"socket path" default:"/default.sock"`
	}
	var params observeParams

	command := &Command{
		Name:   "events",
		Params: func() any { return &params },
		Run:    func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(testContext(t), []string{"--readnoly"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --readonly") {
		t.Errorf("error = %q, want suggestion for '--readonly'", errStr)
	}
	// Suggestion should be on the same line as the error, not buried.
	if !strings.Contains(errStr, "readnoly") {
		t.Errorf("error = %q, should mention the bad flag", errStr)
	}
	// Should include a pointer to --help.
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	type observeParams struct {
		Readonly bool `flag:"readonly" desc:"read-only mode"`
	}
	var params observeParams

	command := &Command{
		Name:   "events",
		Params: func() any { return &params },
		Run:    func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(testContext(t), []string{"--zzzzzzzzz"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "warden",
		Subcommands: []*Command{
			{Name: "process"},
			{Name: "image"},
			{Name: "version"},
		},
	}

	err := root.Execute(testContext(t), []string{"imgae"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "did you mean \"image\"") {
		t.Errorf("error = %q, want suggestion for 'image'", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "warden",
		Subcommands: []*Command{
			{Name: "process"},
			{Name: "image"},
		},
	}

	err := root.Execute(testContext(t), []string{"zzzzzzz"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not contain suggestion for distant input", err.Error())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "warden",
				Summary: "Process trust and syscall gatekeeping",
				Subcommands: []*Command{
					{Name: "ps", Summary: "List registered processes"},
				},
			}

			err := root.Execute(testContext(t), []string{helpArg}, testLogger())
			if err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "warden",
		Subcommands: []*Command{
			{Name: "ps", Summary: "List registered processes"},
		},
	}

	err := root.Execute(testContext(t), []string{}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "warden",
		Description: "Process trust and syscall gatekeeping.",
		Subcommands: []*Command{
			{Name: "ps", Summary: "List registered processes"},
			{Name: "image", Summary: "Inspect and sign images"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "See what the daemon has registered",
				Command:     "warden ps",
			},
			{
				Description: "Check a syscall verdict",
				Command:     "warden filter check blink 0x40001",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	// Verify structural elements are present.
	for _, want := range []string{
		"Process trust and syscall gatekeeping.",
		"Usage:",
		"warden <command> [flags]",
		"Commands:",
		"ps",
		"List registered processes",
		"image",
		"Inspect and sign images",
		"Examples:",
		"warden ps",
		"warden filter check",
		"Run 'warden <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	type eventsParams struct {
		Count  int    `flag:"count,n" desc:"how many events to show"`
		Socket string `flag:"socket" desc:"daemon socket path" default:"/run/warden/warden.sock"`
	}
	var params eventsParams

	command := &Command{
		Name:    "events",
		Summary: "Show recent trust decisions",
		Usage:   "warden events [flags]",
		Params:  func() any { return &params },
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"warden events [flags]",
		"Flags:",
		"count",
		"socket",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "warden"}
	image := &Command{Name: "image", parent: root}
	sign := &Command{Name: "sign", parent: image}

	if got := root.fullName(); got != "warden" {
		t.Errorf("root.fullName() = %q, want %q", got, "warden")
	}
	if got := image.fullName(); got != "warden image" {
		t.Errorf("image.fullName() = %q, want %q", got, "warden image")
	}
	if got := sign.fullName(); got != "warden image sign" {
		t.Errorf("sign.fullName() = %q, want %q", got, "warden image sign")
	}
}

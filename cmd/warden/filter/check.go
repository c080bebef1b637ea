// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/ipc"
	"github.com/warden-project/warden/lib/shortid"
)

// checkParams holds the parameters for filter check.
type checkParams struct {
	cli.SocketConfig
	cli.JSONOutput
	Operation string `flag:"operation" desc:"syscall class: command, allow, or subscribe" default:"command"`
}

// checkResult is the JSON output for filter check.
type checkResult struct {
	Caller    string `json:"caller"`
	Resource  uint32 `json:"resource"`
	Operation string `json:"operation"`
	Allowed   bool   `json:"allowed"`
}

func checkCommand() *cli.Command {
	var params checkParams

	return &cli.Command{
		Name:    "check",
		Summary: "Ask the daemon for a filter verdict",
		Description: `Ask whether a caller identity may reach a driver resource. The
caller is an identity ("fixed:0x3be6efaa", "locally-unique") or a
package name, which resolves to the identity that package receives
when its credentials verify.

Exits 0 when allowed, 1 when denied.`,
		Usage: "warden filter check <caller> <resource> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 2 {
				return cli.Validation("expected <caller> <resource>, got %d arguments", len(args))
			}
			caller := resolveCaller(args[0])
			resource, err := parseResource(args[1])
			if err != nil {
				return err
			}

			response, err := params.Do(ctx, ipc.Request{
				Action:    ipc.ActionFilter,
				Caller:    caller,
				Resource:  resource,
				Operation: params.Operation,
			})
			if err != nil {
				return err
			}

			result := checkResult{
				Caller:    caller,
				Resource:  resource,
				Operation: params.Operation,
				Allowed:   response.Allowed,
			}
			if done, err := params.EmitJSON(result); done {
				if !result.Allowed {
					return &cli.ExitError{Code: 1}
				}
				return err
			}

			if !result.Allowed {
				fmt.Printf("denied: %s -> 0x%08x %s\n", caller, resource, params.Operation)
				return &cli.ExitError{Code: 1}
			}
			fmt.Printf("allowed: %s -> 0x%08x %s\n", caller, resource, params.Operation)
			return nil
		},
	}
}

// resolveCaller maps a package name to its fixed identity; explicit
// identity text passes through for the daemon to parse.
func resolveCaller(arg string) string {
	if strings.HasPrefix(arg, "fixed:") || arg == "locally-unique" {
		return arg
	}
	if err := shortid.ValidName(arg); err == nil {
		return shortid.FromPackageName(arg).String()
	}
	return arg
}

// parseResource parses a driver number, accepting 0x hex.
func parseResource(arg string) (uint32, error) {
	value, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, cli.Validation("resource %q is not a driver number: %v", arg, err)
	}
	return uint32(value), nil
}

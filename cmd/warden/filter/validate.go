// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/syscallfilter"
)

// validateParams holds the parameters for filter validate.
type validateParams struct {
	cli.JSONOutput
}

// validateRule is one rule in JSON output.
type validateRule struct {
	Name      string   `json:"name,omitempty"`
	Resources []uint32 `json:"resources"`
	Permitted []string `json:"permitted"`
}

func validateCommand() *cli.Command {
	var params validateParams

	return &cli.Command{
		Name:    "validate",
		Summary: "Validate a rules file locally",
		Description: `Parse and compile a JSONC rules file the way the daemon does at
startup, and print the compiled rules. A file that validates here
loads there.`,
		Usage: "warden filter validate <rules-file> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one rules file, got %d arguments", len(args))
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return cli.NotFound("reading rules: %v", err)
			}
			rules, err := syscallfilter.ParseRules(data)
			if err != nil {
				return cli.Validation("%v", err)
			}
			if _, err := syscallfilter.NewProtected(rules); err != nil {
				return cli.Validation("%v", err)
			}

			out := make([]validateRule, 0, len(rules))
			for _, rule := range rules {
				row := validateRule{Name: rule.Name, Resources: rule.Resources}
				for _, id := range rule.Permitted {
					row.Permitted = append(row.Permitted, id.String())
				}
				out = append(out, row)
			}
			if done, err := params.EmitJSON(out); done {
				return err
			}

			fmt.Printf("%s: %d rules\n", args[0], len(rules))
			for i, rule := range out {
				name := rule.Name
				if name == "" {
					name = fmt.Sprintf("#%d", i)
				}
				resources := make([]string, 0, len(rule.Resources))
				for _, r := range rule.Resources {
					resources = append(resources, fmt.Sprintf("0x%08x", r))
				}
				fmt.Printf("  %s: %s -> %s\n", name, strings.Join(resources, ", "), strings.Join(rule.Permitted, ", "))
			}
			return nil
		},
	}
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/appimage"
)

// inspectParams holds the parameters for image inspect.
type inspectParams struct {
	cli.JSONOutput
}

// inspectResult is the JSON output shape.
type inspectResult struct {
	File        string          `json:"file"`
	Size        int             `json:"size"`
	ContentSize int             `json:"content_size"`
	Footers     []inspectFooter `json:"footers"`
}

type inspectFooter struct {
	Kind    string `json:"kind"`
	Payload int    `json:"payload_bytes"`
}

func inspectCommand() *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show the structure of an application image",
		Description: `Parse an application image and show its header, content size, and
credential footers. Parsing alone proves structural validity; it says
nothing about whether any credential verifies.`,
		Usage: "warden image inspect <file> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect an image",
				Command:     "warden image inspect blink.img",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one image file, got %d arguments", len(args))
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return cli.NotFound("reading image: %v", err)
			}
			img, err := appimage.Parse(raw)
			if err != nil {
				return cli.Validation("parsing %s: %v", args[0], err)
			}

			result := inspectResult{
				File:        args[0],
				Size:        img.Size(),
				ContentSize: len(img.Content),
				Footers:     make([]inspectFooter, len(img.Footers)),
			}
			for i, rec := range img.Footers {
				result.Footers[i] = inspectFooter{
					Kind:    rec.Kind.String(),
					Payload: len(rec.Payload),
				}
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Printf("%s: %d bytes (%d content)\n", result.File, result.Size, result.ContentSize)
			if len(result.Footers) == 0 {
				fmt.Println("no credential footers")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "KIND\tPAYLOAD")
			for _, footer := range result.Footers {
				fmt.Fprintf(writer, "%s\t%d bytes\n", footer.Kind, footer.Payload)
			}
			return writer.Flush()
		},
	}
}

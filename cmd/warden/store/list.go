// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/warden-project/warden/cmd/warden/cli"
)

// listParams holds the parameters for store list.
type listParams struct {
	storeAccess
	cli.JSONOutput
}

// listEntry is one archived image in JSON output.
type listEntry struct {
	Ref         string `json:"ref"`
	ImageBytes  int64  `json:"image_bytes"`
	StoredBytes int64  `json:"stored_bytes"`
	Compression string `json:"compression"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List archived images",
		Usage:   "warden store list [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			s, closeKey, err := params.open(logger)
			if err != nil {
				return err
			}
			defer closeKey()

			entries, err := s.List()
			if err != nil {
				return cli.Internal("listing store: %v", err)
			}

			rows := make([]listEntry, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, listEntry{
					Ref:         entry.Ref.String(),
					ImageBytes:  entry.ImageBytes,
					StoredBytes: entry.StoredBytes,
					Compression: entry.Compression.String(),
				})
			}
			if done, err := params.EmitJSON(rows); done {
				return err
			}

			if len(rows) == 0 {
				fmt.Println("no archived images")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "REF\tIMAGE\tSTORED\tCOMPRESSION")
			for _, row := range rows {
				fmt.Fprintf(writer, "%s\t%d\t%d\t%s\n", row.Ref[:12], row.ImageBytes, row.StoredBytes, row.Compression)
			}
			return writer.Flush()
		},
	}
}

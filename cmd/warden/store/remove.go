// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/appstore"
)

// removeParams holds the parameters for store remove.
type removeParams struct {
	storeAccess
}

func removeCommand() *cli.Command {
	var params removeParams

	return &cli.Command{
		Name:    "remove",
		Summary: "Delete an archived image",
		Description: `Delete an image from the archive by ref prefix. Only the stored
copy is removed; a process already loaded from it is unaffected.`,
		Usage: "warden store remove <ref-prefix> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one ref prefix, got %d arguments", len(args))
			}
			s, closeKey, err := params.open(logger)
			if err != nil {
				return err
			}
			defer closeKey()

			ref, err := resolveRef(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Delete(ref); err != nil {
				if errors.Is(err, appstore.ErrNotFound) {
					return cli.NotFound("no image matches %q", args[0])
				}
				return cli.Internal("deleting %s: %v", ref.Short(), err)
			}
			fmt.Fprintf(os.Stderr, "Removed %s\n", ref.String())
			return nil
		},
	}
}

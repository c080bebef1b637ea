// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/appstore"
)

// catParams holds the parameters for store cat.
type catParams struct {
	storeAccess
	Out string `flag:"out,o" desc:"write the image here instead of stdout"`
}

func catCommand() *cli.Command {
	var params catParams

	return &cli.Command{
		Name:    "cat",
		Summary: "Extract an archived image",
		Description: `Write an archived image's bytes to stdout or --out. The argument is
a ref prefix; any unambiguous prefix works.`,
		Usage: "warden store cat <ref-prefix> [flags]",
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
			image, err := s.Get(ref)
			if err != nil {
				if errors.Is(err, appstore.ErrCorrupt) {
					return cli.Internal("image %s: %v", ref.Short(), err)
				}
				return cli.NotFound("image %s: %v", ref.Short(), err)
			}

			if params.Out != "" {
				if err := os.WriteFile(params.Out, image, 0o644); err != nil {
					return cli.Internal("writing %s: %v", params.Out, err)
				}
				logger.Info("image extracted", "ref", ref.Short(), "path", params.Out, "bytes", len(image))
				return nil
			}
			if _, err := os.Stdout.Write(image); err != nil {
				return cli.Internal("writing stdout: %v", err)
			}
			return nil
		},
	}
}

// resolveRef maps a ref prefix to the full ref with CLI-friendly
// errors for the miss and collision cases.
func resolveRef(s *appstore.Store, prefix string) (appstore.Ref, error) {
	ref, err := s.Resolve(prefix)
	switch {
	case errors.Is(err, appstore.ErrNotFound):
		return appstore.Ref{}, cli.NotFound("no image matches %q", prefix)
	case errors.Is(err, appstore.ErrAmbiguous):
		return appstore.Ref{}, cli.Validation("ref prefix %q matches more than one image; use more characters", prefix)
	case err != nil:
		return appstore.Ref{}, cli.Validation("%v", err)
	}
	return ref, nil
}

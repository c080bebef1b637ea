// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"log/slog"
	"os"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/appstore"
	"github.com/warden-project/warden/lib/config"
	"github.com/warden-project/warden/lib/secret"
)

// Command returns the "store" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "store",
		Summary: "Inspect the admitted-image archive",
		Description: `Work directly on the store directory where the daemon archives every
admitted image, keyed by its BLAKE3 ref. No running daemon is needed.

Images are addressed by ref prefix, like git commits: any unambiguous
prefix of the 64-hex ref selects the image.`,
		Usage: "warden store <subcommand> [flags]",
		Examples: []cli.Example{
			{
				Description: "List archived images",
				Command:     "warden store list --path /var/lib/warden/store",
			},
			{
				Description: "Extract an image by ref prefix",
				Command:     "warden store cat 3a7f9c --path /var/lib/warden/store --out blink.img",
			},
		},
		Subcommands: []*cli.Command{
			listCommand(),
			catCommand(),
			removeCommand(),
		},
	}
}

// storeAccess holds the shared flags for opening the archive directly.
// Embeds in each subcommand's params struct.
type storeAccess struct {
	Path          string `flag:"path" desc:"store root directory (default store.path from WARDEN_CONFIG)"`
	EncryptionKey string `flag:"encryption-key" desc:"file holding the 32-byte store key"`
}

// open resolves the store location and opens it. The path comes from
// --path, else from the config named by WARDEN_CONFIG; there is no
// guessed default because a wrong directory would look like an empty
// archive. The returned cleanup zeroes the encryption key and must run
// after the last store operation.
func (a *storeAccess) open(logger *slog.Logger) (*appstore.Store, func(), error) {
	path := a.Path
	keyPath := a.EncryptionKey
	if path == "" {
		configPath := os.Getenv("WARDEN_CONFIG")
		if configPath == "" {
			return nil, nil, cli.Validation("store location unknown: pass --path or set WARDEN_CONFIG")
		}
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, nil, cli.Validation("loading %s: %v", configPath, err)
		}
		path = cfg.Store.Path
		if keyPath == "" {
			keyPath = cfg.Store.EncryptionKey
		}
	}

	opts := appstore.Options{Logger: logger}
	cleanup := func() {}
	if keyPath != "" {
		key, err := secret.ReadFromPath(keyPath)
		if err != nil {
			return nil, nil, cli.NotFound("reading store key: %v", err)
		}
		opts.Key = key
		cleanup = func() { key.Close() }
	}
	s, err := appstore.Open(path, opts)
	if err != nil {
		cleanup()
		return nil, nil, cli.Internal("opening store %s: %v", path, err)
	}
	return s, cleanup, nil
}

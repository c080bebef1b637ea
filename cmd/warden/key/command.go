// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package key

import (
	"github.com/warden-project/warden/cmd/warden/cli"
)

// Command returns the "key" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Summary: "Manage image signing keys",
		Description: `Generate and manage the RSA-2048 keys that sign application
images. The private key is sealed with age (to recipient keys or a
passphrase) before it is written; the public half goes out as PEM for
the daemon to verify rsa2048 footers against.`,
		Usage: "warden key <subcommand> [flags]",
		Examples: []cli.Example{
			{
				Description: "Generate a key sealed to an age recipient",
				Command:     "warden key generate --out signing.key.age --recipient age1... --public-out signing.pub.pem",
			},
			{
				Description: "Generate a passphrase-protected key",
				Command:     "warden key generate --out signing.key.age --passphrase-file ./passphrase",
			},
			{
				Description: "Recover the public PEM from a sealed key",
				Command:     "warden key public signing.key.age --passphrase-file ./passphrase",
			},
		},
		Subcommands: []*cli.Command{
			generateCommand(),
			publicCommand(),
		},
	}
}

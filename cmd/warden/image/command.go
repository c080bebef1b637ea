// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"github.com/warden-project/warden/cmd/warden/cli"
)

// Command returns the "image" parent command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "image",
		Summary: "Inspect and credential application images",
		Description: `Inspect, digest, sign, and verify application images.

An application image is a fixed header, the application content, and a
trailing region of credential footers (TLV records). Credentials cover
the header and content only, so attaching a new footer never
invalidates existing ones.

The "digest" subcommand attaches a sha256 integrity footer. The "sign"
subcommand attaches an rsa2048 signature footer using a sealed signing
key from "warden key generate". The "verify" subcommand checks every
footer locally, the same way the daemon does at admission.`,
		Subcommands: []*cli.Command{
			inspectCommand(),
			digestCommand(),
			signCommand(),
			verifyCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Show the structure of an image",
				Command:     "warden image inspect blink.img",
			},
			{
				Description: "Attach an integrity digest",
				Command:     "warden image digest blink.img --out blink-signed.img",
			},
			{
				Description: "Sign with a sealed key",
				Command:     "warden image sign blink.img --key signing.age --passphrase-file ./pass",
			},
			{
				Description: "Verify credentials before loading",
				Command:     "warden image verify blink-signed.img --public-key warden-rsa.pem",
			},
		},
	}
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package key

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/keyring"
	"github.com/warden-project/warden/lib/secret"
)

// generateParams holds the parameters for key generate.
type generateParams struct {
	cli.JSONOutput
	Out            string   `flag:"out,o" desc:"path for the sealed private key (required)"`
	Recipients     []string `flag:"recipient" desc:"age recipient public key (repeatable)"`
	PassphraseFile string   `flag:"passphrase-file" desc:"file holding the sealing passphrase"`
	PublicOut      string   `flag:"public-out" desc:"write the public key PEM here"`
}

// generateResult is the JSON output for key generate.
type generateResult struct {
	PrivateKeyFile string   `json:"private_key_file"`
	PublicKeyFile  string   `json:"public_key_file,omitempty"`
	SealedTo       []string `json:"sealed_to,omitempty"`
}

func generateCommand() *cli.Command {
	var params generateParams

	return &cli.Command{
		Name:    "generate",
		Summary: "Generate a sealed RSA-2048 signing key",
		Description: `Generate a fresh RSA-2048 signing key and write it sealed with age.
Seal to one or more --recipient age public keys, or to a passphrase
read from --passphrase-file. The key size is fixed: rsa2048 footers
carry exactly 256 signature bytes.

With --public-out the verification half is also written as PEM, ready
for the daemon's admission.rsa_public_key setting.`,
		Usage: "warden key generate --out <file> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if params.Out == "" {
				return cli.Validation("--out is required")
			}
			if (len(params.Recipients) == 0) == (params.PassphraseFile == "") {
				return cli.Validation("exactly one of --recipient or --passphrase-file is required")
			}

			signing, err := keyring.GenerateSigningKey()
			if err != nil {
				return cli.Internal("generating key: %v", err)
			}

			result := generateResult{PrivateKeyFile: params.Out}
			if params.PassphraseFile != "" {
				passphrase, err := secret.ReadFromPath(params.PassphraseFile)
				if err != nil {
					return cli.NotFound("reading passphrase: %v", err)
				}
				defer passphrase.Close()
				if err := signing.SealToFileWithPassphrase(params.Out, passphrase); err != nil {
					return cli.Internal("sealing key: %v", err)
				}
				result.SealedTo = []string{"passphrase"}
			} else {
				if err := signing.SealToFile(params.Out, params.Recipients); err != nil {
					return cli.Internal("sealing key: %v", err)
				}
				result.SealedTo = params.Recipients
			}
			logger.Debug("signing key sealed", "path", params.Out)

			if params.PublicOut != "" {
				if err := keyring.WritePublicKeyPEM(params.PublicOut, signing.Public()); err != nil {
					return cli.Internal("writing public key: %v", err)
				}
				result.PublicKeyFile = params.PublicOut
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Fprintf(os.Stderr, "Generated signing key\n")
			fmt.Fprintf(os.Stderr, "  Private (sealed): %s\n", result.PrivateKeyFile)
			if result.PublicKeyFile != "" {
				fmt.Fprintf(os.Stderr, "  Public PEM: %s\n", result.PublicKeyFile)
			}
			return nil
		},
	}
}

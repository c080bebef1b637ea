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

// publicParams holds the parameters for key public.
type publicParams struct {
	IdentityFile   string `flag:"identity-file" desc:"age identity file that unseals the key"`
	PassphraseFile string `flag:"passphrase-file" desc:"file holding the sealing passphrase"`
	Out            string `flag:"out,o" desc:"write the PEM here instead of stdout"`
}

func publicCommand() *cli.Command {
	var params publicParams

	return &cli.Command{
		Name:    "public",
		Summary: "Extract the public PEM from a sealed key",
		Description: `Unseal a signing key and print its public half as PEM. Useful when
the PEM written at generation time has been lost: the sealed private
key is sufficient to re-derive it.`,
		Usage: "warden key public <sealed-key> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one sealed key file, got %d arguments", len(args))
			}
			if (params.IdentityFile == "") == (params.PassphraseFile == "") {
				return cli.Validation("exactly one of --identity-file or --passphrase-file is required")
			}

			signing, err := openSealedKey(args[0], params.IdentityFile, params.PassphraseFile)
			if err != nil {
				return err
			}

			pem, err := keyring.EncodePublicKeyPEM(signing.Public())
			if err != nil {
				return cli.Internal("encoding public key: %v", err)
			}
			if params.Out != "" {
				if err := os.WriteFile(params.Out, pem, 0o644); err != nil {
					return cli.Internal("writing %s: %v", params.Out, err)
				}
				return nil
			}
			fmt.Print(string(pem))
			return nil
		},
	}
}

// openSealedKey unseals a signing key with either an age identity file
// or a passphrase file.
func openSealedKey(keyPath, identityFile, passphraseFile string) (*keyring.SigningKey, error) {
	if identityFile != "" {
		identity, err := secret.ReadFromPath(identityFile)
		if err != nil {
			return nil, cli.NotFound("reading identity: %v", err)
		}
		defer identity.Close()
		signing, err := keyring.OpenSigningKey(keyPath, identity)
		if err != nil {
			return nil, cli.Internal("unsealing %s: %v", keyPath, err)
		}
		return signing, nil
	}
	passphrase, err := secret.ReadFromPath(passphraseFile)
	if err != nil {
		return nil, cli.NotFound("reading passphrase: %v", err)
	}
	defer passphrase.Close()
	signing, err := keyring.OpenSigningKeyWithPassphrase(keyPath, passphrase)
	if err != nil {
		return nil, cli.Internal("unsealing %s: %v", keyPath, err)
	}
	return signing, nil
}

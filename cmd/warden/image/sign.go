// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"context"
	"log/slog"
	"os"

	"github.com/warden-project/warden/cmd/warden/cli"
	"github.com/warden-project/warden/lib/keyring"
	"github.com/warden-project/warden/lib/secret"
)

// digestParams holds the parameters for image digest.
type digestParams struct {
	Out string `flag:"out,o" desc:"output file (default: overwrite input)"`
}

func digestCommand() *cli.Command {
	var params digestParams

	return &cli.Command{
		Name:    "digest",
		Summary: "Attach a sha256 integrity footer",
		Description: `Compute the SHA-256 digest of the image's header and content and
append it as a sha256 credential footer. This is the integrity
credential: it proves the image was not corrupted, not who built it.
Use "sign" for an authenticity credential.`,
		Usage: "warden image digest <file> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one image file, got %d arguments", len(args))
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return cli.NotFound("reading image: %v", err)
			}
			signed, err := keyring.AttachDigest(raw)
			if err != nil {
				return cli.Validation("%v", err)
			}

			out := params.Out
			if out == "" {
				out = args[0]
			}
			if err := os.WriteFile(out, signed, 0o644); err != nil {
				return cli.Internal("writing %s: %v", out, err)
			}
			logger.Info("digest footer attached", "file", out, "bytes", len(signed))
			return nil
		},
	}
}

// signParams holds the parameters for image sign.
type signParams struct {
	Key            string `flag:"key" desc:"sealed signing key from 'warden key generate' (required)"`
	IdentityFile   string `flag:"identity-file" desc:"age identity file to unseal the key"`
	PassphraseFile string `flag:"passphrase-file" desc:"file holding the key's passphrase"`
	Out            string `flag:"out,o" desc:"output file (default: overwrite input)"`
}

func signCommand() *cli.Command {
	var params signParams

	return &cli.Command{
		Name:    "sign",
		Summary: "Attach an rsa2048 signature footer",
		Description: `Sign the image's header and content with a sealed RSA-2048 signing
key and append the signature as an rsa2048 credential footer. The
daemon verifies it against the public key named by
admission.rsa_public_key in warden.yaml.

The sealed key is unsealed with either an age identity file or a
passphrase file, matching how the key was generated.`,
		Usage: "warden image sign <file> --key <sealed-key> [flags]",
		Examples: []cli.Example{
			{
				Description: "Sign with a passphrase-sealed key",
				Command:     "warden image sign blink.img --key signing.age --passphrase-file ./pass",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one image file, got %d arguments", len(args))
			}
			if params.Key == "" {
				return cli.Validation("--key is required")
			}
			if (params.IdentityFile == "") == (params.PassphraseFile == "") {
				return cli.Validation("exactly one of --identity-file or --passphrase-file is required")
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return cli.NotFound("reading image: %v", err)
			}

			key, err := openSigningKey(params.Key, params.IdentityFile, params.PassphraseFile)
			if err != nil {
				return err
			}

			signed, err := key.AttachSignature(raw)
			if err != nil {
				return cli.Validation("%v", err)
			}

			out := params.Out
			if out == "" {
				out = args[0]
			}
			if err := os.WriteFile(out, signed, 0o644); err != nil {
				return cli.Internal("writing %s: %v", out, err)
			}
			logger.Info("signature footer attached", "file", out, "bytes", len(signed))
			return nil
		},
	}
}

// openSigningKey unseals a signing key with whichever secret source
// the caller supplied.
func openSigningKey(keyPath, identityFile, passphraseFile string) (*keyring.SigningKey, error) {
	if identityFile != "" {
		identity, err := secret.ReadFromPath(identityFile)
		if err != nil {
			return nil, cli.NotFound("reading identity file: %v", err)
		}
		defer identity.Close()
		key, err := keyring.OpenSigningKey(keyPath, identity)
		if err != nil {
			return nil, cli.Internal("%v", err)
		}
		return key, nil
	}

	passphrase, err := secret.ReadFromPath(passphraseFile)
	if err != nil {
		return nil, cli.NotFound("reading passphrase file: %v", err)
	}
	defer passphrase.Close()
	key, err := keyring.OpenSigningKeyWithPassphrase(keyPath, passphrase)
	if err != nil {
		return nil, cli.Internal("%v", err)
	}
	return key, nil
}

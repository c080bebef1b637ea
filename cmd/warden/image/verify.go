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
	"github.com/warden-project/warden/lib/credential"
	"github.com/warden-project/warden/lib/keyring"
)

// verifyParams holds the parameters for image verify.
type verifyParams struct {
	cli.JSONOutput
	PublicKey string `flag:"public-key" desc:"PEM verification key for rsa2048 footers"`
}

// verifyRecord is one footer's verification outcome.
type verifyRecord struct {
	Kind   string `json:"kind"`
	Result string `json:"result"`
}

// verifyResult is the JSON output shape.
type verifyResult struct {
	File     string         `json:"file"`
	Records  []verifyRecord `json:"records"`
	Verified bool           `json:"verified"`
}

func verifyCommand() *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Verify an image's credentials locally",
		Description: `Check every credential footer the way the daemon does at admission:
sha256 footers against the recomputed digest, rsa2048 footers against
the --public-key PEM. Reserved and unknown footers report as
unsupported and contribute nothing either way.

Exits 0 when at least one credential is valid, 1 when credentials are
present but none verifies, and 2 for structural errors. An image with
no footers at all exits 1 with a note; whether the daemon admits it
depends on admission.require_credentials.`,
		Usage: "warden image verify <file> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one image file, got %d arguments", len(args))
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return cli.NotFound("reading image: %v", err)
			}
			img, err := appimage.Parse(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
				return &cli.ExitError{Code: 2}
			}

			var key credential.Key
			if params.PublicKey != "" {
				pub, err := keyring.LoadPublicKey(params.PublicKey)
				if err != nil {
					return cli.NotFound("%v", err)
				}
				key.RSAPublic = pub
			}

			verifiers := []credential.Verifier{
				credential.Sha256Verifier{},
				credential.Rsa2048Verifier{},
			}

			result := verifyResult{File: args[0]}
			for _, rec := range img.Footers {
				outcome := credential.ResultUnsupported
				if verifier := credential.Select(verifiers, rec.Kind); verifier != nil {
					outcome, err = verifier.Verify(ctx, rec, img.DigestRegion(), key)
					if err != nil {
						return cli.Internal("verifying %s footer: %v", rec.Kind, err)
					}
				}
				if outcome == credential.ResultValid {
					result.Verified = true
				}
				result.Records = append(result.Records, verifyRecord{
					Kind:   rec.Kind.String(),
					Result: outcome.String(),
				})
			}

			if done, err := params.EmitJSON(result); done {
				if !result.Verified {
					return &cli.ExitError{Code: 1}
				}
				return err
			}

			if len(result.Records) == 0 {
				fmt.Printf("%s: no credential footers\n", args[0])
				return &cli.ExitError{Code: 1}
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "KIND\tRESULT")
			for _, record := range result.Records {
				fmt.Fprintf(writer, "%s\t%s\n", record.Kind, record.Result)
			}
			writer.Flush()

			if !result.Verified {
				fmt.Println("no valid credential")
				return &cli.ExitError{Code: 1}
			}
			fmt.Println("verified")
			return nil
		},
	}
}

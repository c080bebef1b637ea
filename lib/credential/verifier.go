// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/warden-project/warden/lib/appimage"
)

// rsaSignatureSize is the signature length of a 2048-bit RSA key.
const rsaSignatureSize = 256

// Key carries the verification key material for one credential kind.
// SHA-256 records need no key (the payload is the digest itself);
// RSA-2048 records need the signer's public key.
type Key struct {
	// RSAPublic verifies KindRSA2048 records. Must be a 2048-bit key.
	RSAPublic *rsa.PublicKey
}

// Verifier checks credential records of a single kind.
//
// The error return reports engine failure only (a hardware digest
// engine that faulted, a canceled context). A credential that simply
// does not check out is ResultInvalid with a nil error.
type Verifier interface {
	// Kind is the footer kind this verifier handles.
	Kind() appimage.FooterKind

	// Verify checks rec against the image's digest region.
	Verify(ctx context.Context, rec appimage.CredentialRecord, digestRegion []byte, key Key) (VerifyResult, error)
}

// Select returns the verifier registered for kind, or nil when the
// board carries none. A missing verifier is equivalent to a
// NullVerifier: the kind goes unchecked.
func Select(verifiers []Verifier, kind appimage.FooterKind) Verifier {
	for _, v := range verifiers {
		if v.Kind() == kind {
			return v
		}
	}
	return nil
}

// Sha256Verifier recomputes the SHA-256 digest of the image's digest
// region and compares it to the record payload.
type Sha256Verifier struct {
	// Engine computes the digest. Nil means SoftwareEngine.
	Engine DigestEngine
}

// Kind implements Verifier.
func (v Sha256Verifier) Kind() appimage.FooterKind { return appimage.KindSHA256 }

// Verify implements Verifier. Valid iff the recomputed digest equals
// the payload bytewise; a payload of the wrong length is Invalid.
func (v Sha256Verifier) Verify(ctx context.Context, rec appimage.CredentialRecord, digestRegion []byte, _ Key) (VerifyResult, error) {
	if rec.Kind != appimage.KindSHA256 {
		return ResultUnsupported, nil
	}
	if len(rec.Payload) != sha256.Size {
		return ResultInvalid, nil
	}
	engine := v.Engine
	if engine == nil {
		engine = SoftwareEngine{}
	}
	digest, err := engine.Sum256(ctx, digestRegion)
	if err != nil {
		return ResultUnsupported, fmt.Errorf("credential: sha256 engine: %w", err)
	}
	if subtle.ConstantTimeCompare(digest[:], rec.Payload) == 1 {
		return ResultValid, nil
	}
	return ResultInvalid, nil
}

// Rsa2048Verifier verifies an RSA-2048 PKCS#1 v1.5 signature over the
// SHA-256 digest of the image's digest region.
type Rsa2048Verifier struct {
	// Engine computes the digest the signature covers. Nil means
	// SoftwareEngine.
	Engine DigestEngine
}

// Kind implements Verifier.
func (v Rsa2048Verifier) Kind() appimage.FooterKind { return appimage.KindRSA2048 }

// Verify implements Verifier. A board with no RSA public key
// configured reports Unsupported, not Invalid: it cannot judge the
// signature either way.
func (v Rsa2048Verifier) Verify(ctx context.Context, rec appimage.CredentialRecord, digestRegion []byte, key Key) (VerifyResult, error) {
	if rec.Kind != appimage.KindRSA2048 {
		return ResultUnsupported, nil
	}
	if key.RSAPublic == nil {
		return ResultUnsupported, nil
	}
	if key.RSAPublic.Size() != rsaSignatureSize {
		return ResultUnsupported, nil
	}
	if len(rec.Payload) != rsaSignatureSize {
		return ResultInvalid, nil
	}
	engine := v.Engine
	if engine == nil {
		engine = SoftwareEngine{}
	}
	digest, err := engine.Sum256(ctx, digestRegion)
	if err != nil {
		return ResultUnsupported, fmt.Errorf("credential: rsa2048 engine: %w", err)
	}
	if err := rsa.VerifyPKCS1v15(key.RSAPublic, crypto.SHA256, digest[:], rec.Payload); err != nil {
		return ResultInvalid, nil
	}
	return ResultValid, nil
}

// NullVerifier declines to check a kind. Configure one per kind the
// board deliberately ignores; every record of that kind reports
// Unsupported.
type NullVerifier struct {
	// For is the footer kind this verifier declines.
	For appimage.FooterKind
}

// Kind implements Verifier.
func (v NullVerifier) Kind() appimage.FooterKind { return v.For }

// Verify implements Verifier.
func (v NullVerifier) Verify(context.Context, appimage.CredentialRecord, []byte, Key) (VerifyResult, error) {
	return ResultUnsupported, nil
}

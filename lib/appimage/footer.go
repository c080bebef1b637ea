// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package appimage

import "fmt"

// FooterKind identifies the credential type of a footer record. The
// numeric values are the on-flash type codes and must never change.
type FooterKind uint16

const (
	// KindReserved marks padding or filler records. Reserved records
	// carry no credential and are skipped during verification.
	KindReserved FooterKind = 0x0000

	// KindSHA256 marks a 32-byte SHA-256 digest of the image's digest
	// region.
	KindSHA256 FooterKind = 0x0001

	// KindRSA2048 marks a 256-byte RSA-2048 signature (PKCS#1 v1.5
	// over the SHA-256 digest of the image's digest region).
	KindRSA2048 FooterKind = 0x0002
)

// String returns a short lowercase name for known kinds and the hex
// type code for unknown ones.
func (k FooterKind) String() string {
	switch k {
	case KindReserved:
		return "reserved"
	case KindSHA256:
		return "sha256"
	case KindRSA2048:
		return "rsa2048"
	default:
		return fmt.Sprintf("unknown(0x%04x)", uint16(k))
	}
}

// Known reports whether k is a credential kind this build understands.
// Unknown kinds are treated like Reserved: retained in parse order but
// never verified, so images carrying credentials from a newer
// toolchain still load on boards that do not check them.
func (k FooterKind) Known() bool {
	switch k {
	case KindReserved, KindSHA256, KindRSA2048:
		return true
	}
	return false
}

// CredentialRecord is one parsed footer record. Immutable once parsed;
// Payload aliases the image buffer handed to Parse.
type CredentialRecord struct {
	// Kind is the on-flash type code.
	Kind FooterKind

	// Payload is the record's opaque value: a digest for KindSHA256, a
	// signature for KindRSA2048, arbitrary filler for KindReserved.
	Payload []byte
}

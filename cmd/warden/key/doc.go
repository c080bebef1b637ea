// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package key implements the "warden key" command group: generating
// RSA-2048 signing keys and recovering their public halves.
//
// Private keys never touch disk in the clear. "key generate" seals the
// PKCS#1 DER with age, either to one or more recipient public keys or
// to a passphrase, and writes the verification half as PEM for the
// daemon's admission.rsa_public_key setting. "key public" re-derives
// that PEM from an existing sealed key when the original copy is lost.
package key

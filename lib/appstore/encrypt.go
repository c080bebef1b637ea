// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package appstore

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/warden-project/warden/lib/secret"
)

// KeySize is the size in bytes of the store master key and of every
// derived per-blob key.
const KeySize = 32

// encryptedBlobVersion is prepended to every encrypted blob and bound
// into the AEAD as additional authenticated data, so tampering with
// it fails authentication.
const encryptedBlobVersion byte = 0x01

// encryptedBlobOverhead is the fixed per-blob cost:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const encryptedBlobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoBlob is the HKDF-SHA256 info prefix for per-blob key
// derivation. The blob's ref is appended, so every blob is sealed
// under its own key. Changing this string invalidates every
// encrypted blob.
var hkdfInfoBlob = []byte("warden.store.blob.v1")

// deriveBlobKey derives the per-blob encryption key from the store
// master key and the blob's ref. The masterKey is borrowed and not
// closed; the returned buffer must be closed by the caller.
func deriveBlobKey(masterKey *secret.Buffer, ref Ref) (*secret.Buffer, error) {
	info := make([]byte, len(hkdfInfoBlob)+len(ref))
	copy(info, hkdfInfoBlob)
	copy(info[len(hkdfInfoBlob):], ref[:])

	reader := hkdf.New(sha256.New, masterKey.Bytes(), nil, info)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// encryptBlob seals plaintext with XChaCha20-Poly1305 under the
// per-blob key for ref:
//
//	[version: 1 byte] [nonce: 24 bytes] [ciphertext+tag]
//
// The version byte and ref are additional authenticated data, which
// binds the ciphertext to its storage path: a blob moved to another
// ref's path fails authentication.
func encryptBlob(plaintext []byte, masterKey *secret.Buffer, ref Ref) ([]byte, error) {
	blobKey, err := deriveBlobKey(masterKey, ref)
	if err != nil {
		return nil, fmt.Errorf("deriving blob key: %w", err)
	}
	defer blobKey.Close()

	aead, err := chacha20poly1305.NewX(blobKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}

	output := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	output[0] = encryptedBlobVersion
	copy(output[1:], nonce[:])
	return aead.Seal(output, nonce[:], plaintext, buildAAD(encryptedBlobVersion, ref)), nil
}

// decryptBlob opens a blob produced by encryptBlob.
func decryptBlob(encrypted []byte, masterKey *secret.Buffer, ref Ref) ([]byte, error) {
	if len(encrypted) < encryptedBlobOverhead {
		return nil, fmt.Errorf("encrypted blob is %d bytes, minimum is %d (version + nonce + tag)",
			len(encrypted), encryptedBlobOverhead)
	}
	if encrypted[0] != encryptedBlobVersion {
		return nil, fmt.Errorf("encrypted blob version %d is not supported (expected %d)",
			encrypted[0], encryptedBlobVersion)
	}

	blobKey, err := deriveBlobKey(masterKey, ref)
	if err != nil {
		return nil, fmt.Errorf("deriving blob key: %w", err)
	}
	defer blobKey.Close()

	aead, err := chacha20poly1305.NewX(blobKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := encrypted[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := encrypted[1+chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, buildAAD(encrypted[0], ref))
	if err != nil {
		return nil, fmt.Errorf("AEAD decryption failed (wrong key, tampered data, or mismatched ref): %w", err)
	}
	return plaintext, nil
}

func buildAAD(version byte, ref Ref) []byte {
	aad := make([]byte, 1+len(ref))
	aad[0] = version
	copy(aad[1:], ref[:])
	return aad
}

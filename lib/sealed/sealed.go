// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for Warden signing keys at
// rest. It wraps filippo.io/age for the operations the key tooling
// needs: generate keypairs, seal plaintext to recipients or a
// passphrase, unseal with a private key or passphrase.
//
// Ciphertext is armor-encoded (the textual "AGE ENCRYPTED FILE"
// format), so sealed key files are recognizable and survive copy-
// paste. Private keys and unsealed plaintext travel in
// [secret.Buffer] values: mmap-backed, locked against swap, excluded
// from core dumps, zeroed on close.
//
// Used by lib/keyring for the signing key lifecycle and by the
// warden CLI's key commands.
package sealed

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/warden-project/warden/lib/secret"
)

// Keypair holds an age x25519 keypair. The private key lives in a
// secret.Buffer; the public key is a plain string, safe to publish.
//
// Close releases the private key when the keypair is done.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity in protected
	// memory. Never log it or pass it on a command line.
	PrivateKey *secret.Buffer

	// PublicKey is the corresponding age1... recipient.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair with the private
// key in protected memory.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// The identity's String() result is an unavoidable brief heap
	// copy; the mmap buffer is the durable one.
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}

	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt seals plaintext to one or more age public keys (age1...
// format) and returns armored ciphertext. At least one recipient is
// required.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	return encrypt(plaintext, recipients...)
}

// EncryptWithPassphrase seals plaintext under a passphrase (age
// scrypt recipient) and returns armored ciphertext. The passphrase
// buffer is borrowed, not closed.
func EncryptWithPassphrase(plaintext []byte, passphrase *secret.Buffer) (string, error) {
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return "", fmt.Errorf("building scrypt recipient: %w", err)
	}
	return encrypt(plaintext, recipient)
}

func encrypt(plaintext []byte, recipients ...age.Recipient) (string, error) {
	var ciphertext bytes.Buffer
	armorWriter := armor.NewWriter(&ciphertext)
	writer, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return ciphertext.String(), nil
}

// Decrypt unseals armored ciphertext with an age private key. The
// private key is borrowed, not closed; the returned plaintext buffer
// must be closed by the caller.
func Decrypt(ciphertext string, privateKey *secret.Buffer) (*secret.Buffer, error) {
	// ParseX25519Identity needs a string; the heap copy is brief and
	// request-scoped.
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return decrypt(ciphertext, identity)
}

// DecryptWithPassphrase unseals armored ciphertext sealed by
// EncryptWithPassphrase. The passphrase buffer is borrowed, not
// closed.
func DecryptWithPassphrase(ciphertext string, passphrase *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("building scrypt identity: %w", err)
	}
	return decrypt(ciphertext, identity)
}

func decrypt(ciphertext string, identity age.Identity) (*secret.Buffer, error) {
	reader, err := age.Decrypt(armor.NewReader(strings.NewReader(ciphertext)), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		// age accepts encrypting an empty plaintext; hand back a
		// minimal buffer rather than failing.
		return secret.New(1)
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// ParsePublicKey validates an age public key string.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ParsePrivateKey validates an age private key held in a
// secret.Buffer.
func ParsePrivateKey(privateKey *secret.Buffer) error {
	if _, err := age.ParseX25519Identity(privateKey.String()); err != nil {
		return fmt.Errorf("invalid age private key: %w", err)
	}
	return nil
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"strings"
	"testing"

	"github.com/warden-project/warden/lib/secret"
)

func TestGenerateKeypair(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("private key missing AGE-SECRET-KEY-1 prefix")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want prefix age1", keypair.PublicKey)
	}
}

func TestGenerateKeypairUnique(t *testing.T) {
	first, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer first.Close()
	second, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer second.Close()

	if first.PublicKey == second.PublicKey {
		t.Error("two generated keypairs have identical public keys")
	}
}

func TestEncryptDecryptSingleRecipient(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	plaintext := []byte("rsa signing key material")
	ciphertext, err := Encrypt(append([]byte(nil), plaintext...), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	if !strings.HasPrefix(ciphertext, "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Errorf("ciphertext is not armored: %.40q", ciphertext)
	}
	if strings.Contains(ciphertext, string(plaintext)) {
		t.Error("ciphertext contains the plaintext")
	}

	decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	defer decrypted.Close()
	if decrypted.String() != string(plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted.String(), plaintext)
	}
}

func TestEncryptDecryptMultipleRecipients(t *testing.T) {
	// Daemon key plus operator escrow: either unseals alone.
	daemon, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer daemon.Close()
	operator, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer operator.Close()

	plaintext := "shared signing key"
	ciphertext, err := Encrypt([]byte(plaintext), []string{daemon.PublicKey, operator.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	for _, keypair := range []*Keypair{daemon, operator} {
		decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt() error: %v", err)
		}
		if decrypted.String() != plaintext {
			t.Errorf("Decrypt() = %q, want %q", decrypted.String(), plaintext)
		}
		decrypted.Close()
	}
}

func TestDecryptWrongKey(t *testing.T) {
	owner, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer owner.Close()
	stranger, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer stranger.Close()

	ciphertext, err := Encrypt([]byte("secret"), []string{owner.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(ciphertext, stranger.PrivateKey); err == nil {
		t.Error("Decrypt with the wrong key succeeded")
	}
}

func TestEncryptRejectsBadInput(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Error("Encrypt with no recipients succeeded")
	}
	if _, err := Encrypt([]byte("x"), []string{"not-an-age-key"}); err == nil {
		t.Error("Encrypt with a malformed recipient succeeded")
	}
}

func TestPassphraseRoundTrip(t *testing.T) {
	passphrase, err := secret.NewFromBytes([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("creating passphrase buffer: %v", err)
	}
	defer passphrase.Close()

	ciphertext, err := EncryptWithPassphrase([]byte("sealed signing key"), passphrase)
	if err != nil {
		t.Fatalf("EncryptWithPassphrase() error: %v", err)
	}

	decrypted, err := DecryptWithPassphrase(ciphertext, passphrase)
	if err != nil {
		t.Fatalf("DecryptWithPassphrase() error: %v", err)
	}
	defer decrypted.Close()
	if decrypted.String() != "sealed signing key" {
		t.Errorf("round trip = %q", decrypted.String())
	}

	wrong, err := secret.NewFromBytes([]byte("incorrect donkey"))
	if err != nil {
		t.Fatalf("creating wrong passphrase buffer: %v", err)
	}
	defer wrong.Close()
	if _, err := DecryptWithPassphrase(ciphertext, wrong); err == nil {
		t.Error("DecryptWithPassphrase with the wrong passphrase succeeded")
	}
}

func TestParseKeys(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey(valid) error: %v", err)
	}
	if err := ParsePublicKey("age1notakey"); err == nil {
		t.Error("ParsePublicKey(garbage) succeeded")
	}

	if err := ParsePrivateKey(keypair.PrivateKey); err != nil {
		t.Errorf("ParsePrivateKey(valid) error: %v", err)
	}
	garbage, err := secret.NewFromBytes([]byte("AGE-SECRET-KEY-NOPE"))
	if err != nil {
		t.Fatalf("creating garbage key buffer: %v", err)
	}
	defer garbage.Close()
	if err := ParsePrivateKey(garbage); err == nil {
		t.Error("ParsePrivateKey(garbage) succeeded")
	}
}

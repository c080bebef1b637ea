// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring manages the signing key lifecycle: generating
// RSA-2048 signing keys, sealing them at rest with age, loading
// public keys for verification, and attaching credential footers to
// images.
//
// The private side stays sealed on disk (lib/sealed) except for the
// brief window a sign operation holds it; the public side travels as
// ordinary PEM files listed in the daemon configuration.
package keyring

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/warden-project/warden/lib/appimage"
	"github.com/warden-project/warden/lib/credential"
	"github.com/warden-project/warden/lib/sealed"
	"github.com/warden-project/warden/lib/secret"
)

// rsaKeyBits matches the rsa2048 credential kind. Signatures are
// always 256 bytes.
const rsaKeyBits = 2048

// publicKeyPEMType is the PEM block type for verification keys.
const publicKeyPEMType = "PUBLIC KEY"

// Set is verification key material per credential kind, in the shape
// the admission loader consumes.
type Set = map[appimage.FooterKind]credential.Key

// SigningKey holds an RSA-2048 private key for producing rsa2048
// credential footers.
type SigningKey struct {
	key *rsa.PrivateKey
}

// GenerateSigningKey generates a fresh RSA-2048 signing key.
func GenerateSigningKey() (*SigningKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("keyring: generating RSA key: %w", err)
	}
	return &SigningKey{key: key}, nil
}

// Public returns the verification half.
func (k *SigningKey) Public() *rsa.PublicKey {
	return &k.key.PublicKey
}

// Sign produces the PKCS#1 v1.5 signature over a SHA-256 digest, the
// payload of an rsa2048 footer.
func (k *SigningKey) Sign(digest [sha256.Size]byte) ([]byte, error) {
	signature, err := rsa.SignPKCS1v15(rand.Reader, k.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("keyring: signing digest: %w", err)
	}
	return signature, nil
}

// AttachSignature parses an image, signs its digest region, and
// returns the image with an rsa2048 footer appended.
func (k *SigningKey) AttachSignature(image []byte) ([]byte, error) {
	img, err := appimage.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("keyring: parsing image to sign: %w", err)
	}
	digest := sha256.Sum256(img.DigestRegion())
	signature, err := k.Sign(digest)
	if err != nil {
		return nil, err
	}
	return appimage.AppendFooter(image, appimage.CredentialRecord{
		Kind:    appimage.KindRSA2048,
		Payload: signature,
	})
}

// AttachDigest appends a sha256 footer: the digest of the image's
// digest region. No key involved; this is the integrity credential.
func AttachDigest(image []byte) ([]byte, error) {
	img, err := appimage.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("keyring: parsing image to digest: %w", err)
	}
	digest := sha256.Sum256(img.DigestRegion())
	return appimage.AppendFooter(image, appimage.CredentialRecord{
		Kind:    appimage.KindSHA256,
		Payload: digest[:],
	})
}

// Seal serializes the private key (PKCS#1 DER) and seals it to the
// given age recipients, returning armored ciphertext. The DER copy
// is zeroed before returning.
func (k *SigningKey) Seal(recipients []string) (string, error) {
	der := x509.MarshalPKCS1PrivateKey(k.key)
	ciphertext, err := sealed.Encrypt(der, recipients)
	secret.Zero(der)
	if err != nil {
		return "", fmt.Errorf("keyring: sealing signing key: %w", err)
	}
	return ciphertext, nil
}

// SealWithPassphrase is Seal for a passphrase instead of age
// recipients.
func (k *SigningKey) SealWithPassphrase(passphrase *secret.Buffer) (string, error) {
	der := x509.MarshalPKCS1PrivateKey(k.key)
	ciphertext, err := sealed.EncryptWithPassphrase(der, passphrase)
	secret.Zero(der)
	if err != nil {
		return "", fmt.Errorf("keyring: sealing signing key: %w", err)
	}
	return ciphertext, nil
}

// SealToFile writes the sealed private key to path with owner-only
// permissions.
func (k *SigningKey) SealToFile(path string, recipients []string) error {
	ciphertext, err := k.Seal(recipients)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(ciphertext), 0o600); err != nil {
		return fmt.Errorf("keyring: writing sealed key: %w", err)
	}
	return nil
}

// SealToFileWithPassphrase is SealToFile under a passphrase.
func (k *SigningKey) SealToFileWithPassphrase(path string, passphrase *secret.Buffer) error {
	ciphertext, err := k.SealWithPassphrase(passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(ciphertext), 0o600); err != nil {
		return fmt.Errorf("keyring: writing sealed key: %w", err)
	}
	return nil
}

// OpenSigningKey unseals a signing key file with an age identity.
func OpenSigningKey(path string, identity *secret.Buffer) (*SigningKey, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: reading sealed key: %w", err)
	}
	plaintext, err := sealed.Decrypt(string(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("keyring: unsealing %s: %w", path, err)
	}
	defer plaintext.Close()
	return parseSigningKey(plaintext.Bytes())
}

// OpenSigningKeyWithPassphrase unseals a signing key file sealed
// under a passphrase.
func OpenSigningKeyWithPassphrase(path string, passphrase *secret.Buffer) (*SigningKey, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: reading sealed key: %w", err)
	}
	plaintext, err := sealed.DecryptWithPassphrase(string(ciphertext), passphrase)
	if err != nil {
		return nil, fmt.Errorf("keyring: unsealing %s: %w", path, err)
	}
	defer plaintext.Close()
	return parseSigningKey(plaintext.Bytes())
}

func parseSigningKey(der []byte) (*SigningKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("keyring: parsing signing key: %w", err)
	}
	if size := key.Size(); size != rsaKeyBits/8 {
		return nil, fmt.Errorf("keyring: signing key is %d bytes, rsa2048 needs %d", size, rsaKeyBits/8)
	}
	return &SigningKey{key: key}, nil
}

// EncodePublicKeyPEM renders a verification key as a PKIX PEM block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("keyring: encoding public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: der}), nil
}

// WritePublicKeyPEM writes the verification key next to wherever the
// daemon configuration points.
func WritePublicKeyPEM(path string, pub *rsa.PublicKey) error {
	encoded, err := EncodePublicKeyPEM(pub)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("keyring: writing public key: %w", err)
	}
	return nil
}

// LoadPublicKey reads a PEM verification key.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: reading public key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicKeyPEMType {
		return nil, fmt.Errorf("keyring: %s does not hold a %s PEM block", path, publicKeyPEMType)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keyring: parsing public key from %s: %w", path, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("keyring: %s holds a %T, rsa2048 needs an RSA key", path, parsed)
	}
	if size := pub.Size(); size != rsaKeyBits/8 {
		return nil, fmt.Errorf("keyring: public key in %s is %d bytes, rsa2048 needs %d", path, size, rsaKeyBits/8)
	}
	return pub, nil
}

// LoadVerifySet builds the loader's key set from configured PEM
// paths. Currently only the rsa2048 kind carries key material; the
// sha256 kind never needs any.
func LoadVerifySet(rsaPublicKeyPath string) (Set, error) {
	set := Set{}
	if rsaPublicKeyPath == "" {
		return set, nil
	}
	pub, err := LoadPublicKey(rsaPublicKeyPath)
	if err != nil {
		return nil, err
	}
	set[appimage.KindRSA2048] = credential.Key{RSAPublic: pub}
	return set, nil
}

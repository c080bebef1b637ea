// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/warden-project/warden/lib/appimage"
	"github.com/warden-project/warden/lib/testutil"
)

var (
	testKeyOnce sync.Once
	testRSAKey  *rsa.PrivateKey
)

// signingKey generates one RSA-2048 key for the whole package; key
// generation is the slow part of these tests.
func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generating RSA key: %v", err)
		}
		testRSAKey = key
	})
	if testRSAKey == nil {
		t.Fatal("RSA key generation failed in an earlier test")
	}
	return testRSAKey
}

func sha256Image(t *testing.T, content []byte) *appimage.Image {
	t.Helper()
	digest := sha256.Sum256(appimage.Build(content))
	raw := appimage.Build(content, appimage.CredentialRecord{Kind: appimage.KindSHA256, Payload: digest[:]})
	img, err := appimage.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return img
}

func TestSha256VerifierValid(t *testing.T) {
	img := sha256Image(t, []byte("blink application"))
	verifier := Sha256Verifier{}

	result, err := verifier.Verify(context.Background(), img.Footers[0], img.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result != ResultValid {
		t.Errorf("result = %v, want valid", result)
	}

	// Stateless: same record, same region, same verdict.
	again, err := verifier.Verify(context.Background(), img.Footers[0], img.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if again != result {
		t.Errorf("re-verify gave %v after %v", again, result)
	}
}

func TestSha256VerifierInvalid(t *testing.T) {
	img := sha256Image(t, []byte("blink application"))
	tampered := sha256Image(t, []byte("other content"))
	verifier := Sha256Verifier{}

	// The digest of one image over another image's region.
	result, err := verifier.Verify(context.Background(), img.Footers[0], tampered.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result != ResultInvalid {
		t.Errorf("result = %v, want invalid", result)
	}

	// A digest of the wrong length is invalid, not malformed.
	short := appimage.CredentialRecord{Kind: appimage.KindSHA256, Payload: []byte{1, 2, 3}}
	result, err = verifier.Verify(context.Background(), short, img.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("Verify short payload: %v", err)
	}
	if result != ResultInvalid {
		t.Errorf("short payload result = %v, want invalid", result)
	}
}

func TestSha256VerifierWrongKind(t *testing.T) {
	img := sha256Image(t, []byte("x"))
	rec := appimage.CredentialRecord{Kind: appimage.KindRSA2048, Payload: make([]byte, 256)}
	result, err := Sha256Verifier{}.Verify(context.Background(), rec, img.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result != ResultUnsupported {
		t.Errorf("result = %v, want unsupported", result)
	}
}

func TestRsa2048Verifier(t *testing.T) {
	key := signingKey(t)
	content := []byte("signed application")
	region := appimage.Build(content)
	digest := sha256.Sum256(region)
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	raw := appimage.Build(content, appimage.CredentialRecord{Kind: appimage.KindRSA2048, Payload: signature})
	img, err := appimage.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	verifier := Rsa2048Verifier{}
	pub := Key{RSAPublic: &key.PublicKey}

	result, err := verifier.Verify(context.Background(), img.Footers[0], img.DigestRegion(), pub)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result != ResultValid {
		t.Errorf("result = %v, want valid", result)
	}

	// Same signature over different content fails.
	otherRegion := appimage.Build([]byte("tampered"))
	result, err = verifier.Verify(context.Background(), img.Footers[0], otherRegion, pub)
	if err != nil {
		t.Fatalf("Verify tampered: %v", err)
	}
	if result != ResultInvalid {
		t.Errorf("tampered result = %v, want invalid", result)
	}

	// No public key configured: the board cannot judge the signature.
	result, err = verifier.Verify(context.Background(), img.Footers[0], img.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("Verify without key: %v", err)
	}
	if result != ResultUnsupported {
		t.Errorf("keyless result = %v, want unsupported", result)
	}

	// Truncated signature is invalid.
	truncated := appimage.CredentialRecord{Kind: appimage.KindRSA2048, Payload: signature[:100]}
	result, err = verifier.Verify(context.Background(), truncated, img.DigestRegion(), pub)
	if err != nil {
		t.Fatalf("Verify truncated: %v", err)
	}
	if result != ResultInvalid {
		t.Errorf("truncated result = %v, want invalid", result)
	}
}

func TestNullVerifier(t *testing.T) {
	img := sha256Image(t, []byte("x"))
	verifier := NullVerifier{For: appimage.KindSHA256}
	if verifier.Kind() != appimage.KindSHA256 {
		t.Errorf("Kind() = %v, want sha256", verifier.Kind())
	}
	result, err := verifier.Verify(context.Background(), img.Footers[0], img.DigestRegion(), Key{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result != ResultUnsupported {
		t.Errorf("result = %v, want unsupported", result)
	}
}

func TestSelect(t *testing.T) {
	verifiers := []Verifier{
		Sha256Verifier{},
		NullVerifier{For: appimage.KindRSA2048},
	}
	if v := Select(verifiers, appimage.KindSHA256); v == nil || v.Kind() != appimage.KindSHA256 {
		t.Errorf("Select(sha256) = %v", v)
	}
	if v := Select(verifiers, appimage.KindRSA2048); v == nil || v.Kind() != appimage.KindRSA2048 {
		t.Errorf("Select(rsa2048) = %v", v)
	}
	if v := Select(verifiers, appimage.FooterKind(0x9999)); v != nil {
		t.Errorf("Select(unknown) = %v, want nil", v)
	}
}

func TestAsyncEngineCompletion(t *testing.T) {
	// The engine completes on another goroutine, as a hardware
	// peripheral's interrupt handler would.
	engine := AsyncEngine{Start: func(data []byte, complete func([32]byte, error)) {
		go complete(sha256.Sum256(data), nil)
	}}
	want := sha256.Sum256([]byte("payload"))
	got, err := engine.Sum256(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("Sum256: %v", err)
	}
	if got != want {
		t.Errorf("digest mismatch")
	}
}

func TestAsyncEngineCancellation(t *testing.T) {
	release := make(chan struct{})
	engine := AsyncEngine{Start: func(data []byte, complete func([32]byte, error)) {
		go func() {
			<-release
			complete([32]byte{}, nil)
		}()
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Sum256(ctx, []byte("payload"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sum256 = %v, want context.Canceled", err)
	}
	close(release)
}

func TestStartVerify(t *testing.T) {
	img := sha256Image(t, []byte("async verify"))
	pending := StartVerify(context.Background(), Sha256Verifier{}, img.Footers[0], img.DigestRegion(), Key{})
	outcome := testutil.RequireReceive(t, pending.Done(), 5*time.Second, "pending verification")
	if outcome.Err != nil {
		t.Fatalf("outcome error: %v", outcome.Err)
	}
	if outcome.Result != ResultValid {
		t.Errorf("outcome = %v, want valid", outcome.Result)
	}
}

func TestVerifyResultString(t *testing.T) {
	tests := []struct {
		result VerifyResult
		want   string
	}{
		{ResultValid, "valid"},
		{ResultInvalid, "invalid"},
		{ResultUnsupported, "unsupported"},
	}
	for _, test := range tests {
		if got := test.result.String(); got != test.want {
			t.Errorf("%d.String() = %q, want %q", int(test.result), got, test.want)
		}
	}
}

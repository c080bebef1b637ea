// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package appstore

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Ref is the 32-byte BLAKE3 keyed hash identifying a stored image.
type Ref [32]byte

// imageDomainKey is the BLAKE3 key for image hashing. Domain
// separation keeps image refs from ever colliding with hashes of the
// same bytes computed elsewhere. The value is the ASCII domain name
// zero-padded to 32 bytes, so the key is readable in a debugger while
// remaining an opaque 32-byte value to BLAKE3.
var imageDomainKey = [32]byte{
	'w', 'a', 'r', 'd', 'e', 'n', '.', 'i', 'm', 'a', 'g', 'e', '.', 'v', '1', 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashImage computes the ref for an image: the image-domain BLAKE3
// keyed hash of the complete image bytes, credential footers
// included.
func HashImage(data []byte) Ref {
	hasher, err := blake3.NewKeyed(imageDomainKey[:])
	if err != nil {
		// NewKeyed fails only for a key that is not 32 bytes, which
		// the fixed-size array rules out.
		panic("appstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var ref Ref
	copy(ref[:], hasher.Sum(nil))
	return ref
}

// String returns the canonical 64-character hex form.
func (r Ref) String() string {
	return hex.EncodeToString(r[:])
}

// Short returns the abbreviated display form: "img-" followed by the
// first 12 hex characters. Collisions in 48 bits are possible in
// principle, so the short form is for display only; APIs take full
// refs or resolve prefixes explicitly.
func (r Ref) Short() string {
	return "img-" + hex.EncodeToString(r[:6])
}

// MarshalText implements encoding.TextMarshaler using the hex form.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRef parses a 64-character hex string into a Ref.
func ParseRef(text string) (Ref, error) {
	var ref Ref
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return ref, fmt.Errorf("parsing image ref: %w", err)
	}
	if len(decoded) != len(ref) {
		return ref, fmt.Errorf("image ref is %d bytes, want %d", len(decoded), len(ref))
	}
	copy(ref[:], decoded)
	return ref, nil
}

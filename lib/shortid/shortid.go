// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package shortid derives and represents the compact 32-bit process
// identity used by syscall filtering and fault policy.
//
// An identity is either Fixed (a nonzero, board-wide-unique value
// derived from the package name of a credentialed image) or
// LocallyUnique (distinct from every other process but carrying no
// chosen number, assigned when no credential verifies). Fixed
// identities are what policy rules name; LocallyUnique processes can
// never match a rule that permits a specific identity.
package shortid

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

// ZeroRemap is the fixed identity assigned when a package name's
// checksum comes out zero. Fixed identities must be nonzero (zero is
// the internal marker for LocallyUnique), so the checksum 0 is
// remapped here. The registry's uniqueness check arbitrates the rare
// case where ZeroRemap collides with another package's real checksum.
const ZeroRemap uint32 = 0xffffffff

// ShortId is a compact process identity. The zero value is
// LocallyUnique.
type ShortId struct {
	fixed uint32
}

// LocallyUnique returns the identity of a process with no verified
// credential: unique by construction, never matching a Fixed rule.
func LocallyUnique() ShortId { return ShortId{} }

// Fixed returns the fixed identity n. Panics if n is zero; zero is
// unrepresentable as a fixed identity and every derivation path
// (FromPackageName, UnmarshalText, rule parsing) excludes it before
// construction.
func Fixed(n uint32) ShortId {
	if n == 0 {
		panic("shortid: Fixed(0) is unrepresentable")
	}
	return ShortId{fixed: n}
}

// IsFixed returns the fixed value and true, or 0 and false for a
// LocallyUnique identity.
func (id ShortId) IsFixed() (uint32, bool) {
	return id.fixed, id.fixed != 0
}

// String returns "locally-unique" or "fixed:0x%08x".
func (id ShortId) String() string {
	if id.fixed == 0 {
		return "locally-unique"
	}
	return fmt.Sprintf("fixed:0x%08x", id.fixed)
}

// MarshalText implements encoding.TextMarshaler so identities embed
// in CBOR, JSON, and log attributes as their String form.
func (id ShortId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the String form.
func (id *ShortId) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "locally-unique" {
		*id = ShortId{}
		return nil
	}
	hexPart, ok := strings.CutPrefix(s, "fixed:0x")
	if !ok {
		return fmt.Errorf("shortid: %q is neither %q nor fixed:0x<hex>", s, "locally-unique")
	}
	n, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return fmt.Errorf("shortid: parsing %q: %w", s, err)
	}
	if n == 0 {
		return errors.New("shortid: fixed identity must be nonzero")
	}
	*id = ShortId{fixed: uint32(n)}
	return nil
}

// FromPackageName derives the fixed identity of a credentialed
// package: CRC-32 (IEEE) over the UTF-8 name bytes, so the same name
// maps to the same identity across rebuilds. A zero checksum remaps
// to ZeroRemap.
func FromPackageName(name string) ShortId {
	return fromChecksum(crc32.ChecksumIEEE([]byte(name)))
}

func fromChecksum(sum uint32) ShortId {
	if sum == 0 {
		sum = ZeroRemap
	}
	return ShortId{fixed: sum}
}

// MaxNameLength is the longest accepted package name in bytes.
const MaxNameLength = 64

// allowedNameChars marks the bytes a package name may contain:
// lowercase letters, digits, '.', '_', '-'.
var allowedNameChars = func() [256]bool {
	var allowed [256]bool
	for c := byte('a'); c <= 'z'; c++ {
		allowed[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		allowed[c] = true
	}
	allowed['.'] = true
	allowed['_'] = true
	allowed['-'] = true
	return allowed
}()

// ValidName reports whether name is an acceptable package name:
// nonempty, at most MaxNameLength bytes, restricted charset, and not
// starting with '.' or '-'.
func ValidName(name string) error {
	if name == "" {
		return errors.New("shortid: package name is empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("shortid: package name is %d bytes, maximum is %d", len(name), MaxNameLength)
	}
	if name[0] == '.' || name[0] == '-' {
		return fmt.Errorf("shortid: package name %q starts with %q", name, string(name[0]))
	}
	for i := 0; i < len(name); i++ {
		if !allowedNameChars[name[i]] {
			return fmt.Errorf("shortid: package name %q has invalid character %q at byte %d", name, string(name[i]), i)
		}
	}
	return nil
}

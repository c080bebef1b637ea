// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package appstore is the content-addressed archive of admitted
// application images.
//
// Every image the platform admits is archived here under its [Ref],
// the BLAKE3 keyed hash of the full image bytes (header, content, and
// credential footers). The archive is what lets an operator answer
// "what exactly was running?" after the fact: the stored bytes are
// the admitted bytes, credentials included, so a stored image can be
// re-verified at any time.
//
// Blobs are compressed (LZ4 or zstd, with automatic fallback to none
// for incompressible images) and optionally encrypted with
// XChaCha20-Poly1305 under per-blob keys derived from a store master
// key. The ref is always computed over the plaintext image, so
// deduplication and integrity checks are independent of the at-rest
// representation.
//
// Storage layout under the root:
//
//	images/<aa>/<bb>/<64-hex-ref>    blob files (fan-out on ref prefix)
//	tmp/                             staging for atomic writes
//
// Writes stage into tmp/ and rename into place, so a crash never
// leaves a partial blob at a final path. [Store.Get] re-hashes the
// decoded image and refuses to return bytes whose hash does not match
// the ref.
package appstore

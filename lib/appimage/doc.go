// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package appimage defines the on-flash application image layout and
// parses the trailing credential footer region.
//
// An image is a fixed header, the application content, and zero or
// more trailing TLV credential records running to the end of the
// image:
//
//	[header: magic u32 | header size u32 | content size u32]
//	[content: header size + content size - 12 bytes ... ]
//	[footer: {type u16 | length u16 | payload} ... to EOF]
//
// All integers are big-endian. The footer region is metadata about
// the image, not part of it: credentials attest the digest region
// (header plus content), so appending or stripping footers never
// changes what a credential signs.
//
// Parsing is structural only. The parser extracts records in order
// and reports malformed layouts; it makes no trust decisions. Whether
// a record verifies, and what identity the image receives, is decided
// by the credential and shortid packages.
package appimage

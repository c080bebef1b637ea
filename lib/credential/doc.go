// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential validates the credential records attached to an
// application image.
//
// A Verifier checks one record kind against the image's digest region
// and reports Valid, Invalid, or Unsupported. Valid means the
// credential proves the image bytes; Invalid means the credential is
// present but wrong (a corrupt digest, a bad signature); Unsupported
// means this board does not check the kind at all. The distinction
// matters downstream: an image whose records are all Unsupported is
// "unverified", not "invalid", and board policy separately decides
// whether unverified images may run.
//
// Digest computation goes through the DigestEngine seam so a board
// can offload hashing to a hardware peripheral. The load path never
// blocks on an engine: StartVerify returns a Pending handle completed
// on a channel, and the loader's state machine waits on that.
// Verification is stateless; re-verifying the same record against the
// same key always yields the same result.
package credential

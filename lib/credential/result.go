// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

// VerifyResult is the outcome of checking one credential record.
type VerifyResult int

const (
	// ResultUnsupported means this board does not check the record's
	// kind. The record contributes nothing to trust either way.
	ResultUnsupported VerifyResult = iota

	// ResultInvalid means the record was checked and failed: the
	// digest does not match, or the signature does not verify.
	ResultInvalid

	// ResultValid means the record was checked and proves the image's
	// digest region.
	ResultValid
)

// String returns "unsupported", "invalid", or "valid".
func (r VerifyResult) String() string {
	switch r {
	case ResultValid:
		return "valid"
	case ResultInvalid:
		return "invalid"
	default:
		return "unsupported"
	}
}

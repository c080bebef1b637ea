// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package shortid

import (
	"github.com/warden-project/warden/lib/appimage"
	"github.com/warden-project/warden/lib/credential"
)

// VerifiedRecord pairs a parsed credential record with its
// verification verdict, in parse order.
type VerifiedRecord struct {
	Record appimage.CredentialRecord
	Result credential.VerifyResult
}

// Assign computes the identity an admitted image receives. The first
// record in parse order with a Valid verdict establishes trust and
// yields the package name's fixed identity; if nothing verified, the
// process is LocallyUnique. Assign does not check board-wide
// uniqueness; the registry enforces that at registration.
func Assign(records []VerifiedRecord, packageName string) ShortId {
	for _, vr := range records {
		if vr.Result == credential.ResultValid {
			return FromPackageName(packageName)
		}
	}
	return LocallyUnique()
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"

	"github.com/warden-project/warden/lib/appimage"
)

// Outcome is the completion of a pending verification.
type Outcome struct {
	// Result is the verdict. Meaningless when Err is non-nil.
	Result VerifyResult

	// Err is a verification engine failure, nil otherwise.
	Err error
}

// Pending is an in-flight verification started by StartVerify. The
// admission path holds at most one Pending at a time and advances
// when its Done channel delivers.
type Pending struct {
	done chan Outcome
}

// Done delivers exactly one Outcome when the verification completes.
func (p *Pending) Done() <-chan Outcome { return p.done }

// StartVerify begins verifying rec without blocking the caller. The
// verifier runs on its own goroutine; hardware engines complete via
// their callback, software engines complete almost immediately.
// Cancel ctx to abandon the verification (the Outcome then carries
// ctx's error, engine permitting).
func StartVerify(ctx context.Context, verifier Verifier, rec appimage.CredentialRecord, digestRegion []byte, key Key) *Pending {
	pending := &Pending{done: make(chan Outcome, 1)}
	go func() {
		result, err := verifier.Verify(ctx, rec, digestRegion, key)
		pending.done <- Outcome{Result: result, Err: err}
	}()
	return pending
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"
	"crypto/sha256"
)

// DigestEngine computes SHA-256 digests. The software engine hashes
// inline; boards with a SHA peripheral supply their own
// implementation. Engine errors are infrastructure failures, never
// verification verdicts.
type DigestEngine interface {
	// Sum256 returns the SHA-256 digest of data. Implementations that
	// submit work to hardware honor ctx cancellation while waiting
	// for completion.
	Sum256(ctx context.Context, data []byte) ([32]byte, error)
}

// SoftwareEngine computes digests with crypto/sha256. It never fails
// and ignores ctx.
type SoftwareEngine struct{}

// Sum256 implements DigestEngine.
func (SoftwareEngine) Sum256(_ context.Context, data []byte) ([32]byte, error) {
	return sha256.Sum256(data), nil
}

// StartFunc submits data to a completion-callback digest engine. The
// engine must call complete exactly once, from any goroutine, with the
// digest or an error.
type StartFunc func(data []byte, complete func(digest [32]byte, err error))

// AsyncEngine adapts a completion-callback engine (a hardware SHA
// peripheral finishing via interrupt, a DMA offload) to the
// DigestEngine interface. Sum256 submits the work and waits for the
// callback or ctx, whichever comes first. An abandoned submission's
// callback is still absorbed, so a late-completing engine never
// blocks.
type AsyncEngine struct {
	Start StartFunc
}

// Sum256 implements DigestEngine.
func (e AsyncEngine) Sum256(ctx context.Context, data []byte) ([32]byte, error) {
	type completion struct {
		digest [32]byte
		err    error
	}
	done := make(chan completion, 1)
	e.Start(data, func(digest [32]byte, err error) {
		done <- completion{digest: digest, err: err}
	})
	select {
	case c := <-done:
		return c.digest, c.err
	case <-ctx.Done():
		return [32]byte{}, ctx.Err()
	}
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/warden-project/warden/lib/appimage"
	"github.com/warden-project/warden/lib/credential"
	"github.com/warden-project/warden/lib/registry"
	"github.com/warden-project/warden/lib/shortid"
)

// Errors returned by Load.
var (
	// ErrCredentialsFailed means board policy requires a verified
	// credential and the image had none. The image is registered in
	// a terminal credentials-failed state, never runnable.
	ErrCredentialsFailed = errors.New("loader: credentials required but none verified")

	// ErrStopped means the loader's Run loop has exited.
	ErrStopped = errors.New("loader: stopped")
)

// defaultQueueDepth bounds how many submissions may wait behind the
// one being admitted.
const defaultQueueDepth = 8

// Config assembles a Loader.
type Config struct {
	// Registry receives admitted processes. Required.
	Registry *registry.Registry

	// Verifiers are the board's credential checkers, one per kind it
	// verifies. Kinds with no verifier go unchecked.
	Verifiers []credential.Verifier

	// Keys supplies verification key material per credential kind.
	Keys map[appimage.FooterKind]credential.Key

	// RequireCredentials rejects images with no valid credential.
	// This is the shipped default; boards that run unsigned images
	// opt out explicitly.
	RequireCredentials bool

	// QueueDepth bounds the submission queue. Zero means the
	// default.
	QueueDepth int

	// Logger receives admission outcomes. Nil discards.
	Logger *slog.Logger
}

// Decision is the outcome of one admission.
type Decision struct {
	// Admitted reports whether the process was registered runnable.
	Admitted bool

	// Process is the registered handle. Set when Admitted, and also
	// for credentials-failed records (which exist but never run).
	Process registry.ProcessID

	// ShortId is the assigned identity. Meaningful only when a
	// record was registered.
	ShortId shortid.ShortId

	// Verified reports whether any credential proved the image.
	Verified bool

	// Err is why admission failed. Nil when Admitted.
	Err error
}

type submission struct {
	pkg   string
	image []byte
	reply chan Decision
}

// Loader admits images one at a time. Construct with New, start Run
// on its own goroutine, submit through Load.
type Loader struct {
	cfg    Config
	logger *slog.Logger

	submissions chan submission
	done        chan struct{}
}

// New validates cfg and returns a Loader. Run must be started before
// Load can complete.
func New(cfg Config) (*Loader, error) {
	if cfg.Registry == nil {
		return nil, errors.New("loader: config needs a registry")
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		cfg:         cfg,
		logger:      logger,
		submissions: make(chan submission, depth),
		done:        make(chan struct{}),
	}, nil
}

// Done is closed when Run exits.
func (l *Loader) Done() <-chan struct{} { return l.done }

// Run consumes the submission queue until ctx is canceled. One image
// is admitted at a time; submissions queued behind it wait.
func (l *Loader) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-l.submissions:
			decision := l.admit(ctx, sub.pkg, sub.image)
			sub.reply <- decision
		}
	}
}

// Load submits an image and waits for its decision. The returned
// error covers submission transport only (canceled context, stopped
// loader); the admission verdict itself is Decision.Err.
func (l *Loader) Load(ctx context.Context, pkg string, image []byte) (Decision, error) {
	reply := make(chan Decision, 1)
	select {
	case l.submissions <- submission{pkg: pkg, image: image, reply: reply}:
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case <-l.done:
		return Decision{}, ErrStopped
	}
	select {
	case decision := <-reply:
		return decision, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case <-l.done:
		// Run may have decided before exiting; the reply buffer
		// holds it if so.
		select {
		case decision := <-reply:
			return decision, nil
		default:
			return Decision{}, ErrStopped
		}
	}
}

// admitState is the per-image verification state machine.
type admitState int

const (
	awaitingNextRecord admitState = iota
	verifying
	admitDone
)

func (l *Loader) admit(ctx context.Context, pkg string, image []byte) Decision {
	if err := shortid.ValidName(pkg); err != nil {
		l.logger.Warn("image rejected", "package", pkg, "reason", err)
		return Decision{Err: err}
	}

	img, err := appimage.Parse(image)
	if err != nil {
		// Structural failure: rejected outright, never registered.
		l.logger.Warn("image rejected", "package", pkg, "reason", err)
		return Decision{Err: err}
	}

	verified, err := l.verifyRecords(ctx, pkg, img)
	if err != nil {
		l.logger.Warn("image rejected", "package", pkg, "reason", err)
		return Decision{Err: err}
	}

	anyValid := false
	for _, vr := range verified {
		if vr.Result == credential.ResultValid {
			anyValid = true
			break
		}
	}

	if !anyValid && l.cfg.RequireCredentials {
		pid := l.cfg.Registry.RegisterCredentialsFailed(pkg)
		l.logger.Warn("image rejected",
			"package", pkg,
			"process", pid,
			"reason", ErrCredentialsFailed,
			"footers", len(img.Footers))
		return Decision{Process: pid, ShortId: shortid.LocallyUnique(), Err: ErrCredentialsFailed}
	}

	id := shortid.Assign(verified, pkg)
	pid, err := l.cfg.Registry.Register(pkg, id, anyValid)
	if err != nil {
		l.logger.Warn("image rejected", "package", pkg, "short_id", id, "reason", err)
		return Decision{Err: err}
	}

	l.logger.Info("image admitted",
		"package", pkg,
		"process", pid,
		"short_id", id,
		"verified", anyValid)
	return Decision{Admitted: true, Process: pid, ShortId: id, Verified: anyValid}
}

// verifyRecords walks the image's footer records through the
// admission state machine, holding at most one pending verification.
// Reserved and unknown kinds are skipped; a kind with no configured
// verifier records Unsupported. The returned error is an engine
// failure or cancellation, never a verdict.
func (l *Loader) verifyRecords(ctx context.Context, pkg string, img *appimage.Image) ([]shortid.VerifiedRecord, error) {
	var (
		verified []shortid.VerifiedRecord
		state    admitState = awaitingNextRecord
		pending  *credential.Pending
		current  appimage.CredentialRecord
		next     int
	)

	for state != admitDone {
		switch state {
		case awaitingNextRecord:
			if next >= len(img.Footers) {
				state = admitDone
				continue
			}
			rec := img.Footers[next]
			next++

			if rec.Kind == appimage.KindReserved {
				continue
			}
			if !rec.Kind.Known() {
				l.logger.Warn("skipping unknown credential kind",
					"package", pkg,
					"kind", rec.Kind)
				continue
			}
			verifier := credential.Select(l.cfg.Verifiers, rec.Kind)
			if verifier == nil {
				verified = append(verified, shortid.VerifiedRecord{Record: rec, Result: credential.ResultUnsupported})
				continue
			}

			current = rec
			pending = credential.StartVerify(ctx, verifier, rec, img.DigestRegion(), l.cfg.Keys[rec.Kind])
			state = verifying

		case verifying:
			select {
			case outcome := <-pending.Done():
				pending = nil
				if outcome.Err != nil {
					return nil, fmt.Errorf("verifying %s record: %w", current.Kind, outcome.Err)
				}
				l.logger.Debug("credential checked",
					"package", pkg,
					"kind", current.Kind,
					"result", outcome.Result)
				verified = append(verified, shortid.VerifiedRecord{Record: current, Result: outcome.Result})
				state = awaitingNextRecord
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return verified, nil
}

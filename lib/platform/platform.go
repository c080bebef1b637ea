// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/warden-project/warden/lib/appimage"
	"github.com/warden-project/warden/lib/appstore"
	"github.com/warden-project/warden/lib/clock"
	"github.com/warden-project/warden/lib/credential"
	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/faultpolicy"
	"github.com/warden-project/warden/lib/loader"
	"github.com/warden-project/warden/lib/registry"
	"github.com/warden-project/warden/lib/syscallfilter"
)

// Options configures a Platform. The zero value is a working
// closed-by-default engine: every syscall approved (no rules
// loaded), credentials required, faults tolerated twice then
// stopped.
type Options struct {
	// Registry holds process records. Nil creates a fresh one.
	Registry *registry.Registry

	// Filter is the syscall policy. Nil approves everything.
	Filter syscallfilter.Policy

	// Fault decides restart-or-stop after a fault. Nil is a
	// three-strike threshold.
	Fault faultpolicy.Policy

	// Verifiers are the credential checkers offered to the loader.
	// Nil enables the SHA-256 and RSA-2048 verifiers; RSA stays
	// inert until Keys supplies a public key.
	Verifiers []credential.Verifier

	// Keys supplies verification key material per credential kind.
	Keys map[appimage.FooterKind]credential.Key

	// AllowUnverified admits images whose credentials all fail or
	// that carry none. The zero value requires a valid credential.
	AllowUnverified bool

	// QueueDepth bounds the admission queue. Zero means the loader
	// default.
	QueueDepth int

	// Store archives admitted images. Nil disables archiving.
	// Owned by the caller; the platform never closes it.
	Store *appstore.Store

	// Journal records trust decisions. Nil disables journaling.
	// Owned by the caller; the platform never closes it.
	Journal *eventlog.Log

	// Logger receives operational logging. Nil discards.
	Logger *slog.Logger

	// Clock stamps registry records. Nil means the real clock.
	Clock clock.Clock
}

// defaultFaultLimit is the shipped restart budget: two restarts, the
// third fault stops the process.
const defaultFaultLimit = 3

// Platform is the assembled trust engine. Construct with New, shut
// down with Close.
type Platform struct {
	registry *registry.Registry
	filter   syscallfilter.Policy
	fault    faultpolicy.Policy
	store    *appstore.Store
	journal  *eventlog.Log
	logger   *slog.Logger

	loader *loader.Loader
	cancel context.CancelFunc
}

// New assembles a platform and starts its admission loop.
func New(opts Options) (*Platform, error) {
	if opts.Registry == nil {
		opts.Registry = registry.New(opts.Clock)
	}
	if opts.Filter == nil {
		opts.Filter = syscallfilter.AllowAll{}
	}
	if opts.Fault == nil {
		opts.Fault = faultpolicy.Threshold{Limit: defaultFaultLimit}
	}
	if opts.Verifiers == nil {
		opts.Verifiers = []credential.Verifier{
			credential.Sha256Verifier{},
			credential.Rsa2048Verifier{},
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ldr, err := loader.New(loader.Config{
		Registry:           opts.Registry,
		Verifiers:          opts.Verifiers,
		Keys:               opts.Keys,
		RequireCredentials: !opts.AllowUnverified,
		QueueDepth:         opts.QueueDepth,
		Logger:             opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Platform{
		registry: opts.Registry,
		filter:   opts.Filter,
		fault:    opts.Fault,
		store:    opts.Store,
		journal:  opts.Journal,
		logger:   opts.Logger,
		loader:   ldr,
		cancel:   cancel,
	}
	go ldr.Run(ctx)
	return p, nil
}

// Close stops the admission loop. The journal and store passed in
// Options belong to the caller and stay open.
func (p *Platform) Close() error {
	p.cancel()
	<-p.loader.Done()
	return nil
}

// LoadImage submits an image for admission and waits for the
// verdict. The returned error covers transport only (canceled
// context, closed platform); the admission outcome is the Decision.
// Admitted images are archived and every verdict is journaled.
func (p *Platform) LoadImage(ctx context.Context, pkg string, image []byte) (loader.Decision, error) {
	decision, err := p.loader.Load(ctx, pkg, image)
	if err != nil {
		return decision, err
	}

	if !decision.Admitted {
		detail := "admission failed"
		if decision.Err != nil {
			detail = decision.Err.Error()
		}
		p.journalAppend(eventlog.Event{
			Kind:    eventlog.KindReject,
			Package: pkg,
			Process: decision.Process,
			ShortId: decision.ShortId,
			Detail:  detail,
		})
		return decision, nil
	}

	detail := "unverified"
	if decision.Verified {
		detail = "verified"
	}
	if p.store != nil {
		ref, storeErr := p.store.Put(image)
		if storeErr != nil {
			// Archiving is best-effort: the process is already
			// registered and refusing it now would leave the registry
			// and the verdict disagreeing.
			p.logger.Warn("archiving admitted image failed",
				"package", pkg, "error", storeErr)
		} else {
			detail += " " + ref.Short()
		}
	}
	p.journalAppend(eventlog.Event{
		Kind:    eventlog.KindAdmit,
		Package: pkg,
		Process: decision.Process,
		ShortId: decision.ShortId,
		Detail:  detail,
	})
	return decision, nil
}

// FilterSyscall consults the filter policy. Synchronous and
// allocation-free on the approve path; denials are journaled.
func (p *Platform) FilterSyscall(req syscallfilter.Request) error {
	err := p.filter.FilterSyscall(req)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscallfilter.ErrNoDevice) {
		event := eventlog.Event{
			Kind:    eventlog.KindDeny,
			ShortId: req.Caller,
			Detail:  fmt.Sprintf("%s resource 0x%08x", req.Op, req.Resource),
		}
		if rec, ok := p.registry.LookupShortId(req.Caller); ok {
			event.Package = rec.Package
			event.Process = rec.ID
		}
		p.journalAppend(event)
		p.logger.Warn("syscall denied",
			"caller", req.Caller, "resource", fmt.Sprintf("0x%08x", req.Resource), "op", req.Op.String())
	}
	return err
}

// HandleFault runs the fault protocol for a crashed process: mark it
// faulted, count the fault, ask the policy, apply the verdict. The
// returned action tells the caller what was applied; ActionPanic is
// applied by the caller (the embedded dispatcher halts the board, the
// daemon refuses and logs).
func (p *Platform) HandleFault(id registry.ProcessID) (faultpolicy.Action, error) {
	rec, ok := p.registry.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("platform: handling fault for %s: %w", id, registry.ErrNotRegistered)
	}
	if err := p.registry.UpdateState(id, registry.StateFaulted); err != nil {
		return 0, fmt.Errorf("platform: handling fault for %s: %w", id, err)
	}
	count, err := p.registry.IncrementRestart(id)
	if err != nil {
		return 0, fmt.Errorf("platform: handling fault for %s: %w", id, err)
	}

	action := p.fault.Action(faultpolicy.Event{
		Process:      id,
		ShortId:      rec.ShortId,
		RestartCount: count,
	})
	switch action {
	case faultpolicy.ActionRestart:
		if err := p.registry.UpdateState(id, registry.StateUnstarted); err != nil {
			return action, fmt.Errorf("platform: restarting %s: %w", id, err)
		}
	case faultpolicy.ActionStop:
		if err := p.registry.UpdateState(id, registry.StateStopped); err != nil {
			return action, fmt.Errorf("platform: stopping %s: %w", id, err)
		}
	case faultpolicy.ActionPanic:
		p.logger.Error("fault policy demands panic",
			"process", id.String(), "package", rec.Package, "count", count)
	}

	p.journalAppend(eventlog.Event{
		Kind:    eventlog.KindFault,
		Package: rec.Package,
		Process: id,
		ShortId: rec.ShortId,
		Detail:  fmt.Sprintf("count %d: %s", count, action),
	})
	p.logger.Info("process faulted",
		"process", id.String(), "package", rec.Package, "count", count, "action", action.String())
	return action, nil
}

// ReportState records a scheduler-observed transition (Running,
// Yielded, and so on). The transition table is enforced; an invalid
// report is an error, not a silent overwrite.
func (p *Platform) ReportState(id registry.ProcessID, next registry.State) error {
	if err := p.registry.UpdateState(id, next); err != nil {
		return err
	}
	p.journalState(id, next.String())
	return nil
}

// StopProcess is the operator stop: the process keeps its record and
// identity but will not be scheduled until started again.
func (p *Platform) StopProcess(id registry.ProcessID) error {
	if err := p.registry.UpdateState(id, registry.StateStopped); err != nil {
		return err
	}
	rec, _ := p.registry.Lookup(id)
	p.journalAppend(eventlog.Event{
		Kind:    eventlog.KindStop,
		Package: rec.Package,
		Process: id,
		ShortId: rec.ShortId,
	})
	return nil
}

// StartProcess starts an unstarted process, or resets and starts a
// stopped one.
func (p *Platform) StartProcess(id registry.ProcessID) error {
	rec, ok := p.registry.Lookup(id)
	if !ok {
		return fmt.Errorf("platform: starting %s: %w", id, registry.ErrNotRegistered)
	}
	if rec.State == registry.StateStopped {
		if err := p.registry.UpdateState(id, registry.StateUnstarted); err != nil {
			return err
		}
	}
	if err := p.registry.UpdateState(id, registry.StateRunning); err != nil {
		return err
	}
	p.journalState(id, registry.StateRunning.String())
	return nil
}

// UnloadProcess removes a process record entirely, freeing its fixed
// identity for reuse.
func (p *Platform) UnloadProcess(id registry.ProcessID) error {
	rec, ok := p.registry.Lookup(id)
	if !ok {
		return fmt.Errorf("platform: unloading %s: %w", id, registry.ErrNotRegistered)
	}
	if err := p.registry.Unregister(id); err != nil {
		return err
	}
	p.journalAppend(eventlog.Event{
		Kind:    eventlog.KindUnload,
		Package: rec.Package,
		Process: id,
		ShortId: rec.ShortId,
	})
	return nil
}

// Processes returns a snapshot of every registered process.
func (p *Platform) Processes() []registry.Record {
	return p.registry.Snapshot()
}

// Process returns one process record.
func (p *Platform) Process(id registry.ProcessID) (registry.Record, error) {
	rec, ok := p.registry.Lookup(id)
	if !ok {
		return registry.Record{}, fmt.Errorf("platform: %s: %w", id, registry.ErrNotRegistered)
	}
	return rec, nil
}

// Events returns the most recent journal events, newest last. Empty
// when no journal is attached.
func (p *Platform) Events(n int) []eventlog.Event {
	if p.journal == nil {
		return nil
	}
	return p.journal.Tail(n)
}

// Status summarizes the platform for operator tooling.
type Status struct {
	// Processes is the registered process count.
	Processes int

	// States counts processes per lifecycle state name.
	States map[string]int

	// JournalSeq is the last journal sequence number, zero without a
	// journal.
	JournalSeq uint64

	// StoredImages is the archive blob count, zero without a store.
	StoredImages int
}

// Status reports current platform health.
func (p *Platform) Status() (Status, error) {
	snapshot := p.registry.Snapshot()
	status := Status{
		Processes: len(snapshot),
		States:    make(map[string]int),
	}
	for _, rec := range snapshot {
		status.States[rec.State.String()]++
	}
	if p.journal != nil {
		status.JournalSeq = p.journal.Seq()
	}
	if p.store != nil {
		entries, err := p.store.List()
		if err != nil {
			return Status{}, fmt.Errorf("platform: listing store: %w", err)
		}
		status.StoredImages = len(entries)
	}
	return status, nil
}

func (p *Platform) journalState(id registry.ProcessID, detail string) {
	rec, ok := p.registry.Lookup(id)
	if !ok {
		return
	}
	p.journalAppend(eventlog.Event{
		Kind:    eventlog.KindState,
		Package: rec.Package,
		Process: id,
		ShortId: rec.ShortId,
		Detail:  detail,
	})
}

func (p *Platform) journalAppend(event eventlog.Event) {
	if p.journal != nil {
		p.journal.Append(event)
	}
}

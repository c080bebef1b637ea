// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"crypto/sha256"
	"errors"
	"hash/crc32"
	"path/filepath"
	"testing"

	"github.com/warden-project/warden/lib/appimage"
	"github.com/warden-project/warden/lib/appstore"
	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/faultpolicy"
	"github.com/warden-project/warden/lib/loader"
	"github.com/warden-project/warden/lib/registry"
	"github.com/warden-project/warden/lib/shortid"
	"github.com/warden-project/warden/lib/syscallfilter"
)

func signedImage(content []byte) []byte {
	digest := sha256.Sum256(appimage.Build(content))
	return appimage.Build(content, appimage.CredentialRecord{Kind: appimage.KindSHA256, Payload: digest[:]})
}

func newPlatform(t *testing.T, mutate func(*Options)) *Platform {
	t.Helper()
	opts := Options{}
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func admit(t *testing.T, p *Platform, pkg string, image []byte) loader.Decision {
	t.Helper()
	decision, err := p.LoadImage(context.Background(), pkg, image)
	if err != nil {
		t.Fatalf("LoadImage(%s): %v", pkg, err)
	}
	if !decision.Admitted {
		t.Fatalf("LoadImage(%s) not admitted: %v", pkg, decision.Err)
	}
	return decision
}

// A signed image ends up registered under its package-derived fixed
// identity, ready to run.
func TestSignedImageBecomesTrustedProcess(t *testing.T) {
	p := newPlatform(t, nil)

	decision := admit(t, p, "blink", signedImage([]byte("blink machine code")))

	wantId := crc32.ChecksumIEEE([]byte("blink"))
	got, fixed := decision.ShortId.IsFixed()
	if !fixed || got != wantId {
		t.Fatalf("ShortId = %v, want fixed 0x%08x", decision.ShortId, wantId)
	}
	if !decision.Verified {
		t.Error("signed image not marked verified")
	}

	if err := p.StartProcess(decision.Process); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	rec, err := p.Process(decision.Process)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.State != registry.StateRunning {
		t.Errorf("state after start = %v, want running", rec.State)
	}
}

// A footerless image under the default require-credentials policy is
// registered terminally failed: visible to the operator, never
// schedulable.
func TestFooterlessImageIsCredentialsFailed(t *testing.T) {
	p := newPlatform(t, nil)

	decision, err := p.LoadImage(context.Background(), "unsigned", appimage.Build([]byte("code")))
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if decision.Admitted {
		t.Fatal("footerless image admitted under require-credentials")
	}
	if !errors.Is(decision.Err, loader.ErrCredentialsFailed) {
		t.Fatalf("Decision.Err = %v, want ErrCredentialsFailed", decision.Err)
	}

	rec, err := p.Process(decision.Process)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.State != registry.StateCredentialsFailed {
		t.Fatalf("state = %v, want credentials-failed", rec.State)
	}
	if err := p.StartProcess(decision.Process); err == nil {
		t.Error("credentials-failed process could be started")
	}
}

// Filter scenario: a protected resource is reachable only by the
// permitted identity; everyone else sees the same error a missing
// driver produces.
func TestProtectedResourceFiltering(t *testing.T) {
	const gpio = uint32(0x00040001)
	filter, err := syscallfilter.NewProtected([]syscallfilter.Rule{{
		Name:      "gpio for blink",
		Resources: []uint32{gpio},
		Permitted: []shortid.ShortId{shortid.FromPackageName("blink")},
	}})
	if err != nil {
		t.Fatalf("NewProtected: %v", err)
	}
	p := newPlatform(t, func(o *Options) { o.Filter = filter })

	blink := admit(t, p, "blink", signedImage([]byte("blink")))
	intruder := admit(t, p, "intruder", signedImage([]byte("intruder")))

	allowed := syscallfilter.Request{Caller: blink.ShortId, Resource: gpio, Op: syscallfilter.OpCommand}
	if err := p.FilterSyscall(allowed); err != nil {
		t.Errorf("permitted caller denied: %v", err)
	}

	denied := syscallfilter.Request{Caller: intruder.ShortId, Resource: gpio, Op: syscallfilter.OpCommand}
	err = p.FilterSyscall(denied)
	if err != syscallfilter.ErrNoDevice {
		t.Errorf("denial = %v, want the exact ErrNoDevice a missing driver returns", err)
	}

	unprotected := syscallfilter.Request{Caller: intruder.ShortId, Resource: 0x00050000, Op: syscallfilter.OpCommand}
	if err := p.FilterSyscall(unprotected); err != nil {
		t.Errorf("unprotected resource denied: %v", err)
	}
}

// Fault scenario: a trusted process gets two restarts; the third
// fault stops it for good.
func TestFaultThresholdSequence(t *testing.T) {
	p := newPlatform(t, nil)
	decision := admit(t, p, "blink", signedImage([]byte("crashy")))
	id := decision.Process

	for fault := 1; fault <= 3; fault++ {
		if err := p.StartProcess(id); err != nil {
			t.Fatalf("StartProcess before fault %d: %v", fault, err)
		}
		action, err := p.HandleFault(id)
		if err != nil {
			t.Fatalf("HandleFault %d: %v", fault, err)
		}
		want := faultpolicy.ActionRestart
		if fault == 3 {
			want = faultpolicy.ActionStop
		}
		if action != want {
			t.Fatalf("fault %d: action = %v, want %v", fault, action, want)
		}

		rec, err := p.Process(id)
		if err != nil {
			t.Fatalf("Process after fault %d: %v", fault, err)
		}
		if rec.RestartCount != uint32(fault) {
			t.Errorf("fault %d: restart count = %d", fault, rec.RestartCount)
		}
		wantState := registry.StateUnstarted
		if fault == 3 {
			wantState = registry.StateStopped
		}
		if rec.State != wantState {
			t.Errorf("fault %d: state = %v, want %v", fault, rec.State, wantState)
		}
	}
}

// An unverified process is never granted restarts: first fault stops
// it.
func TestUnverifiedProcessStopsOnFirstFault(t *testing.T) {
	p := newPlatform(t, func(o *Options) { o.AllowUnverified = true })
	decision := admit(t, p, "unsigned", appimage.Build([]byte("code")))
	if _, fixed := decision.ShortId.IsFixed(); fixed {
		t.Fatal("unverified image got a fixed identity")
	}

	if err := p.StartProcess(decision.Process); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	action, err := p.HandleFault(decision.Process)
	if err != nil {
		t.Fatalf("HandleFault: %v", err)
	}
	if action != faultpolicy.ActionStop {
		t.Errorf("first fault of unverified process = %v, want stop", action)
	}
}

func TestPanicPolicyLeavesProcessFaulted(t *testing.T) {
	p := newPlatform(t, func(o *Options) { o.Fault = faultpolicy.Panic{} })
	decision := admit(t, p, "blink", signedImage([]byte("code")))

	if err := p.StartProcess(decision.Process); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	action, err := p.HandleFault(decision.Process)
	if err != nil {
		t.Fatalf("HandleFault: %v", err)
	}
	if action != faultpolicy.ActionPanic {
		t.Fatalf("action = %v, want panic", action)
	}
	rec, err := p.Process(decision.Process)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if rec.State != registry.StateFaulted {
		t.Errorf("state = %v, want faulted left for the caller", rec.State)
	}
}

func TestHandleFaultUnknownProcess(t *testing.T) {
	p := newPlatform(t, nil)
	if _, err := p.HandleFault(registry.ProcessID(404)); !errors.Is(err, registry.ErrNotRegistered) {
		t.Errorf("HandleFault(unknown) = %v, want ErrNotRegistered", err)
	}
}

func TestStopAndRestartCycle(t *testing.T) {
	p := newPlatform(t, nil)
	decision := admit(t, p, "blink", signedImage([]byte("code")))
	id := decision.Process

	if err := p.StartProcess(id); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	if err := p.StopProcess(id); err != nil {
		t.Fatalf("StopProcess: %v", err)
	}
	rec, _ := p.Process(id)
	if rec.State != registry.StateStopped {
		t.Fatalf("state after stop = %v", rec.State)
	}

	// Operator restart: stopped processes reset and run again.
	if err := p.StartProcess(id); err != nil {
		t.Fatalf("StartProcess after stop: %v", err)
	}
	rec, _ = p.Process(id)
	if rec.State != registry.StateRunning {
		t.Errorf("state after restart = %v, want running", rec.State)
	}
}

func TestUnloadFreesFixedIdentity(t *testing.T) {
	p := newPlatform(t, nil)
	image := signedImage([]byte("code"))

	first := admit(t, p, "blink", image)
	if err := p.UnloadProcess(first.Process); err != nil {
		t.Fatalf("UnloadProcess: %v", err)
	}
	if _, err := p.Process(first.Process); !errors.Is(err, registry.ErrNotRegistered) {
		t.Errorf("Process after unload = %v, want ErrNotRegistered", err)
	}

	second := admit(t, p, "blink", image)
	if second.ShortId != first.ShortId {
		t.Error("reload after unload did not reuse the fixed identity")
	}
}

func TestJournalAndStoreWiring(t *testing.T) {
	dir := t.TempDir()
	journal, err := eventlog.Open(filepath.Join(dir, "journal.wlog"), eventlog.Options{})
	if err != nil {
		t.Fatalf("eventlog.Open: %v", err)
	}
	defer journal.Close()
	store, err := appstore.Open(filepath.Join(dir, "store"), appstore.Options{Compression: appstore.CompressionLZ4})
	if err != nil {
		t.Fatalf("appstore.Open: %v", err)
	}

	p := newPlatform(t, func(o *Options) {
		o.Journal = journal
		o.Store = store
	})

	image := signedImage([]byte("blink machine code, long enough to archive"))
	decision := admit(t, p, "blink", image)
	if err := p.StartProcess(decision.Process); err != nil {
		t.Fatalf("StartProcess: %v", err)
	}
	if _, err := p.LoadImage(context.Background(), "unsigned", appimage.Build([]byte("x"))); err != nil {
		t.Fatalf("LoadImage(unsigned): %v", err)
	}

	// The admitted image is retrievable from the archive by content
	// hash.
	stored, err := store.Get(appstore.HashImage(image))
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if len(stored) != len(image) {
		t.Errorf("archived image is %d bytes, want %d", len(stored), len(image))
	}

	events := p.Events(10)
	if len(events) != 3 {
		t.Fatalf("journal holds %d events, want admit+state+reject = 3", len(events))
	}
	if events[0].Kind != eventlog.KindAdmit || events[0].Package != "blink" {
		t.Errorf("first event = %+v, want blink admit", events[0])
	}
	if events[1].Kind != eventlog.KindState {
		t.Errorf("second event = %+v, want state", events[1])
	}
	if events[2].Kind != eventlog.KindReject || events[2].Package != "unsigned" {
		t.Errorf("third event = %+v, want unsigned reject", events[2])
	}

	status, err := p.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Processes != 2 {
		t.Errorf("status processes = %d, want 2", status.Processes)
	}
	if status.States[registry.StateRunning.String()] != 1 {
		t.Errorf("status running count = %d, want 1", status.States[registry.StateRunning.String()])
	}
	if status.JournalSeq != 3 {
		t.Errorf("status journal seq = %d, want 3", status.JournalSeq)
	}
	if status.StoredImages != 1 {
		t.Errorf("status stored images = %d, want 1", status.StoredImages)
	}
}

func TestDenyIsJournaled(t *testing.T) {
	journal, err := eventlog.Open(filepath.Join(t.TempDir(), "journal.wlog"), eventlog.Options{})
	if err != nil {
		t.Fatalf("eventlog.Open: %v", err)
	}
	defer journal.Close()

	filter, err := syscallfilter.NewProtected([]syscallfilter.Rule{{
		Name:      "alarm",
		Resources: []uint32{7},
		Permitted: []shortid.ShortId{shortid.FromPackageName("blink")},
	}})
	if err != nil {
		t.Fatalf("NewProtected: %v", err)
	}
	p := newPlatform(t, func(o *Options) {
		o.Journal = journal
		o.Filter = filter
	})

	intruder := admit(t, p, "intruder", signedImage([]byte("intruder")))
	req := syscallfilter.Request{Caller: intruder.ShortId, Resource: 7, Op: syscallfilter.OpCommand}
	if err := p.FilterSyscall(req); err != syscallfilter.ErrNoDevice {
		t.Fatalf("FilterSyscall = %v, want ErrNoDevice", err)
	}

	events := p.Events(10)
	last := events[len(events)-1]
	if last.Kind != eventlog.KindDeny {
		t.Fatalf("last event kind = %s, want deny", last.Kind)
	}
	if last.Package != "intruder" || last.Process != intruder.Process {
		t.Errorf("deny event not attributed to the caller: %+v", last)
	}
}

func TestLoadAfterClose(t *testing.T) {
	p, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err = p.LoadImage(context.Background(), "blink", signedImage([]byte("code")))
	if !errors.Is(err, loader.ErrStopped) {
		t.Errorf("LoadImage after Close = %v, want ErrStopped", err)
	}
}

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warden-project/warden/lib/clock"
	"github.com/warden-project/warden/lib/shortid"
)

// ProcessID is the registry-minted handle for one admitted process.
// Handles are monotonic and never reused within a boot.
type ProcessID uint64

// String returns "p-N".
func (id ProcessID) String() string { return fmt.Sprintf("p-%d", uint64(id)) }

// Errors returned by registry operations.
var (
	ErrDuplicateShortId  = errors.New("registry: fixed short id already in use by a live process")
	ErrNotRegistered     = errors.New("registry: process not registered")
	ErrInvalidTransition = errors.New("registry: invalid state transition")
)

// Record is one process's registry entry. Lookups and snapshots
// return copies; the registry owns the canonical record.
type Record struct {
	// ID is the registry-minted process handle.
	ID ProcessID

	// Package is the image's package name.
	Package string

	// ShortId is the identity assigned at admission. Immutable for
	// the record's lifetime.
	ShortId shortid.ShortId

	// Verified reports whether any credential record proved the
	// image.
	Verified bool

	// RestartCount is how many times the fault path has restarted
	// this process.
	RestartCount uint32

	// State is the current lifecycle state.
	State State

	// RegisteredAt is when the record was created.
	RegisteredAt time.Time
}

// Registry is the board's process table. The zero value is not
// usable; construct with New.
type Registry struct {
	clk clock.Clock

	mu      sync.RWMutex
	nextID  ProcessID
	records map[ProcessID]*Record
	fixed   map[uint32]ProcessID
}

// New returns an empty registry. A nil clk means the real clock.
func New(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{
		clk:     clk,
		records: make(map[ProcessID]*Record),
		fixed:   make(map[uint32]ProcessID),
	}
}

// Register admits a process in state Unstarted and returns its
// handle. Returns ErrDuplicateShortId (wrapped with both package
// names) when id is Fixed and another live record holds the same
// value; LocallyUnique identities never collide and skip the check.
func (r *Registry) Register(pkg string, id shortid.ShortId, verified bool) (ProcessID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, isFixed := id.IsFixed(); isFixed {
		if holder, taken := r.fixed[n]; taken {
			return 0, fmt.Errorf("%w: %s held by %s, requested by %q",
				ErrDuplicateShortId, id, r.records[holder].Package, pkg)
		}
	}

	rec := &Record{
		ID:           r.mintLocked(),
		Package:      pkg,
		ShortId:      id,
		Verified:     verified,
		State:        StateUnstarted,
		RegisteredAt: r.clk.Now(),
	}
	r.records[rec.ID] = rec
	if n, isFixed := id.IsFixed(); isFixed {
		r.fixed[n] = rec.ID
	}
	return rec.ID, nil
}

// RegisterCredentialsFailed records an image whose credentials were
// required but did not verify. The record is terminal: state
// CredentialsFailed, identity LocallyUnique, never runnable. It
// exists so operators can see why the package is not running.
func (r *Registry) RegisterCredentialsFailed(pkg string) ProcessID {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &Record{
		ID:           r.mintLocked(),
		Package:      pkg,
		ShortId:      shortid.LocallyUnique(),
		State:        StateCredentialsFailed,
		RegisteredAt: r.clk.Now(),
	}
	r.records[rec.ID] = rec
	return rec.ID
}

func (r *Registry) mintLocked() ProcessID {
	r.nextID++
	return r.nextID
}

// Lookup returns a copy of the record for id.
func (r *Registry) Lookup(id ProcessID) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// LookupShortId returns the live record holding the given fixed
// identity. LocallyUnique identities are not addressable by value and
// always miss.
func (r *Registry) LookupShortId(id shortid.ShortId) (Record, bool) {
	n, isFixed := id.IsFixed()
	if !isFixed {
		return Record{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.fixed[n]
	if !ok {
		return Record{}, false
	}
	return *r.records[pid], true
}

// Snapshot returns copies of all live records, ordered by handle.
func (r *Registry) Snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live records.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// UpdateState moves the process to next. The move must be permitted
// by the state table; ErrInvalidTransition is wrapped with both
// states.
func (r *Registry) UpdateState(id ProcessID, next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	if !rec.State.CanTransition(next) {
		return fmt.Errorf("%w: %s cannot move %s -> %s", ErrInvalidTransition, id, rec.State, next)
	}
	rec.State = next
	return nil
}

// IncrementRestart bumps the process's restart count and returns the
// new value. The fault path increments before consulting policy, so
// the policy sees the count including the fault being handled.
func (r *Registry) IncrementRestart(id ProcessID) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	rec.RestartCount++
	return rec.RestartCount, nil
}

// Unregister removes the record and frees its fixed identity for
// reuse by a future load.
func (r *Registry) Unregister(id ProcessID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	if n, isFixed := rec.ShortId.IsFixed(); isFixed {
		delete(r.fixed, n)
	}
	delete(r.records, id)
	return nil
}

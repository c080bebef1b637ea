// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package syscallfilter

import (
	"errors"
	"fmt"

	"github.com/warden-project/warden/lib/shortid"
)

// OperationKind classifies a syscall by what it asks of a driver.
type OperationKind int

const (
	// OpCommand invokes a driver operation.
	OpCommand OperationKind = iota

	// OpAllow shares a process memory region with a driver.
	OpAllow

	// OpSubscribe registers an upcall for a driver event.
	OpSubscribe
)

// String returns "command", "allow", or "subscribe".
func (k OperationKind) String() string {
	switch k {
	case OpCommand:
		return "command"
	case OpAllow:
		return "allow"
	case OpSubscribe:
		return "subscribe"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OperationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OperationKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOperationKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseOperationKind parses a lowercase operation name.
func ParseOperationKind(name string) (OperationKind, error) {
	switch name {
	case "command":
		return OpCommand, nil
	case "allow":
		return OpAllow, nil
	case "subscribe":
		return OpSubscribe, nil
	default:
		return 0, fmt.Errorf("syscallfilter: unknown operation %q", name)
	}
}

func (k OperationKind) valid() bool {
	return k == OpCommand || k == OpAllow || k == OpSubscribe
}

// Request is one syscall presented for filtering. Ephemeral: built by
// the dispatcher, consumed synchronously, never stored.
type Request struct {
	// Caller is the calling process's identity.
	Caller shortid.ShortId

	// Resource is the target driver number.
	Resource uint32

	// Op is the operation class.
	Op OperationKind
}

// Errors surfaced to the calling process.
var (
	// ErrNoDevice reports that the resource does not exist for this
	// caller. Deliberately identical for "denied by policy" and
	// "driver not present".
	ErrNoDevice = errors.New("syscallfilter: no such device")

	// ErrNoSupport reports an operation the dispatcher does not
	// recognize. Recoverable; does not affect the process lifecycle.
	ErrNoSupport = errors.New("syscallfilter: operation not supported")
)

// Policy approves or denies syscalls. Implementations must be
// immutable after construction and safe for concurrent use; a nil
// return approves the request.
type Policy interface {
	FilterSyscall(req Request) error
}

// AllowAll is the base policy: every request approved.
type AllowAll struct{}

// FilterSyscall implements Policy.
func (AllowAll) FilterSyscall(Request) error { return nil }

// Protected denies requests touching configured resources unless the
// caller holds a permitted fixed identity. Construct with
// NewProtected; the zero value approves everything.
type Protected struct {
	// resources maps a protected driver number to the set of fixed
	// identity values permitted to use it.
	resources map[uint32]map[uint32]struct{}
}

// NewProtected compiles rules into a filter policy. A rule must name
// at least one resource and one permitted identity, and every
// permitted identity must be Fixed: permitting LocallyUnique would
// admit every unverified process at once, which no sane rule wants.
func NewProtected(rules []Rule) (*Protected, error) {
	p := &Protected{resources: make(map[uint32]map[uint32]struct{})}
	for i, rule := range rules {
		if len(rule.Resources) == 0 {
			return nil, fmt.Errorf("syscallfilter: rule %s has no resources", rule.label(i))
		}
		if len(rule.Permitted) == 0 {
			return nil, fmt.Errorf("syscallfilter: rule %s permits nobody", rule.label(i))
		}
		for _, id := range rule.Permitted {
			n, fixed := id.IsFixed()
			if !fixed {
				return nil, fmt.Errorf("syscallfilter: rule %s permits a locally-unique identity", rule.label(i))
			}
			for _, resource := range rule.Resources {
				set, ok := p.resources[resource]
				if !ok {
					set = make(map[uint32]struct{})
					p.resources[resource] = set
				}
				set[n] = struct{}{}
			}
		}
	}
	return p, nil
}

// FilterSyscall implements Policy. Requests for unprotected resources
// pass regardless of caller; requests with an operation kind this
// build does not know fail with ErrNoSupport.
func (p *Protected) FilterSyscall(req Request) error {
	if !req.Op.valid() {
		return ErrNoSupport
	}
	permitted, protected := p.resources[req.Resource]
	if !protected {
		return nil
	}
	if n, fixed := req.Caller.IsFixed(); fixed {
		if _, ok := permitted[n]; ok {
			return nil
		}
	}
	return ErrNoDevice
}

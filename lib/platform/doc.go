// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform assembles the trust engine: admission, identity,
// registry, syscall filtering, and fault handling behind one surface.
//
// A [Platform] owns the admission loop (lib/loader) and the process
// registry (lib/registry), and consults the configured syscall filter
// (lib/syscallfilter) and fault policy (lib/faultpolicy) on the hot
// paths. Admitted images are archived to the app store
// (lib/appstore) and every trust decision is journaled
// (lib/eventlog) when those are attached.
//
// The division of labor on the two hot paths matters: FilterSyscall
// and HandleFault are synchronous and never wait on admission work,
// while LoadImage queues behind other admissions and may block on
// credential verification. Callers on a scheduling path use the
// former; the daemon's control surface uses the latter.
package platform

// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package loader runs the admission pipeline: parse an image's
// credential footers, verify them, assign an identity, and register
// the process.
//
// Admission is the one path in the engine that may suspend, because a
// digest engine can complete asynchronously. The loader serializes
// all of it through a single goroutine (Run) consuming a submission
// queue: one image in flight at a time, and within that image one
// pending verification at a time. Each image is driven through a
// small state machine — awaiting the next record, waiting on a
// pending verification, done — so a callback-completing hardware
// engine never blocks kernel time and never interleaves two images.
//
// Rejections are terminal for the submitted image only: a malformed
// footer or duplicate identity never registers a process, and failed
// credentials register a terminal record for diagnosis. Nothing the
// loader does can destabilize processes already admitted.
package loader

// Copyright 2020 The gVisor Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd.

// Package sync provides synchronization primitives for kernel code: aliases
// of the standard library types, and Cell, the exclusive-access cell that
// guards task, process and scheduler state on the kernel's single logical
// core.
package sync

import "sync"

// Aliases of the standard library types used by the kernel's host-side
// bookkeeping. Task, process and scheduler state uses Cell instead.
type (
	// Mutex is an alias of sync.Mutex.
	Mutex = sync.Mutex

	// Once is an alias of sync.Once.
	Once = sync.Once

	// WaitGroup is an alias of sync.WaitGroup.
	WaitGroup = sync.WaitGroup
)

// Copyright 2026 The gVisor Authors.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd.

package sync

import (
	"fmt"
	"sync/atomic"
)

// Cell holds a value that at most one logical holder may access at a time.
//
// Cell is not a lock. The kernel runs a single task at a time, so a Cell is
// never contended. A second Borrow while the value is held means that a code
// path re-entered itself or kept a guard across a task switch, and Borrow
// panics.
//
// The zero value is an unborrowed Cell holding the zero value of T.
type Cell[T any] struct {
	// name identifies the cell in panic messages. Immutable.
	name string

	borrowed atomic.Bool
	v        T
}

// Init sets the cell's name and value. It must be called before the cell is
// shared.
func (c *Cell[T]) Init(name string, v T) {
	c.name = name
	c.v = v
}

// Guard grants exclusive access to a Cell's value until Release is called.
type Guard[T any] struct {
	c        *Cell[T]
	released bool
}

// Borrow claims exclusive access to the cell's value.
//
// The returned guard must be released on every path, including early
// returns; callers normally write:
//
//	g := c.Borrow()
//	defer g.Release()
func (c *Cell[T]) Borrow() *Guard[T] {
	if !c.borrowed.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("sync: %s already borrowed", c.label()))
	}
	return &Guard[T]{c: c}
}

// Do runs fn with exclusive access to the cell's value. Access is released
// when fn returns or panics.
func (c *Cell[T]) Do(fn func(v *T)) {
	g := c.Borrow()
	defer g.Release()
	fn(g.Get())
}

// Borrowed reports whether the cell is currently held.
func (c *Cell[T]) Borrowed() bool {
	return c.borrowed.Load()
}

func (c *Cell[T]) label() string {
	if c.name == "" {
		return fmt.Sprintf("cell %T", c.v)
	}
	return c.name
}

// Get returns a pointer to the guarded value. The pointer must not be
// retained after Release.
func (g *Guard[T]) Get() *T {
	if g.released {
		panic(fmt.Sprintf("sync: %s used after release", g.c.label()))
	}
	return &g.c.v
}

// Release gives up exclusive access. Releasing a guard twice is a no-op, so
// that an explicit early Release may be followed by a deferred one.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	if !g.c.borrowed.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("sync: %s released while not borrowed", g.c.label()))
	}
}

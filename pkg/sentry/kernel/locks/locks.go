// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package locks implements the synchronization primitives that user programs
// reach through the mutex, semaphore and condvar syscalls.
//
// The kernel runs one task at a time, so primitive state is never touched
// concurrently: a primitive is only ever used by the running task. Blocking
// is expressed through Context, which the kernel's Task implements. Every
// wait list is FIFO.
package locks

import (
	"gvisor.dev/ukernel/pkg/ilist"
	"gvisor.dev/ukernel/pkg/metric"
)

// Context is the view of a task that the primitives need.
type Context interface {
	// Block marks the calling task Blocked and switches to the scheduler.
	// It returns once another task has called Wake on this task and the
	// scheduler has picked it again.
	Block()

	// Yield switches to the scheduler, leaving the calling task runnable.
	Yield()

	// Wake makes a task that is blocked in Block runnable again. It is
	// called by the task that releases the resource, never by the blocked
	// task itself.
	Wake()
}

var blocksMetric = metric.MustCreateNewUint64Metric("/sync/blocks", "Number of times a task blocked on a synchronization primitive.",
	metric.NewField("primitive", []string{"mutex", "semaphore", "condvar"}))

// waiter is an entry in a primitive's wait list.
type waiter struct {
	ilist.Entry[*waiter]
	ctx Context
}

// waitList is a FIFO list of blocked tasks.
type waitList struct {
	l ilist.List[*waiter]
}

// block enqueues ctx at the tail and blocks it. It returns after the task
// was woken.
func (wl *waitList) block(ctx Context, primitive string) {
	wl.l.PushBack(&waiter{ctx: ctx})
	blocksMetric.Increment(primitive)
	ctx.Block()
}

// wakeOne wakes the longest-waiting task. It returns false if nobody waits.
func (wl *waitList) wakeOne() bool {
	w, ok := wl.l.PopFront()
	if !ok {
		return false
	}
	w.ctx.Wake()
	return true
}

// len returns the number of waiters.
func (wl *waitList) len() int {
	return wl.l.Len()
}

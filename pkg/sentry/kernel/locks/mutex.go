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

package locks

import (
	"time"

	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/metric"
)

// MutexKind selects how a mutex waits.
type MutexKind int

const (
	// Spin mutexes yield and retry until the lock is free.
	Spin MutexKind = iota

	// Blocking mutexes queue their waiters and hand the lock over on
	// unlock.
	Blocking
)

// String implements fmt.Stringer.String.
func (k MutexKind) String() string {
	switch k {
	case Spin:
		return "spin"
	case Blocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// Mutex is a lock with a single unit.
type Mutex interface {
	// Lock acquires the mutex, waiting as long as necessary.
	Lock(ctx Context)

	// Unlock releases the mutex. It panics if the mutex is not locked.
	Unlock(ctx Context)

	// Kind returns the wait strategy of the mutex.
	Kind() MutexKind

	// Busy returns true if the mutex is locked or has waiters.
	Busy() bool
}

// NewMutex returns a new unlocked mutex of the given kind.
func NewMutex(kind MutexKind) Mutex {
	if kind == Blocking {
		return &MutexBlocking{}
	}
	return &MutexSpin{}
}

var spinYieldsMetric = metric.MustCreateNewUint64Metric("/sync/spin_yields", "Number of times a task yielded while spinning on a mutex.")

// spinLog reports spin contention at most once per second.
var spinLog = log.BasicRateLimitedLogger(time.Second)

// MutexSpin is a mutex whose waiters yield the processor and try again.
// There is no queue, so no order is guaranteed among spinning tasks.
type MutexSpin struct {
	locked bool
}

// Lock implements Mutex.Lock.
func (m *MutexSpin) Lock(ctx Context) {
	for m.locked {
		spinYieldsMetric.Increment()
		spinLog.Debugf("Task %v spinning on a held mutex", ctx)
		ctx.Yield()
	}
	m.locked = true
}

// Unlock implements Mutex.Unlock.
func (m *MutexSpin) Unlock(Context) {
	if !m.locked {
		panic("unlock of unlocked spin mutex")
	}
	m.locked = false
}

// Kind implements Mutex.Kind.
func (*MutexSpin) Kind() MutexKind {
	return Spin
}

// Busy implements Mutex.Busy.
func (m *MutexSpin) Busy() bool {
	return m.locked
}

// MutexBlocking is a mutex whose waiters block in FIFO order. Unlock hands
// the mutex directly to the longest waiter, so the mutex never appears free
// while somebody waits for it.
type MutexBlocking struct {
	locked  bool
	waiters waitList
}

// Lock implements Mutex.Lock.
func (m *MutexBlocking) Lock(ctx Context) {
	if !m.locked {
		m.locked = true
		return
	}
	// Ownership is transferred by Unlock before we are woken.
	m.waiters.block(ctx, "mutex")
}

// Unlock implements Mutex.Unlock.
func (m *MutexBlocking) Unlock(Context) {
	if !m.locked {
		panic("unlock of unlocked blocking mutex")
	}
	if !m.waiters.wakeOne() {
		m.locked = false
	}
}

// Kind implements Mutex.Kind.
func (*MutexBlocking) Kind() MutexKind {
	return Blocking
}

// Busy implements Mutex.Busy.
func (m *MutexBlocking) Busy() bool {
	return m.locked || m.waiters.len() > 0
}

// Waiters returns the number of tasks blocked on m.
func (m *MutexBlocking) Waiters() int {
	return m.waiters.len()
}

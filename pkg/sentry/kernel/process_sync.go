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

package kernel

import (
	"fmt"

	"github.com/mohae/deepcopy"
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/metric"
	"gvisor.dev/ukernel/pkg/sentry/kernel/deadlock"
	"gvisor.dev/ukernel/pkg/sentry/kernel/locks"
)

var deadlockRejectionsMetric = metric.MustCreateNewUint64Metric("/sync/deadlock_rejections", "Number of acquisitions refused by the deadlock detector.",
	metric.NewField("resource", []string{"mutex", "semaphore"}))

// ResourceUsage is a task's ledger of mutex and semaphore units. Every
// vector has one entry per slot of the corresponding process table.
//
// Need counts units the task is waiting for, Have units it holds. Semaphore
// Have may be negative for a task that released more units than it
// acquired.
type ResourceUsage struct {
	MutexNeed     []int
	MutexHave     []int
	SemaphoreNeed []int
	SemaphoreHave []int
}

func newResourceUsage(mutexes, semaphores int) *ResourceUsage {
	return &ResourceUsage{
		MutexNeed:     make([]int, mutexes),
		MutexHave:     make([]int, mutexes),
		SemaphoreNeed: make([]int, semaphores),
		SemaphoreHave: make([]int, semaphores),
	}
}

// resourceKind selects one half of the ledger.
type resourceKind int

const (
	mutexResource resourceKind = iota
	semaphoreResource
)

// String implements fmt.Stringer.String.
func (r resourceKind) String() string {
	if r == mutexResource {
		return "mutex"
	}
	return "semaphore"
}

// vectors returns the need and have vectors of kind r.
func (u *ResourceUsage) vectors(r resourceKind) (need, have []int) {
	if r == mutexResource {
		return u.MutexNeed, u.MutexHave
	}
	return u.SemaphoreNeed, u.SemaphoreHave
}

// avail returns the available-units vector of kind r.
func (pi *processInner) avail(r resourceKind) []int {
	if r == mutexResource {
		return pi.mutexAvail
	}
	return pi.semAvail
}

// usage returns the ledger of a task of this process, panicking if the task
// has exited.
func (pi *processInner) usage(t *Task, r resourceKind) (need, have []int) {
	if t.usage == nil {
		panic(fmt.Sprintf("task %v has no ledger", t))
	}
	need, have = t.usage.vectors(r)
	if n := len(pi.avail(r)); len(need) != n || len(have) != n {
		panic(fmt.Sprintf("task %v %v ledger has %d/%d entries, process has %d slots", t, r, len(need), len(have), n))
	}
	return need, have
}

// feasible reports whether the process can still finish if the requester's
// need vector already includes the pending request.
func (pi *processInner) feasible(r resourceKind) bool {
	claims := make([]*deadlock.Claim, len(pi.tasks))
	for i, t := range pi.tasks {
		if t == nil || t.usage == nil {
			continue
		}
		need, have := pi.usage(t, r)
		claims[i] = &deadlock.Claim{Need: need, Have: have}
	}
	_, ok := deadlock.Feasible(pi.avail(r), claims)
	return ok
}

// request records that t wants one unit of slot id and, if deadlock
// detection is enabled, checks that granting it eventually is safe. On
// rejection the ledger is left unchanged.
func (t *Task) requestLocked(pi *processInner, r resourceKind, id int) error {
	need, _ := pi.usage(t, r)
	need[id]++
	if pi.deadlockDetect && !pi.feasible(r) {
		need[id]--
		deadlockRejectionsMetric.Increment(r.String())
		t.Debugf("Refusing %v %d to avoid deadlock", r, id)
		return linuxerr.ErrDeadlockAvoided
	}
	return nil
}

// grantLocked moves one requested unit of slot id to t's holdings.
func (t *Task) grantLocked(pi *processInner, r resourceKind, id int) {
	need, have := pi.usage(t, r)
	need[id]--
	have[id]++
	pi.avail(r)[id]--
}

// releaseLocked returns one unit of slot id from t's holdings.
func (t *Task) releaseLocked(pi *processInner, r resourceKind, id int) {
	_, have := pi.usage(t, r)
	have[id]--
	pi.avail(r)[id]++
}

// releaseAllLocked releases every unit t holds, in the ledger and in the
// primitives, and retires its negative semaphore holdings.
//
// Preconditions: t is the running task.
func (t *Task) releaseAllLocked(pi *processInner) {
	if t.usage == nil {
		return
	}
	_, mhave := pi.usage(t, mutexResource)
	for id, n := range mhave {
		for ; n > 0; n-- {
			t.releaseLocked(pi, mutexResource, id)
			pi.mutexes[id].Unlock(t)
		}
	}
	_, shave := pi.usage(t, semaphoreResource)
	for id, n := range shave {
		switch {
		case n > 0:
			for ; n > 0; n-- {
				t.releaseLocked(pi, semaphoreResource, id)
				// A semaphore destroyed while held only has its
				// ledger entry to return.
				if s := pi.semaphores[id]; s != nil {
					s.Up(t)
				}
			}
		case n < 0:
			pi.semRetired[id] += n
			shave[id] = 0
		}
	}
}

// growLocked appends one zeroed entry of kind r to the ledger of every live
// task of the process.
func (pi *processInner) growLocked(r resourceKind) {
	for _, t := range pi.tasks {
		if t == nil || t.usage == nil {
			continue
		}
		switch r {
		case mutexResource:
			t.usage.MutexNeed = append(t.usage.MutexNeed, 0)
			t.usage.MutexHave = append(t.usage.MutexHave, 0)
		case semaphoreResource:
			t.usage.SemaphoreNeed = append(t.usage.SemaphoreNeed, 0)
			t.usage.SemaphoreHave = append(t.usage.SemaphoreHave, 0)
		}
	}
}

// resetLocked zeroes the ledger entries of slot id of kind r in every live
// task of the process.
func (pi *processInner) resetLocked(r resourceKind, id int) {
	for _, t := range pi.tasks {
		if t == nil || t.usage == nil {
			continue
		}
		need, have := t.usage.vectors(r)
		need[id] = 0
		have[id] = 0
	}
}

// freeSlot returns the index of the first nil entry of s, or len(s).
func freeSlot[T comparable](s []T) int {
	var zero T
	for i, v := range s {
		if v == zero {
			return i
		}
	}
	return len(s)
}

// MutexCreate creates a mutex and returns its handle.
func (t *Task) MutexCreate(kind locks.MutexKind) int {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	m := locks.NewMutex(kind)
	id := freeSlot(pi.mutexes)
	if id == len(pi.mutexes) {
		pi.mutexes = append(pi.mutexes, m)
		pi.mutexAvail = append(pi.mutexAvail, 1)
		pi.growLocked(mutexResource)
	} else {
		pi.mutexes[id] = m
		pi.mutexAvail[id] = 1
		pi.resetLocked(mutexResource, id)
	}
	return id
}

func (pi *processInner) mutex(id int) (locks.Mutex, error) {
	if id < 0 || id >= len(pi.mutexes) || pi.mutexes[id] == nil {
		return nil, linuxerr.EINVAL
	}
	return pi.mutexes[id], nil
}

// MutexLock acquires mutex id, blocking if it is held. With deadlock
// detection enabled it fails with linuxerr.ErrDeadlockAvoided instead of
// waiting when waiting could deadlock the process.
func (t *Task) MutexLock(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	m, err := pi.mutex(id)
	if err != nil {
		return err
	}
	if err := t.requestLocked(pi, mutexResource, id); err != nil {
		return err
	}
	g.Release()

	m.Lock(t)

	t.p.inner.Do(func(pi *processInner) {
		t.grantLocked(pi, mutexResource, id)
	})
	return nil
}

// MutexUnlock releases mutex id.
//
// Preconditions: t holds mutex id. Unlocking a mutex that t does not hold
// panics.
func (t *Task) MutexUnlock(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	m, err := pi.mutex(id)
	if err != nil {
		return err
	}
	if _, have := pi.usage(t, mutexResource); have[id] <= 0 {
		panic(fmt.Sprintf("task %v unlocked mutex %d which it does not hold", t, id))
	}
	t.releaseLocked(pi, mutexResource, id)
	m.Unlock(t)
	return nil
}

// MutexDestroy frees mutex id. It fails with EBUSY if the mutex is held or
// waited on.
func (t *Task) MutexDestroy(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	m, err := pi.mutex(id)
	if err != nil {
		return err
	}
	if m.Busy() {
		return linuxerr.EBUSY
	}
	pi.mutexes[id] = nil
	return nil
}

// SemaphoreCreate creates a semaphore with count units and returns its
// handle.
func (t *Task) SemaphoreCreate(count int) (int, error) {
	if count < 0 {
		return 0, linuxerr.EINVAL
	}
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	s := locks.NewSemaphore(count)
	id := freeSlot(pi.semaphores)
	if id == len(pi.semaphores) {
		pi.semaphores = append(pi.semaphores, s)
		pi.semAvail = append(pi.semAvail, count)
		pi.semCapacity = append(pi.semCapacity, count)
		pi.semRetired = append(pi.semRetired, 0)
		pi.growLocked(semaphoreResource)
	} else {
		pi.semaphores[id] = s
		pi.semAvail[id] = count
		pi.semCapacity[id] = count
		pi.semRetired[id] = 0
		pi.resetLocked(semaphoreResource, id)
	}
	return id, nil
}

func (pi *processInner) semaphore(id int) (*locks.Semaphore, error) {
	if id < 0 || id >= len(pi.semaphores) || pi.semaphores[id] == nil {
		return nil, linuxerr.EINVAL
	}
	return pi.semaphores[id], nil
}

// SemaphoreUp releases one unit of semaphore id. t need not have acquired
// a unit first.
func (t *Task) SemaphoreUp(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	s, err := pi.semaphore(id)
	if err != nil {
		return err
	}
	t.releaseLocked(pi, semaphoreResource, id)
	s.Up(t)
	return nil
}

// SemaphoreDown acquires one unit of semaphore id, blocking until one is
// available. With deadlock detection enabled it fails with
// linuxerr.ErrDeadlockAvoided instead of waiting when waiting could
// deadlock the process.
func (t *Task) SemaphoreDown(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	s, err := pi.semaphore(id)
	if err != nil {
		return err
	}
	if err := t.requestLocked(pi, semaphoreResource, id); err != nil {
		return err
	}
	g.Release()

	s.Down(t)

	t.p.inner.Do(func(pi *processInner) {
		t.grantLocked(pi, semaphoreResource, id)
	})
	return nil
}

// SemaphoreDestroy frees semaphore id. It fails with EBUSY if tasks wait on
// it.
func (t *Task) SemaphoreDestroy(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	s, err := pi.semaphore(id)
	if err != nil {
		return err
	}
	if s.Busy() {
		return linuxerr.EBUSY
	}
	pi.semaphores[id] = nil
	return nil
}

// CondvarCreate creates a condition variable and returns its handle.
func (t *Task) CondvarCreate() int {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	c := locks.NewCondvar()
	id := freeSlot(pi.condvars)
	if id == len(pi.condvars) {
		pi.condvars = append(pi.condvars, c)
	} else {
		pi.condvars[id] = c
	}
	return id
}

func (pi *processInner) condvar(id int) (*locks.Condvar, error) {
	if id < 0 || id >= len(pi.condvars) || pi.condvars[id] == nil {
		return nil, linuxerr.EINVAL
	}
	return pi.condvars[id], nil
}

// CondvarSignal wakes the longest waiter of condvar id, if any.
func (t *Task) CondvarSignal(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	c, err := g.Get().condvar(id)
	if err != nil {
		return err
	}
	c.Signal(t)
	return nil
}

// CondvarWait releases mutex mid and blocks on condvar id until signalled.
// The mutex is not re-acquired on wakeup.
//
// Preconditions: t holds mutex mid.
func (t *Task) CondvarWait(id, mid int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	c, err := pi.condvar(id)
	if err != nil {
		return err
	}
	m, err := pi.mutex(mid)
	if err != nil {
		return err
	}
	if _, have := pi.usage(t, mutexResource); have[mid] <= 0 {
		panic(fmt.Sprintf("task %v waited on condvar %d without holding mutex %d", t, id, mid))
	}
	t.releaseLocked(pi, mutexResource, mid)
	g.Release()

	c.Wait(t, m)
	return nil
}

// CondvarDestroy frees condvar id. It fails with EBUSY if tasks wait on it.
func (t *Task) CondvarDestroy(id int) error {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	c, err := pi.condvar(id)
	if err != nil {
		return err
	}
	if c.Busy() {
		return linuxerr.EBUSY
	}
	pi.condvars[id] = nil
	return nil
}

// EnableDeadlockDetect turns deadlock detection for t's process on (1) or
// off (0). Other values fail with EINVAL.
func (t *Task) EnableDeadlockDetect(v int) error {
	if v != 0 && v != 1 {
		return linuxerr.EINVAL
	}
	t.p.inner.Do(func(pi *processInner) {
		pi.deadlockDetect = v == 1
	})
	return nil
}

// DeadlockDetect reports whether deadlock detection is enabled.
func (p *Process) DeadlockDetect() bool {
	g := p.inner.Borrow()
	defer g.Release()
	return g.Get().deadlockDetect
}

// Usage returns a copy of t's ledger, or nil if t has exited.
func (t *Task) Usage() *ResourceUsage {
	g := t.p.inner.Borrow()
	defer g.Release()
	if t.usage == nil {
		return nil
	}
	return t.usage.clone()
}

func (u *ResourceUsage) clone() *ResourceUsage {
	return deepcopy.Copy(u).(*ResourceUsage)
}

// SyncStatus is the available-units state of a process's mutexes and
// semaphores.
type SyncStatus struct {
	MutexAvail        []int
	SemaphoreAvail    []int
	SemaphoreCapacity []int
	SemaphoreRetired  []int
}

// SyncStatus returns a copy of the process's available-units vectors.
func (p *Process) SyncStatus() SyncStatus {
	g := p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	return SyncStatus{
		MutexAvail:        append([]int(nil), pi.mutexAvail...),
		SemaphoreAvail:    append([]int(nil), pi.semAvail...),
		SemaphoreCapacity: append([]int(nil), pi.semCapacity...),
		SemaphoreRetired:  append([]int(nil), pi.semRetired...),
	}
}

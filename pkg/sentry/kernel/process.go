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
	"runtime"

	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/sentry/kernel/locks"
	"gvisor.dev/ukernel/pkg/sentry/mm"
	"gvisor.dev/ukernel/pkg/sync"
)

// AnyChild is the pid argument of Waitpid that matches every child.
const AnyChild = -1

// Process is an address space, an image, a set of tasks and the
// synchronization objects those tasks share.
type Process struct {
	// k is the owning kernel. Immutable.
	k *Kernel

	// pid is the process ID. Immutable.
	pid int32

	inner sync.Cell[processInner]
}

// processInner is the mutable state of a process.
type processInner struct {
	parent   *Process
	children []*Process

	// tasks is indexed by tid. A slot is nil once its task is reaped, and
	// is reused by the next thread_create.
	tasks []*Task

	image *Image
	as    *mm.AddressSpace

	zombie   bool
	exitCode int32

	// deadlockDetect enables the deadlock check on mutex and semaphore
	// acquisition.
	deadlockDetect bool

	// Synchronization objects, indexed by handle. A nil entry is a free
	// slot.
	mutexes    []locks.Mutex
	semaphores []*locks.Semaphore
	condvars   []*locks.Condvar

	// mutexAvail and semAvail are the units available per slot.
	mutexAvail []int
	semAvail   []int

	// semCapacity is the initial count of each semaphore.
	semCapacity []int

	// semRetired accumulates the negative semaphore holdings of exited
	// tasks, so that for every semaphore slot
	// semAvail + sum(have) + semRetired == semCapacity.
	semRetired []int
}

// PID returns the process ID.
func (p *Process) PID() int32 {
	return p.pid
}

// String implements fmt.Stringer.String.
func (p *Process) String() string {
	return fmt.Sprintf("process %d", p.pid)
}

// AddressSpace returns the process's current address space.
func (p *Process) AddressSpace() *mm.AddressSpace {
	g := p.inner.Borrow()
	defer g.Release()
	return g.Get().as
}

// Image returns the process's current image.
func (p *Process) Image() *Image {
	g := p.inner.Borrow()
	defer g.Release()
	return g.Get().image
}

// Parent returns the parent process, or nil for init and orphans of init.
func (p *Process) Parent() *Process {
	g := p.inner.Borrow()
	defer g.Release()
	return g.Get().parent
}

// Exited returns the exit code and true if the process has exited.
func (p *Process) Exited() (int32, bool) {
	g := p.inner.Borrow()
	defer g.Release()
	return g.Get().exitCode, g.Get().zombie
}

// MainTask returns the task with tid 0, or nil once it is reaped.
func (p *Process) MainTask() *Task {
	g := p.inner.Borrow()
	defer g.Release()
	if len(g.Get().tasks) == 0 {
		return nil
	}
	return g.Get().tasks[0]
}

// liveTasks returns the non-nil task slots.
func (p *Process) liveTasks() []*Task {
	g := p.inner.Borrow()
	defer g.Release()
	var ts []*Task
	for _, t := range g.Get().tasks {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return ts
}

// CreateProcess creates a process running img, as a child of parent. The
// first process created becomes init; parent must be nil exactly then.
func (k *Kernel) CreateProcess(parent *Process, img *Image) (*Process, error) {
	if len(img.Entries) == 0 {
		return nil, linuxerr.ENOEXEC
	}
	return k.newProcess(parent, img, mm.NewAddressSpace(), img.Entries[0])
}

// Spawn creates a child of t's process from the image named name.
func (t *Task) Spawn(name string) (*Process, error) {
	img, err := t.k.loader.Load(name)
	if err != nil {
		return nil, err
	}
	return t.k.CreateProcess(t.p, img)
}

// Fork creates a child of t's process with a copy of its address space and
// image. The child's main task starts at image entry entry with argument 0.
// Synchronization objects are not inherited.
func (t *Task) Fork(entry int) (*Process, error) {
	g := t.p.inner.Borrow()
	pi := g.Get()
	img := pi.image
	if entry < 0 || entry >= len(img.Entries) {
		g.Release()
		return nil, linuxerr.EINVAL
	}
	as := pi.as.Fork()
	g.Release()
	return t.k.newProcess(t.p, img, as, img.Entries[entry])
}

func (k *Kernel) newProcess(parent *Process, img *Image, as *mm.AddressSpace, entry EntryFunc) (*Process, error) {
	k.mu.Lock()
	if (parent == nil) != (k.init == nil) {
		k.mu.Unlock()
		return nil, linuxerr.EINVAL
	}
	p := &Process{
		k:   k,
		pid: k.nextPID,
	}
	k.nextPID++
	k.processes[p.pid] = p
	if k.init == nil {
		k.init = p
	}
	k.mu.Unlock()

	p.inner.Init(fmt.Sprintf("process %d", p.pid), processInner{
		parent: parent,
		image:  img,
		as:     as,
	})
	if parent != nil {
		parent.inner.Do(func(pi *processInner) {
			pi.children = append(pi.children, p)
		})
	}
	g := p.inner.Borrow()
	t := p.newTaskLocked(g.Get(), entry, 0)
	g.Release()
	t.start()
	return p, nil
}

// newTaskLocked creates a Ready task in the first free slot of pi and queues
// it. The caller starts the task goroutine after releasing p.inner.
//
// Preconditions: p.inner is borrowed and pi is its value.
func (p *Process) newTaskLocked(pi *processInner, entry EntryFunc, arg uintptr) *Task {
	tid := len(pi.tasks)
	for i, t := range pi.tasks {
		if t == nil {
			tid = i
			break
		}
	}
	t := &Task{
		k:      p.k,
		p:      p,
		tid:    int32(tid),
		entry:  entry,
		arg:    arg,
		permit: make(chan struct{}),
		killed: make(chan struct{}),
		usage:  newResourceUsage(len(pi.mutexes), len(pi.semaphores)),
	}
	t.inner.Init(fmt.Sprintf("task %d/%d", p.pid, tid), taskInner{
		status:   TaskReady,
		priority: p.k.cfg.DefaultPriority,
	})
	if tid == len(pi.tasks) {
		pi.tasks = append(pi.tasks, t)
	} else {
		pi.tasks[tid] = t
	}
	pi.as.EnsureScratch(t.tid)
	p.k.live.Add(1)
	p.k.enqueue(t)
	return t
}

// ThreadCreate creates a task in t's process that runs the image entry entry
// with argument arg, and returns its tid.
func (t *Task) ThreadCreate(entry int, arg uintptr) (int32, error) {
	g := t.p.inner.Borrow()
	pi := g.Get()
	if entry < 0 || entry >= len(pi.image.Entries) {
		g.Release()
		return 0, linuxerr.EINVAL
	}
	nt := t.p.newTaskLocked(pi, pi.image.Entries[entry], arg)
	g.Release()
	nt.start()
	return nt.tid, nil
}

// Waittid reaps the task tid of t's process and returns its exit code. It
// fails with EINVAL if tid names t itself or no task, and with
// linuxerr.ErrStillRunning if the task has not exited.
func (t *Task) Waittid(tid int32) (int32, error) {
	g := t.p.inner.Borrow()
	defer g.Release()
	pi := g.Get()
	if tid == t.tid || tid < 0 || int(tid) >= len(pi.tasks) || pi.tasks[tid] == nil {
		return 0, linuxerr.EINVAL
	}
	target := pi.tasks[tid]
	if target.Status() != TaskZombie {
		return 0, linuxerr.ErrStillRunning
	}
	pi.tasks[tid] = nil
	return target.exitCode, nil
}

// Waitpid reaps an exited child of t's process. pid selects the child, or
// every child if it is AnyChild. It returns the child's pid and exit code.
// It fails with ECHILD if no child matches, and with
// linuxerr.ErrStillRunning if no matching child has exited yet.
func (t *Task) Waitpid(pid int32) (int32, int32, error) {
	g := t.p.inner.Borrow()
	pi := g.Get()
	found := false
	for i, c := range pi.children {
		if pid != AnyChild && c.pid != pid {
			continue
		}
		found = true
		code, zombie := c.Exited()
		if !zombie {
			continue
		}
		pi.children = append(pi.children[:i], pi.children[i+1:]...)
		g.Release()

		t.k.mu.Lock()
		delete(t.k.processes, c.pid)
		t.k.mu.Unlock()
		return c.pid, code, nil
	}
	g.Release()
	if !found {
		return 0, 0, linuxerr.ECHILD
	}
	return 0, 0, linuxerr.ErrStillRunning
}

// Exec replaces the image of t's process with the image named name and
// restarts t at the new image's main entry with a fresh address space.
// Synchronization objects are kept. On success Exec does not return.
//
// Exec fails with EBUSY if other tasks of the process are still alive.
func (t *Task) Exec(name string) error {
	img, err := t.k.loader.Load(name)
	if err != nil {
		return err
	}
	if len(img.Entries) == 0 {
		return linuxerr.ENOEXEC
	}
	g := t.p.inner.Borrow()
	pi := g.Get()
	for _, other := range pi.tasks {
		if other != nil && other != t && other.Status() != TaskZombie {
			g.Release()
			return linuxerr.EBUSY
		}
	}
	pi.image = img
	pi.as = mm.NewAddressSpace()
	pi.as.EnsureScratch(t.tid)
	g.Release()

	t.Debugf("Exec %q", name)
	t.entry = img.Entries[0]
	t.arg = 0
	panic(execRestart{})
}

// Exit ends t with the given exit code. Units of mutexes and semaphores that
// t holds are released. If t is the main task, every other task of the
// process is torn down, the process's children are re-parented to init and
// the process becomes a zombie. Exit does not return.
//
// Preconditions: t is the running task.
func (t *Task) Exit(code int32) {
	t.Debugf("Exit(%d)", code)
	g := t.p.inner.Borrow()
	pi := g.Get()
	t.exitCode = code
	t.releaseAllLocked(pi)
	t.usage = nil

	var orphans []*Process
	if t.tid == 0 {
		for _, other := range pi.tasks {
			if other != nil && other != t {
				other.usage = nil
				other.kill()
			}
		}
		orphans = pi.children
		pi.children = nil
		pi.zombie = true
		pi.exitCode = code
	}
	g.Release()

	t.setStatus(TaskZombie)
	t.k.live.Add(-1)
	if len(orphans) > 0 {
		t.k.reparent(t.p, orphans)
	}
	runtime.Goexit()
}

// reparent moves orphans of the exiting process p to init. Orphans of init
// itself are left without a parent.
func (k *Kernel) reparent(p *Process, orphans []*Process) {
	k.mu.Lock()
	reaper := k.init
	k.mu.Unlock()
	if reaper == p {
		reaper = nil
	}
	for _, c := range orphans {
		c.inner.Do(func(ci *processInner) {
			ci.parent = reaper
		})
	}
	if reaper != nil {
		reaper.inner.Do(func(ii *processInner) {
			ii.children = append(ii.children, orphans...)
		})
	}
}

// Process returns the process with the given pid, or nil.
func (k *Kernel) Process(pid int32) *Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.processes[pid]
}

// Init returns the init process, or nil if no process was created.
func (k *Kernel) Init() *Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.init
}

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
	"time"

	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/sentry/kernel/locks"
	"gvisor.dev/ukernel/pkg/sentry/ktime"
	"gvisor.dev/ukernel/pkg/sync"
)

// TaskStatus is the scheduling state of a task.
type TaskStatus uint32

// Task statuses. The values are those reported by task_info.
const (
	TaskReady   TaskStatus = linux.TaskReady
	TaskRunning TaskStatus = linux.TaskRunning
	TaskBlocked TaskStatus = linux.TaskBlocked
	TaskZombie  TaskStatus = linux.TaskZombie
)

// String implements fmt.Stringer.String.
func (s TaskStatus) String() string {
	switch s {
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskBlocked:
		return "Blocked"
	case TaskZombie:
		return "Zombie"
	default:
		return fmt.Sprintf("TaskStatus(%d)", uint32(s))
	}
}

// Task is a thread of execution in a process.
//
// Each task runs on its own goroutine, but the kernel only lets one task
// goroutine run at a time: a task runs while it holds the processor's
// permit and gives it back by yielding, blocking, sleeping or exiting.
type Task struct {
	// k is the owning kernel. Immutable.
	k *Kernel

	// p is the owning process. Immutable.
	p *Process

	// tid is the task's index in p's task table. Immutable.
	tid int32

	// entry and arg are the code the task goroutine runs. They change only
	// on exec, on the task goroutine.
	entry EntryFunc
	arg   uintptr

	// permit receives a value each time the processor dispatches the task.
	permit chan struct{}

	// killed is closed when the task is torn down without running its own
	// exit path.
	killed chan struct{}

	// killedExit is set by the task goroutine when it leaves through killed
	// or the kernel's dying channel. Task goroutine only.
	killedExit bool

	// usage is the task's resource usage ledger. It is nil once the task
	// has exited. Protected by p.inner.
	usage *ResourceUsage

	// exitCode is the argument of exit. Protected by p.inner.
	exitCode int32

	inner sync.Cell[taskInner]
}

// taskInner is the part of a task that the scheduler and other tasks touch.
type taskInner struct {
	status   TaskStatus
	stride   uint64
	priority int64

	// queued is true while the task is in the ready queue.
	queued bool

	// firstRun is the time the task was first dispatched. started is false
	// before that.
	firstRun ktime.Time
	started  bool

	// syscallTimes counts calls per syscall number for task_info.
	syscallTimes [linux.MaxSyscallNum]uint32
}

// Kernel returns the task's kernel.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// Process returns the task's process.
func (t *Task) Process() *Process {
	return t.p
}

// ThreadID returns the task's tid.
func (t *Task) ThreadID() int32 {
	return t.tid
}

// String implements fmt.Stringer.String.
func (t *Task) String() string {
	return fmt.Sprintf("%d/%d", t.p.pid, t.tid)
}

// Status returns the task's scheduling state.
func (t *Task) Status() TaskStatus {
	g := t.inner.Borrow()
	defer g.Release()
	return g.Get().status
}

func (t *Task) setStatus(s TaskStatus) {
	t.inner.Do(func(ti *taskInner) {
		ti.status = s
	})
}

// Priority returns the task's scheduling priority.
func (t *Task) Priority() int64 {
	g := t.inner.Borrow()
	defer g.Release()
	return g.Get().priority
}

// SetPriority sets the task's scheduling priority. Priorities below 2 fail
// with EINVAL.
func (t *Task) SetPriority(prio int64) error {
	if prio <= 1 {
		return linuxerr.EINVAL
	}
	t.inner.Do(func(ti *taskInner) {
		ti.priority = prio
	})
	return nil
}

// logID identifies t in log output.
func (t *Task) logID() log.TaskID {
	return log.TaskID{PID: t.p.pid, TID: t.tid}
}

// Debugf logs a debug message about t.
func (t *Task) Debugf(format string, v ...any) {
	log.Log().TaskfAtDepth(1, log.Debug, t.logID(), format, v...)
}

// Infof logs an info message about t.
func (t *Task) Infof(format string, v ...any) {
	log.Log().TaskfAtDepth(1, log.Info, t.logID(), format, v...)
}

// Warningf logs a warning about t.
func (t *Task) Warningf(format string, v ...any) {
	log.Log().TaskfAtDepth(1, log.Warning, t.logID(), format, v...)
}

var _ locks.Context = (*Task)(nil)

// Yield implements locks.Context.Yield. The task stays runnable and goes
// back to the ready queue.
//
// Preconditions: t is the running task.
func (t *Task) Yield() {
	t.setStatus(TaskReady)
	t.k.enqueue(t)
	t.switchOut()
}

// Block implements locks.Context.Block. It returns once another task (or an
// expiring timer) has woken t and the scheduler has dispatched it again.
//
// Preconditions: t is the running task, and something will call t.Wake.
func (t *Task) Block() {
	t.setStatus(TaskBlocked)
	t.switchOut()
}

// Wake implements locks.Context.Wake. It makes a blocked task runnable. It
// does nothing if t is already runnable or has exited.
func (t *Task) Wake() {
	var wake bool
	t.inner.Do(func(ti *taskInner) {
		if ti.status != TaskBlocked {
			return
		}
		ti.status = TaskReady
		wake = true
	})
	if wake {
		t.k.enqueue(t)
	}
}

// Sleep blocks the task for at least d. The task becomes runnable once the
// kernel clock has passed its expiry.
//
// Preconditions: t is the running task.
func (t *Task) Sleep(d time.Duration) {
	if d <= 0 {
		t.Yield()
		return
	}
	t.k.addTimer(t.k.clock.Now().Add(d), t)
	t.Block()
}

// switchOut hands the processor back to the kernel and waits to be
// dispatched again.
func (t *Task) switchOut() {
	if t.p.inner.Borrowed() {
		panic(fmt.Sprintf("task %v switched out while %v state is borrowed", t, t.p))
	}
	t.k.switchCh <- switchEvent{t: t}
	t.waitPermit()
}

// kill tears down a task that is not running. Its goroutine exits without
// running the exit path, and its resources are not released.
//
// Preconditions: the owning process is exiting.
func (t *Task) kill() bool {
	var killed bool
	t.inner.Do(func(ti *taskInner) {
		if ti.status == TaskZombie {
			return
		}
		ti.status = TaskZombie
		killed = true
	})
	if killed {
		t.k.live.Add(-1)
		close(t.killed)
	}
	return killed
}

// elapsed returns the time since the task was first dispatched.
func (t *Task) elapsed() time.Duration {
	g := t.inner.Borrow()
	defer g.Release()
	if !g.Get().started {
		return 0
	}
	return t.k.clock.Now().Sub(g.Get().firstRun)
}

// TaskInfo returns the task_info record of t.
func (t *Task) TaskInfo() linux.TaskInfo {
	d := t.elapsed()
	g := t.inner.Borrow()
	defer g.Release()
	ti := g.Get()
	return linux.TaskInfo{
		Status:       uint32(ti.status),
		SyscallTimes: ti.syscallTimes,
		TimeMS:       uint64(d.Milliseconds()),
	}
}

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

// Package kernel provides an emulation of a small teaching kernel: processes,
// tasks, a stride scheduler and the synchronization objects that tasks share.
//
// The kernel runs on a single logical processor. Kernel.Run is the processor:
// it repeatedly fetches a task from the ready queue and lets that task's
// goroutine run until it yields, blocks, sleeps or exits. Only one task
// goroutine runs at a time, so kernel state is never accessed concurrently;
// sync.Cell documents and checks which component owns which state.
//
// Lock order:
//
//	Process.inner (parent before child)
//		Task.inner
//		Kernel.sched
//			Task.inner
//
// Kernel.mu protects the process table and is never held across a call into
// another component.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/metric"
	"gvisor.dev/ukernel/pkg/sentry/ktime"
	"gvisor.dev/ukernel/pkg/sync"
)

const (
	// DefaultVirtualQuantum is the time charged to each dispatch when the
	// kernel runs on a synthetic clock.
	DefaultVirtualQuantum = time.Millisecond

	// DefaultIdlePoll is the polling period of an idle processor on the
	// monotonic clock.
	DefaultIdlePoll = time.Millisecond
)

// ErrStalled is returned by Run when live tasks remain but none can ever run
// again: every one is blocked and no timer is pending.
var ErrStalled = errors.New("all live tasks are blocked")

var idleWaitsMetric = metric.MustCreateNewUint64Metric("/sched/idle_waits", "Number of times the processor waited for a timer with no runnable task.")

// Config configures a Kernel.
type Config struct {
	// BigStride is the stride numerator. Zero selects DefaultBigStride.
	BigStride uint64

	// DefaultPriority is the priority of new tasks. Zero selects
	// DefaultPriority.
	DefaultPriority int64

	// Clock is the kernel clock. If nil, the kernel uses a synthetic clock
	// that starts at zero and advances by VirtualQuantum per dispatch, and
	// jumps to the next timer when idle.
	Clock ktime.Clock

	// VirtualQuantum is the synthetic clock advance per dispatch. Zero
	// selects DefaultVirtualQuantum. Ignored when Clock is set.
	VirtualQuantum time.Duration

	// IdlePoll is the idle polling period on a real clock. Zero selects
	// DefaultIdlePoll.
	IdlePoll time.Duration

	// Loader resolves image names for spawn and exec. If nil, only images
	// passed to Kernel.CreateProcess can run.
	Loader *Loader

	// Syscalls is the syscall table. If nil, the first registered table is
	// used.
	Syscalls *SyscallTable
}

// Kernel is a single-processor kernel instance.
type Kernel struct {
	cfg Config

	// clock is the kernel clock. Immutable.
	clock ktime.Clock

	// synthetic is clock if the kernel uses a synthetic clock, else nil.
	// Immutable.
	synthetic *ktime.SyntheticClock

	// loader resolves image names. Immutable.
	loader *Loader

	// syscalls is the syscall table. Immutable.
	syscalls *SyscallTable

	// sched is the ready queue.
	sched sync.Cell[*TaskManager]

	// timers holds sleeping tasks. It is only accessed by the running task
	// or by the processor between dispatches.
	timers *ktime.TimerQueue[*Task]

	// switchCh carries control from the running task back to the processor.
	switchCh chan switchEvent

	// dying is closed by Shutdown.
	dying    chan struct{}
	dyingOne sync.Once

	// goroutines counts live task goroutines.
	goroutines sync.WaitGroup

	// live is the number of tasks that have not exited.
	live atomic.Int64

	mu sync.Mutex

	// processes maps pid to process until the process is reaped. Protected
	// by mu.
	processes map[int32]*Process

	// nextPID is the next pid to allocate. Protected by mu.
	nextPID int32

	// init is the first process created. Orphans are re-parented to it.
	// Protected by mu.
	init *Process
}

// New returns a kernel with no processes.
func New(cfg Config) *Kernel {
	if cfg.DefaultPriority == 0 {
		cfg.DefaultPriority = DefaultPriority
	}
	if cfg.VirtualQuantum == 0 {
		cfg.VirtualQuantum = DefaultVirtualQuantum
	}
	if cfg.IdlePoll == 0 {
		cfg.IdlePoll = DefaultIdlePoll
	}
	k := &Kernel{
		cfg:       cfg,
		clock:     cfg.Clock,
		loader:    cfg.Loader,
		syscalls:  cfg.Syscalls,
		timers:    ktime.NewTimerQueue[*Task](),
		switchCh:  make(chan switchEvent),
		dying:     make(chan struct{}),
		processes: make(map[int32]*Process),
	}
	if k.clock == nil {
		k.synthetic = &ktime.SyntheticClock{}
		k.clock = k.synthetic
	}
	if k.loader == nil {
		k.loader = NewLoader()
	}
	if k.syscalls == nil {
		k.syscalls = defaultSyscallTable()
	}
	k.sched.Init("ready queue", NewTaskManager(cfg.BigStride))
	return k
}

// Clock returns the kernel clock.
func (k *Kernel) Clock() ktime.Clock {
	return k.clock
}

// Loader returns the kernel's image loader.
func (k *Kernel) Loader() *Loader {
	return k.loader
}

// Syscalls returns the kernel's syscall table.
func (k *Kernel) Syscalls() *SyscallTable {
	return k.syscalls
}

// LiveTasks returns the number of tasks that have not exited.
func (k *Kernel) LiveTasks() int {
	return int(k.live.Load())
}

// enqueue adds t to the ready queue.
func (k *Kernel) enqueue(t *Task) {
	k.sched.Do(func(tm **TaskManager) {
		(*tm).Add(t)
	})
}

func (k *Kernel) fetch() *Task {
	g := k.sched.Borrow()
	defer g.Release()
	return (*g.Get()).Fetch()
}

// addTimer arranges for t to be woken at when.
func (k *Kernel) addTimer(when ktime.Time, t *Task) {
	k.timers.Add(when, t)
}

// fireTimers wakes every task whose timer has expired.
func (k *Kernel) fireTimers() {
	for _, t := range k.timers.Expire(k.clock.Now()) {
		t.Wake()
	}
}

// Run runs tasks until none is left alive, ctx is cancelled or every live
// task is blocked with no timer pending. It returns nil when every task has
// exited, and an error wrapping ErrStalled in the last case.
//
// If a task panics, Run shuts the kernel down and panics with a *TaskPanic.
//
// Run must not be called concurrently with itself.
func (k *Kernel) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		k.fireTimers()
		t := k.fetch()
		if t == nil {
			if k.live.Load() == 0 {
				return nil
			}
			next, ok := k.timers.Next()
			if !ok {
				return fmt.Errorf("%w: %s", ErrStalled, strings.Join(k.blockedTasks(), ", "))
			}
			if err := k.idle(ctx, next); err != nil {
				return err
			}
			continue
		}
		k.dispatch(t)
	}
}

// dispatch runs t until it gives the processor back.
func (k *Kernel) dispatch(t *Task) {
	if k.synthetic != nil {
		k.synthetic.Add(k.cfg.VirtualQuantum)
	}
	now := k.clock.Now()
	t.inner.Do(func(ti *taskInner) {
		ti.status = TaskRunning
		if !ti.started {
			ti.started = true
			ti.firstRun = now
		}
	})
	t.permit <- struct{}{}
	ev := <-k.switchCh
	if ev.panic != nil {
		log.Warningf("Task %s panicked, shutting down: %v", ev.panic.Task, ev.panic.Value)
		k.Shutdown()
		panic(ev.panic)
	}
}

// idle waits until the clock reaches next.
func (k *Kernel) idle(ctx context.Context, next ktime.Time) error {
	idleWaitsMetric.Increment()
	if k.synthetic != nil {
		if k.synthetic.Now().Before(next) {
			k.synthetic.Store(next)
		}
		return nil
	}
	log.Debugf("Processor idle until %v", next)
	err := backoff.Retry(func() error {
		if k.clock.Now().Before(next) {
			return errNotYet
		}
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(k.cfg.IdlePoll), ctx))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

var errNotYet = errors.New("timer has not expired")

// blockedTasks returns the tasks that are blocked, in pid/tid order.
func (k *Kernel) blockedTasks() []string {
	var names []string
	for _, p := range k.sortedProcesses() {
		for _, t := range p.liveTasks() {
			if t.Status() == TaskBlocked {
				names = append(names, t.String())
			}
		}
	}
	return names
}

// sortedProcesses returns the processes in pid order.
func (k *Kernel) sortedProcesses() []*Process {
	k.mu.Lock()
	ps := make([]*Process, 0, len(k.processes))
	for _, p := range k.processes {
		ps = append(ps, p)
	}
	k.mu.Unlock()
	sort.Slice(ps, func(i, j int) bool { return ps[i].pid < ps[j].pid })
	return ps
}

// Shutdown tears down every remaining task goroutine and waits for them to
// exit. It is safe to call more than once.
//
// Preconditions: Run is not dispatching a task.
func (k *Kernel) Shutdown() {
	k.dyingOne.Do(func() {
		close(k.dying)
	})
	k.goroutines.Wait()
}

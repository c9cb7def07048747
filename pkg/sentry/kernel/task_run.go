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
	"runtime/debug"
)

// TaskPanic is the value the kernel re-panics with when a task goroutine
// panics.
type TaskPanic struct {
	// Task is the task that panicked, as "pid/tid".
	Task string

	// Value is the value passed to panic.
	Value any

	// Stack is the task goroutine's stack at the panic.
	Stack []byte
}

// Error implements error.Error.
func (p *TaskPanic) Error() string {
	return fmt.Sprintf("task %s panicked: %v\n\n%s", p.Task, p.Value, p.Stack)
}

// Unwrap returns the panic value if it is an error.
func (p *TaskPanic) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// execRestart is panicked by exec to unwind the task goroutine back to
// runEntry, which restarts it at the new entry.
type execRestart struct{}

// switchEvent is sent by a task goroutine when it gives the processor back.
type switchEvent struct {
	t *Task

	// panic is set if the task goroutine panicked.
	panic *TaskPanic
}

// start launches the task goroutine. The goroutine waits for its first
// permit before running any user code.
func (t *Task) start() {
	t.k.goroutines.Add(1)
	go t.run() // S/R-SAFE: the kernel is not saved.
}

// run is the task goroutine.
func (t *Task) run() {
	defer t.k.goroutines.Done()
	defer func() {
		if t.killedExit {
			return
		}
		ev := switchEvent{t: t}
		if r := recover(); r != nil {
			tp, ok := r.(*TaskPanic)
			if !ok {
				tp = &TaskPanic{Task: t.String(), Value: r, Stack: debug.Stack()}
			}
			ev.panic = tp
		}
		t.k.switchCh <- ev
	}()

	t.waitPermit()
	code := t.runEntry()
	t.Exit(code)
}

// runEntry runs the task's entry until it returns, restarting it whenever
// exec replaces the image.
func (t *Task) runEntry() int32 {
	for {
		code, restarted := t.runOnce()
		if !restarted {
			return code
		}
		t.Debugf("Restarting at new image entry")
	}
}

func (t *Task) runOnce() (code int32, restarted bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(execRestart); ok {
			restarted = true
			return
		}
		// Capture the stack while the panicking frames are still on it.
		if _, ok := r.(*TaskPanic); !ok {
			r = &TaskPanic{Task: t.String(), Value: r, Stack: debug.Stack()}
		}
		panic(r)
	}()
	return t.entry(t, t.arg), false
}

// waitPermit blocks until the processor dispatches t. If t is killed or the
// kernel shuts down first, the task goroutine exits.
func (t *Task) waitPermit() {
	select {
	case <-t.permit:
	case <-t.killed:
		t.killedExit = true
		runtime.Goexit()
	case <-t.k.dying:
		t.killedExit = true
		runtime.Goexit()
	}
}

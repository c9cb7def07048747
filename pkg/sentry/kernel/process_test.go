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
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/hostarch"
)

// reap waits for child pid of t's process and returns its exit code.
func reap(t *Task, pid int32) (int32, int32) {
	for {
		got, code, err := t.Waitpid(pid)
		if err == nil {
			return got, code
		}
		if !errors.Is(err, linuxerr.ErrStillRunning) {
			panic(fmt.Sprintf("Waitpid(%d): %v", pid, err))
		}
		t.Yield()
	}
}

func TestSpawnWaitpid(t *testing.T) {
	loader := NewLoader(&Image{Name: "child", Entries: []EntryFunc{
		func(t *Task, _ uintptr) int32 { return 42 },
	}})
	var pid, gotPID, code int32
	var noChild, unknown error
	k := startKernel(t, Config{Loader: loader}, func(t *Task, _ uintptr) int32 {
		_, _, noChild = t.Waitpid(AnyChild)
		_, unknown = t.Spawn("missing")
		child, err := t.Spawn("child")
		if err != nil {
			panic(err)
		}
		pid = child.PID()
		gotPID, code = reap(t, AnyChild)
		return 0
	})
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if noChild != linuxerr.ECHILD {
		t.Errorf("Waitpid with no children got %v, want %v", noChild, linuxerr.ECHILD)
	}
	if unknown != linuxerr.ENOENT {
		t.Errorf("Spawn(missing) got %v, want %v", unknown, linuxerr.ENOENT)
	}
	if pid != 1 || gotPID != 1 || code != 42 {
		t.Errorf("got pid %d, reaped %d with code %d, want 1, 1, 42", pid, gotPID, code)
	}
	if p := k.Process(1); p != nil {
		t.Errorf("reaped process still in the process table")
	}
}

func TestWaitpidStillRunning(t *testing.T) {
	loader := NewLoader(&Image{Name: "child", Entries: []EntryFunc{
		func(t *Task, _ uintptr) int32 {
			t.Yield()
			return 0
		},
	}})
	var first error
	k := startKernel(t, Config{Loader: loader}, func(t *Task, _ uintptr) int32 {
		child, err := t.Spawn("child")
		if err != nil {
			panic(err)
		}
		_, _, first = t.Waitpid(child.PID())
		reap(t, child.PID())
		return 0
	})
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if first != linuxerr.ErrStillRunning {
		t.Errorf("first Waitpid got %v, want %v", first, linuxerr.ErrStillRunning)
	}
}

func TestForkCopiesAddressSpace(t *testing.T) {
	const addr = hostarch.Addr(0x40000)
	var childSaw, parentSaw string
	var code int32
	k := startKernel(t, Config{},
		func(t *Task, _ uintptr) int32 {
			as := t.p.AddressSpace()
			if err := as.Map(addr, hostarch.PageSize, hostarch.ReadWrite); err != nil {
				panic(err)
			}
			if err := as.CopyOutString(addr, "parent"); err != nil {
				panic(err)
			}
			child, err := t.Fork(1)
			if err != nil {
				panic(err)
			}
			_, code = reap(t, child.PID())
			parentSaw, _ = as.CopyInString(addr)
			return 0
		},
		func(t *Task, _ uintptr) int32 {
			as := t.p.AddressSpace()
			childSaw, _ = as.CopyInString(addr)
			as.CopyOutString(addr, "child")
			return 9
		},
	)
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if childSaw != "parent" || parentSaw != "parent" || code != 9 {
		t.Errorf("child saw %q, parent saw %q, code %d; want parent, parent, 9", childSaw, parentSaw, code)
	}
}

func TestExecRestartsAtNewImage(t *testing.T) {
	var steps []string
	loader := NewLoader(
		&Image{Name: "first", Entries: []EntryFunc{
			func(t *Task, _ uintptr) int32 {
				steps = append(steps, "first")
				if err := t.Exec("missing"); err != linuxerr.ENOENT {
					panic(fmt.Sprintf("Exec(missing) got %v", err))
				}
				t.Exec("second")
				steps = append(steps, "unreachable")
				return 1
			},
		}},
		&Image{Name: "second", Entries: []EntryFunc{
			func(t *Task, _ uintptr) int32 {
				steps = append(steps, "second:"+t.p.Image().Name)
				return 7
			},
		}},
	)
	var code int32
	k := startKernel(t, Config{Loader: loader}, func(t *Task, _ uintptr) int32 {
		child, err := t.Spawn("first")
		if err != nil {
			panic(err)
		}
		_, code = reap(t, child.PID())
		return 0
	})
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]string{"first", "second:second"}, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
	if code != 7 {
		t.Errorf("exit code got %d, want 7", code)
	}
}

func TestExecWithLiveThreads(t *testing.T) {
	loader := NewLoader(&Image{Name: "other", Entries: []EntryFunc{
		func(*Task, uintptr) int32 { return 0 },
	}})
	var err error
	k := startKernel(t, Config{Loader: loader},
		func(t *Task, _ uintptr) int32 {
			tid := mustThread(t, 1, 0)
			err = t.Exec("other")
			join(t, tid)
			return 0
		},
		func(t *Task, _ uintptr) int32 { return 0 },
	)
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err != linuxerr.EBUSY {
		t.Errorf("Exec with a live thread got %v, want %v", err, linuxerr.EBUSY)
	}
}

func TestWaittid(t *testing.T) {
	var self, unknown, running error
	var code int32
	var reused int32
	k := startKernel(t, Config{},
		func(t *Task, _ uintptr) int32 {
			_, self = t.Waittid(0)
			_, unknown = t.Waittid(5)
			tid := mustThread(t, 1, 11)
			_, running = t.Waittid(tid)
			code = join(t, tid)
			reused = mustThread(t, 1, 0)
			join(t, reused)
			return 0
		},
		func(t *Task, arg uintptr) int32 { return int32(arg) },
	)
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if self != linuxerr.EINVAL || unknown != linuxerr.EINVAL {
		t.Errorf("Waittid(self), Waittid(unknown) got %v, %v, want EINVAL", self, unknown)
	}
	if running != linuxerr.ErrStillRunning {
		t.Errorf("Waittid(running) got %v, want %v", running, linuxerr.ErrStillRunning)
	}
	if code != 11 {
		t.Errorf("thread exit code got %d, want 11", code)
	}
	if reused != 1 {
		t.Errorf("second thread tid got %d, want 1 (reused slot)", reused)
	}
}

// TestMainExitTearsDownProcess exits the main task while a thread is
// blocked on a mutex it holds. Exit releases the mutex, and the thread is
// torn down without running.
func TestMainExitTearsDownProcess(t *testing.T) {
	threadRan := false
	var thread *Task
	k := startKernel(t, Config{},
		func(t *Task, _ uintptr) int32 {
			id := t.MutexCreate(1)
			t.MutexLock(id)
			tid := mustThread(t, 1, uintptr(id))
			t.p.inner.Do(func(pi *processInner) { thread = pi.tasks[tid] })
			t.Yield()
			return 5
		},
		func(t *Task, id uintptr) int32 {
			t.MutexLock(int(id))
			t.Yield()
			threadRan = true
			return 0
		},
	)
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if threadRan {
		t.Errorf("thread ran after its process exited")
	}
	if got := thread.Status(); got != TaskZombie {
		t.Errorf("thread status got %v, want %v", got, TaskZombie)
	}
	if code, exited := k.Init().Exited(); !exited || code != 5 {
		t.Errorf("process Exited got (%d, %t), want (5, true)", code, exited)
	}
}

func TestOrphansReparentedToInit(t *testing.T) {
	var grandchild *Process
	loader := NewLoader(
		&Image{Name: "parent", Entries: []EntryFunc{
			func(t *Task, _ uintptr) int32 {
				var err error
				grandchild, err = t.Spawn("sleeper")
				if err != nil {
					panic(err)
				}
				return 0
			},
		}},
		&Image{Name: "sleeper", Entries: []EntryFunc{
			func(t *Task, _ uintptr) int32 {
				t.Yield()
				t.Yield()
				return 3
			},
		}},
	)
	var reaped []int32
	k := startKernel(t, Config{Loader: loader}, func(t *Task, _ uintptr) int32 {
		if _, err := t.Spawn("parent"); err != nil {
			panic(err)
		}
		for i := 0; i < 2; i++ {
			pid, _ := reap(t, AnyChild)
			reaped = append(reaped, pid)
		}
		return 0
	})
	if err := runKernel(t, k); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]int32{1, 2}, reaped); diff != "" {
		t.Errorf("reaped mismatch (-want +got):\n%s", diff)
	}
	if got := grandchild.Parent(); got != k.Init() {
		t.Errorf("grandchild parent got %v, want init", got)
	}
}

func TestCreateProcessRequiresSingleInit(t *testing.T) {
	k := New(Config{})
	defer k.Shutdown()
	img := &Image{Name: "x", Entries: []EntryFunc{func(*Task, uintptr) int32 { return 0 }}}
	initProc, err := k.CreateProcess(nil, img)
	if err != nil {
		t.Fatalf("CreateProcess(init) failed: %v", err)
	}
	if _, err := k.CreateProcess(nil, img); err != linuxerr.EINVAL {
		t.Errorf("second parentless CreateProcess got %v, want %v", err, linuxerr.EINVAL)
	}
	if _, err := k.CreateProcess(initProc, &Image{Name: "empty"}); err != linuxerr.ENOEXEC {
		t.Errorf("CreateProcess(empty image) got %v, want %v", err, linuxerr.ENOEXEC)
	}
	if got := initProc.PID(); got != 0 {
		t.Errorf("init pid got %d, want 0", got)
	}
}

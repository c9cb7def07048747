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

package usys

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/hostarch"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	_ "gvisor.dev/ukernel/pkg/sentry/syscalls/linux"
)

type call struct {
	Name string
	Ret  int64
}

// boot runs entries as the init image, next to the given extra images, and
// returns once every task has exited.
func boot(t *testing.T, images []*kernel.Image, entries ...kernel.EntryFunc) {
	t.Helper()
	k := kernel.New(kernel.Config{Loader: kernel.NewLoader(images...)})
	defer k.Shutdown()
	if _, err := k.CreateProcess(nil, &kernel.Image{Name: "init", Entries: entries}); err != nil {
		t.Fatalf("CreateProcess failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := k.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestProcessCalls(t *testing.T) {
	child := &kernel.Image{Name: "child", Entries: []kernel.EntryFunc{
		func(t *kernel.Task, _ uintptr) int32 {
			Exit(t, 42)
			return 0
		},
	}}
	var got []call
	var code int32
	record := func(name string, ret int64) { got = append(got, call{name, ret}) }
	boot(t, []*kernel.Image{child}, func(t *kernel.Task, _ uintptr) int32 {
		record("getpid", Getpid(t))
		record("gettid", Gettid(t))
		record("set_priority(1)", SetPriority(t, 1))
		record("set_priority(8)", SetPriority(t, 8))
		record("spawn(missing)", Spawn(t, "missing"))
		record("spawn(child)", Spawn(t, "child"))
		ret, c := Waitpid(t, 1)
		for ret == kernel.ErrnoStillRunning {
			Yield(t)
			ret, c = Waitpid(t, 1)
		}
		code = c
		record("waitpid(1)", ret)
		record("waitpid(-1)", func() int64 { r, _ := Waitpid(t, -1); return r }())
		return 0
	})
	want := []call{
		{"getpid", 0},
		{"gettid", 0},
		{"set_priority(1)", -1},
		{"set_priority(8)", 8},
		{"spawn(missing)", -1},
		{"spawn(child)", 1},
		{"waitpid(1)", 1},
		{"waitpid(-1)", -1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if code != 42 {
		t.Errorf("exit code got %d, want 42", code)
	}
}

func TestMemoryCalls(t *testing.T) {
	const start = hostarch.Addr(0x2000_0000)
	var got []call
	record := func(name string, ret int64) { got = append(got, call{name, ret}) }
	boot(t, nil, func(t *kernel.Task, _ uintptr) int32 {
		record("mmap(unaligned)", Mmap(t, start+1, hostarch.PageSize, linux.PROT_READ))
		record("mmap(prot=0)", Mmap(t, start, hostarch.PageSize, 0))
		record("mmap(prot=8)", Mmap(t, start, hostarch.PageSize, 8))
		record("mmap", Mmap(t, start, 2*hostarch.PageSize, linux.PROT_READ|linux.PROT_WRITE))
		record("mmap(overlap)", Mmap(t, start+hostarch.PageSize, hostarch.PageSize, linux.PROT_READ))
		record("munmap", Munmap(t, start, 2*hostarch.PageSize))
		record("munmap(again)", Munmap(t, start, hostarch.PageSize))
		brk := Sbrk(t, 0)
		record("sbrk(+page)", Sbrk(t, hostarch.PageSize)-brk)
		record("sbrk(-page)", Sbrk(t, -hostarch.PageSize)-brk)
		return 0
	})
	want := []call{
		{"mmap(unaligned)", -1},
		{"mmap(prot=0)", -1},
		{"mmap(prot=8)", -1},
		{"mmap", 0},
		{"mmap(overlap)", -1},
		{"munmap", 0},
		{"munmap(again)", -1},
		{"sbrk(+page)", 0},
		{"sbrk(-page)", hostarch.PageSize},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeCalls(t *testing.T) {
	var tv linux.Timeval
	var info linux.TaskInfo
	var tvRet, infoRet int64
	boot(t, nil, func(t *kernel.Task, _ uintptr) int32 {
		Getpid(t)
		Getpid(t)
		Sleep(t, 5)
		tv, tvRet = GetTime(t)
		info, infoRet = TaskInfo(t)
		return 0
	})
	if tvRet != 0 || infoRet != 0 {
		t.Fatalf("get_time, task_info got %d, %d, want 0, 0", tvRet, infoRet)
	}
	if us := tv.Sec*1e6 + tv.Usec; us < 5000 {
		t.Errorf("get_time after a 5ms sleep got %dus, want >= 5000us", us)
	}
	if info.Status != linux.TaskRunning {
		t.Errorf("task_info status got %d, want %d", info.Status, linux.TaskRunning)
	}
	for _, tc := range []struct {
		sysno int
		want  uint32
	}{
		{linux.SYS_GETPID, 2},
		{linux.SYS_SLEEP, 1},
		{linux.SYS_GET_TIME, 1},
		{linux.SYS_TASK_INFO, 1},
		{linux.SYS_YIELD, 0},
	} {
		if got := info.SyscallTimes[tc.sysno]; got != tc.want {
			t.Errorf("syscall_times[%d] got %d, want %d", tc.sysno, got, tc.want)
		}
	}
	if info.TimeMS < 5 {
		t.Errorf("task_info time got %dms, want >= 5ms", info.TimeMS)
	}
}

func TestSyncCalls(t *testing.T) {
	var got []call
	record := func(name string, ret int64) { got = append(got, call{name, ret}) }
	boot(t, nil,
		func(t *kernel.Task, _ uintptr) int32 {
			record("enable_deadlock_detect(2)", syscall(t, linux.SYS_ENABLE_DEADLOCK_DETECT, arch.Arg(2)))
			record("enable_deadlock_detect", EnableDeadlockDetect(t, 1))
			record("mutex_create", MutexCreate(t, true))
			record("mutex_lock", MutexLock(t, 0))
			record("mutex_lock(again)", MutexLock(t, 0))
			record("mutex_unlock", MutexUnlock(t, 0))
			record("mutex_lock(bad)", MutexLock(t, 3))
			record("semaphore_create(-1)", SemaphoreCreate(t, -1))
			record("semaphore_create", SemaphoreCreate(t, 1))
			record("condvar_create", CondvarCreate(t))
			record("thread_create", ThreadCreate(t, 1, 0))
			record("waittid(self)", Waittid(t, 0))
			ret := Waittid(t, 1)
			for ret == kernel.ErrnoStillRunning {
				Yield(t)
				ret = Waittid(t, 1)
			}
			record("waittid", ret)
			record("condvar_signal", CondvarSignal(t, 0))
			record("semaphore_destroy", SemaphoreDestroy(t, 0))
			record("condvar_destroy", CondvarDestroy(t, 0))
			record("mutex_destroy", MutexDestroy(t, 0))
			record("write", syscall(t, linux.SYS_WRITE))
			record("unknown", syscall(t, 9999))
			return 0
		},
		func(t *kernel.Task, _ uintptr) int32 {
			record("semaphore_down", SemaphoreDown(t, 0))
			record("semaphore_up", SemaphoreUp(t, 0))
			return 3
		},
	)
	want := []call{
		{"enable_deadlock_detect(2)", -1},
		{"enable_deadlock_detect", 0},
		{"mutex_create", 0},
		{"mutex_lock", 0},
		{"mutex_lock(again)", kernel.ErrnoDeadlock},
		{"mutex_unlock", 0},
		{"mutex_lock(bad)", -1},
		{"semaphore_create(-1)", -1},
		{"semaphore_create", 0},
		{"condvar_create", 0},
		{"thread_create", 1},
		{"waittid(self)", -1},
		{"semaphore_down", 0},
		{"semaphore_up", 0},
		{"waittid", 3},
		{"condvar_signal", 0},
		{"semaphore_destroy", 0},
		{"condvar_destroy", 0},
		{"mutex_destroy", 0},
		{"write", -1},
		{"unknown", -1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

// TestWideArguments checks that handles, counts and flags wider than the
// kernel's int are rejected instead of truncated.
func TestWideArguments(t *testing.T) {
	var (
		got    []call
		detect bool
		status kernel.SyncStatus
	)
	record := func(name string, ret int64) { got = append(got, call{name, ret}) }
	wide := int64(1) << 32
	negative := int64(-1<<32 | 2)
	boot(t, nil, func(t *kernel.Task, _ uintptr) int32 {
		record("mutex_create", MutexCreate(t, false))
		record("mutex_lock(1<<32)", syscall(t, linux.SYS_MUTEX_LOCK, arch.Arg(wide)))
		record("mutex_unlock(1<<32)", syscall(t, linux.SYS_MUTEX_UNLOCK, arch.Arg(wide)))
		record("enable_deadlock_detect(1<<32|1)", syscall(t, linux.SYS_ENABLE_DEADLOCK_DETECT, arch.Arg(wide|1)))
		record("semaphore_create(-1<<32|2)", syscall(t, linux.SYS_SEMAPHORE_CREATE, arch.Arg(negative)))
		record("condvar_create", CondvarCreate(t))
		record("condvar_wait(0, 1<<32)", syscall(t, linux.SYS_CONDVAR_WAIT, arch.Arg(0), arch.Arg(wide)))
		record("thread_create(1<<32)", syscall(t, linux.SYS_THREAD_CREATE, arch.Arg(wide), arch.Arg(0)))
		record("waittid(1<<32)", syscall(t, linux.SYS_WAITTID, arch.Arg(wide)))
		detect = t.Process().DeadlockDetect()
		status = t.Process().SyncStatus()
		return 0
	})
	want := []call{
		{"mutex_create", 0},
		{"mutex_lock(1<<32)", -1},
		{"mutex_unlock(1<<32)", -1},
		{"enable_deadlock_detect(1<<32|1)", -1},
		{"semaphore_create(-1<<32|2)", -1},
		{"condvar_create", 0},
		{"condvar_wait(0, 1<<32)", -1},
		{"thread_create(1<<32)", -1},
		{"waittid(1<<32)", -1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if detect {
		t.Errorf("deadlock detection got on, want off")
	}
	wantStatus := kernel.SyncStatus{MutexAvail: []int{1}}
	if diff := cmp.Diff(wantStatus, status, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("sync status mismatch (-want +got):\n%s", diff)
	}
}

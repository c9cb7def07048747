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

// Package linux provides the ukernel syscall table.
package linux

import (
	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/sentry/syscalls"
)

// TableName is the name Linux64 is registered under.
const TableName = "linux64"

// Linux64 is the table of ukernel syscalls. The file syscalls are listed so
// that they trace by name, but there is no file system behind them.
var Linux64 = &kernel.SyscallTable{
	Name: TableName,
	Table: map[uintptr]kernel.Syscall{
		linux.SYS_OPENAT:                 syscalls.Error("openat", linuxerr.ENOSYS),
		linux.SYS_CLOSE:                  syscalls.Error("close", linuxerr.ENOSYS),
		linux.SYS_READ:                   syscalls.Error("read", linuxerr.ENOSYS),
		linux.SYS_WRITE:                  syscalls.Error("write", linuxerr.ENOSYS),
		linux.SYS_EXIT:                   syscalls.Supported("exit", Exit),
		linux.SYS_SLEEP:                  syscalls.Supported("sleep", Sleep),
		linux.SYS_YIELD:                  syscalls.Supported("yield", Yield),
		linux.SYS_SET_PRIORITY:           syscalls.Supported("set_priority", SetPriority),
		linux.SYS_GET_TIME:               syscalls.Supported("get_time", GetTime),
		linux.SYS_GETPID:                 syscalls.Supported("getpid", Getpid),
		linux.SYS_SBRK:                   syscalls.Supported("sbrk", Sbrk),
		linux.SYS_MUNMAP:                 syscalls.Supported("munmap", Munmap),
		linux.SYS_FORK:                   syscalls.Supported("fork", Fork),
		linux.SYS_EXEC:                   syscalls.Supported("exec", Exec),
		linux.SYS_MMAP:                   syscalls.Supported("mmap", Mmap),
		linux.SYS_WAITPID:                syscalls.Supported("waitpid", Waitpid),
		linux.SYS_SPAWN:                  syscalls.Supported("spawn", Spawn),
		linux.SYS_TASK_INFO:              syscalls.Supported("task_info", TaskInfo),
		linux.SYS_ENABLE_DEADLOCK_DETECT: syscalls.Supported("enable_deadlock_detect", EnableDeadlockDetect),
		linux.SYS_THREAD_CREATE:          syscalls.Supported("thread_create", ThreadCreate),
		linux.SYS_GETTID:                 syscalls.Supported("gettid", Gettid),
		linux.SYS_WAITTID:                syscalls.Supported("waittid", Waittid),
		linux.SYS_MUTEX_CREATE:           syscalls.Supported("mutex_create", MutexCreate),
		linux.SYS_MUTEX_LOCK:             syscalls.Supported("mutex_lock", MutexLock),
		linux.SYS_MUTEX_UNLOCK:           syscalls.Supported("mutex_unlock", MutexUnlock),
		linux.SYS_MUTEX_DESTROY:          syscalls.Supported("mutex_destroy", MutexDestroy),
		linux.SYS_SEMAPHORE_CREATE:       syscalls.Supported("semaphore_create", SemaphoreCreate),
		linux.SYS_SEMAPHORE_UP:           syscalls.Supported("semaphore_up", SemaphoreUp),
		linux.SYS_SEMAPHORE_DOWN:         syscalls.Supported("semaphore_down", SemaphoreDown),
		linux.SYS_SEMAPHORE_DESTROY:      syscalls.Supported("semaphore_destroy", SemaphoreDestroy),
		linux.SYS_CONDVAR_CREATE:         syscalls.Supported("condvar_create", CondvarCreate),
		linux.SYS_CONDVAR_SIGNAL:         syscalls.Supported("condvar_signal", CondvarSignal),
		linux.SYS_CONDVAR_WAIT:           syscalls.Supported("condvar_wait", CondvarWait),
		linux.SYS_CONDVAR_DESTROY:        syscalls.Supported("condvar_destroy", CondvarDestroy),
	},
}

func init() {
	kernel.RegisterSyscallTable(Linux64)
}

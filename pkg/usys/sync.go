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
	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

// EnableDeadlockDetect turns the calling process's deadlock detection on (1)
// or off (0). Any other value fails.
func EnableDeadlockDetect(t *kernel.Task, v int64) int64 {
	return syscall(t, linux.SYS_ENABLE_DEADLOCK_DETECT, arch.Arg(v))
}

// ThreadCreate starts a task at image entry entry with argument arg and
// returns its tid.
func ThreadCreate(t *kernel.Task, entry int, arg uintptr) int64 {
	return syscall(t, linux.SYS_THREAD_CREATE, arch.Arg(entry), arch.Arg(arg))
}

// Waittid reaps the exited task tid and returns its exit code.
func Waittid(t *kernel.Task, tid int32) int64 {
	return syscall(t, linux.SYS_WAITTID, arch.Arg(tid))
}

// MutexCreate creates a mutex and returns its id.
func MutexCreate(t *kernel.Task, blocking bool) int64 {
	v := 0
	if blocking {
		v = 1
	}
	return syscall(t, linux.SYS_MUTEX_CREATE, arch.Arg(v))
}

// MutexLock locks mutex id.
func MutexLock(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_MUTEX_LOCK, arch.Arg(id))
}

// MutexUnlock unlocks mutex id.
func MutexUnlock(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_MUTEX_UNLOCK, arch.Arg(id))
}

// MutexDestroy frees mutex id.
func MutexDestroy(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_MUTEX_DESTROY, arch.Arg(id))
}

// SemaphoreCreate creates a semaphore with count units and returns its id.
func SemaphoreCreate(t *kernel.Task, count int) int64 {
	return syscall(t, linux.SYS_SEMAPHORE_CREATE, arch.Arg(count))
}

// SemaphoreUp releases a unit of semaphore id.
func SemaphoreUp(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_SEMAPHORE_UP, arch.Arg(id))
}

// SemaphoreDown acquires a unit of semaphore id.
func SemaphoreDown(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_SEMAPHORE_DOWN, arch.Arg(id))
}

// SemaphoreDestroy frees semaphore id.
func SemaphoreDestroy(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_SEMAPHORE_DESTROY, arch.Arg(id))
}

// CondvarCreate creates a condition variable and returns its id.
func CondvarCreate(t *kernel.Task) int64 {
	return syscall(t, linux.SYS_CONDVAR_CREATE)
}

// CondvarSignal wakes one waiter of condvar id.
func CondvarSignal(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_CONDVAR_SIGNAL, arch.Arg(id))
}

// CondvarWait releases mutex mid and waits on condvar id. The mutex is not
// re-acquired.
func CondvarWait(t *kernel.Task, id, mid int) int64 {
	return syscall(t, linux.SYS_CONDVAR_WAIT, arch.Arg(id), arch.Arg(mid))
}

// CondvarDestroy frees condvar id.
func CondvarDestroy(t *kernel.Task, id int) int64 {
	return syscall(t, linux.SYS_CONDVAR_DESTROY, arch.Arg(id))
}

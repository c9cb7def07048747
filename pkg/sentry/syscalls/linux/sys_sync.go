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

package linux

import (
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/sentry/kernel/locks"
)

// intArg decodes a handle, entry, count or flag. Values that do not fit in
// an int fail with EINVAL.
func intArg(a arch.SyscallArgument) (int, error) {
	v := a.Int64()
	if int64(int(v)) != v {
		return 0, linuxerr.EINVAL
	}
	return int(v), nil
}

// idArg decodes a pid or tid. Values that do not fit in an int32 fail with
// EINVAL.
func idArg(a arch.SyscallArgument) (int32, error) {
	v := a.Int64()
	if int64(int32(v)) != v {
		return 0, linuxerr.EINVAL
	}
	return int32(v), nil
}

// EnableDeadlockDetect implements enable_deadlock_detect(enabled).
func EnableDeadlockDetect(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	v, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.EnableDeadlockDetect(v)
}

// MutexCreate implements mutex_create(blocking). A zero argument creates a
// spin mutex, anything else a blocking one.
func MutexCreate(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	kind := locks.Spin
	if args[0].Int64() != 0 {
		kind = locks.Blocking
	}
	return uintptr(t.MutexCreate(kind)), nil
}

// MutexLock implements mutex_lock(id).
func MutexLock(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.MutexLock(id)
}

// MutexUnlock implements mutex_unlock(id).
func MutexUnlock(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.MutexUnlock(id)
}

// MutexDestroy implements mutex_destroy(id).
func MutexDestroy(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.MutexDestroy(id)
}

// SemaphoreCreate implements semaphore_create(count).
func SemaphoreCreate(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	count, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	id, err := t.SemaphoreCreate(count)
	if err != nil {
		return 0, err
	}
	return uintptr(id), nil
}

// SemaphoreUp implements semaphore_up(id).
func SemaphoreUp(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.SemaphoreUp(id)
}

// SemaphoreDown implements semaphore_down(id).
func SemaphoreDown(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.SemaphoreDown(id)
}

// SemaphoreDestroy implements semaphore_destroy(id).
func SemaphoreDestroy(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.SemaphoreDestroy(id)
}

// CondvarCreate implements condvar_create.
func CondvarCreate(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.CondvarCreate()), nil
}

// CondvarSignal implements condvar_signal(id).
func CondvarSignal(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.CondvarSignal(id)
}

// CondvarWait implements condvar_wait(id, mutex_id). The mutex is released
// and not re-acquired.
func CondvarWait(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	mid, err := intArg(args[1])
	if err != nil {
		return 0, err
	}
	return 0, t.CondvarWait(id, mid)
}

// CondvarDestroy implements condvar_destroy(id).
func CondvarDestroy(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	id, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	return 0, t.CondvarDestroy(id)
}

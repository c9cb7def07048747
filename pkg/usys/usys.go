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

// Package usys is the user-side syscall library. Each function issues one
// numbered syscall on behalf of the calling task and returns its raw result:
// a non-negative value on success, or -1, -2 (still running) or -0xDEAD
// (deadlock avoided) on failure.
//
// Strings and structures are exchanged through the calling task's scratch
// page, the way a user program passes pointers to its own memory.
package usys

import (
	"fmt"

	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/hostarch"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/sentry/mm"
)

func syscall(t *kernel.Task, sysno uintptr, args ...arch.SyscallArgument) int64 {
	return t.Syscall(sysno, args...)
}

// scratch returns the address of t's scratch page.
func scratch(t *kernel.Task) hostarch.Addr {
	return mm.ScratchAddr(t.ThreadID())
}

// putString stores s on t's scratch page.
func putString(t *kernel.Task, s string) (hostarch.Addr, bool) {
	addr := scratch(t)
	if err := t.Process().AddressSpace().CopyOutString(addr, s); err != nil {
		t.Debugf("Cannot stage %q: %v", s, err)
		return 0, false
	}
	return addr, true
}

// unmarshaller is a structure that can be read back from user memory.
type unmarshaller interface {
	SizeBytes() int
	UnmarshalBytes(src []byte) []byte
}

// get reads m from addr.
func get(t *kernel.Task, addr hostarch.Addr, m unmarshaller) {
	buf := make([]byte, m.SizeBytes())
	if _, err := t.Process().AddressSpace().CopyIn(addr, buf); err != nil {
		panic(fmt.Sprintf("reading back %d bytes at %#x: %v", len(buf), addr, err))
	}
	m.UnmarshalBytes(buf)
}

// Exit ends the calling task with code. It does not return.
func Exit(t *kernel.Task, code int32) {
	syscall(t, linux.SYS_EXIT, arch.Arg(code))
}

// Yield gives up the processor.
func Yield(t *kernel.Task) int64 {
	return syscall(t, linux.SYS_YIELD)
}

// Sleep blocks the calling task for ms milliseconds.
func Sleep(t *kernel.Task, ms int64) int64 {
	return syscall(t, linux.SYS_SLEEP, arch.Arg(ms))
}

// SetPriority sets the calling task's priority and returns it.
func SetPriority(t *kernel.Task, prio int64) int64 {
	return syscall(t, linux.SYS_SET_PRIORITY, arch.Arg(prio))
}

// GetTime returns the kernel clock.
func GetTime(t *kernel.Task) (linux.Timeval, int64) {
	var tv linux.Timeval
	addr := scratch(t)
	ret := syscall(t, linux.SYS_GET_TIME, arch.Arg(addr))
	if ret == 0 {
		get(t, addr, &tv)
	}
	return tv, ret
}

// TaskInfo returns the calling task's TaskInfo.
func TaskInfo(t *kernel.Task) (linux.TaskInfo, int64) {
	var info linux.TaskInfo
	addr := scratch(t)
	ret := syscall(t, linux.SYS_TASK_INFO, arch.Arg(addr))
	if ret == 0 {
		get(t, addr, &info)
	}
	return info, ret
}

// Getpid returns the calling process's pid.
func Getpid(t *kernel.Task) int64 {
	return syscall(t, linux.SYS_GETPID)
}

// Gettid returns the calling task's tid.
func Gettid(t *kernel.Task) int64 {
	return syscall(t, linux.SYS_GETTID)
}

// Spawn starts the image name in a new child process and returns its pid.
func Spawn(t *kernel.Task, name string) int64 {
	addr, ok := putString(t, name)
	if !ok {
		return kernel.ErrnoFailure
	}
	return syscall(t, linux.SYS_SPAWN, arch.Arg(addr))
}

// Fork copies the calling process into a child that starts at image entry
// entry, and returns the child's pid.
func Fork(t *kernel.Task, entry int) int64 {
	return syscall(t, linux.SYS_FORK, arch.Arg(entry))
}

// Exec replaces the calling process's image with name. It returns only on
// failure.
func Exec(t *kernel.Task, name string) int64 {
	addr, ok := putString(t, name)
	if !ok {
		return kernel.ErrnoFailure
	}
	return syscall(t, linux.SYS_EXEC, arch.Arg(addr))
}

// Waitpid reaps the exited child pid, or any child if pid is -1. It returns
// the child's pid and its exit code.
func Waitpid(t *kernel.Task, pid int32) (int64, int32) {
	addr := scratch(t)
	ret := syscall(t, linux.SYS_WAITPID, arch.Arg(pid), arch.Arg(addr))
	if ret < 0 {
		return ret, 0
	}
	var buf [4]byte
	if _, err := t.Process().AddressSpace().CopyIn(addr, buf[:]); err != nil {
		panic(fmt.Sprintf("reading back exit code at %#x: %v", addr, err))
	}
	return ret, int32(linux.ByteOrder.Uint32(buf[:]))
}

// Mmap maps length bytes at start with prot.
func Mmap(t *kernel.Task, start hostarch.Addr, length uint64, prot uint64) int64 {
	return syscall(t, linux.SYS_MMAP, arch.Arg(start), arch.Arg(length), arch.Arg(prot))
}

// Munmap unmaps length bytes at start.
func Munmap(t *kernel.Task, start hostarch.Addr, length uint64) int64 {
	return syscall(t, linux.SYS_MUNMAP, arch.Arg(start), arch.Arg(length))
}

// Sbrk moves the program break and returns the old one.
func Sbrk(t *kernel.Task, delta int64) int64 {
	return syscall(t, linux.SYS_SBRK, arch.Arg(delta))
}

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
	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/hostarch"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

// marshaller is a structure that can be written to user memory.
type marshaller interface {
	SizeBytes() int
	MarshalBytes(dst []byte) []byte
}

// copyOut writes m to addr in t's address space.
func copyOut(t *kernel.Task, addr hostarch.Addr, m marshaller) error {
	buf := make([]byte, m.SizeBytes())
	m.MarshalBytes(buf)
	_, err := t.Process().AddressSpace().CopyOut(addr, buf)
	return err
}

// Exit implements exit. It does not return.
func Exit(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	t.Exit(args[0].Int())
	panic("unreachable")
}

// Getpid implements getpid.
func Getpid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.Process().PID()), nil
}

// Spawn implements spawn. The image name is a NUL-terminated string in user
// memory.
func Spawn(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	name, err := t.Process().AddressSpace().CopyInString(args[0].Pointer())
	if err != nil {
		return 0, err
	}
	p, err := t.Spawn(name)
	if err != nil {
		return 0, err
	}
	return uintptr(p.PID()), nil
}

// Fork implements fork. The child starts at the image entry given as the
// first argument.
func Fork(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	entry, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	p, err := t.Fork(entry)
	if err != nil {
		return 0, err
	}
	return uintptr(p.PID()), nil
}

// Exec implements exec. It returns only on failure.
func Exec(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	name, err := t.Process().AddressSpace().CopyInString(args[0].Pointer())
	if err != nil {
		return 0, err
	}
	return 0, t.Exec(name)
}

// Waitpid implements waitpid.
func Waitpid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	pid, err := idArg(args[0])
	if err != nil {
		return 0, err
	}
	pid, code, err := t.Waitpid(pid)
	if err != nil {
		return 0, err
	}
	if addr := args[1].Pointer(); addr != 0 {
		var buf [4]byte
		linux.ByteOrder.PutUint32(buf[:], uint32(code))
		if _, err := t.Process().AddressSpace().CopyOut(addr, buf[:]); err != nil {
			return 0, err
		}
	}
	return uintptr(pid), nil
}

// SetPriority implements set_priority.
func SetPriority(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	prio := args[0].Int64()
	if err := t.SetPriority(prio); err != nil {
		return 0, err
	}
	return uintptr(prio), nil
}

// TaskInfo implements task_info.
func TaskInfo(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	info := t.TaskInfo()
	return 0, copyOut(t, args[0].Pointer(), &info)
}

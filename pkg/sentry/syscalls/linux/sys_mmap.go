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
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/hostarch"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

// Mmap implements mmap(start, len, prot). Only fresh anonymous mappings are
// supported; prot must grant something and may not carry unknown bits.
func Mmap(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	start := args[0].Pointer()
	length := args[1].Uint64()
	prot := args[2].Uint64()

	if prot&^linux.PROT_MASK != 0 || prot&linux.PROT_MASK == 0 {
		return 0, linuxerr.EINVAL
	}
	perms := hostarch.AccessType{
		Read:    prot&linux.PROT_READ != 0,
		Write:   prot&linux.PROT_WRITE != 0,
		Execute: prot&linux.PROT_EXEC != 0,
	}
	if err := t.Process().AddressSpace().Map(start, length, perms); err != nil {
		return 0, err
	}
	return 0, nil
}

// Munmap implements munmap(start, len).
func Munmap(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.Process().AddressSpace().Unmap(args[0].Pointer(), args[1].Uint64())
}

// Sbrk implements sbrk. It returns the old program break.
func Sbrk(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	old, err := t.Process().AddressSpace().Sbrk(args[0].Int64())
	if err != nil {
		return 0, err
	}
	return uintptr(old), nil
}

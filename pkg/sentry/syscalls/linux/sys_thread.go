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
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

// ThreadCreate implements thread_create.
func ThreadCreate(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	entry, err := intArg(args[0])
	if err != nil {
		return 0, err
	}
	tid, err := t.ThreadCreate(entry, args[1].Value)
	if err != nil {
		return 0, err
	}
	return uintptr(tid), nil
}

// Gettid implements gettid.
func Gettid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.ThreadID()), nil
}

// Waittid implements waittid. It returns the exit code of the reaped task.
func Waittid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	tid, err := idArg(args[0])
	if err != nil {
		return 0, err
	}
	code, err := t.Waittid(tid)
	if err != nil {
		return 0, err
	}
	return uintptr(code), nil
}

// Yield implements yield.
func Yield(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	t.Yield()
	return 0, nil
}

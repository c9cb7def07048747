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

// Package syscalls is the interface from user tasks to the kernel.
//
// Note that the stubs in this package merely build table entries; the
// implementations live in the per-ABI packages.
package syscalls

import (
	"fmt"
	"time"

	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

// Supported returns a syscall that is fully supported.
func Supported(name string, fn kernel.SyscallFn) kernel.Syscall {
	return kernel.Syscall{
		Name:      name,
		Fn:        fn,
		Supported: true,
	}
}

// Error returns a syscall handler that will always give the passed error.
func Error(name string, err error) kernel.Syscall {
	return kernel.Syscall{
		Name: name,
		Note: fmt.Sprintf("Returns %v.", err),
		Fn: func(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
			unimplementedLog.For(sysno).Warningf("%s: unsupported syscall %s (%d)", t, name, sysno)
			return 0, err
		},
	}
}

// unimplementedLog reports each unsupported syscall at most once a minute.
var unimplementedLog = log.NewRateLimitedLoggers[uintptr](time.Minute)

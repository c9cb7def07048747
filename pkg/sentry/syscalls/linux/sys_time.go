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
	"time"

	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

// GetTime implements get_time. It writes a Timeval with the kernel clock's
// current time.
func GetTime(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	tv := linux.NsecToTimeval(t.Kernel().Clock().Now().Nanoseconds())
	return 0, copyOut(t, args[0].Pointer(), &tv)
}

// Sleep implements sleep. The duration is in milliseconds; a non-positive
// duration yields.
func Sleep(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	t.Sleep(time.Duration(args[0].Int64()) * time.Millisecond)
	return 0, nil
}

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

// Syscall numbers.
const (
	SYS_OPENAT                 = 56
	SYS_CLOSE                  = 57
	SYS_READ                   = 63
	SYS_WRITE                  = 64
	SYS_EXIT                   = 93
	SYS_SLEEP                  = 101
	SYS_YIELD                  = 124
	SYS_SET_PRIORITY           = 140
	SYS_GET_TIME               = 169
	SYS_GETPID                 = 172
	SYS_SBRK                   = 214
	SYS_MUNMAP                 = 215
	SYS_FORK                   = 220
	SYS_EXEC                   = 221
	SYS_MMAP                   = 222
	SYS_WAITPID                = 260
	SYS_SPAWN                  = 400
	SYS_TASK_INFO              = 410
	SYS_ENABLE_DEADLOCK_DETECT = 469
	SYS_THREAD_CREATE          = 1000
	SYS_GETTID                 = 1001
	SYS_WAITTID                = 1002
	SYS_MUTEX_CREATE           = 1010
	SYS_MUTEX_LOCK             = 1011
	SYS_MUTEX_UNLOCK           = 1012
	SYS_MUTEX_DESTROY          = 1013
	SYS_SEMAPHORE_CREATE       = 1020
	SYS_SEMAPHORE_UP           = 1021
	SYS_SEMAPHORE_DOWN         = 1022
	SYS_SEMAPHORE_DESTROY      = 1023
	SYS_CONDVAR_CREATE         = 1030
	SYS_CONDVAR_SIGNAL         = 1031
	SYS_CONDVAR_WAIT           = 1032
	SYS_CONDVAR_DESTROY        = 1033
)

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

// Package errno holds errno codes for the kernel's error values.
package errno

// Errno represents an error number.
type Errno uint32

// Errno values from include/uapi/asm-generic/errno-base.h.
const (
	NOERRNO Errno = iota
	EPERM
	ENOENT
	ESRCH
	EINTR
	EIO
	ENXIO
	E2BIG
	ENOEXEC
	EBADF
	ECHILD
	EAGAIN
	ENOMEM
	EACCES
	EFAULT
	ENOTBLK
	EBUSY
	EEXIST
	EXDEV
	ENODEV
	ENOTDIR
	EISDIR
	EINVAL
	ENFILE
	EMFILE
	ENOTTY
	ETXTBSY
	EFBIG
	ENOSPC
	ESPIPE
	EROFS
	EMLINK
	EPIPE
	EDOM
	ERANGE
	EDEADLK
)

// Errno values from include/uapi/asm-generic/errno.h that the kernel uses.
const (
	ENAMETOOLONG Errno = 36
	ENOSYS       Errno = 38
	EWOULDBLOCK        = EAGAIN
)

// Kernel-private error numbers. These never leave the syscall layer as a
// Linux errno; the dispatcher translates them into the kernel's own return
// conventions.
const (
	// EDEADLKAVOID is returned by a lock request that the deadlock detector
	// refused. Its negation is the -0xDEAD sentinel.
	EDEADLKAVOID Errno = 0xDEAD

	// ESTILLRUNNING is returned by waits on a child that has not exited.
	ESTILLRUNNING Errno = 2
)

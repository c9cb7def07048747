// Copyright 2021 The gVisor Authors.
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

// Package linuxerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations comperable
// to unix.Errno constants.
package linuxerr

import (
	"golang.org/x/sys/unix"
	"gvisor.dev/ukernel/pkg/abi/linux/errno"
	"gvisor.dev/ukernel/pkg/errors"
)

// The following errors are semantically identical to Errno of type
// unix.Errno. Since the types are distinct they are not directly comparable;
// the Errno method returns a number such that the error can be compared to
// unix.Errno (e.g. unix.Errno(EPERM.Errno()) == unix.EPERM is true).
var (
	noError      *errors.Error = nil
	EPERM                      = errors.New(errno.EPERM, "operation not permitted")
	ENOENT                     = errors.New(errno.ENOENT, "no such file or directory")
	ESRCH                      = errors.New(errno.ESRCH, "no such process")
	EINTR                      = errors.New(errno.EINTR, "interrupted system call")
	ENOEXEC                    = errors.New(errno.ENOEXEC, "exec format error")
	ECHILD                     = errors.New(errno.ECHILD, "no child processes")
	EAGAIN                     = errors.New(errno.EAGAIN, "try again")
	ENOMEM                     = errors.New(errno.ENOMEM, "out of memory")
	EFAULT                     = errors.New(errno.EFAULT, "bad address")
	EBUSY                      = errors.New(errno.EBUSY, "device or resource busy")
	EEXIST                     = errors.New(errno.EEXIST, "file exists")
	EINVAL                     = errors.New(errno.EINVAL, "invalid argument")
	ENOSPC                     = errors.New(errno.ENOSPC, "no space left on device")
	ERANGE                     = errors.New(errno.ERANGE, "math result not representable")
	EDEADLK                    = errors.New(errno.EDEADLK, "resource deadlock would occur")
	ENAMETOOLONG               = errors.New(errno.ENAMETOOLONG, "file name too long")
	ENOSYS                     = errors.New(errno.ENOSYS, "invalid system call number")

	// Errors equivalent to other errors.
	EWOULDBLOCK = EAGAIN
)

var (
	// ErrDeadlockAvoided is returned when the deadlock detector refuses a
	// mutex or semaphore request because granting it could leave some task
	// unable to ever finish. The request is not queued; the caller may retry
	// once the allocation state has changed.
	ErrDeadlockAvoided = errors.NewReturning(errno.EDEADLKAVOID, -int64(errno.EDEADLKAVOID), "request refused to avoid deadlock")

	// ErrStillRunning is returned by waitpid and waittid when the target has
	// not exited yet.
	ErrStillRunning = errors.NewReturning(errno.ESTILLRUNNING, -int64(errno.ESTILLRUNNING), "target is still running")
)

// errorSlice holds errors by errno for fast translation from unix.Errno.
var errorSlice = []*errors.Error{
	errno.NOERRNO:      noError,
	errno.EPERM:        EPERM,
	errno.ENOENT:       ENOENT,
	errno.ESRCH:        ESRCH,
	errno.EINTR:        EINTR,
	errno.ENOEXEC:      ENOEXEC,
	errno.ECHILD:       ECHILD,
	errno.EAGAIN:       EAGAIN,
	errno.ENOMEM:       ENOMEM,
	errno.EFAULT:       EFAULT,
	errno.EBUSY:        EBUSY,
	errno.EEXIST:       EEXIST,
	errno.EINVAL:       EINVAL,
	errno.ENOSPC:       ENOSPC,
	errno.ERANGE:       ERANGE,
	errno.EDEADLK:      EDEADLK,
	errno.ENAMETOOLONG: ENAMETOOLONG,
	errno.ENOSYS:       ENOSYS,
}

// ErrorFromUnix returns the *errors.Error for the given unix.Errno, or nil if
// the errno is not one the kernel knows about.
func ErrorFromUnix(err unix.Errno) *errors.Error {
	if err == unix.Errno(0) {
		return noError
	}
	if int(err) >= len(errorSlice) {
		return nil
	}
	return errorSlice[err]
}

// ToUnix converts e to a unix.Errno.
func ToUnix(e *errors.Error) unix.Errno {
	var unixErr unix.Errno
	if e != noError {
		unixErr = unix.Errno(e.Errno())
	}
	return unixErr
}

// Equals compares a linuxerr to a given error.
func Equals(e *errors.Error, err error) bool {
	var unixErr unix.Errno
	if e != noError {
		unixErr = unix.Errno(e.Errno())
	}
	if err == nil {
		err = noError
	}
	return e == err || unixErr == err
}

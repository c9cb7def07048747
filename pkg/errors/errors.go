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

// Package errors defines the error type returned by kernel syscalls.
//
// A task sees only a small negative number when a syscall fails: -1 for most
// failures, and distinct values for the few outcomes a task is expected to
// act on. Error carries that value next to the errno and message that the
// kernel logs and traces.
package errors

import (
	"fmt"

	"gvisor.dev/ukernel/pkg/abi/linux/errno"
)

// ReturnFailure is the value a syscall returns for an error that has no
// value of its own.
const ReturnFailure = -1

// Error is a syscall failure.
type Error struct {
	errno   errno.Errno
	ret     int64
	message string
}

// New creates an error that a failing syscall reports as ReturnFailure.
func New(err errno.Errno, message string) *Error {
	return &Error{
		errno:   err,
		ret:     ReturnFailure,
		message: message,
	}
}

// NewReturning creates an error that a failing syscall reports as ret.
//
// Preconditions: ret < 0.
func NewReturning(err errno.Errno, ret int64, message string) *Error {
	if ret >= 0 {
		panic(fmt.Sprintf("syscall error %q must return a negative value, got %d", message, ret))
	}
	return &Error{
		errno:   err,
		ret:     ret,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the underlying errno.Errno value.
func (e *Error) Errno() errno.Errno { return e.errno }

// Return returns the value a syscall failing with e hands back to the task.
func (e *Error) Return() int64 { return e.ret }

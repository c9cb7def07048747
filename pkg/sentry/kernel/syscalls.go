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

package kernel

import (
	"errors"
	"fmt"

	"gvisor.dev/ukernel/pkg/abi/linux"
	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/metric"
	"gvisor.dev/ukernel/pkg/sentry/arch"
	"gvisor.dev/ukernel/pkg/sync"
)

// Return values of failed syscalls.
const (
	// ErrnoDeadlock is returned when the deadlock detector refuses an
	// acquisition.
	ErrnoDeadlock = -0xDEAD

	// ErrnoStillRunning is returned by waitpid and waittid when the target
	// has not exited.
	ErrnoStillRunning = -2

	// ErrnoFailure is returned for every other error.
	ErrnoFailure = -1
)

var syscallsMetric = metric.MustCreateNewUint64Metric("/kernel/syscalls", "Number of syscalls made by tasks.")

// SyscallFn is a syscall implementation. The returned value is the syscall's
// result if err is nil.
type SyscallFn func(t *Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error)

// Syscall describes one syscall.
type Syscall struct {
	// Name is the syscall name, used in traces.
	Name string

	// Fn is the implementation.
	Fn SyscallFn

	// Supported is false for syscalls that only fail.
	Supported bool

	// Note describes the syscall's limitations, if any.
	Note string
}

// SyscallTable is a set of numbered syscalls.
type SyscallTable struct {
	// Name identifies the table.
	Name string

	// Table maps syscall numbers to syscalls.
	Table map[uintptr]Syscall
}

// Lookup returns the syscall with number sysno.
func (s *SyscallTable) Lookup(sysno uintptr) (Syscall, bool) {
	sc, ok := s.Table[sysno]
	return sc, ok && sc.Fn != nil
}

var (
	tablesMu sync.Mutex

	// allSyscallTables contains every registered table. Protected by
	// tablesMu.
	allSyscallTables []*SyscallTable
)

// RegisterSyscallTable makes s available to kernels created without an
// explicit table. It panics if a table with the same name exists.
func RegisterSyscallTable(s *SyscallTable) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	for _, other := range allSyscallTables {
		if other.Name == s.Name {
			panic(fmt.Sprintf("syscall table %q registered twice", s.Name))
		}
	}
	allSyscallTables = append(allSyscallTables, s)
}

// LookupSyscallTable returns the registered table with the given name.
func LookupSyscallTable(name string) (*SyscallTable, bool) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	for _, s := range allSyscallTables {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SyscallTables returns every registered table, in registration order.
func SyscallTables() []*SyscallTable {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	return append([]*SyscallTable(nil), allSyscallTables...)
}

// defaultSyscallTable returns the first registered table, or an empty one.
func defaultSyscallTable() *SyscallTable {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	if len(allSyscallTables) == 0 {
		log.Warningf("No syscall table registered, every syscall will fail")
		return &SyscallTable{Name: "empty"}
	}
	return allSyscallTables[0]
}

// ErrnoOf returns the syscall return value for err. Errors that do not
// carry one, including wrapped host errors, return ErrnoFailure.
func ErrnoOf(err error) int64 {
	var e interface{ Return() int64 }
	if errors.As(err, &e) {
		return e.Return()
	}
	return ErrnoFailure
}

// Syscall makes syscall sysno on behalf of t and returns its result, or a
// negative value on failure. Syscalls that block return only once t runs
// again; exit and successful exec do not return.
//
// Preconditions: t is the running task.
func (t *Task) Syscall(sysno uintptr, args ...arch.SyscallArgument) int64 {
	var sa arch.SyscallArguments
	copy(sa[:], args)

	syscallsMetric.Increment()
	if sysno < linux.MaxSyscallNum {
		t.inner.Do(func(ti *taskInner) {
			ti.syscallTimes[sysno]++
		})
	}

	sc, ok := t.k.syscalls.Lookup(sysno)
	if !ok {
		t.Debugf("Unknown syscall %d", sysno)
		return ErrnoFailure
	}
	rval, err := sc.Fn(t, sysno, sa)
	if err != nil {
		ret := ErrnoOf(err)
		t.Debugf("%s(%#x, %#x, %#x) = %d (%v)", sc.Name, sa[0].Value, sa[1].Value, sa[2].Value, ret, err)
		return ret
	}
	t.Debugf("%s(%#x, %#x, %#x) = %d", sc.Name, sa[0].Value, sa[1].Value, sa[2].Value, int64(rval))
	return int64(rval)
}

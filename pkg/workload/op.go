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

package workload

import (
	"fmt"
	"strconv"
	"strings"

	"gvisor.dev/ukernel/pkg/hostarch"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/usys"
)

// argVar stands for the argument an entry was started with.
const argVar = "$arg"

// strKind describes the string operand of an op.
type strKind int

const (
	noStr strKind = iota
	// nameStr is a single image name.
	nameStr
	// textStr is the rest of the line.
	textStr
)

// opSpec describes one op.
type opSpec struct {
	// nargs is the number of integer operands.
	nargs int

	str strKind

	// noReturn ops are recorded before they run, with their first
	// operand as result.
	noReturn bool

	run func(t *kernel.Task, a []int64, s string) int64
}

var ops = map[string]opSpec{
	"exit": {nargs: 1, noReturn: true, run: func(t *kernel.Task, a []int64, _ string) int64 {
		usys.Exit(t, int32(a[0]))
		panic("exit returned")
	}},
	"yield": {run: func(t *kernel.Task, _ []int64, _ string) int64 {
		return usys.Yield(t)
	}},
	"sleep": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.Sleep(t, a[0])
	}},
	"set_priority": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.SetPriority(t, a[0])
	}},
	"get_time": {run: func(t *kernel.Task, _ []int64, _ string) int64 {
		tv, ret := usys.GetTime(t)
		t.Debugf("get_time: %d.%06d", tv.Sec, tv.Usec)
		return ret
	}},
	"task_info": {run: func(t *kernel.Task, _ []int64, _ string) int64 {
		info, ret := usys.TaskInfo(t)
		t.Debugf("task_info: status %d, %dms", info.Status, info.TimeMS)
		return ret
	}},
	"getpid": {run: func(t *kernel.Task, _ []int64, _ string) int64 {
		return usys.Getpid(t)
	}},
	"gettid": {run: func(t *kernel.Task, _ []int64, _ string) int64 {
		return usys.Gettid(t)
	}},
	"sbrk": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.Sbrk(t, a[0])
	}},
	"mmap": {nargs: 3, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.Mmap(t, hostarch.Addr(a[0]), uint64(a[1]), uint64(a[2]))
	}},
	"munmap": {nargs: 2, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.Munmap(t, hostarch.Addr(a[0]), uint64(a[1]))
	}},
	"fork": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.Fork(t, int(a[0]))
	}},
	"exec": {str: nameStr, run: func(t *kernel.Task, _ []int64, s string) int64 {
		return usys.Exec(t, s)
	}},
	"spawn": {str: nameStr, run: func(t *kernel.Task, _ []int64, s string) int64 {
		return usys.Spawn(t, s)
	}},
	"waitpid": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		ret, _ := usys.Waitpid(t, int32(a[0]))
		return ret
	}},
	"wait": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		for {
			ret, _ := usys.Waitpid(t, int32(a[0]))
			if ret != kernel.ErrnoStillRunning {
				return ret
			}
			usys.Yield(t)
		}
	}},
	"enable_deadlock_detect": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.EnableDeadlockDetect(t, a[0])
	}},
	"thread_create": {nargs: 2, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.ThreadCreate(t, int(a[0]), uintptr(a[1]))
	}},
	"waittid": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.Waittid(t, int32(a[0]))
	}},
	"join": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		for {
			ret := usys.Waittid(t, int32(a[0]))
			if ret != kernel.ErrnoStillRunning {
				return ret
			}
			usys.Yield(t)
		}
	}},
	"mutex_create": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.MutexCreate(t, a[0] != 0)
	}},
	"mutex_lock": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.MutexLock(t, int(a[0]))
	}},
	"mutex_unlock": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.MutexUnlock(t, int(a[0]))
	}},
	"mutex_destroy": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.MutexDestroy(t, int(a[0]))
	}},
	"semaphore_create": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.SemaphoreCreate(t, int(a[0]))
	}},
	"semaphore_up": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.SemaphoreUp(t, int(a[0]))
	}},
	"semaphore_down": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.SemaphoreDown(t, int(a[0]))
	}},
	"semaphore_destroy": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.SemaphoreDestroy(t, int(a[0]))
	}},
	"condvar_create": {run: func(t *kernel.Task, _ []int64, _ string) int64 {
		return usys.CondvarCreate(t)
	}},
	"condvar_signal": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.CondvarSignal(t, int(a[0]))
	}},
	"condvar_wait": {nargs: 2, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.CondvarWait(t, int(a[0]), int(a[1]))
	}},
	"condvar_destroy": {nargs: 1, run: func(t *kernel.Task, a []int64, _ string) int64 {
		return usys.CondvarDestroy(t, int(a[0]))
	}},
	"log": {str: textStr, run: func(t *kernel.Task, _ []int64, s string) int64 {
		t.Infof("%s", s)
		return 0
	}},
}

// operand is an integer operand: a literal, or the entry argument.
type operand struct {
	isArg bool
	v     int64
}

func (o operand) value(arg uintptr) int64 {
	if o.isArg {
		return int64(arg)
	}
	return o.v
}

// Op is one parsed op line.
type Op struct {
	// Name is the op name.
	Name string

	// Repeat is the number of times the op runs.
	Repeat int

	// Expect is the expected result, if any.
	Expect *int64

	args []operand
	str  string
	text string
	spec opSpec
}

// String returns the op without its repeat count and expectation.
func (o *Op) String() string {
	return o.text
}

// parseInt parses a number with an optional base prefix.
func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

// ParseOp parses one op line.
func ParseOp(line string) (*Op, error) {
	fields := strings.Fields(line)
	op := &Op{Repeat: 1}

	for i, f := range fields {
		if f != "==" {
			continue
		}
		if i != len(fields)-2 {
			return nil, fmt.Errorf("%q: expected a single value after ==", line)
		}
		v, err := parseInt(fields[i+1])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", line, err)
		}
		op.Expect = &v
		fields = fields[:i]
		break
	}

	if len(fields) > 0 && fields[0] == "repeat" {
		if len(fields) < 3 {
			return nil, fmt.Errorf("%q: repeat needs a count and an op", line)
		}
		n, err := parseInt(fields[1])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%q: bad repeat count %q", line, fields[1])
		}
		op.Repeat = int(n)
		fields = fields[2:]
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%q: empty op", line)
	}

	op.Name = fields[0]
	spec, ok := ops[op.Name]
	if !ok {
		return nil, fmt.Errorf("%q: unknown op %q", line, op.Name)
	}
	op.spec = spec
	op.text = strings.Join(fields, " ")
	rest := fields[1:]

	switch spec.str {
	case textStr:
		op.str = strings.Join(rest, " ")
		return op, nil
	case nameStr:
		if len(rest) != 1 {
			return nil, fmt.Errorf("%q: %s takes one image name", line, op.Name)
		}
		op.str = rest[0]
		return op, nil
	}

	if len(rest) != spec.nargs {
		return nil, fmt.Errorf("%q: %s takes %d operands, got %d", line, op.Name, spec.nargs, len(rest))
	}
	for _, f := range rest {
		if f == argVar {
			op.args = append(op.args, operand{isArg: true})
			continue
		}
		v, err := parseInt(f)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", line, err)
		}
		op.args = append(op.args, operand{v: v})
	}
	return op, nil
}

// operands resolves the op's operands for an entry started with arg.
func (o *Op) operands(arg uintptr) []int64 {
	a := make([]int64, len(o.args))
	for i, x := range o.args {
		a[i] = x.value(arg)
	}
	return a
}

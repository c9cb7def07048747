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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

func runBuiltin(t *testing.T, name string) *Result {
	t.Helper()
	w, err := Builtin(name)
	if err != nil {
		t.Fatalf("Builtin(%q) failed: %v", name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := Run(ctx, w, kernel.Config{})
	if err != nil {
		t.Fatalf("Run(%q) failed: %v", name, err)
	}
	return res
}

// traceOps returns the ops of res run by pid/tid, in order.
func traceOps(res *Result, pid, tid int32) []string {
	var got []string
	for _, r := range res.Trace {
		if r.PID == pid && r.TID == tid {
			got = append(got, r.String())
		}
	}
	return got
}

func TestBuiltinsPass(t *testing.T) {
	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			res := runBuiltin(t, name)
			if len(res.Failures) != 0 {
				t.Errorf("failures: %v", res.Failures)
			}
			if len(res.Trace) == 0 {
				t.Errorf("empty trace")
			}
			if res.Snapshot == nil || res.Snapshot.LiveTasks != 0 {
				t.Errorf("snapshot got %+v, want no live tasks", res.Snapshot)
			}
		})
	}
}

func TestSelfRelockTrace(t *testing.T) {
	res := runBuiltin(t, "self_relock")
	want := []string{
		"1/0: enable_deadlock_detect 1 = 0",
		"1/0: mutex_create 1 = 0",
		"1/0: mutex_lock 0 = 0",
		"1/0: mutex_lock 0 = -57005",
		"1/0: mutex_unlock 0 = 0",
		"1/0: mutex_destroy 0 = 0",
		"1/0: exit 0 = 0",
	}
	if diff := cmp.Diff(want, traceOps(res, 1, 0)); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0/0: spawn relock = 1", "0/0: reap 1 = 0"}, traceOps(res, 0, 0)); diff != "" {
		t.Errorf("init trace mismatch (-want +got):\n%s", diff)
	}
}

func TestSleepOrderingTrace(t *testing.T) {
	res := runBuiltin(t, "sleep_ordering")
	var woke []int32
	for _, r := range res.Trace {
		if r.Op == "sleep $arg" {
			woke = append(woke, r.TID)
		}
	}
	if diff := cmp.Diff([]int32{2, 3, 1}, woke); diff != "" {
		t.Errorf("wake order mismatch (-want +got):\n%s", diff)
	}
}

func TestStrideSharesTrace(t *testing.T) {
	res := runBuiltin(t, "stride_shares")
	// Programs are spawned in order: high is pid 1, low is pid 2.
	last := map[int32]int{}
	for i, r := range res.Trace {
		if r.Op == "yield" {
			last[r.PID] = i
		}
	}
	if last[1] >= last[2] {
		t.Errorf("high priority program finished at record %d, after low priority at %d", last[1], last[2])
	}
}

func TestFailedExpectation(t *testing.T) {
	w := &Workload{
		Name: "expect",
		Programs: []Program{{Name: "a", Entries: [][]string{{
			"getpid == 1",
			"gettid == 3",
			"mutex_lock 0 == -1",
		}}}},
	}
	res, err := Run(context.Background(), w, kernel.Config{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []Failure{{Record: Record{PID: 1, TID: 0, Op: "gettid", Ret: 0}, Want: 3}}
	if diff := cmp.Diff(want, res.Failures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
}

func TestEnableDeadlockDetectRange(t *testing.T) {
	w := &Workload{
		Name: "detect",
		Programs: []Program{{Name: "a", Entries: [][]string{{
			"enable_deadlock_detect 2 == -1",
			"enable_deadlock_detect 0x100000001 == -1",
			"enable_deadlock_detect 1 == 0",
		}}}},
	}
	res, err := Run(context.Background(), w, kernel.Config{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Failures) != 0 {
		t.Errorf("failures got %v, want none", res.Failures)
	}
}

func TestTaskPanicReturned(t *testing.T) {
	w := &Workload{
		Name: "panic",
		Programs: []Program{{Name: "a", Entries: [][]string{{
			"mutex_create 1 == 0",
			"mutex_unlock 0",
		}}}},
	}
	res, err := Run(context.Background(), w, kernel.Config{})
	var tp *kernel.TaskPanic
	if !errors.As(err, &tp) {
		t.Fatalf("Run got %v, want a *kernel.TaskPanic", err)
	}
	if tp.Task != "1/0" {
		t.Errorf("panicking task got %q, want 1/0", tp.Task)
	}
	if res == nil || len(res.Trace) != 2 {
		t.Errorf("trace got %v, want spawn and mutex_create", res)
	}
}

func TestDeadlockTimesOut(t *testing.T) {
	// Without detection, the two threads block on each other forever.
	w := &Workload{
		Name: "hang",
		Programs: []Program{{Name: "a", Entries: [][]string{
			{"mutex_create 1", "mutex_create 1", "thread_create 1 0", "thread_create 2 0", "join 1"},
			{"mutex_lock 0", "yield", "mutex_lock 1"},
			{"mutex_lock 1", "yield", "mutex_lock 0"},
		}}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res, err := Run(ctx, w, kernel.Config{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run got %v, want %v", err, context.DeadlineExceeded)
	}
	var blocked []int32
	for _, p := range res.Snapshot.Processes {
		for _, ts := range p.Tasks {
			if ts.Status == kernel.TaskBlocked.String() {
				blocked = append(blocked, ts.TID)
			}
		}
	}
	if diff := cmp.Diff([]int32{1, 2}, blocked); diff != "" {
		t.Errorf("blocked tasks mismatch (-want +got):\n%s", diff)
	}
}

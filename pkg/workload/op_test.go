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
	"testing"
)

func TestParseOp(t *testing.T) {
	for _, tc := range []struct {
		line   string
		name   string
		text   string
		repeat int
		expect *int64
	}{
		{line: "yield", name: "yield", text: "yield", repeat: 1},
		{line: "  mutex_lock   0  ", name: "mutex_lock", text: "mutex_lock 0", repeat: 1},
		{line: "mutex_lock 0 == -0xDEAD", name: "mutex_lock", text: "mutex_lock 0", repeat: 1, expect: int64p(-0xdead)},
		{line: "repeat 3 yield == 0", name: "yield", text: "yield", repeat: 3, expect: int64p(0)},
		{line: "thread_create 1 $arg", name: "thread_create", text: "thread_create 1 $arg", repeat: 1},
		{line: "spawn child == 1", name: "spawn", text: "spawn child", repeat: 1, expect: int64p(1)},
		{line: "log hello  world", name: "log", text: "log hello world", repeat: 1},
		{line: "mmap 0x20000000 4096 0b11", name: "mmap", text: "mmap 0x20000000 4096 0b11", repeat: 1},
	} {
		t.Run(tc.line, func(t *testing.T) {
			op, err := ParseOp(tc.line)
			if err != nil {
				t.Fatalf("ParseOp failed: %v", err)
			}
			if op.Name != tc.name || op.String() != tc.text || op.Repeat != tc.repeat {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)", op.Name, op.String(), op.Repeat, tc.name, tc.text, tc.repeat)
			}
			switch {
			case tc.expect == nil && op.Expect != nil:
				t.Errorf("got expectation %d, want none", *op.Expect)
			case tc.expect != nil && (op.Expect == nil || *op.Expect != *tc.expect):
				t.Errorf("got expectation %v, want %d", op.Expect, *tc.expect)
			}
		})
	}
}

func TestParseOpErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"== 0",
		"frobnicate",
		"mutex_lock",
		"mutex_lock 0 1",
		"mutex_lock zero",
		"mutex_lock 0 == ",
		"mutex_lock 0 == 1 2",
		"mutex_lock 0 == x",
		"repeat 0 yield",
		"repeat 2",
		"spawn",
		"spawn a b",
	} {
		if _, err := ParseOp(line); err == nil {
			t.Errorf("ParseOp(%q) succeeded, want error", line)
		}
	}
}

func TestOperands(t *testing.T) {
	op, err := ParseOp("condvar_wait $arg 7")
	if err != nil {
		t.Fatalf("ParseOp failed: %v", err)
	}
	got := op.operands(3)
	if len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Errorf("operands(3) got %v, want [3 7]", got)
	}
}

func int64p(v int64) *int64 {
	return &v
}

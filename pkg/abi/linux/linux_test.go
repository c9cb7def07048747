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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNsecToTimeval(t *testing.T) {
	tv := NsecToTimeval(5_123_456_789)
	if diff := cmp.Diff(Timeval{Sec: 5, Usec: 123456}, tv); diff != "" {
		t.Errorf("NsecToTimeval mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskInfoLayout(t *testing.T) {
	ti := TaskInfo{Status: TaskRunning, TimeMS: 0x0102030405060708}
	ti.SyscallTimes[0] = 7
	ti.SyscallTimes[MaxSyscallNum-1] = 9
	buf := make([]byte, ti.SizeBytes())
	if rest := ti.MarshalBytes(buf); len(rest) != 0 {
		t.Fatalf("MarshalBytes left %d bytes", len(rest))
	}
	if got := ByteOrder.Uint32(buf[4:8]); got != 7 {
		t.Errorf("syscall_times[0] = %d, want 7", got)
	}
	if got := ByteOrder.Uint64(buf[SizeOfTaskInfo-8:]); got != ti.TimeMS {
		t.Errorf("time = %#x, want %#x", got, ti.TimeMS)
	}
	var back TaskInfo
	back.UnmarshalBytes(buf)
	if diff := cmp.Diff(ti, back); diff != "" {
		t.Errorf("TaskInfo mismatch (-want +got):\n%s", diff)
	}
}

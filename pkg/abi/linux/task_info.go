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

// MaxSyscallNum bounds the syscall numbers counted in TaskInfo.SyscallTimes.
const MaxSyscallNum = 500

// Task status values reported through TaskInfo.Status.
const (
	TaskReady   = 0
	TaskRunning = 1
	TaskBlocked = 2
	TaskZombie  = 3
)

// SizeOfTaskInfo is the size of a TaskInfo struct in bytes: a 4-byte status,
// the syscall counters, 4 bytes of padding and an 8-byte run time.
const SizeOfTaskInfo = 4 + 4*MaxSyscallNum + 4 + 8

// TaskInfo is the structure written by task_info.
//
//	struct task_info {
//		uint32_t status;
//		uint32_t syscall_times[MAX_SYSCALL_NUM];
//		uint64_t time; /* milliseconds since the task first ran */
//	};
type TaskInfo struct {
	Status       uint32
	SyscallTimes [MaxSyscallNum]uint32
	TimeMS       uint64
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (ti *TaskInfo) SizeBytes() int {
	return SizeOfTaskInfo
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (ti *TaskInfo) MarshalBytes(dst []byte) []byte {
	ByteOrder.PutUint32(dst[0:4], ti.Status)
	off := 4
	for _, n := range ti.SyscallTimes {
		ByteOrder.PutUint32(dst[off:off+4], n)
		off += 4
	}
	// Padding.
	ByteOrder.PutUint32(dst[off:off+4], 0)
	off += 4
	ByteOrder.PutUint64(dst[off:off+8], ti.TimeMS)
	return dst[SizeOfTaskInfo:]
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (ti *TaskInfo) UnmarshalBytes(src []byte) []byte {
	ti.Status = ByteOrder.Uint32(src[0:4])
	off := 4
	for i := range ti.SyscallTimes {
		ti.SyscallTimes[i] = ByteOrder.Uint32(src[off : off+4])
		off += 4
	}
	off += 4
	ti.TimeMS = ByteOrder.Uint64(src[off : off+8])
	return src[SizeOfTaskInfo:]
}

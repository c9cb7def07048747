// Copyright 2018 The gVisor Authors.
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

// Package linux contains the constants and types needed to interface with the
// ukernel syscall ABI.
package linux

import (
	"encoding/binary"
)

// ByteOrder is the byte order of every structure exchanged with user memory.
var ByteOrder = binary.LittleEndian

// SizeOfTimeval is the size of a Timeval struct in bytes.
const SizeOfTimeval = 16

// Timeval represents struct timeval in <time.h>.
type Timeval struct {
	Sec  int64
	Usec int64
}

// NsecToTimeval translates nanosecond to Timeval, truncating to whole
// microseconds.
func NsecToTimeval(nsec int64) (tv Timeval) {
	tv.Sec = nsec / 1e9
	tv.Usec = nsec % 1e9 / 1e3
	return
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (tv *Timeval) SizeBytes() int {
	return SizeOfTimeval
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (tv *Timeval) MarshalBytes(dst []byte) []byte {
	ByteOrder.PutUint64(dst[0:8], uint64(tv.Sec))
	ByteOrder.PutUint64(dst[8:16], uint64(tv.Usec))
	return dst[SizeOfTimeval:]
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (tv *Timeval) UnmarshalBytes(src []byte) []byte {
	tv.Sec = int64(ByteOrder.Uint64(src[0:8]))
	tv.Usec = int64(ByteOrder.Uint64(src[8:16]))
	return src[SizeOfTimeval:]
}

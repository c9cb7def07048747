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

package arch

import "testing"

func TestArgSignExtension(t *testing.T) {
	a := Arg(-1)
	if got := a.Int(); got != -1 {
		t.Errorf("Int() = %d, want -1", got)
	}
	if got := a.Int64(); got != -1 {
		t.Errorf("Int64() = %d, want -1", got)
	}
	if got := Arg(int32(-0xDEAD)).Int64(); got != -0xDEAD {
		t.Errorf("Int64() of int32 = %d, want %d", got, -0xDEAD)
	}
	if got := Arg(uint32(7)).Pointer(); got != 7 {
		t.Errorf("Pointer() = %v, want 0x7", got)
	}
}

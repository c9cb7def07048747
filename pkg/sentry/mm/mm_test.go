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

package mm

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/hostarch"
)

const base hostarch.Addr = 0x1_0000_0000

func TestMapValidation(t *testing.T) {
	as := NewAddressSpace()
	if err := as.Map(base, 2*hostarch.PageSize, hostarch.ReadWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	for _, tc := range []struct {
		name   string
		start  hostarch.Addr
		length uint64
		perms  hostarch.AccessType
		want   error
	}{
		{"unaligned", base + 3*hostarch.PageSize + 1, 1, hostarch.Read, linuxerr.EINVAL},
		{"no permissions", base + 4*hostarch.PageSize, 1, hostarch.NoAccess, linuxerr.EINVAL},
		{"overlap", base + hostarch.PageSize, hostarch.PageSize, hostarch.Read, linuxerr.EEXIST},
		{"partial overlap rounds up", base - hostarch.PageSize, hostarch.PageSize + 1, hostarch.Read, linuxerr.EEXIST},
		{"adjacent", base + 2*hostarch.PageSize, 10, hostarch.Read, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := as.Map(tc.start, tc.length, tc.perms); err != tc.want {
				t.Errorf("Map(%v, %d, %v): got %v, want %v", tc.start, tc.length, tc.perms, err, tc.want)
			}
		})
	}
	want := []Mapping{
		{AddrRange: hostarch.AddrRange{Start: base, End: base + 2*hostarch.PageSize}, Perms: hostarch.ReadWrite},
		{AddrRange: hostarch.AddrRange{Start: base + 2*hostarch.PageSize, End: base + 3*hostarch.PageSize}, Perms: hostarch.Read},
	}
	if diff := cmp.Diff(want, as.Mappings()); diff != "" {
		t.Errorf("Mappings mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmapRequiresMappedRange(t *testing.T) {
	as := NewAddressSpace()
	if err := as.Map(base, hostarch.PageSize, hostarch.Read); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := as.Unmap(base, 2*hostarch.PageSize); err != linuxerr.EINVAL {
		t.Fatalf("Unmap past mapping: got %v, want EINVAL", err)
	}
	if !as.IsMapped(base) {
		t.Fatalf("failed Unmap removed a page")
	}
	if err := as.Unmap(base, hostarch.PageSize); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if as.IsMapped(base) {
		t.Fatalf("page still mapped after Unmap")
	}
}

func TestCopyStraddlesPages(t *testing.T) {
	as := NewAddressSpace()
	if err := as.Map(base, 2*hostarch.PageSize, hostarch.ReadWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	addr := base + hostarch.PageSize - 5
	src := []byte("0123456789abcdef")
	if n, err := as.CopyOut(addr, src); err != nil || n != len(src) {
		t.Fatalf("CopyOut: got (%d, %v), want (%d, nil)", n, err, len(src))
	}
	dst := make([]byte, len(src))
	if _, err := as.CopyIn(addr, dst); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Fatalf("CopyIn: got %q, want %q", dst, src)
	}
	if _, err := as.CopyOut(base+2*hostarch.PageSize-2, src); err != linuxerr.EFAULT {
		t.Fatalf("CopyOut past mapping: got %v, want EFAULT", err)
	}
}

func TestStrings(t *testing.T) {
	as := NewAddressSpace()
	addr := as.EnsureScratch(3)
	if addr != ScratchAddr(3) {
		t.Fatalf("EnsureScratch: got %v, want %v", addr, ScratchAddr(3))
	}
	if err := as.CopyOutString(addr, "ch8_deadlock"); err != nil {
		t.Fatalf("CopyOutString: %v", err)
	}
	got, err := as.CopyInString(addr)
	if err != nil || got != "ch8_deadlock" {
		t.Fatalf("CopyInString: got (%q, %v), want (%q, nil)", got, err, "ch8_deadlock")
	}
	if _, err := as.CopyInString(base); err != linuxerr.EFAULT {
		t.Fatalf("CopyInString of unmapped address: got %v, want EFAULT", err)
	}
}

func TestSbrk(t *testing.T) {
	as := NewAddressSpace()
	old, err := as.Sbrk(100)
	if err != nil || old != HeapBase {
		t.Fatalf("Sbrk(100): got (%v, %v), want (%v, nil)", old, err, HeapBase)
	}
	if !as.IsMapped(HeapBase + 99) {
		t.Fatalf("heap page not mapped after growth")
	}
	if _, err := as.Sbrk(-200); err != linuxerr.ENOMEM {
		t.Fatalf("Sbrk below heap bottom: got %v, want ENOMEM", err)
	}
	old, err = as.Sbrk(-100)
	if err != nil || old != HeapBase+100 {
		t.Fatalf("Sbrk(-100): got (%v, %v), want (%v, nil)", old, err, HeapBase+100)
	}
	if as.IsMapped(HeapBase) {
		t.Fatalf("heap page still mapped after shrinking to empty")
	}
}

func TestForkIsIndependent(t *testing.T) {
	as := NewAddressSpace()
	if err := as.Map(base, hostarch.PageSize, hostarch.ReadWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if _, err := as.CopyOut(base, []byte{1}); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}
	child := as.Fork()
	if _, err := child.CopyOut(base, []byte{2}); err != nil {
		t.Fatalf("child CopyOut: %v", err)
	}
	var b [1]byte
	as.CopyIn(base, b[:])
	if b[0] != 1 {
		t.Errorf("parent byte changed by child write: got %d, want 1", b[0])
	}
	child.CopyIn(base, b[:])
	if b[0] != 2 {
		t.Errorf("child byte: got %d, want 2", b[0])
	}
	if child.Brk != as.Brk || child.HeapBottom != as.HeapBottom {
		t.Errorf("child break (%v, %v) differs from parent (%v, %v)", child.HeapBottom, child.Brk, as.HeapBottom, as.Brk)
	}
}

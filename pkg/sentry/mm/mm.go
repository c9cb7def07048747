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

// Package mm provides a minimal memory management subsystem: page-granular
// address spaces through which the syscall layer copies small structures
// between the kernel and user programs.
//
// Lock order:
//
//	AddressSpace.mu
package mm

import (
	"fmt"
	"sort"

	"github.com/mohae/deepcopy"
	"gvisor.dev/ukernel/pkg/errors/linuxerr"
	"gvisor.dev/ukernel/pkg/hostarch"
	"gvisor.dev/ukernel/pkg/sync"
)

const (
	// HeapBase is the initial program break.
	HeapBase hostarch.Addr = 0x1000_0000

	// ScratchTop is the end of the per-task scratch region. Task tid owns
	// the page [ScratchTop-(tid+1)*PageSize, ScratchTop-tid*PageSize).
	ScratchTop hostarch.Addr = 0x7fff_0000_0000

	// maxStringLen bounds CopyInString.
	maxStringLen = hostarch.PageSize
)

// Page is one mapped page.
//
// Fields are exported so that Fork can deep-copy them.
type Page struct {
	Perms hostarch.AccessType
	Data  []byte
}

// AddressSpace is a process's user address space.
type AddressSpace struct {
	mu sync.Mutex

	// Pages maps page-aligned addresses to pages. Protected by mu.
	Pages map[hostarch.Addr]*Page

	// HeapBottom is the lowest possible program break. Immutable.
	HeapBottom hostarch.Addr

	// Brk is the current program break. Protected by mu.
	Brk hostarch.Addr
}

// NewAddressSpace returns an empty address space with the program break at
// HeapBase.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		Pages:      make(map[hostarch.Addr]*Page),
		HeapBottom: HeapBase,
		Brk:        HeapBase,
	}
}

// ScratchAddr returns the base of the scratch page of task tid.
func ScratchAddr(tid int32) hostarch.Addr {
	return ScratchTop - hostarch.Addr(tid+1)*hostarch.PageSize
}

// pageRange returns the page-rounded range covering [start, start+length).
func pageRange(start hostarch.Addr, length uint64) (hostarch.AddrRange, error) {
	end, ok := start.AddLength(length)
	if !ok {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	end, ok = end.RoundUp()
	if !ok {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	return hostarch.AddrRange{Start: start.RoundDown(), End: end}, nil
}

// Map maps fresh zeroed pages over [start, start+length) with the given
// permissions.
//
// It fails with EINVAL if start is not page aligned or perms grants nothing,
// and with EEXIST if any page in the range is already mapped. On failure
// nothing is mapped.
func (as *AddressSpace) Map(start hostarch.Addr, length uint64, perms hostarch.AccessType) error {
	if !start.IsPageAligned() || !perms.Any() {
		return linuxerr.EINVAL
	}
	ar, err := pageRange(start, length)
	if err != nil {
		return err
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	for addr := ar.Start; addr < ar.End; addr += hostarch.PageSize {
		if _, ok := as.Pages[addr]; ok {
			return linuxerr.EEXIST
		}
	}
	as.mapLocked(ar, perms)
	return nil
}

// Preconditions: as.mu is locked. No page in ar is mapped.
func (as *AddressSpace) mapLocked(ar hostarch.AddrRange, perms hostarch.AccessType) {
	for addr := ar.Start; addr < ar.End; addr += hostarch.PageSize {
		as.Pages[addr] = &Page{Perms: perms, Data: make([]byte, hostarch.PageSize)}
	}
}

// Unmap unmaps [start, start+length).
//
// It fails with EINVAL if start is not page aligned or if any page in the
// range is not mapped. On failure nothing is unmapped.
func (as *AddressSpace) Unmap(start hostarch.Addr, length uint64) error {
	if !start.IsPageAligned() {
		return linuxerr.EINVAL
	}
	ar, err := pageRange(start, length)
	if err != nil {
		return err
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	for addr := ar.Start; addr < ar.End; addr += hostarch.PageSize {
		if _, ok := as.Pages[addr]; !ok {
			return linuxerr.EINVAL
		}
	}
	for addr := ar.Start; addr < ar.End; addr += hostarch.PageSize {
		delete(as.Pages, addr)
	}
	return nil
}

// EnsureScratch maps the scratch page of task tid if it is not mapped yet.
func (as *AddressSpace) EnsureScratch(tid int32) hostarch.Addr {
	addr := ScratchAddr(tid)
	as.mu.Lock()
	defer as.mu.Unlock()
	if _, ok := as.Pages[addr]; !ok {
		as.mapLocked(hostarch.AddrRange{Start: addr, End: addr + hostarch.PageSize}, hostarch.ReadWrite)
	}
	return addr
}

// Sbrk moves the program break by delta bytes and returns the old break.
// Pages are mapped or unmapped so that [HeapBottom, Brk) is always backed.
// It fails with ENOMEM if the break would drop below HeapBottom or collide
// with an existing mapping.
func (as *AddressSpace) Sbrk(delta int64) (hostarch.Addr, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	old := as.Brk
	newBrk := hostarch.Addr(int64(old) + delta)
	if (delta < 0 && newBrk > old) || (delta > 0 && newBrk < old) || newBrk < as.HeapBottom {
		return 0, linuxerr.ENOMEM
	}
	oldEnd, _ := old.RoundUp()
	newEnd, ok := newBrk.RoundUp()
	if !ok {
		return 0, linuxerr.ENOMEM
	}
	switch {
	case newEnd > oldEnd:
		for addr := oldEnd; addr < newEnd; addr += hostarch.PageSize {
			if _, ok := as.Pages[addr]; ok {
				return 0, linuxerr.ENOMEM
			}
		}
		as.mapLocked(hostarch.AddrRange{Start: oldEnd, End: newEnd}, hostarch.ReadWrite)
	case newEnd < oldEnd:
		for addr := newEnd; addr < oldEnd; addr += hostarch.PageSize {
			delete(as.Pages, addr)
		}
	}
	as.Brk = newBrk
	return old, nil
}

// copy runs fn over each page-sized piece of [addr, addr+n). It fails with
// EFAULT, before touching any page, if part of the range is unmapped.
//
// Preconditions: as.mu is locked.
func (as *AddressSpace) copyLocked(addr hostarch.Addr, n int, fn func(page []byte, done int) int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	if _, ok := addr.AddLength(uint64(n)); !ok {
		return 0, linuxerr.EFAULT
	}
	for a := addr.RoundDown(); a < addr+hostarch.Addr(n); a += hostarch.PageSize {
		if _, ok := as.Pages[a]; !ok {
			return 0, linuxerr.EFAULT
		}
	}
	done := 0
	for done < n {
		cur := addr + hostarch.Addr(done)
		p := as.Pages[cur.RoundDown()]
		off := cur.PageOffset()
		done += fn(p.Data[off:], done)
	}
	return done, nil
}

// CopyOut copies src to user memory at addr. A structure may straddle a
// page boundary.
func (as *AddressSpace) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.copyLocked(addr, len(src), func(page []byte, done int) int {
		return copy(page, src[done:])
	})
}

// CopyIn copies user memory at addr into dst.
func (as *AddressSpace) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.copyLocked(addr, len(dst), func(page []byte, done int) int {
		return copy(dst[done:], page)
	})
}

// CopyInString copies a NUL-terminated string of at most maxStringLen bytes
// from addr.
func (as *AddressSpace) CopyInString(addr hostarch.Addr) (string, error) {
	var buf []byte
	var b [1]byte
	for i := 0; i < maxStringLen; i++ {
		if _, err := as.CopyIn(addr+hostarch.Addr(i), b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
	return "", linuxerr.ENAMETOOLONG
}

// CopyOutString copies s followed by a NUL byte to addr.
func (as *AddressSpace) CopyOutString(addr hostarch.Addr, s string) error {
	if len(s) >= maxStringLen {
		return linuxerr.ENAMETOOLONG
	}
	_, err := as.CopyOut(addr, append([]byte(s), 0))
	return err
}

// Fork returns a deep copy of as.
func (as *AddressSpace) Fork() *AddressSpace {
	as.mu.Lock()
	defer as.mu.Unlock()
	c, ok := deepcopy.Copy(as).(*AddressSpace)
	if !ok {
		panic(fmt.Sprintf("deepcopy of %T returned the wrong type", as))
	}
	if c.Pages == nil {
		c.Pages = make(map[hostarch.Addr]*Page)
	}
	return c
}

// IsMapped reports whether the page containing addr is mapped.
func (as *AddressSpace) IsMapped(addr hostarch.Addr) bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	_, ok := as.Pages[addr.RoundDown()]
	return ok
}

// Mappings returns the mapped pages, coalesced into ranges of equal
// permissions and sorted by address.
func (as *AddressSpace) Mappings() []Mapping {
	as.mu.Lock()
	addrs := make([]hostarch.Addr, 0, len(as.Pages))
	perms := make(map[hostarch.Addr]hostarch.AccessType, len(as.Pages))
	for a, p := range as.Pages {
		addrs = append(addrs, a)
		perms[a] = p.Perms
	}
	as.mu.Unlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	var ms []Mapping
	for _, a := range addrs {
		if n := len(ms); n > 0 && ms[n-1].End == a && ms[n-1].Perms == perms[a] {
			ms[n-1].End += hostarch.PageSize
			continue
		}
		ms = append(ms, Mapping{AddrRange: hostarch.AddrRange{Start: a, End: a + hostarch.PageSize}, Perms: perms[a]})
	}
	return ms
}

// Mapping is a run of pages with the same permissions.
type Mapping struct {
	hostarch.AddrRange
	Perms hostarch.AccessType
}

// String implements fmt.Stringer.String.
func (m Mapping) String() string {
	return fmt.Sprintf("%v %v", m.AddrRange, m.Perms)
}

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

package ilist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testEntry struct {
	Entry[*testEntry]
	value int
}

// drain pops every element of l and returns their values in order.
func drain(l *List[*testEntry]) []int {
	var got []int
	for e, ok := l.PopFront(); ok; e, ok = l.PopFront() {
		got = append(got, e.value)
	}
	return got
}

func TestPushAndRemove(t *testing.T) {
	var l List[*testEntry]
	if got := l.Len(); got != 0 {
		t.Fatalf("zero list Len: got %d, want 0", got)
	}
	es := make([]*testEntry, 5)
	for i := range es {
		es[i] = &testEntry{value: i}
		l.PushBack(es[i])
	}
	l.Remove(es[0])
	l.Remove(es[2])
	l.Remove(es[4])
	l.PushBack(es[4])
	if got := l.Len(); got != 3 {
		t.Fatalf("Len: got %d, want 3", got)
	}
	if diff := cmp.Diff([]int{1, 3, 4}, drain(&l)); diff != "" {
		t.Fatalf("list contents mismatch (-want +got):\n%s", diff)
	}
	if got := l.Len(); got != 0 {
		t.Fatalf("Len after drain: got %d, want 0", got)
	}
}

func TestPopFrontIsFIFO(t *testing.T) {
	var l List[*testEntry]
	for i := 0; i < 3; i++ {
		l.PushBack(&testEntry{value: i})
	}
	for want := 0; want < 3; want++ {
		e, ok := l.PopFront()
		if !ok {
			t.Fatalf("PopFront: list empty, want %d", want)
		}
		if e.value != want {
			t.Fatalf("PopFront: got %d, want %d", e.value, want)
		}
		if e.Next() != nil || e.Prev() != nil {
			t.Fatalf("popped entry still linked")
		}
	}
	if _, ok := l.PopFront(); ok {
		t.Fatalf("PopFront on empty list: got ok")
	}
}

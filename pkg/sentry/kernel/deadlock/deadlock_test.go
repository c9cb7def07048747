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

package deadlock

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFeasible(t *testing.T) {
	for _, tc := range []struct {
		name         string
		available    []int
		claims       []*Claim
		wantFinished []bool
		wantOK       bool
	}{
		{
			name:         "no tasks",
			available:    []int{1},
			wantFinished: []bool{},
			wantOK:       true,
		},
		{
			name:      "holder can finish then requester",
			available: []int{0},
			claims: []*Claim{
				{Need: []int{0}, Have: []int{1}},
				{Need: []int{1}, Have: []int{0}},
			},
			wantFinished: []bool{true, true},
			wantOK:       true,
		},
		{
			name:      "self relock",
			available: []int{0},
			claims: []*Claim{
				{Need: []int{1}, Have: []int{1}},
			},
			wantFinished: []bool{false},
			wantOK:       false,
		},
		{
			name:      "two mutex cycle",
			available: []int{0, 0},
			claims: []*Claim{
				{Need: []int{0, 1}, Have: []int{1, 0}},
				{Need: []int{1, 0}, Have: []int{0, 1}},
			},
			wantFinished: []bool{false, false},
			wantOK:       false,
		},
		{
			name:      "cycle with a bystander",
			available: []int{0, 0, 1},
			claims: []*Claim{
				{Need: []int{0, 1, 0}, Have: []int{1, 0, 0}},
				{Need: []int{1, 0, 0}, Have: []int{0, 1, 0}},
				{Need: []int{0, 0, 1}, Have: []int{0, 0, 0}},
			},
			wantFinished: []bool{false, false, true},
			wantOK:       false,
		},
		{
			name:      "exited slots count as finished",
			available: []int{1},
			claims: []*Claim{
				nil,
				{Need: []int{1}, Have: []int{0}},
				nil,
			},
			wantFinished: []bool{true, true, true},
			wantOK:       true,
		},
		{
			name:      "chain resolved across rounds",
			available: []int{0, 0, 0},
			claims: []*Claim{
				{Need: []int{0, 1, 0}, Have: []int{1, 0, 0}},
				{Need: []int{0, 0, 1}, Have: []int{0, 1, 0}},
				{Need: []int{0, 0, 0}, Have: []int{0, 0, 1}},
			},
			wantFinished: []bool{true, true, true},
			wantOK:       true,
		},
		{
			name:      "semaphore counts",
			available: []int{1},
			claims: []*Claim{
				{Need: []int{2}, Have: []int{1}},
				{Need: []int{1}, Have: []int{2}},
			},
			wantFinished: []bool{true, true},
			wantOK:       true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			finished, ok := Feasible(tc.available, tc.claims)
			if ok != tc.wantOK {
				t.Errorf("Feasible ok: got %t, want %t", ok, tc.wantOK)
			}
			if diff := cmp.Diff(tc.wantFinished, finished); diff != "" {
				t.Errorf("finished mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFeasibleDoesNotModifyInputs(t *testing.T) {
	available := []int{0, 1}
	claims := []*Claim{
		{Need: []int{0, 1}, Have: []int{1, 0}},
		{Need: []int{1, 0}, Have: []int{0, 0}},
	}
	Feasible(available, claims)
	if diff := cmp.Diff([]int{0, 1}, available); diff != "" {
		t.Errorf("available modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, claims[0].Need); diff != "" {
		t.Errorf("need modified (-want +got):\n%s", diff)
	}
}

func TestFeasibleMisalignedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Feasible with misaligned vectors did not panic")
		}
	}()
	Feasible([]int{1, 1}, []*Claim{{Need: []int{0}, Have: []int{0, 0}}})
}

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

// Package deadlock implements the safety check run before a task is granted a
// unit of a mutex or semaphore.
//
// The check is the safety half of the Banker's algorithm. Starting from the
// units currently available, it repeatedly looks for a task whose pending
// requests could all be satisfied, assumes that task runs to completion and
// returns everything it holds, and continues until no more tasks can finish.
// If some task can never finish, the state is unsafe.
//
// Each resource class (mutexes, semaphores) is checked on its own; the
// vectors passed to one call must all describe the same class.
package deadlock

import (
	"fmt"
)

// Claim is one task's position in a resource class. Need[i] is the number of
// units of resource i the task is waiting for, and Have[i] is the number it
// holds. Have may be negative for semaphores that the task released more
// often than it acquired.
type Claim struct {
	Need []int
	Have []int
}

// Feasible reports whether every task can finish given available units.
//
// claims is indexed by task slot. A nil entry is an empty or exited slot and
// counts as finished. finished reports, per slot, whether that task could
// finish; ok is true iff all of them could.
//
// The scan runs at most len(claims) rounds and stops early after a round in
// which no task finishes.
//
// Feasible panics if any vector is not the same length as available, since
// that means the ledger and the process resource tables have diverged.
func Feasible(available []int, claims []*Claim) (finished []bool, ok bool) {
	for i, c := range claims {
		if c == nil {
			continue
		}
		if len(c.Need) != len(available) || len(c.Have) != len(available) {
			panic(fmt.Sprintf("deadlock: claim of slot %d has need/have lengths %d/%d, want %d", i, len(c.Need), len(c.Have), len(available)))
		}
	}

	work := append([]int(nil), available...)
	finished = make([]bool, len(claims))
	for i, c := range claims {
		if c == nil {
			finished[i] = true
		}
	}

	for round := 0; round < len(claims); round++ {
		progress := false
		for i, c := range claims {
			if finished[i] || !satisfiable(c.Need, work) {
				continue
			}
			finished[i] = true
			progress = true
			for r, h := range c.Have {
				work[r] += h
			}
		}
		if !progress {
			break
		}
	}

	for _, f := range finished {
		if !f {
			return finished, false
		}
	}
	return finished, true
}

// satisfiable returns true if need <= work index-wise.
func satisfiable(need, work []int) bool {
	for i, n := range need {
		if n > work[i] {
			return false
		}
	}
	return true
}

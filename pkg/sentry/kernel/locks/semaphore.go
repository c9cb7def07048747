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

package locks

import (
	"fmt"
)

// Semaphore is a counting semaphore.
//
// count is the number of available units when positive. When negative, its
// magnitude is the number of blocked waiters.
type Semaphore struct {
	count   int
	waiters waitList
}

// NewSemaphore returns a semaphore with count units available.
func NewSemaphore(count int) *Semaphore {
	if count < 0 {
		panic(fmt.Sprintf("negative semaphore count %d", count))
	}
	return &Semaphore{count: count}
}

// Up releases one unit, waking the longest waiter if there is one.
func (s *Semaphore) Up(Context) {
	s.count++
	if s.count <= 0 {
		if !s.waiters.wakeOne() {
			panic(fmt.Sprintf("semaphore count %d with no waiters", s.count))
		}
	}
}

// Down acquires one unit, blocking in FIFO order until one is available.
func (s *Semaphore) Down(ctx Context) {
	s.count--
	if s.count < 0 {
		s.waiters.block(ctx, "semaphore")
	}
}

// Count returns the semaphore value. Negative values count waiters.
func (s *Semaphore) Count() int {
	return s.count
}

// Busy returns true if tasks are blocked on s.
func (s *Semaphore) Busy() bool {
	return s.waiters.len() > 0
}

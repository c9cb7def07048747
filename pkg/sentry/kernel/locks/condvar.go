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

// Condvar is a condition variable.
//
// Wait does not re-acquire the mutex it released: a woken task that needs
// the mutex must lock it again itself, and must recheck its condition since
// the state may have changed between Signal and its lock.
type Condvar struct {
	waiters waitList
}

// NewCondvar returns a condition variable with no waiters.
func NewCondvar() *Condvar {
	return &Condvar{}
}

// Signal wakes the longest waiter. It does nothing if nobody waits.
func (c *Condvar) Signal(Context) {
	c.waiters.wakeOne()
}

// Wait releases m and blocks until signalled.
//
// Preconditions: the caller holds m.
func (c *Condvar) Wait(ctx Context, m Mutex) {
	m.Unlock(ctx)
	c.waiters.block(ctx, "condvar")
}

// Busy returns true if tasks are blocked on c.
func (c *Condvar) Busy() bool {
	return c.waiters.len() > 0
}

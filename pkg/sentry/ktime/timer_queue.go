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

package ktime

import (
	"github.com/google/btree"
)

// timerQueueDegree is the btree degree used by TimerQueue.
const timerQueueDegree = 8

// timerEntry is one pending expiration in a TimerQueue.
type timerEntry[T any] struct {
	when  Time
	seq   uint64
	value T
}

// TimerID identifies a timer registered with a TimerQueue.
type TimerID uint64

// TimerQueue holds values ordered by expiry time. Values with the same expiry
// fire in registration order.
//
// TimerQueue is not safe for concurrent use; the kernel only touches it from
// the running task or the processor loop.
type TimerQueue[T any] struct {
	tree    *btree.BTreeG[timerEntry[T]]
	byID    map[TimerID]timerEntry[T]
	nextSeq uint64
}

func lessTimerEntry[T any](a, b timerEntry[T]) bool {
	if a.when != b.when {
		return a.when.Before(b.when)
	}
	return a.seq < b.seq
}

// NewTimerQueue returns an empty TimerQueue.
func NewTimerQueue[T any]() *TimerQueue[T] {
	return &TimerQueue[T]{
		tree: btree.NewG[timerEntry[T]](timerQueueDegree, lessTimerEntry[T]),
		byID: make(map[TimerID]timerEntry[T]),
	}
}

// Add registers v to expire at when.
func (q *TimerQueue[T]) Add(when Time, v T) TimerID {
	e := timerEntry[T]{when: when, seq: q.nextSeq, value: v}
	q.nextSeq++
	q.tree.ReplaceOrInsert(e)
	id := TimerID(e.seq)
	q.byID[id] = e
	return id
}

// Cancel removes a pending timer. It reports whether the timer was still
// pending.
func (q *TimerQueue[T]) Cancel(id TimerID) bool {
	e, ok := q.byID[id]
	if !ok {
		return false
	}
	delete(q.byID, id)
	q.tree.Delete(e)
	return true
}

// Next returns the earliest pending expiry. ok is false if the queue is empty.
func (q *TimerQueue[T]) Next() (when Time, ok bool) {
	e, ok := q.tree.Min()
	if !ok {
		return Time{}, false
	}
	return e.when, true
}

// Expire removes and returns, in expiry order, every value whose expiry is
// not after now.
func (q *TimerQueue[T]) Expire(now Time) []T {
	var fired []T
	for {
		e, ok := q.tree.Min()
		if !ok || e.when.After(now) {
			return fired
		}
		q.tree.DeleteMin()
		delete(q.byID, TimerID(e.seq))
		fired = append(fired, e.value)
	}
}

// Len returns the number of pending timers.
func (q *TimerQueue[T]) Len() int {
	return q.tree.Len()
}

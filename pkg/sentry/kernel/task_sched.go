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

package kernel

import (
	"gvisor.dev/ukernel/pkg/metric"
)

const (
	// DefaultBigStride is the stride numerator used when Config.BigStride
	// is zero.
	DefaultBigStride = 0x100000

	// DefaultPriority is the priority of new tasks.
	DefaultPriority = 16
)

var fetchesMetric = metric.MustCreateNewUint64Metric("/sched/fetches", "Number of tasks dispatched by the stride scheduler.")

// TaskManager is the ready queue of a kernel.
//
// The queue is unordered. Fetch picks the Ready task with the smallest
// stride, so a task with priority p is dispatched in proportion to p.
type TaskManager struct {
	// bigStride is the pass numerator. Immutable.
	bigStride uint64

	queue []*Task
}

// NewTaskManager returns an empty ready queue. bigStride of zero selects
// DefaultBigStride.
func NewTaskManager(bigStride uint64) *TaskManager {
	if bigStride == 0 {
		bigStride = DefaultBigStride
	}
	return &TaskManager{bigStride: bigStride}
}

// strideLess reports whether stride a is behind stride b. Strides are
// compared modulo 2^64, so the comparison stays correct after a counter
// wraps as long as live strides are within 2^63 of each other.
func strideLess(a, b uint64) bool {
	return int64(a-b) < 0
}

// Add appends t to the queue. It does nothing if t is already queued, so a
// task has at most one entry.
func (tm *TaskManager) Add(t *Task) {
	var added bool
	t.inner.Do(func(ti *taskInner) {
		if ti.queued {
			return
		}
		ti.queued = true
		added = true
	})
	if added {
		tm.queue = append(tm.queue, t)
	}
}

// Len returns the number of queued tasks, Ready or not.
func (tm *TaskManager) Len() int {
	return len(tm.queue)
}

// Fetch removes and returns the Ready task with the smallest stride, and
// advances that task's stride by BigStride/priority. Among equal strides the
// task queued first wins. Entries that are not Ready are skipped, and exited
// tasks are dropped from the queue. Fetch returns nil if no task is Ready.
func (tm *TaskManager) Fetch() *Task {
	best := -1
	var bestStride uint64
	n := 0
	for _, t := range tm.queue {
		g := t.inner.Borrow()
		ti := g.Get()
		switch ti.status {
		case TaskZombie:
			ti.queued = false
			g.Release()
			continue
		case TaskReady:
			if best < 0 || strideLess(ti.stride, bestStride) {
				best = n
				bestStride = ti.stride
			}
		}
		g.Release()
		tm.queue[n] = t
		n++
	}
	for i := n; i < len(tm.queue); i++ {
		tm.queue[i] = nil
	}
	tm.queue = tm.queue[:n]
	if best < 0 {
		return nil
	}

	t := tm.queue[best]
	tm.queue = append(tm.queue[:best], tm.queue[best+1:]...)
	t.inner.Do(func(ti *taskInner) {
		ti.queued = false
		ti.stride += tm.bigStride / uint64(ti.priority)
	})
	fetchesMetric.Increment()
	return t
}

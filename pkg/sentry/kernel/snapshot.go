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

// TaskSnapshot is the state of a task at the time of Kernel.Snapshot.
type TaskSnapshot struct {
	TID      int32          `json:"tid"`
	Status   string         `json:"status"`
	Priority int64          `json:"priority"`
	Stride   uint64         `json:"stride"`
	Usage    *ResourceUsage `json:"usage,omitempty"`
}

// ProcessSnapshot is the state of a process at the time of Kernel.Snapshot.
type ProcessSnapshot struct {
	PID            int32          `json:"pid"`
	Parent         int32          `json:"parent"`
	Image          string         `json:"image"`
	Zombie         bool           `json:"zombie"`
	ExitCode       int32          `json:"exit_code"`
	DeadlockDetect bool           `json:"deadlock_detect"`
	Sync           SyncStatus     `json:"sync"`
	Tasks          []TaskSnapshot `json:"tasks"`
	Mappings       []string       `json:"mappings"`
}

// Snapshot is a point-in-time copy of kernel state. It shares no memory
// with the kernel.
type Snapshot struct {
	ClockNS   int64             `json:"clock_ns"`
	LiveTasks int               `json:"live_tasks"`
	Processes []ProcessSnapshot `json:"processes"`
}

// Snapshot returns a copy of the state of every unreaped process.
//
// Preconditions: Run is not dispatching a task.
func (k *Kernel) Snapshot() *Snapshot {
	s := &Snapshot{
		ClockNS:   k.clock.Now().Nanoseconds(),
		LiveTasks: k.LiveTasks(),
	}
	for _, p := range k.sortedProcesses() {
		s.Processes = append(s.Processes, p.snapshot())
	}
	return s
}

func (p *Process) snapshot() ProcessSnapshot {
	ps := ProcessSnapshot{
		PID:            p.pid,
		Parent:         -1,
		DeadlockDetect: p.DeadlockDetect(),
		Sync:           p.SyncStatus(),
	}
	if parent := p.Parent(); parent != nil {
		ps.Parent = parent.pid
	}
	ps.ExitCode, ps.Zombie = p.Exited()
	ps.Image = p.Image().Name
	for _, m := range p.AddressSpace().Mappings() {
		ps.Mappings = append(ps.Mappings, m.String())
	}
	for _, t := range p.liveTasks() {
		ts := TaskSnapshot{
			TID:   t.tid,
			Usage: t.Usage(),
		}
		t.inner.Do(func(ti *taskInner) {
			ts.Status = ti.status.String()
			ts.Priority = ti.priority
			ts.Stride = ti.stride
		})
		ps.Tasks = append(ps.Tasks, ts)
	}
	return ps
}

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

package workload

import (
	"context"
	"fmt"

	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/sentry/syscalls/linux"
	"gvisor.dev/ukernel/pkg/sync"
	"gvisor.dev/ukernel/pkg/usys"
)

// Record is one executed op.
type Record struct {
	PID int32  `json:"pid"`
	TID int32  `json:"tid"`
	Op  string `json:"op"`
	Ret int64  `json:"ret"`
}

// String implements fmt.Stringer.String.
func (r Record) String() string {
	return fmt.Sprintf("%d/%d: %s = %d", r.PID, r.TID, r.Op, r.Ret)
}

// Failure is an op whose result did not match its expectation.
type Failure struct {
	Record
	Want int64 `json:"want"`
}

// String implements fmt.Stringer.String.
func (f Failure) String() string {
	return fmt.Sprintf("%v, want %d", f.Record, f.Want)
}

// Result is the outcome of a workload run.
type Result struct {
	Workload string           `json:"workload"`
	Trace    []Record         `json:"trace"`
	Failures []Failure        `json:"failures,omitempty"`
	Snapshot *kernel.Snapshot `json:"snapshot,omitempty"`
}

// recorder collects the trace of a run.
type recorder struct {
	mu       sync.Mutex
	trace    []Record
	failures []Failure
}

func (r *recorder) record(t *kernel.Task, op string, ret int64, expect *int64) {
	rec := Record{
		PID: t.Process().PID(),
		TID: t.ThreadID(),
		Op:  op,
		Ret: ret,
	}
	t.Debugf("%s = %d", op, ret)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, rec)
	if expect != nil && *expect != ret {
		r.failures = append(r.failures, Failure{Record: rec, Want: *expect})
	}
}

// compile builds the image of p. Entries record every op they run in rec.
func compile(p *Program, rec *recorder) (*kernel.Image, error) {
	img := &kernel.Image{Name: p.Name}
	for i, entry := range p.Entries {
		var code []*Op
		for j, text := range entry {
			op, err := ParseOp(text)
			if err != nil {
				return nil, fmt.Errorf("program %q entry %d op %d: %w", p.Name, i, j, err)
			}
			code = append(code, op)
		}
		img.Entries = append(img.Entries, entryFunc(code, rec))
	}
	return img, nil
}

func entryFunc(code []*Op, rec *recorder) kernel.EntryFunc {
	return func(t *kernel.Task, arg uintptr) int32 {
		for _, op := range code {
			for n := 0; n < op.Repeat; n++ {
				a := op.operands(arg)
				if op.spec.noReturn {
					rec.record(t, op.String(), a[0], nil)
				}
				ret := op.spec.run(t, a, op.str)
				rec.record(t, op.String(), ret, op.Expect)
			}
		}
		return 0
	}
}

// initImage returns the image that spawns the programs named in spawn and
// reaps every child until none is left.
func initImage(spawn []string, rec *recorder) *kernel.Image {
	return &kernel.Image{
		Name: InitName,
		Entries: []kernel.EntryFunc{func(t *kernel.Task, _ uintptr) int32 {
			for _, name := range spawn {
				rec.record(t, "spawn "+name, usys.Spawn(t, name), nil)
			}
			for {
				pid, code := usys.Waitpid(t, -1)
				switch {
				case pid == kernel.ErrnoStillRunning:
					usys.Yield(t)
				case pid < 0:
					return 0
				default:
					rec.record(t, fmt.Sprintf("reap %d", pid), int64(code), nil)
				}
			}
		}},
	}
}

// images compiles every program of w. Ops record into
// the returned recorder.
func (w *Workload) images() ([]*kernel.Image, *recorder, error) {
	rec := &recorder{}
	var images []*kernel.Image
	for i := range w.Programs {
		img, err := compile(&w.Programs[i], rec)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
	}
	return images, rec, nil
}

// Run boots a kernel configured by cfg and runs w on it. cfg.Loader is
// replaced by a loader holding w's programs, and a nil cfg.Syscalls
// defaults to linux.Linux64.
//
// The result is returned even if Run fails, with the trace up to the
// failure. A task panic is returned as a *kernel.TaskPanic error, and the
// result then carries no snapshot.
func Run(ctx context.Context, w *Workload, cfg kernel.Config) (res *Result, err error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	images, rec, err := w.images()
	if err != nil {
		return nil, err
	}
	cfg.Loader = kernel.NewLoader(images...)
	if cfg.Syscalls == nil {
		cfg.Syscalls = linux.Linux64
	}
	k := kernel.New(cfg)
	defer k.Shutdown()

	res = &Result{Workload: w.Name}
	defer func() {
		rec.mu.Lock()
		res.Trace = rec.trace
		res.Failures = rec.failures
		rec.mu.Unlock()
	}()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		tp, ok := r.(*kernel.TaskPanic)
		if !ok {
			panic(r)
		}
		err = tp
	}()

	if _, err := k.CreateProcess(nil, initImage(w.spawnList(), rec)); err != nil {
		return res, err
	}
	log.Infof("Running workload %q", w.Name)
	err = k.Run(ctx)
	res.Snapshot = k.Snapshot()
	if err != nil {
		log.Warningf("Workload %q stopped: %v", w.Name, err)
	}
	return res, err
}

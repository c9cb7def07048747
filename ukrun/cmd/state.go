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

package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/ukrun/cmd/util"
)

// State implements subcommands.Command for the "state" command.
type State struct {
	list   bool
	get    string
	output string
}

// Name implements subcommands.Command.
func (*State) Name() string {
	return "state"
}

// Synopsis implements subcommands.Command.
func (*State) Synopsis() string {
	return "shows information about a state file written by run"
}

// Usage implements subcommands.Command.
func (*State) Usage() string {
	return `state [flags] <state file>`
}

// SetFlags implements subcommands.Command.
func (s *State) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.list, "list", false, "lists the workloads in the state file.")
	f.StringVar(&s.get, "get", "", "extracts the kernel snapshot of the given workload as JSON.")
	f.StringVar(&s.output, "output", "", "target to write the result.")
}

// Execute implements subcommands.Command.Execute.
func (s *State) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	// Check arguments.
	if s.list && s.get != "" {
		util.Fatalf("error: can't specify -list and -get simultaneously.")
	}
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	// Setup output.
	var output io.Writer = os.Stdout // Default.
	if s.output != "" {
		f, err := os.OpenFile(s.output, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
		if err != nil {
			util.Fatalf("error opening output: %v", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				util.Fatalf("error flushing output: %v", err)
			}
		}()
		output = f
	}

	outcomes, err := readStateFile(f.Arg(0))
	if err != nil {
		util.Fatalf("error reading state file: %v", err)
	}

	switch {
	case s.list:
		for _, o := range outcomes {
			fmt.Fprintf(output, "%s\n", o.Workload)
		}
	case s.get != "":
		o := findOutcome(outcomes, s.get)
		if o == nil {
			util.Fatalf("workload %s: not found", s.get)
		}
		if o.Result == nil || o.Result.Snapshot == nil {
			util.Fatalf("workload %s: no snapshot", s.get)
		}
		e := json.NewEncoder(output)
		e.SetIndent("", "  ")
		if err := e.Encode(o.Result.Snapshot); err != nil {
			util.Fatalf("error printing state: %v", err)
		}
	default:
		for _, o := range outcomes {
			printOutcomeState(output, o)
		}
	}
	return subcommands.ExitSuccess
}

func findOutcome(outcomes []*outcome, name string) *outcome {
	for _, o := range outcomes {
		if o.Workload == name {
			return o
		}
	}
	return nil
}

// printOutcomeState prints the final kernel state of a workload.
func printOutcomeState(w io.Writer, o *outcome) {
	status := "ok"
	if o.Error != "" {
		status = o.Error
	} else if !o.passed() {
		status = "failed"
	}
	fmt.Fprintf(w, "%s: %s\n", o.Workload, status)
	if o.Result == nil || o.Result.Snapshot == nil {
		return
	}
	snap := o.Result.Snapshot
	fmt.Fprintf(w, "  clock %dns, %d live tasks\n", snap.ClockNS, snap.LiveTasks)
	for _, p := range snap.Processes {
		printProcessState(w, &p)
	}
}

func printProcessState(w io.Writer, p *kernel.ProcessSnapshot) {
	fmt.Fprintf(w, "  process %d (%s)", p.PID, p.Image)
	if p.Zombie {
		fmt.Fprintf(w, " exited %d", p.ExitCode)
	}
	if p.DeadlockDetect {
		fmt.Fprint(w, " detect")
	}
	fmt.Fprintln(w)
	if len(p.Sync.MutexAvail) > 0 {
		fmt.Fprintf(w, "    mutex avail %v\n", p.Sync.MutexAvail)
	}
	if len(p.Sync.SemaphoreAvail) > 0 {
		fmt.Fprintf(w, "    semaphore avail %v of %v\n", p.Sync.SemaphoreAvail, p.Sync.SemaphoreCapacity)
	}
	for _, t := range p.Tasks {
		fmt.Fprintf(w, "    task %d: %s priority %d stride %#x\n", t.TID, t.Status, t.Priority, t.Stride)
	}
}

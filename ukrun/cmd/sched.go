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
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/sentry/syscalls/linux"
	"gvisor.dev/ukernel/pkg/usys"
	"gvisor.dev/ukernel/ukrun/cmd/util"
	"gvisor.dev/ukernel/ukrun/config"
)

// Sched implements subcommands.Command for the "sched" command.
type Sched struct {
	priorities string
	rounds     int
}

// Name implements subcommands.Command.Name.
func (*Sched) Name() string {
	return "sched"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Sched) Synopsis() string {
	return "show how the stride scheduler shares the processor"
}

// Usage implements subcommands.Command.Usage.
func (*Sched) Usage() string {
	return `sched [-priorities=2,4,8] [-rounds=N] - runs one busy thread per priority and prints the share of turns each one got.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Sched) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.priorities, "priorities", "2,4,8,16", "comma separated thread priorities. Each must be at least 2.")
	f.IntVar(&s.rounds, "rounds", 1000, "total number of turns to hand out.")
}

// Execute implements subcommands.Command.Execute.
func (s *Sched) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || s.rounds <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	prios, err := parsePriorities(s.priorities)
	if err != nil {
		util.Fatalf("%v", err)
	}
	kc, err := conf.KernelConfig()
	if err != nil {
		util.Fatalf("%v", err)
	}
	if conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
		defer cancel()
	}
	turns, err := strideShares(ctx, kc, prios, s.rounds)
	if err != nil {
		util.Fatalf("running threads: %v", err)
	}
	if err := printShares(os.Stdout, prios, turns); err != nil {
		util.Fatalf("writing output: %v", err)
	}
	return subcommands.ExitSuccess
}

func parsePriorities(s string) ([]int64, error) {
	var prios []int64
	for _, field := range strings.Split(s, ",") {
		p, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid priority %q: %w", field, err)
		}
		if p < 2 {
			return nil, fmt.Errorf("priority must be at least 2, got %d", p)
		}
		prios = append(prios, p)
	}
	return prios, nil
}

// strideShares runs one thread per priority. Every thread takes a turn and
// yields until rounds turns have been taken in total. It returns the number
// of turns each thread got.
func strideShares(ctx context.Context, kc kernel.Config, prios []int64, rounds int) ([]int, error) {
	turns := make([]int, len(prios))
	total := 0
	busy := func(t *kernel.Task, arg uintptr) int32 {
		if usys.SetPriority(t, prios[arg]) < 0 {
			return 1
		}
		for total < rounds {
			turns[arg]++
			total++
			usys.Yield(t)
		}
		return 0
	}
	leader := func(t *kernel.Task, _ uintptr) int32 {
		var tids []int32
		for i := range prios {
			tid := usys.ThreadCreate(t, 1, uintptr(i))
			if tid < 0 {
				return 1
			}
			tids = append(tids, int32(tid))
		}
		for _, tid := range tids {
			for usys.Waittid(t, tid) == kernel.ErrnoStillRunning {
				usys.Yield(t)
			}
		}
		return 0
	}

	img := &kernel.Image{Name: "sched", Entries: []kernel.EntryFunc{leader, busy}}
	kc.Loader = kernel.NewLoader(img)
	if kc.Syscalls == nil {
		kc.Syscalls = linux.Linux64
	}
	k := kernel.New(kc)
	defer k.Shutdown()
	if _, err := k.CreateProcess(nil, img); err != nil {
		return nil, err
	}
	if err := k.Run(ctx); err != nil {
		return nil, err
	}
	return turns, nil
}

func printShares(w io.Writer, prios []int64, turns []int) error {
	var prioSum int64
	total := 0
	for i, p := range prios {
		prioSum += p
		total += turns[i]
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", "PRIORITY", "TURNS", "SHARE", "EXPECTED")
	for i, p := range prios {
		share := 0.0
		if total > 0 {
			share = float64(turns[i]) / float64(total)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.3f\t%.3f\n", p, turns[i], share, float64(p)/float64(prioSum))
	}
	return tw.Flush()
}

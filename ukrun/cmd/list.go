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
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/ukernel/pkg/workload"
	"gvisor.dev/ukernel/ukrun/cmd/util"
)

// List implements subcommands.Command for the "list" command.
type List struct {
	quiet bool
}

// Name implements subcommands.Command.Name.
func (*List) Name() string {
	return "list"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*List) Synopsis() string {
	return "list the built-in workloads"
}

// Usage implements subcommands.Command.Usage.
func (*List) Usage() string {
	return `list [flags] - lists the built-in workloads.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *List) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&l.quiet, "quiet", false, "only list workload names")
}

// Execute implements subcommands.Command.Execute.
func (l *List) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := listBuiltins(os.Stdout, l.quiet); err != nil {
		util.Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

func listBuiltins(out io.Writer, quiet bool) error {
	if quiet {
		for _, name := range workload.Builtins() {
			fmt.Fprintln(out, name)
		}
		return nil
	}
	w := tabwriter.NewWriter(out, 10, 1, 3, ' ', 0)
	fmt.Fprint(w, "NAME\tPROGRAMS\tDESCRIPTION\n")
	for _, name := range workload.Builtins() {
		wl, err := workload.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", wl.Name, len(wl.Programs), wl.Description)
	}
	return w.Flush()
}

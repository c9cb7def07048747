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

// Package cmd holds implementations of the ukrun commands.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/ukernel/pkg/cleanup"
	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/prometheus"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/workload"
	"gvisor.dev/ukernel/ukrun/cmd/util"
	"gvisor.dev/ukernel/ukrun/config"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	all            bool
	parallel       int
	trace          bool
	stateFile      string
	metrics        bool
	exporterPrefix string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run workloads, each on its own kernel"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <workload file | built-in name>... - runs each workload on a fresh kernel and checks its expectations.

Workload files end in .toml, .yaml or .yml. Use "ukrun list" to see the
built-in workloads.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.all, "all", false, "run every built-in workload.")
	f.IntVar(&r.parallel, "parallel", 0, "maximum number of kernels running at once. Zero means no limit.")
	f.BoolVar(&r.trace, "trace", false, "print the trace of every workload, not only of the failing ones.")
	f.StringVar(&r.stateFile, "state-file", "", "if set, write the final kernel state of every workload to this file as JSON.")
	f.BoolVar(&r.metrics, "metrics", false, "print kernel metrics in Prometheus text format after the run.")
	f.StringVar(&r.exporterPrefix, "exporter-prefix", "ukernel_", "prefix for all metric names, following Prometheus exporter convention.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	names := f.Args()
	if r.all {
		names = append(names, workload.Builtins()...)
	}
	if len(names) == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	var ws []*workload.Workload
	for _, name := range names {
		w, err := resolve(name)
		if err != nil {
			util.Fatalf("loading workload: %v", err)
		}
		ws = append(ws, w)
	}
	kc, err := conf.KernelConfig()
	if err != nil {
		util.Fatalf("%v", err)
	}

	outcomes, err := runAll(ctx, ws, kc, conf, r.parallel)
	if err != nil {
		util.Fatalf("%v", err)
	}

	ok := true
	for _, o := range outcomes {
		if !report(os.Stdout, o, r.trace) {
			ok = false
		}
	}

	if r.stateFile != "" {
		if err := writeStateFile(r.stateFile, outcomes); err != nil {
			util.Fatalf("writing state file: %v", err)
		}
		util.Infof("Wrote state of %d workloads to %q", len(outcomes), r.stateFile)
	}
	if r.metrics {
		written, err := prometheus.Write(os.Stdout, prometheus.ExportOptions{
			ExporterPrefix: r.exporterPrefix,
		})
		if err != nil {
			util.Fatalf("Cannot write metrics to stdout: %v", err)
		}
		log.Infof("Wrote %d bytes of Prometheus metric data to stdout", written)
	}

	if !ok {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// resolve loads name as a workload file if one exists, and as a built-in
// workload otherwise.
func resolve(name string) (*workload.Workload, error) {
	if _, err := os.Stat(name); err == nil {
		return workload.Load(name)
	}
	return workload.Builtin(name)
}

// outcome is the result of running one workload. It is also the record
// stored in state files.
type outcome struct {
	Workload string           `json:"workload"`
	Error    string           `json:"error,omitempty"`
	Result   *workload.Result `json:"result,omitempty"`
}

// passed returns true if the workload ran to completion and met every
// expectation.
func (o *outcome) passed() bool {
	return o.Error == "" && o.Result != nil && len(o.Result.Failures) == 0
}

// runAll runs every workload on its own kernel, at most parallel at a time.
// Errors from a workload are recorded in its outcome; runAll only fails if a
// task panicked, since that is a kernel invariant violation.
func runAll(ctx context.Context, ws []*workload.Workload, kc kernel.Config, conf *config.Config, parallel int) ([]*outcome, error) {
	outcomes := make([]*outcome, len(ws))
	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, w := range ws {
		g.Go(func() error {
			ctx := ctx
			if conf.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
				defer cancel()
			}
			o := &outcome{Workload: w.Name}
			outcomes[i] = o
			res, err := workload.Run(ctx, w, kc)
			o.Result = res
			if err != nil {
				o.Error = err.Error()
				var tp *kernel.TaskPanic
				if errors.As(err, &tp) {
					return fmt.Errorf("workload %q: %w", w.Name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// report prints the outcome of a workload to w and returns true if it
// passed. The trace is printed for failures, or always if trace is set.
func report(w io.Writer, o *outcome, trace bool) bool {
	ok := o.passed()
	fmt.Fprintf(w, "=== %s\n", o.Workload)
	if o.Result != nil && (trace || !ok) {
		for _, rec := range o.Result.Trace {
			fmt.Fprintf(w, "    %v\n", rec)
		}
	}
	if o.Result != nil {
		for _, fail := range o.Result.Failures {
			fmt.Fprintf(w, "    FAIL: %v\n", fail)
		}
	}
	switch {
	case o.Error != "":
		fmt.Fprintf(w, "--- %s: error: %s\n", o.Workload, o.Error)
	case !ok:
		fmt.Fprintf(w, "--- %s: FAIL\n", o.Workload)
	default:
		fmt.Fprintf(w, "--- %s: ok (%d ops)\n", o.Workload, len(o.Result.Trace))
	}
	return ok
}

// lockFile returns the lock guarding the state file at path.
func lockFile(path string) *flock.Flock {
	return flock.New(path + ".lock")
}

// writeStateFile writes outcomes to path as JSON while holding an exclusive
// lock on it.
func writeStateFile(path string, outcomes []*outcome) error {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return err
	}
	lock := lockFile(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking %q: %w", path, err)
	}
	defer lock.Unlock()

	// Readers never see a partial file: write a temporary file next to path
	// and rename it into place.
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	cu := cleanup.Make(func() { os.Remove(f.Name()) })
	defer cu.Clean()
	cu.Add(func() { f.Close() })
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(0644); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return err
	}
	cu.Release()
	return nil
}

// readStateFile reads a file written by writeStateFile while holding a
// shared lock on it.
func readStateFile(path string) ([]*outcome, error) {
	lock := lockFile(path)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking %q: %w", path, err)
	}
	defer lock.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var outcomes []*outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return outcomes, nil
}

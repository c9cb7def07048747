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
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/workload"
	"gvisor.dev/ukernel/ukrun/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	conf, err := config.NewFromFlags(fs)
	if err != nil {
		t.Fatalf("NewFromFlags failed: %v", err)
	}
	return conf
}

func builtins(t *testing.T, names ...string) []*workload.Workload {
	t.Helper()
	var ws []*workload.Workload
	for _, name := range names {
		w, err := resolve(name)
		if err != nil {
			t.Fatalf("resolve(%q) failed: %v", name, err)
		}
		ws = append(ws, w)
	}
	return ws
}

func TestResolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.toml")
	data := `
name = "from-file"
spawn = ["p"]

[[programs]]
name = "p"
entries = [["getpid == 1"]]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing %q: %v", path, err)
	}
	w, err := resolve(path)
	if err != nil {
		t.Fatalf("resolve(%q) failed: %v", path, err)
	}
	if got, want := w.Name, "from-file"; got != want {
		t.Errorf("resolve(%q).Name: got %q, want %q", path, got, want)
	}
	if _, err := resolve("no-such-workload"); err == nil {
		t.Errorf("resolve(no-such-workload) succeeded, want error")
	}
}

func TestRunAll(t *testing.T) {
	names := []string{"self_relock", "two_task_cycle", "semaphore_fifo"}
	conf := testConfig(t)
	outcomes, err := runAll(context.Background(), builtins(t, names...), kernel.Config{}, conf, 2)
	if err != nil {
		t.Fatalf("runAll failed: %v", err)
	}
	var got []string
	for _, o := range outcomes {
		got = append(got, o.Workload)
		if !o.passed() {
			var buf bytes.Buffer
			report(&buf, o, true)
			t.Errorf("workload %q did not pass:\n%s", o.Workload, buf.String())
		}
	}
	if diff := cmp.Diff(names, got); diff != "" {
		t.Errorf("outcome order mismatch (-want +got):\n%s", diff)
	}
}

func TestReport(t *testing.T) {
	pass := &outcome{
		Workload: "pass",
		Result: &workload.Result{
			Workload: "pass",
			Trace:    []workload.Record{{PID: 1, TID: 0, Op: "getpid", Ret: 1}},
		},
	}
	want := workload.Record{PID: 1, TID: 0, Op: "getpid", Ret: 2}
	fail := &outcome{
		Workload: "fail",
		Result: &workload.Result{
			Workload: "fail",
			Trace:    []workload.Record{want},
			Failures: []workload.Failure{{Record: want, Want: 1}},
		},
	}
	stalled := &outcome{Workload: "stalled", Error: kernel.ErrStalled.Error()}

	for _, tc := range []struct {
		o      *outcome
		trace  bool
		ok     bool
		output []string
	}{
		{o: pass, ok: true, output: []string{"--- pass: ok (1 ops)"}},
		{o: pass, trace: true, ok: true, output: []string{"1/0: getpid = 1", "--- pass: ok"}},
		{o: fail, ok: false, output: []string{"1/0: getpid = 2", "FAIL: 1/0: getpid = 2, want 1", "--- fail: FAIL"}},
		{o: stalled, ok: false, output: []string{"--- stalled: error: " + kernel.ErrStalled.Error()}},
	} {
		t.Run(tc.o.Workload, func(t *testing.T) {
			var buf bytes.Buffer
			if got := report(&buf, tc.o, tc.trace); got != tc.ok {
				t.Errorf("report: got %v, want %v", got, tc.ok)
			}
			for _, line := range tc.output {
				if !strings.Contains(buf.String(), line) {
					t.Errorf("report output %q does not contain %q", buf.String(), line)
				}
			}
		})
	}
}

func TestStateFile(t *testing.T) {
	outcomes, err := runAll(context.Background(), builtins(t, "self_relock"), kernel.Config{}, testConfig(t), 0)
	if err != nil {
		t.Fatalf("runAll failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "state.json")
	if err := writeStateFile(path, outcomes); err != nil {
		t.Fatalf("writeStateFile failed: %v", err)
	}
	got, err := readStateFile(path)
	if err != nil {
		t.Fatalf("readStateFile failed: %v", err)
	}
	if diff := cmp.Diff(outcomes, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("state file mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	printOutcomeState(&buf, got[0])
	if !strings.HasPrefix(buf.String(), "self_relock: ok\n") {
		t.Errorf("printOutcomeState: got %q, want prefix %q", buf.String(), "self_relock: ok\n")
	}
}

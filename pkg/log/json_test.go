// Copyright 2018 The gVisor Authors.
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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// decoded is a JSONEmitter line with the caller reduced to its file name.
type decoded struct {
	Msg    string
	Level  string
	Time   time.Time
	Caller string
	PID    *int32
	TID    *int32
}

func decodeLines(t *testing.T, lines []string) []decoded {
	t.Helper()
	var got []decoded
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			// Writer terminates each line with a separate write.
			continue
		}
		var d decoded
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			t.Fatalf("line %q is not json: %v", line, err)
		}
		file, _, ok := strings.Cut(d.Caller, ":")
		if !ok {
			t.Fatalf("caller %q has no line number", d.Caller)
		}
		d.Caller = file
		got = append(got, d)
	}
	return got
}

func TestJSONEmitter(t *testing.T) {
	tw := &testWriter{}
	l := &BasicLogger{Level: Debug, Emitter: JSONEmitter{&Writer{Next: tw}}}
	ts := time.Date(2026, time.March, 7, 9, 5, 3, 0, time.UTC)
	e := l.Emitter.(JSONEmitter)
	e.Emit(0, Info, ts, "kernel booted with %d tables", 2)
	e.EmitTask(0, Warning, ts, TaskID{PID: 0, TID: 3}, "lock %d refused", 1)
	l.TaskfAtDepth(0, Debug, TaskID{PID: 2, TID: 0}, "yield")

	pid0, tid3, pid2, tid0 := int32(0), int32(3), int32(2), int32(0)
	want := []decoded{
		{Msg: "kernel booted with 2 tables", Level: "info", Time: ts, Caller: "json_test.go"},
		{Msg: "lock 1 refused", Level: "warning", Time: ts, Caller: "json_test.go", PID: &pid0, TID: &tid3},
		{Msg: "yield", Level: "debug", Caller: "json_test.go", PID: &pid2, TID: &tid0},
	}
	got := decodeLines(t, tw.lines)
	if len(got) == len(want) {
		// The last line is stamped with the current time.
		got[2].Time = time.Time{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("json lines mismatch (-want +got):\n%s", diff)
	}
}

func TestLevelMarshal(t *testing.T) {
	for _, tc := range []struct {
		level Level
		want  string
	}{
		{Warning, `"warning"`},
		{Info, `"info"`},
		{Debug, `"debug"`},
	} {
		t.Run(tc.level.String(), func(t *testing.T) {
			b, err := json.Marshal(tc.level)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if got := string(b); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
	if _, err := json.Marshal(Level(7)); err == nil {
		t.Errorf("Marshal of an unknown level succeeded")
	}
}

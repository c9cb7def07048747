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
	"strings"
	"testing"

	"gvisor.dev/ukernel/pkg/workload"
)

func TestListBuiltins(t *testing.T) {
	var buf bytes.Buffer
	if err := listBuiltins(&buf, true); err != nil {
		t.Fatalf("listBuiltins failed: %v", err)
	}
	got := strings.Fields(buf.String())
	if want := workload.Builtins(); len(got) != len(want) {
		t.Errorf("listBuiltins(quiet): got %v, want %v", got, want)
	}

	buf.Reset()
	if err := listBuiltins(&buf, false); err != nil {
		t.Fatalf("listBuiltins failed: %v", err)
	}
	if !strings.Contains(buf.String(), "self_relock") || !strings.HasPrefix(buf.String(), "NAME") {
		t.Errorf("listBuiltins: unexpected output %q", buf.String())
	}
}

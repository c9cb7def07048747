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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
)

func TestParsePriorities(t *testing.T) {
	got, err := parsePriorities("2, 4,8")
	if err != nil {
		t.Fatalf("parsePriorities failed: %v", err)
	}
	if diff := cmp.Diff([]int64{2, 4, 8}, got); diff != "" {
		t.Errorf("parsePriorities mismatch (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"", "1", "4,x", "-3"} {
		if _, err := parsePriorities(bad); err == nil {
			t.Errorf("parsePriorities(%q) succeeded, want error", bad)
		}
	}
}

func TestStrideShares(t *testing.T) {
	prios := []int64{2, 4, 8}
	const rounds = 280
	turns, err := strideShares(context.Background(), kernel.Config{}, prios, rounds)
	if err != nil {
		t.Fatalf("strideShares failed: %v", err)
	}
	total := 0
	for _, n := range turns {
		total += n
	}
	if total != rounds {
		t.Errorf("total turns: got %d, want %d", total, rounds)
	}
	for i, want := range []int{40, 80, 160} {
		if got := turns[i]; got < want-3 || got > want+3 {
			t.Errorf("turns of priority %d: got %d, want %d±3", prios[i], got, want)
		}
	}

	var buf bytes.Buffer
	if err := printShares(&buf, prios, turns); err != nil {
		t.Fatalf("printShares failed: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != len(prios)+1 {
		t.Errorf("printShares: got %d lines, want %d:\n%s", len(lines), len(prios)+1, buf.String())
	}
}

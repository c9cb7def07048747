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

package metric

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// reset clears all global state in the metric package.
func reset() {
	allMetrics = &metricSet{metrics: make(map[string]*Uint64Metric)}
}

func TestNameInUse(t *testing.T) {
	defer reset()

	if _, err := NewUint64Metric("/foo", "Foo!"); err != nil {
		t.Fatalf("NewUint64Metric got err %v want nil", err)
	}
	if _, err := NewUint64Metric("/foo", "Foo!"); err != ErrNameInUse {
		t.Fatalf("NewUint64Metric got err %v want %v", err, ErrNameInUse)
	}
}

func TestFieldWithoutValues(t *testing.T) {
	defer reset()

	if _, err := NewUint64Metric("/bad", "", NewField("kind", nil)); err != ErrFieldHasNoAllowedValues {
		t.Fatalf("NewUint64Metric got err %v want %v", err, ErrFieldHasNoAllowedValues)
	}
}

func TestFieldKeysRoundTrip(t *testing.T) {
	m, err := newFieldMapper(
		NewField("primitive", []string{"mutex", "semaphore", "condvar"}),
		NewField("outcome", []string{"granted", "rejected"}),
	)
	if err != nil {
		t.Fatalf("newFieldMapper: %v", err)
	}
	seen := make(map[int]bool)
	for _, p := range []string{"mutex", "semaphore", "condvar"} {
		for _, o := range []string{"granted", "rejected"} {
			key := m.lookup(p, o)
			if seen[key] {
				t.Fatalf("key %d reused for (%s, %s)", key, p, o)
			}
			seen[key] = true
			if diff := cmp.Diff([]string{p, o}, m.keyToMultiField(key)); diff != "" {
				t.Errorf("keyToMultiField(%d) mismatch (-want +got):\n%s", key, diff)
			}
		}
	}
}

func TestValues(t *testing.T) {
	defer reset()

	blocks := MustCreateNewUint64Metric("/sched/blocks", "Blocks", NewField("primitive", []string{"mutex", "semaphore"}))
	fetches := MustCreateNewUint64Metric("/sched/fetches", "Fetches")
	blocks.Increment("semaphore")
	blocks.IncrementBy(2, "semaphore")
	fetches.Increment()

	want := []Snapshot{
		{
			Name:        "/sched/blocks",
			Description: "Blocks",
			Samples: []Sample{
				{Labels: map[string]string{"primitive": "mutex"}, Value: 0},
				{Labels: map[string]string{"primitive": "semaphore"}, Value: 3},
			},
		},
		{
			Name:        "/sched/fetches",
			Description: "Fetches",
			Samples:     []Sample{{Value: 1}},
		},
	}
	if diff := cmp.Diff(want, Values()); diff != "" {
		t.Fatalf("Values mismatch (-want +got):\n%s", diff)
	}
}

func TestDisallowedFieldValuePanics(t *testing.T) {
	defer reset()

	m := MustCreateNewUint64Metric("/x", "", NewField("kind", []string{"a"}))
	defer func() {
		if recover() == nil {
			t.Fatalf("Increment with a disallowed value did not panic")
		}
	}()
	m.Increment("b")
}

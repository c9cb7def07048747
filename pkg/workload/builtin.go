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
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed builtin
var builtinFS embed.FS

// builtinPath returns the embedded file of the built-in workload name.
func builtinPath(name string) (string, bool) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("reading embedded workloads: %v", err))
	}
	for _, e := range entries {
		if strings.TrimSuffix(e.Name(), path.Ext(e.Name())) == name {
			return path.Join("builtin", e.Name()), true
		}
	}
	return "", false
}

// Builtins returns the names of the built-in workloads, sorted.
func Builtins() []string {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("reading embedded workloads: %v", err))
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns the built-in workload name.
func Builtin(name string) (*Workload, error) {
	p, ok := builtinPath(name)
	if !ok {
		return nil, fmt.Errorf("no built-in workload %q", name)
	}
	data, err := builtinFS.ReadFile(p)
	if err != nil {
		return nil, err
	}
	f, err := FormatOf(p)
	if err != nil {
		return nil, err
	}
	w, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("built-in workload %q: %w", name, err)
	}
	if w.Name == "" {
		w.Name = name
	}
	return w, nil
}

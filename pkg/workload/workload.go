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

// Package workload describes user programs declaratively and runs them on a
// kernel.
//
// A workload names programs. Each program is an image whose entries are
// lists of ops, one syscall each, written as
//
//	<op> <args...> [== <expected>]
//
// for example "mutex_lock 0 == -0xDEAD". Numbers are parsed with base
// prefixes, and "$arg" stands for the argument the entry was started with.
// "repeat <n> <op...>" runs an op n times. Besides the syscalls, the ops
// "wait <pid>" and "join <tid>" poll waitpid and waittid until the target
// exits, and "log <text>" writes to the kernel log.
//
// Running a workload boots an init process that spawns the listed programs,
// reaps them and exits. The result is the trace of every op executed.
package workload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// InitName is the name of the image that boots a workload.
const InitName = "init"

// Workload is a set of programs run together on one kernel.
type Workload struct {
	// Name identifies the workload in traces.
	Name string `toml:"name" yaml:"name"`

	// Description is a one-line summary.
	Description string `toml:"description" yaml:"description"`

	// Spawn lists the programs init starts, in order. If empty, every
	// program is started in declaration order.
	Spawn []string `toml:"spawn" yaml:"spawn"`

	// Programs are the images available to the workload.
	Programs []Program `toml:"programs" yaml:"programs"`
}

// Program is one image.
type Program struct {
	// Name is the image name used by spawn and exec.
	Name string `toml:"name" yaml:"name"`

	// Entries are the image's entry points. Entry 0 is main; the others
	// are started by fork and thread_create.
	Entries [][]string `toml:"entries" yaml:"entries"`
}

// Format is a workload file format.
type Format string

// Supported formats.
const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// FormatOf returns the format of path from its extension.
func FormatOf(path string) (Format, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown workload format for %q", path)
	}
}

// Decode parses a workload in format f and validates it. Unknown keys are
// errors.
func Decode(data []byte, f Format) (*Workload, error) {
	var w Workload
	switch f {
	case TOML:
		md, err := toml.Decode(string(data), &w)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys %v", undecoded)
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&w); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown workload format %q", f)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Load reads and decodes the workload file at path.
func Load(path string) (*Workload, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %q: %w", path, err)
	}
	if w.Name == "" {
		w.Name = filepath.Base(path)
	}
	return w, nil
}

// Validate checks that w can be compiled.
func (w *Workload) Validate() error {
	if len(w.Programs) == 0 {
		return fmt.Errorf("workload %q has no programs", w.Name)
	}
	names := make(map[string]bool)
	for _, p := range w.Programs {
		switch {
		case p.Name == "":
			return fmt.Errorf("program without a name")
		case p.Name == InitName:
			return fmt.Errorf("program name %q is reserved", InitName)
		case names[p.Name]:
			return fmt.Errorf("program %q defined twice", p.Name)
		case len(p.Entries) == 0:
			return fmt.Errorf("program %q has no entries", p.Name)
		}
		names[p.Name] = true
		for i, entry := range p.Entries {
			for j, text := range entry {
				if _, err := ParseOp(text); err != nil {
					return fmt.Errorf("program %q entry %d op %d: %w", p.Name, i, j, err)
				}
			}
		}
	}
	for _, name := range w.Spawn {
		if !names[name] {
			return fmt.Errorf("spawn of unknown program %q", name)
		}
	}
	return nil
}

// spawnList returns the programs init starts.
func (w *Workload) spawnList() []string {
	if len(w.Spawn) > 0 {
		return w.Spawn
	}
	names := make([]string, 0, len(w.Programs))
	for _, p := range w.Programs {
		names = append(names, p.Name)
	}
	return names
}

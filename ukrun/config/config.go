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

// Package config provides basic infrastructure to set configuration settings
// for ukrun. Each setting that can be changed from the command line must
// be added to Config, with a flag tag naming the flag.
package config

import (
	"fmt"
	"reflect"
	"time"

	"gvisor.dev/ukernel/pkg/log"
	"gvisor.dev/ukernel/pkg/sentry/kernel"
	"gvisor.dev/ukernel/pkg/sentry/ktime"
)

// Config holds configuration that is not part of a workload.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with the same name and add a
//     description.
//  4. Add any necessary validation into validate().
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// DebugLog is the path to log debug information to, if not empty. If it
	// ends with '/', a file is created in the directory with a name built
	// from the timestamp and command.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug.
	DebugLogFormat string `flag:"debug-log-format"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// ConfigFile is a TOML file of flag values. Flags given on the command
	// line take precedence.
	ConfigFile string `flag:"config"`

	// Clock is the kernel clock.
	Clock ClockType `flag:"clock"`

	// BigStride is the stride numerator. Zero selects the kernel default.
	BigStride uint64 `flag:"big-stride"`

	// DefaultPriority is the priority of new tasks.
	DefaultPriority int64 `flag:"default-priority"`

	// VirtualQuantum is how far the virtual clock advances per dispatch.
	VirtualQuantum time.Duration `flag:"virtual-quantum"`

	// IdlePoll is the poll interval of an idle processor on the monotonic
	// clock.
	IdlePoll time.Duration `flag:"idle-poll"`

	// Timeout bounds each workload run. Zero means no limit.
	Timeout time.Duration `flag:"timeout"`

	// SyscallTable is the name of the syscall table tasks use.
	SyscallTable string `flag:"syscall-table"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.LogFormat)
	}
	switch c.DebugLogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid debug log format %q, must be 'text' or 'json'", c.DebugLogFormat)
	}
	if c.DefaultPriority < 2 {
		return fmt.Errorf("default-priority must be at least 2, got %d", c.DefaultPriority)
	}
	if c.VirtualQuantum <= 0 {
		return fmt.Errorf("virtual-quantum must be positive, got %v", c.VirtualQuantum)
	}
	if c.IdlePoll <= 0 {
		return fmt.Errorf("idle-poll must be positive, got %v", c.IdlePoll)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.SyscallTable == "" {
		return fmt.Errorf("syscall-table must not be empty")
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if name, ok := f.Tag.Lookup("flag"); ok {
			log.Infof("  %s: %s", name, getVal(obj.Field(i)))
		}
	}
}

// KernelConfig returns the kernel configuration selected by c. The syscall
// table must already be registered.
func (c *Config) KernelConfig() (kernel.Config, error) {
	table, ok := kernel.LookupSyscallTable(c.SyscallTable)
	if !ok {
		return kernel.Config{}, fmt.Errorf("unknown syscall table %q", c.SyscallTable)
	}
	kc := kernel.Config{
		BigStride:       c.BigStride,
		DefaultPriority: c.DefaultPriority,
		VirtualQuantum:  c.VirtualQuantum,
		IdlePoll:        c.IdlePoll,
		Syscalls:        table,
	}
	if c.Clock == ClockMonotonic {
		kc.Clock = ktime.NewMonotonicClock()
	}
	return kc, nil
}

// ClockType selects the kernel clock.
type ClockType int

const (
	// ClockVirtual advances by a fixed quantum per dispatch and jumps over
	// idle time, so that runs are reproducible.
	ClockVirtual ClockType = iota

	// ClockMonotonic follows the host's monotonic clock.
	ClockMonotonic
)

func clockTypePtr(v ClockType) *ClockType {
	return &v
}

// Set implements flag.Value.Set.
func (c *ClockType) Set(v string) error {
	switch v {
	case "virtual":
		*c = ClockVirtual
	case "monotonic":
		*c = ClockMonotonic
	default:
		return fmt.Errorf("invalid clock %q, must be 'virtual' or 'monotonic'", v)
	}
	return nil
}

// Get implements flag.Getter.Get.
func (c *ClockType) Get() any {
	return *c
}

// String implements flag.Value.String.
func (c ClockType) String() string {
	switch c {
	case ClockVirtual:
		return "virtual"
	case ClockMonotonic:
		return "monotonic"
	}
	panic(fmt.Sprintf("Invalid clock type %d", c))
}

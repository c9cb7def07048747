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

// Package ktime provides the kernel's clocks and its timer queue.
package ktime

import (
	"fmt"
	"math"
	"time"
)

// Time is an instant on a kernel clock, in nanoseconds since the clock
// started. Times from different clocks are not comparable.
type Time struct {
	ns int64
}

// FromNanoseconds returns the Time ns nanoseconds after the clock started.
func FromNanoseconds(ns int64) Time {
	return Time{ns}
}

// Nanoseconds returns the nanoseconds elapsed since the clock started.
func (t Time) Nanoseconds() int64 {
	return t.ns
}

// Add returns t+d. The result saturates instead of wrapping, so that a sleep
// of any length yields a deadline that is not before t.
func (t Time) Add(d time.Duration) Time {
	switch {
	case d > 0 && t.ns > math.MaxInt64-int64(d):
		return Time{math.MaxInt64}
	case d < 0 && t.ns < math.MinInt64-int64(d):
		return Time{math.MinInt64}
	}
	return Time{t.ns + int64(d)}
}

// Before reports whether t is before u.
func (t Time) Before(u Time) bool {
	return t.ns < u.ns
}

// After reports whether t is after u.
func (t Time) After(u Time) bool {
	return t.ns > u.ns
}

// Sub returns t-u, saturated to the range of time.Duration.
func (t Time) Sub(u Time) time.Duration {
	d := time.Duration(t.ns - u.ns)
	switch {
	case u.Add(d) == t:
		return d
	case t.Before(u):
		return time.Duration(math.MinInt64)
	default:
		return time.Duration(math.MaxInt64)
	}
}

// String formats t as a duration since the clock started, e.g. "1.5s".
func (t Time) String() string {
	return time.Duration(t.ns).String()
}

// Clock is a time source for the kernel: the host's monotonic clock, or a
// synthetic clock for deterministic runs.
type Clock interface {
	// Now returns the clock's current time.
	Now() Time
}

// Assert that the clocks implement Clock.
var (
	_ Clock = (*MonotonicClock)(nil)
	_ Clock = (*SyntheticClock)(nil)
)

// mustNonNegative panics if t is before the clock's start.
func mustNonNegative(t Time) {
	if t.ns < 0 {
		panic(fmt.Sprintf("ktime: time %v before clock start", t))
	}
}

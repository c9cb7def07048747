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

package ktime

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// MonotonicClock reads the host's CLOCK_MONOTONIC, rebased so that the
// clock reads zero when it is created.
type MonotonicClock struct {
	// base is the host reading at creation. Immutable.
	base int64
}

// NewMonotonicClock returns a MonotonicClock that starts at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{base: hostMonotonic()}
}

// Now implements Clock.Now.
func (c *MonotonicClock) Now() Time {
	return FromNanoseconds(hostMonotonic() - c.base)
}

func hostMonotonic() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(fmt.Sprintf("clock_gettime(CLOCK_MONOTONIC) failed: %v", err))
	}
	return ts.Nano()
}

// SyntheticClock is a Clock whose current time is set manually by calling
// Store or Add. The kernel uses it for deterministic runs, where idle time is
// skipped by jumping straight to the next timer expiry.
//
// The zero value reads zero.
type SyntheticClock struct {
	now atomic.Int64
}

// Now implements Clock.Now.
func (c *SyntheticClock) Now() Time {
	return FromNanoseconds(c.now.Load())
}

// Store sets c's current time to now.
//
// Preconditions: now.Nanoseconds() >= 0.
func (c *SyntheticClock) Store(now Time) {
	mustNonNegative(now)
	c.now.Store(now.Nanoseconds())
}

// Add increases c's current time by delta.
//
// Preconditions: c's resulting current time >= 0.
func (c *SyntheticClock) Add(delta time.Duration) {
	c.Store(c.Now().Add(delta))
}

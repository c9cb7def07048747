// Copyright 2022 The gVisor Authors.
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
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"gvisor.dev/ukernel/pkg/sync"
)

// rateLimitedLogger drops messages beyond its limit and reports how many it
// dropped with the next message it lets through.
type rateLimitedLogger struct {
	// logger is the destination. nil means the global logger, looked up on
	// every message so that SetTarget and SetLevel apply.
	logger Logger

	limit      *rate.Limiter
	suppressed atomic.Int64
}

func (rl *rateLimitedLogger) target() Logger {
	if rl.logger == nil {
		return Log()
	}
	return rl.logger
}

// allow reports whether a message may be logged, and returns format with
// the number of messages dropped since the last one appended.
func (rl *rateLimitedLogger) allow(format string) (string, bool) {
	if !rl.limit.Allow() {
		rl.suppressed.Add(1)
		return "", false
	}
	if n := rl.suppressed.Swap(0); n > 0 {
		format += fmt.Sprintf(" (%d similar messages suppressed)", n)
	}
	return format, true
}

func (rl *rateLimitedLogger) Debugf(format string, v ...any) {
	if !rl.IsLogging(Debug) {
		return
	}
	if format, ok := rl.allow(format); ok {
		rl.target().Debugf(format, v...)
	}
}

func (rl *rateLimitedLogger) Infof(format string, v ...any) {
	if !rl.IsLogging(Info) {
		return
	}
	if format, ok := rl.allow(format); ok {
		rl.target().Infof(format, v...)
	}
}

func (rl *rateLimitedLogger) Warningf(format string, v ...any) {
	if format, ok := rl.allow(format); ok {
		rl.target().Warningf(format, v...)
	}
}

func (rl *rateLimitedLogger) IsLogging(level Level) bool {
	return rl.target().IsLogging(level)
}

// BasicRateLimitedLogger returns a Logger that logs to the global logger no
// more than once per the provided duration.
func BasicRateLimitedLogger(every time.Duration) Logger {
	return newRateLimitedLogger(nil, every)
}

// RateLimitedLogger returns a Logger that logs to the provided logger no more
// than once per the provided duration.
func RateLimitedLogger(logger Logger, every time.Duration) Logger {
	return newRateLimitedLogger(logger, every)
}

func newRateLimitedLogger(logger Logger, every time.Duration) *rateLimitedLogger {
	return &rateLimitedLogger{
		logger: logger,
		limit:  rate.NewLimiter(rate.Every(every), 1),
	}
}

// RateLimitedLoggers hands out one rate-limited Logger per key, so that a
// noisy key does not hide the messages of the others. The loggers write to
// the global logger.
type RateLimitedLoggers[K comparable] struct {
	every time.Duration

	// logger is the destination, nil for the global logger.
	logger Logger

	mu      sync.Mutex
	loggers map[K]*rateLimitedLogger
}

// NewRateLimitedLoggers returns loggers that each log no more than once per
// every.
func NewRateLimitedLoggers[K comparable](every time.Duration) *RateLimitedLoggers[K] {
	return &RateLimitedLoggers[K]{
		every:   every,
		loggers: make(map[K]*rateLimitedLogger),
	}
}

// For returns the logger for key k.
func (r *RateLimitedLoggers[K]) For(k K) Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	rl, ok := r.loggers[k]
	if !ok {
		rl = newRateLimitedLogger(r.logger, r.every)
		r.loggers[k] = rl
	}
	return rl
}

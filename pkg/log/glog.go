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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// GoogleEmitter is a wrapper that emits logs in a format compatible with
// package github.com/golang/glog:
//
//	Lmmdd hh:mm:ss.uuuuuu origin file:line] msg
//
// where L is the level letter and origin is the pid/tid of the kernel task
// the message is about, or the host pid for messages from the kernel itself.
type GoogleEmitter struct {
	// Emitter is the underlying emitter.
	Emitter
}

// hostPID is the origin column of kernel messages.
var hostPID = strconv.Itoa(os.Getpid())

// Emit implements Emitter.Emit.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	g.emit(1+depth, level, timestamp, hostPID, format, args...)
}

// EmitTask implements TaskEmitter.EmitTask.
func (g GoogleEmitter) EmitTask(depth int, level Level, timestamp time.Time, id TaskID, format string, args ...any) {
	g.emit(1+depth, level, timestamp, id.String(), format, args...)
}

func (g GoogleEmitter) emit(depth int, level Level, timestamp time.Time, origin, format string, args ...any) {
	var local [256]byte
	b := append(local[:0], levelLetter(level))
	b = timestamp.AppendFormat(b, "0102 15:04:05.000000")
	// glog pads its thread id column to 7.
	b = fmt.Appendf(b, " %7s ", origin)
	b = append(b, callerFile(1+depth)...)
	b = append(b, "] "...)
	b = append(b, format...)
	b = append(b, '\n')
	g.Emitter.Emit(1+depth, level, timestamp, string(b), args...)
}

func levelLetter(level Level) byte {
	switch level {
	case Debug:
		return 'D'
	case Info:
		return 'I'
	default:
		return 'W'
	}
}

// callerFile returns "file:line" of the frame depth levels above its caller,
// or "x:0" if the frame cannot be resolved.
func callerFile(depth int) string {
	_, file, line, ok := runtime.Caller(1 + depth)
	if !ok {
		return "x:0"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

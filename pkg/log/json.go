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
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// jsonLog is one line of JSONEmitter output. PID and TID are set only for
// messages about a kernel task.
type jsonLog struct {
	Msg    string    `json:"msg"`
	Level  Level     `json:"level"`
	Time   time.Time `json:"time"`
	Caller string    `json:"caller"`
	PID    *int32    `json:"pid,omitempty"`
	TID    *int32    `json:"tid,omitempty"`
}

// MarshalJSON implements json.Marshaler.MarshalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	if l > Debug {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return json.Marshal(strings.ToLower(l.String()))
}

// JSONEmitter logs messages in json format, one object per line.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	e.emit(1+depth, jsonLog{Level: level, Time: timestamp}, format, v...)
}

// EmitTask implements TaskEmitter.EmitTask.
func (e JSONEmitter) EmitTask(depth int, level Level, timestamp time.Time, id TaskID, format string, v ...any) {
	e.emit(1+depth, jsonLog{Level: level, Time: timestamp, PID: &id.PID, TID: &id.TID}, format, v...)
}

func (e JSONEmitter) emit(depth int, j jsonLog, format string, v ...any) {
	j.Msg = fmt.Sprintf(format, v...)
	j.Caller = callerFile(1 + depth)
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	e.Writer.Write(b)
}

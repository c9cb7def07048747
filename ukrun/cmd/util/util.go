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

// Package util groups a bunch of common helper functions used by commands.
package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gvisor.dev/ukernel/pkg/log"
)

// ErrorLogger is where error messages should be written to, as JSON lines.
// Set from --log or --log-fd.
var ErrorLogger io.Writer

// Infof writes message to log and stdout.
func Infof(format string, args ...any) {
	log.Infof(format, args...)
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Errorf logs error to the --log file, to stderr, and debug logs. It
// returns an error for convenience.
func Errorf(format string, args ...any) error {
	// If --debug-log is set, log the error there too.
	log.Warningf(format, args...)
	msg := fmt.Sprintf(format, args...)
	if ErrorLogger != nil {
		writeError(ErrorLogger, msg)
	}
	fmt.Fprintln(os.Stderr, msg)
	return fmt.Errorf("%s", msg)
}

type jsonError struct {
	Msg   string    `json:"msg"`
	Level string    `json:"level"`
	Time  time.Time `json:"time"`
}

func writeError(w io.Writer, msg string) {
	j, err := json.Marshal(jsonError{Msg: msg, Level: "error", Time: time.Now()})
	if err != nil {
		fmt.Fprintf(w, "error: %s\n", msg)
		return
	}
	fmt.Fprintln(w, string(j))
}

// Fatalf logs the same message as Errorf and exits with code 128.
func Fatalf(format string, args ...any) {
	_ = Errorf(format, args...)
	os.Exit(128)
}

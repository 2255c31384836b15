/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package log is a package-level singleton logger, colorizing trial
// classifications as they are written to the console.
package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	fgRed     = color.New(color.FgRed).SprintFunc()
	fgGreen   = color.New(color.FgGreen).SprintFunc()
	fgYellow  = color.New(color.FgYellow).SprintFunc()
	fgHiBlack = color.New(color.FgHiBlack).SprintFunc()
)

type log struct {
	writer io.Writer
}

var mutex = &sync.Mutex{}
var instance *log

// Init initializes the singleton logger with the given io.Writer. If w is
// nil, Init is a no-op and every logging call behaves as a no-op until a
// non-nil writer is provided.
func Init(w io.Writer) {
	if w == nil {
		return
	}
	if instance == nil {
		mutex.Lock()
		defer mutex.Unlock()
		if instance == nil {
			instance = &log{writer: w}
		}
	}
}

// Reset removes the current log instance. Used by tests to get a clean
// slate between cases.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	instance = nil
}

// Infof logs an information line using format.
func Infof(f string, args ...any) {
	if instance == nil {
		return
	}
	instance.writef(f, args...)
}

// Infoln logs an information line.
func Infoln(a any) {
	if instance == nil {
		return
	}
	instance.writeln(a)
}

// Errorf logs an error line using format.
func Errorf(f string, args ...any) {
	if instance == nil {
		return
	}
	msg := fmt.Sprintf(f, args...)
	instance.writef("%s: %s\n", fgRed("ERROR"), msg)
}

// Errorln logs an error line.
func Errorln(a any) {
	if instance == nil {
		return
	}
	msg := fmt.Sprintf("%s: %s", fgRed("ERROR"), a)
	instance.writeln(msg)
}

// Trial logs the classification of a single mutant outcome of a trial: the
// diff/failure kind, the id assigned to it by the writer, and a short detail
// (usually the mutant directory).
func Trial(k Kind, id int, detail string) {
	if instance == nil {
		return
	}
	label := colorize(k)
	instance.writef("%s%s #%d %s\n", padding(k), label, id, detail)
}

func colorize(k Kind) string {
	s := k.String()
	switch k {
	case Normal:
		return fgGreen(s)
	case Difference:
		return fgRed(s)
	case MutantTimeout, AllTimeout:
		return fgYellow(s)
	case MutationFailure, CompilationFailure:
		return fgHiBlack(s)
	}

	return s
}

func padding(k Kind) string {
	const width = 20
	s := k.String()
	if len(s) >= width {
		return ""
	}
	pad := make([]byte, width-len(s))
	for i := range pad {
		pad[i] = ' '
	}

	return string(pad)
}

func (l *log) writef(f string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, f, args...)
}

func (l *log) writeln(a any) {
	_, _ = fmt.Fprintln(l.writer, a)
}

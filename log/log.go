// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package log is a small structured, leveled logger for the dialOS runtime.
// Records carry a message, a level, and an ordered list of key/value pairs;
// output is colorized when the destination is a terminal.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if int(l) < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

var levelColor = [...]int{90, 36, 32, 33, 31}

// Logger writes leveled records to an underlying writer, optionally tagged
// with a fixed set of context key/values (see With).
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	color   bool
	minLvl  Level
	ctx     []interface{}
}

// root is the package-level default logger, writing to stderr.
var root = New(os.Stderr)

// New creates a Logger writing to w. Color is auto-detected when w is a
// terminal file descriptor (stdout/stderr), matching go-ethereum's log
// behavior of colorizing only when attached to a TTY.
func New(w io.Writer) *Logger {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	out := w
	if color {
		if f, ok := w.(*os.File); ok {
			out = colorable.NewColorable(f)
		}
	}
	return &Logger{out: out, color: color, minLvl: LevelInfo}
}

// SetLevel sets the minimum level that will be emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLvl = lvl
}

// With returns a child Logger that prefixes every record with the given
// key/value pairs in addition to its own.
func (l *Logger) With(ctx ...interface{}) *Logger {
	child := &Logger{out: l.out, color: l.color, minLvl: l.minLvl}
	child.ctx = append(append([]interface{}{}, l.ctx...), ctx...)
	return child
}

func (l *Logger) log(lvl Level, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.minLvl {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	var line string
	if l.color {
		line = fmt.Sprintf("\x1b[%dm%-5s\x1b[0m[%s] %s", levelColor[lvl], lvl, ts, msg)
	} else {
		line = fmt.Sprintf("%-5s[%s] %s", lvl, ts, msg)
	}
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		line += fmt.Sprintf(" %v=%v", all[i], all[i+1])
	}
	if lvl == LevelError {
		// Attach the immediate caller frame so a fault can be traced back to
		// the opcode/scheduler call site that raised it.
		if call := stack.Caller(2); call != nil {
			line += fmt.Sprintf(" caller=%n", call)
		}
	}
	fmt.Fprintln(l.out, line)
}

func (l *Logger) Trace(msg string, ctx ...interface{}) { l.log(LevelTrace, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LevelDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LevelInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LevelWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LevelError, msg, ctx) }

// Package-level convenience wrappers over the default root logger.

func SetLevel(lvl Level)                      { root.SetLevel(lvl) }
func With(ctx ...interface{}) *Logger         { return root.With(ctx...) }
func Trace(msg string, ctx ...interface{})    { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{})    { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})     { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})     { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{})    { root.Error(msg, ctx...) }

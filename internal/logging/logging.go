// Copyright © 2024 sym816 contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package logging is the engine's ambient logging seam: a small Logger
// interface with a no-op default, so the analysis engine never has an
// opinion about where its diagnostic output goes.
package logging

import "fmt"

// Logger receives engine diagnostics: the entry point being analyzed and
// interrupts that are not followed.
type Logger interface {
	Log(msg string)
}

type nopLogger struct{}

func (nopLogger) Log(string) {}

// StdLogger prints each message to standard output behind the caller's
// chosen prefix.
type StdLogger struct {
	Prefix string
}

func (l StdLogger) Log(msg string) {
	fmt.Printf("%s%s\n", l.Prefix, msg)
}

var (
	defaultLogger Logger = nopLogger{}
	logger               = defaultLogger
	enabled              = false
)

// SetLogger installs impl as the active logger. A nil impl restores the
// no-op default.
func SetLogger(impl Logger) {
	if impl == nil {
		logger = defaultLogger
		return
	}
	logger = impl
}

// SetEnabled toggles whether Log actually calls through to the installed
// logger.
func SetEnabled(v bool) { enabled = v }

// Log emits msg through the installed logger, if logging is enabled.
func Log(msg string) {
	if enabled {
		logger.Log(msg)
	}
}

// Logf is the formatted form of Log.
func Logf(format string, args ...interface{}) {
	if enabled {
		logger.Log(fmt.Sprintf(format, args...))
	}
}

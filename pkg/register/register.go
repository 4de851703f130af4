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

// Package register models the symbolic A/X/Y registers the CPU engine
// tracks. A register's value is either fully known or entirely unknown —
// there is no partial-byte tracking.
package register

// Value is a symbolic 16-bit register value: known or not.
type Value struct {
	v     uint16
	known bool
}

// Known wraps a concrete value.
func Known(v uint16) Value { return Value{v: v, known: true} }

// Unknown returns an unresolved value.
func Unknown() Value { return Value{} }

// Get returns the value and whether it is known.
func (v Value) Get() (uint16, bool) { return v.v, v.known }

// Registers holds the three symbolic general registers.
type Registers struct {
	A, X, Y Value
}

// New returns a Registers with all three registers unknown.
func New() Registers {
	return Registers{A: Unknown(), X: Unknown(), Y: Unknown()}
}

// SetA truncates v to size bytes (1 or 2) before storing it in A.
func (r *Registers) SetA(v uint16, size int) {
	r.A = Known(truncate(v, size))
}

// SetAWhole stores v in A without truncation, for TSC which always moves
// the full 16-bit stack pointer into A regardless of the current a_size.
func (r *Registers) SetAWhole(v uint16) {
	r.A = Known(v)
}

// SetX truncates v to size bytes before storing it in X.
func (r *Registers) SetX(v uint16, size int) {
	r.X = Known(truncate(v, size))
}

// SetY truncates v to size bytes before storing it in Y.
func (r *Registers) SetY(v uint16, size int) {
	r.Y = Known(truncate(v, size))
}

func truncate(v uint16, size int) uint16 {
	if size == 1 {
		return v & 0x00FF
	}
	return v
}

// Copy returns an independent copy — Registers is a plain value type, so
// this is just a value copy, but it documents the clone contract the CPU
// engine relies on at every fork.
func (r Registers) Copy() Registers { return r }

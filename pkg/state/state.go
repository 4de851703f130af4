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

// Package state models the 65816 processor-status bits this engine cares
// about (M and X widths) plus the delta representation used to describe how
// those bits move across a subroutine call.
package state

// MaskM and MaskX select the two P-register bits this engine models.
// M=1 selects an 8-bit accumulator, X=1 selects 8-bit index registers.
const (
	MaskM  byte = 0x20
	MaskX  byte = 0x10
	MaskMX byte = MaskM | MaskX
)

// State is a P-register snapshot restricted to the M/X bits.
//
// Invariant: P&^MaskMX == 0.
type State struct {
	P byte
}

// New builds a State from explicit M/X booleans.
func New(m, x bool) State {
	var p byte
	if m {
		p |= MaskM
	}
	if x {
		p |= MaskX
	}
	return State{P: p}
}

// FromByte masks an arbitrary P-register byte down to the modelled bits.
func FromByte(p byte) State {
	return State{P: p & MaskMX}
}

// M reports whether the accumulator is 8-bit.
func (s State) M() bool { return s.P&MaskM != 0 }

// X reports whether the index registers are 8-bit.
func (s State) X() bool { return s.P&MaskX != 0 }

// ASize is the accumulator operand width in bytes: 1 if M, else 2.
func (s State) ASize() int {
	if s.M() {
		return 1
	}
	return 2
}

// XSize is the index-register operand width in bytes: 1 if X, else 2.
func (s State) XSize() int {
	if s.X() {
		return 1
	}
	return 2
}

// Set ORs the masked bits on, as SEP does.
func (s State) Set(mask byte) State {
	return State{P: s.P | (mask & MaskMX)}
}

// Reset ANDs the masked bits off, as REP does.
func (s State) Reset(mask byte) State {
	return State{P: s.P &^ (mask & MaskMX)}
}

// Apply folds a Change's forced fields onto s, leaving Unchanged fields
// alone. Unknown changes leave s untouched — callers must have already
// handled the UNKNOWN case before reaching here.
func (s State) Apply(c Change) State {
	if c.Unknown {
		return s
	}
	out := s
	switch c.M {
	case SetBit:
		out.P |= MaskM
	case ClearBit:
		out.P &^= MaskM
	}
	switch c.X {
	case SetBit:
		out.P |= MaskX
	case ClearBit:
		out.P &^= MaskX
	}
	return out
}

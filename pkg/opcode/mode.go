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

// Package opcode is the 65816 opcode table collaborator: for each opcode
// byte it supplies the operation name, addressing mode, and the category
// flags the CPU engine dispatches on.
package opcode

// AddressMode enumerates the 65816 addressing modes. Only ImmediateM and
// ImmediateX have a width that depends on processor state; every other
// mode has a fixed instruction size.
type AddressMode int

const (
	Implied AddressMode = iota
	Accumulator
	ImmediateM
	ImmediateX
	Signature // one fixed operand byte: the BRK/COP/WDM signature, or the REP/SEP bit mask
	Direct
	DirectX
	DirectY
	DirectIndirect
	DirectIndirectLong
	DirectIndirectX
	DirectIndirectY
	DirectIndirectLongY
	StackRelative
	StackRelativeIndirectY
	Absolute
	AbsoluteX
	AbsoluteY
	AbsoluteLong
	AbsoluteLongX
	AbsoluteIndirect
	AbsoluteIndirectLong
	AbsoluteIndirectX
	ProgramCounterRelative
	ProgramCounterRelativeLong
	BlockMove
)

// fixedSize gives the total instruction size (opcode byte included) for
// every mode whose size does not depend on processor state.
var fixedSize = map[AddressMode]int{
	Implied:                    1,
	Accumulator:                1,
	Signature:                  2,
	Direct:                     2,
	DirectX:                    2,
	DirectY:                    2,
	DirectIndirect:             2,
	DirectIndirectLong:         2,
	DirectIndirectX:            2,
	DirectIndirectY:            2,
	DirectIndirectLongY:        2,
	StackRelative:              2,
	StackRelativeIndirectY:     2,
	Absolute:                   3,
	AbsoluteX:                  3,
	AbsoluteY:                  3,
	AbsoluteIndirect:           3,
	AbsoluteIndirectX:          3,
	AbsoluteIndirectLong:       3,
	AbsoluteLong:               4,
	AbsoluteLongX:              4,
	ProgramCounterRelative:     2,
	ProgramCounterRelativeLong: 3,
	BlockMove:                  3,
}

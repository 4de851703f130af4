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

// Package instruction holds the immutable decoded-instruction record the
// CPU engine appends to the analysis log on every step.
package instruction

import (
	"github.com/sym816/analyzer/pkg/opcode"
	"github.com/sym816/analyzer/pkg/register"
	"github.com/sym816/analyzer/pkg/state"
)

// ID identifies one instruction occurrence: a (pc, mode, subroutine)
// triple. It is also the key of the visited-instruction memoization set.
type ID struct {
	PC           uint32
	P            byte
	SubroutinePC uint32
}

// StackManipulation flags what, if anything, went wrong with stack
// discipline around this instruction.
type StackManipulation int

const (
	NoManipulation StackManipulation = iota
	Harmless
	CausesUnknownState
)

// Instruction is one decoded occurrence of an opcode at a pc, under a
// specific processor mode and subroutine context.
type Instruction struct {
	ID       ID
	Op       opcode.Opcode
	Argument uint32 // raw operand bytes, little-endian, width given by Op.Mode

	HasAbsoluteArgument bool
	AbsoluteArgument    uint32 // resolved target address, when directly decodable

	Registers    register.Registers // snapshot at execution time
	StateBefore  state.State
	ChangeBefore state.Change // running delta on entry to this instruction
	ChangeAfter  state.Change // after any instruction-level assertion override

	Size int

	StackManipulation StackManipulation
}

// Name is the opcode mnemonic.
func (i *Instruction) Name() string { return i.Op.Name }

func (i *Instruction) IsReturn() bool        { return i.Op.IsReturn }
func (i *Instruction) IsInterrupt() bool     { return i.Op.IsInterrupt }
func (i *Instruction) IsCall() bool          { return i.Op.IsCall }
func (i *Instruction) IsJump() bool          { return i.Op.IsJump }
func (i *Instruction) IsBranch() bool        { return i.Op.IsBranch }
func (i *Instruction) IsSepRep() bool        { return i.Op.IsSepRep }
func (i *Instruction) IsPush() bool          { return i.Op.IsPush }
func (i *Instruction) IsPop() bool           { return i.Op.IsPop }
func (i *Instruction) DoesChangeA() bool     { return i.Op.DoesChangeA }
func (i *Instruction) DoesChangeStack() bool { return i.Op.DoesChangeStack }
func (i *Instruction) IsJumpTable() bool     { return i.Op.IsJumpTable }

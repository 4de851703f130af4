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

package engine

import (
	"fmt"

	"github.com/sym816/analyzer/internal/logging"
	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/opcode"
	"github.com/sym816/analyzer/pkg/register"
	"github.com/sym816/analyzer/pkg/stack"
	"github.com/sym816/analyzer/pkg/state"
)

// CPU is one symbolic execution thread: a (pc, state, registers, stack)
// tuple plus the running delta and inference it has accumulated since
// entering its current subroutine. The engine never runs two CPUs at
// once — it clones and recurses synchronously — so none of this needs
// synchronization.
type CPU struct {
	log *Log

	pc        uint32
	state     state.State
	registers register.Registers
	stack     *stack.Stack

	stateChange    state.Change
	stateInference state.Inference

	subroutinePC uint32
	stackTrace   []uint32
}

// clone performs the structural copy the design calls for at every
// fork: state, registers, stack, stack trace, and inference carry over
// unconditionally, including into a new subroutine — inference is
// knowledge about what the processor state must be, not a record of
// changes made, so a call does not invalidate it. state_change carries
// over only for an in-subroutine fork (branch, jump); a call into a new
// subroutine resets it, since a callee's state_change describes its own
// delta from its own entry, not the caller's.
func (c *CPU) clone(newSubroutine bool) *CPU {
	out := &CPU{
		log:            c.log,
		pc:             c.pc,
		state:          c.state,
		registers:      c.registers.Copy(),
		stack:          c.stack.Copy(),
		stateInference: c.stateInference,
		subroutinePC:   c.subroutinePC,
		stackTrace:     append([]uint32(nil), c.stackTrace...),
	}
	if newSubroutine {
		out.stateChange = state.Change{}
	} else {
		out.stateChange = c.stateChange
	}
	return out
}

// Run steps this CPU to termination.
func (c *CPU) Run() {
	for c.step() {
	}
}

// step implements §4.3: RAM check, visited check, decode + record,
// execute, then reconcile state_change_after against any instruction
// assertion.
func (c *CPU) step() bool {
	if c.log.Rom.IsRAM(c.pc) {
		return false
	}

	id := instruction.ID{PC: c.pc, P: c.state.P, SubroutinePC: c.subroutinePC}
	if c.log.isVisited(id) {
		return false
	}

	op := c.log.Opcodes.Decode(c.log.Rom.ReadByte(c.pc))
	argument, hasAbsolute, absolute, size := c.decodeOperand(op)

	instr := &instruction.Instruction{
		ID:                  id,
		Op:                  op,
		Argument:            argument,
		HasAbsoluteArgument: hasAbsolute,
		AbsoluteArgument:    absolute,
		Registers:           c.registers.Copy(),
		StateBefore:         c.state,
		ChangeBefore:        c.stateChange,
		Size:                size,
	}
	c.log.recordInstruction(instr)

	cont := c.execute(instr)

	if asserted, ok := c.log.Assertions.InstructionChange(instr.ID.PC); ok {
		instr.ChangeAfter = asserted
		c.applyReturnChange(asserted)
	} else {
		instr.ChangeAfter = c.stateChange
	}

	return cont
}

// decodeOperand reads the operand bytes following the opcode under the
// current state and, for modes that name an address directly, resolves
// it to an absolute (bank-qualified) target.
func (c *CPU) decodeOperand(op opcode.Opcode) (argument uint32, hasAbsolute bool, absolute uint32, size int) {
	size = op.SizeUnder(c.state)
	operandSize := size - 1

	switch operandSize {
	case 1:
		argument = uint32(c.log.Rom.ReadByte(c.pc + 1))
	case 2:
		lo := uint32(c.log.Rom.ReadByte(c.pc + 1))
		hi := uint32(c.log.Rom.ReadByte(c.pc + 2))
		argument = lo | hi<<8
	case 3:
		argument = c.log.Rom.ReadAddress(c.pc + 1)
	}

	switch op.Mode {
	case opcode.Absolute, opcode.AbsoluteX, opcode.AbsoluteY:
		hasAbsolute = true
		absolute = (c.pc &^ 0xFFFF) | (argument & 0xFFFF)
	case opcode.AbsoluteLong, opcode.AbsoluteLongX:
		hasAbsolute = true
		absolute = argument & 0xFFFFFF
	case opcode.ProgramCounterRelative:
		hasAbsolute = true
		absolute = relativeTarget(c.pc, size, int8(argument))
	case opcode.ProgramCounterRelativeLong:
		hasAbsolute = true
		absolute = relativeTarget(c.pc, size, int16(argument))
	}
	return
}

// relativeTarget resolves a branch displacement relative to the address
// of the instruction following the branch, wrapping within the bank.
func relativeTarget[T int8 | int16](pc uint32, size int, offset T) uint32 {
	next := pc + uint32(size)
	bank := next &^ 0xFFFF
	return bank | uint32(uint16(int32(next&0xFFFF)+int32(offset)))
}

func advancePC(pc uint32, size int) uint32 {
	bank := pc &^ 0xFFFF
	return bank | uint32(uint16(pc)+uint16(size))
}

// execute advances pc past the instruction, derives any inference, and
// dispatches by category in the priority order the design specifies.
func (c *CPU) execute(instr *instruction.Instruction) bool {
	op := instr.Op
	c.pc = advancePC(instr.ID.PC, instr.Size)
	c.deriveInference(op)

	switch {
	case op.IsReturn:
		return c.handleReturn(instr)
	case op.IsInterrupt:
		return c.handleInterrupt(instr)
	case op.IsCall:
		return c.handleCall(instr)
	case op.IsJump:
		return c.handleJump(instr)
	case op.IsBranch:
		return c.handleBranch(instr)
	case op.IsSepRep:
		return c.handleSepRep(instr)
	case op.DoesChangeStack:
		return c.handleStackChange(instr)
	case op.DoesChangeA:
		return c.handleAChange(instr)
	case op.IsPop:
		return c.handlePop(instr)
	case op.IsPush:
		return c.handlePush(instr)
	default:
		return true
	}
}

// deriveInference records what M/X must have been at subroutine entry
// when an immediate-width instruction's size implicitly depended on it
// and no delta has occurred yet this subroutine.
func (c *CPU) deriveInference(op opcode.Opcode) {
	if op.Mode == opcode.ImmediateM && c.stateChange.M == state.Unchanged {
		c.stateInference.HasM = true
		c.stateInference.M = c.state.M()
	}
	if op.Mode == opcode.ImmediateX && c.stateChange.X == state.Unchanged {
		c.stateInference.HasX = true
		c.stateInference.X = c.state.X()
	}
}

func (c *CPU) handleInterrupt(instr *instruction.Instruction) bool {
	logging.Logf("engine: interrupt %s at %#06x, not followed", instr.Op.Name, instr.ID.PC)
	return false
}

// handleReturn implements RTS/RTL/RTI, including the jump-table disguise
// and the stack-manipulation anomaly check.
func (c *CPU) handleReturn(instr *instruction.Instruction) bool {
	op := instr.Op

	if op.IsJumpTable {
		targets, ok := c.log.Assertions.JumpTargets(instr.ID.PC)
		if !ok || len(targets) == 0 {
			panic(fmt.Sprintf("engine: jump-table return at %#06x has no jump assertion", instr.ID.PC))
		}
		for _, t := range targets {
			c.log.addReference(instr.ID.PC, t.PC)
			clone := c.clone(false)
			clone.pc = t.PC
			clone.Run()
		}
		return false
	}

	popSize, expectedCall := 2, "JSR"
	switch op.Name {
	case "RTL":
		popSize, expectedCall = 3, "JSL"
	case "RTI":
		popSize = 0
	}

	entries := c.stack.Pop(popSize)
	for _, e := range entries {
		if e.Producer.Valid && e.Producer.Name != expectedCall {
			c.flagManipulator(e.Producer)
			if sub, ok := c.log.Subroutines[c.subroutinePC]; ok {
				sub.HasStackManipulation = true
			}
			return c.unknownSubroutineState(instr)
		}
	}

	if sub, ok := c.log.Subroutines[c.subroutinePC]; ok {
		sub.RecordReturnState(instr.ID.PC, c.stateChange)
	}
	return false
}

// unknownSubroutineState is the escape hatch every anomaly funnels
// through: an instruction assertion at this pc lets analysis continue
// as if nothing happened; otherwise the subroutine's outgoing state is
// declared UNKNOWN and this CPU stops.
func (c *CPU) unknownSubroutineState(instr *instruction.Instruction) bool {
	if _, ok := c.log.Assertions.InstructionChange(instr.ID.PC); ok {
		return true
	}
	c.stateChange = state.UnknownChange(c.stateChange.M, c.stateChange.X)
	if sub, ok := c.log.Subroutines[c.subroutinePC]; ok {
		sub.RecordReturnState(instr.ID.PC, c.stateChange)
	}
	return false
}

// flagManipulator marks the instruction that produced a stack slot as
// the cause of an UNKNOWN subroutine state, so the anomaly points at the
// push that broke discipline rather than at the return/PLP that merely
// discovered it.
func (c *CPU) flagManipulator(producer stack.Producer) {
	if !producer.Valid {
		return
	}
	for id, producedInstr := range c.log.Instructions {
		if id.PC == producer.PC && id.SubroutinePC == c.subroutinePC {
			producedInstr.StackManipulation = instruction.CausesUnknownState
			return
		}
	}
}

func (c *CPU) resolveTargets(instr *instruction.Instruction) ([]uint32, bool) {
	if instr.HasAbsoluteArgument {
		return []uint32{instr.AbsoluteArgument}, true
	}
	asserted, ok := c.log.Assertions.JumpTargets(instr.ID.PC)
	if !ok || len(asserted) == 0 {
		return nil, false
	}
	out := make([]uint32, len(asserted))
	for i, t := range asserted {
		out[i] = t.PC
	}
	return out, true
}

// handleCall implements JSR/JSL: spawn a new-subroutine clone per
// resolved target, then try to propagate a single unambiguous return
// state back onto this CPU.
func (c *CPU) handleCall(instr *instruction.Instruction) bool {
	op := instr.Op
	targets, resolved := c.resolveTargets(instr)
	if !resolved {
		return c.unknownSubroutineState(instr)
	}

	popSize := 2
	if op.Name == "JSL" {
		popSize = 3
	}

	observed := make(map[state.Change]struct{})
	sawUnknown := false

	for _, target := range targets {
		c.log.addReference(instr.ID.PC, target)
		trace := append(append([]uint32(nil), c.stackTrace...), instr.ID.PC)
		c.log.registerSubroutine(target, trace)

		clone := c.clone(true)
		clone.stack.Push(stack.Producer{PC: instr.ID.PC, Name: op.Name, Valid: true}, stack.Payload{}, popSize)
		clone.stackTrace = trace
		clone.subroutinePC = target
		clone.pc = target
		clone.Run()

		sub := c.log.Subroutines[target]
		simplified, hasUnknown := sub.SimplifyReturnStates(c.state)
		if hasUnknown {
			sawUnknown = true
		}
		for ch := range simplified {
			if !ch.Unknown {
				observed[ch] = struct{}{}
			}
		}
	}

	if sawUnknown || len(observed) != 1 {
		return c.unknownSubroutineState(instr)
	}

	for ch := range observed {
		c.applyReturnChange(ch)
	}
	return true
}

// applyReturnChange folds a forced M/X delta onto this CPU's actual
// state as well as its running change — used both to propagate a
// callee's unambiguous return state onto its caller, and to apply an
// instruction-level assertion, since both describe a fact now known
// about the processor rather than merely a bookkeeping note. Decoding
// of every later immediate-mode instruction in this trace reads
// c.state directly, so skipping the state update here would leave
// operand widths stale after the assertion or propagation took effect.
func (c *CPU) applyReturnChange(change state.Change) {
	if change.M != state.Unchanged {
		c.state = c.state.Apply(state.Change{M: change.M})
		c.stateChange.M = change.M
	}
	if change.X != state.Unchanged {
		c.state = c.state.Apply(state.Change{X: change.X})
		c.stateChange.X = change.X
	}
}

// handleJump implements JMP/JML: every resolved target runs as a cloned
// CPU within the *same* subroutine; this CPU then terminates.
func (c *CPU) handleJump(instr *instruction.Instruction) bool {
	targets, resolved := c.resolveTargets(instr)
	if !resolved {
		return c.unknownSubroutineState(instr)
	}
	for _, target := range targets {
		c.log.addReference(instr.ID.PC, target)
		clone := c.clone(false)
		clone.pc = target
		clone.Run()
	}
	return false
}

// handleBranch runs the fall-through path to completion in a clone
// first, then continues the original down the taken path.
func (c *CPU) handleBranch(instr *instruction.Instruction) bool {
	fallThrough := c.clone(false)
	fallThrough.Run()

	c.log.addReference(instr.ID.PC, instr.AbsoluteArgument)
	c.pc = instr.AbsoluteArgument
	return true
}

func (c *CPU) handleSepRep(instr *instruction.Instruction) bool {
	mask := byte(instr.Argument)
	if instr.Op.Name == "SEP" {
		c.state = c.state.Set(mask)
		c.stateChange = c.stateChange.Set(mask)
	} else {
		c.state = c.state.Reset(mask)
		c.stateChange = c.stateChange.Reset(mask)
	}
	c.stateChange = c.stateChange.ApplyInference(c.stateInference)
	return true
}

// handleStackChange implements TCS/TXS: the pointer becomes known when
// the source register is; otherwise the transfer is flagged harmless
// and the pointer is lost.
func (c *CPU) handleStackChange(instr *instruction.Instruction) bool {
	var v uint16
	var ok bool
	switch instr.Op.Name {
	case "TCS":
		v, ok = c.registers.A.Get()
	case "TXS":
		v, ok = c.registers.X.Get()
	default:
		return true
	}

	producer := stack.Producer{PC: instr.ID.PC, Name: instr.Op.Name, Valid: true}
	if ok {
		ptr := int32(int16(v))
		c.stack.SetPointer(producer, &ptr)
	} else {
		instr.StackManipulation = instruction.Harmless
		c.stack.SetPointer(producer, nil)
	}
	return true
}

// handleAChange implements the abridged arithmetic model: TSC copies the
// whole stack pointer into A and immediate LDA assigns a known value;
// immediate ADC/SBC invalidate a previously-known A rather than compute
// a carry-dependent result; everything else invalidates A unconditionally.
func (c *CPU) handleAChange(instr *instruction.Instruction) bool {
	op := instr.Op
	switch op.Name {
	case "TSC":
		c.registers.SetAWhole(uint16(c.stack.Pointer()))
		return true
	case "LDA":
		if op.Mode == opcode.ImmediateM {
			c.registers.SetA(uint16(instr.Argument), c.state.ASize())
			return true
		}
	case "ADC", "SBC":
		if op.Mode == opcode.ImmediateM {
			if _, known := c.registers.A.Get(); known {
				c.registers.A = register.Unknown()
			}
			return true
		}
	}
	c.registers.A = register.Unknown()
	return true
}

// handlePop implements pull instructions. PLP is the only one whose
// semantics depend on provenance: it restores state transparently only
// when the popped slot was produced by a matching PHP.
func (c *CPU) handlePop(instr *instruction.Instruction) bool {
	op := instr.Op
	if op.Name == "PLP" {
		e := c.stack.Pop(1)[0]
		if e.Producer.Valid && e.Producer.Name == "PHP" && e.Payload.Present {
			c.state = e.Payload.State
			c.stateChange = e.Payload.Change
			return true
		}
		c.flagManipulator(e.Producer)
		if sub, ok := c.log.Subroutines[c.subroutinePC]; ok {
			sub.HasStackManipulation = true
		}
		return c.unknownSubroutineState(instr)
	}

	size := 1
	switch op.Name {
	case "PLA":
		size = c.state.ASize()
	case "PLX", "PLY":
		size = c.state.XSize()
	case "PLD":
		size = 2
	}
	c.stack.Pop(size)
	return true
}

// handlePush implements push instructions. PHP is the only one that
// carries a semantic payload.
func (c *CPU) handlePush(instr *instruction.Instruction) bool {
	op := instr.Op
	producer := stack.Producer{PC: instr.ID.PC, Name: op.Name, Valid: true}

	if op.Name == "PHP" {
		c.stack.Push(producer, stack.Payload{Present: true, State: c.state, Change: c.stateChange}, 1)
		return true
	}

	size := 1
	switch op.Name {
	case "PHA":
		size = c.state.ASize()
	case "PHX", "PHY":
		size = c.state.XSize()
	case "PHD", "PEA", "PER", "PEI":
		size = 2
	}
	c.stack.Push(producer, stack.Payload{}, size)
	return true
}

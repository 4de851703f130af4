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

// Package engine is the symbolic 65816 execution engine: the analysis
// Log and the CPU that walks it. The two are one package because they
// are cyclically dependent in the design this implements — the CPU
// mutates the Log on every step, and Log.Analyze spawns a CPU per
// seeded entry point — and Go has no forward-declared imports to break the
// cycle with.
package engine

import (
	"github.com/sym816/analyzer/internal/logging"
	"github.com/sym816/analyzer/pkg/assertion"
	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/opcode"
	"github.com/sym816/analyzer/pkg/register"
	"github.com/sym816/analyzer/pkg/rom"
	"github.com/sym816/analyzer/pkg/stack"
	"github.com/sym816/analyzer/pkg/state"
	"github.com/sym816/analyzer/pkg/subroutine"
)

// EntryPoint is a seeded (pc, state, subroutine_pc) triple, labelled for
// display.
type EntryPoint struct {
	PC           uint32
	State        state.State
	SubroutinePC uint32
	Label        string
}

// vectors names the six native-mode interrupt vectors in the order the
// engine seeds them.
var vectors = []struct {
	addr  uint32
	label string
}{
	{rom.VectorRESET, "reset"},
	{rom.VectorNMI, "nmi"},
	{rom.VectorIRQ, "irq"},
	{rom.VectorBRK, "brk"},
	{rom.VectorCOP, "cop"},
	{rom.VectorABORT, "abort"},
}

// Log is the shared analysis database: every CPU clone reads and writes
// through the same *Log. Exploration is single-threaded and
// depth-first (see the CPU's fork order), so a plain map-backed struct
// needs no locking.
type Log struct {
	Rom        rom.Memory
	Opcodes    *opcode.Table
	Assertions assertion.Store

	Subroutines        map[uint32]*subroutine.Subroutine
	SubroutinesByLabel map[string]uint32
	Instructions       map[instruction.ID]*instruction.Instruction
	References         map[uint32]map[uint32]struct{}
	Visited            map[instruction.ID]struct{}
	EntryPoints        []EntryPoint
}

// NewLog wires the engine to its three external collaborators: the
// loaded ROM, the opcode table, and the user's assertion store. A nil
// assertions is replaced with an empty store so the CPU never has to
// nil-check it.
func NewLog(r rom.Memory, opcodes *opcode.Table, assertions assertion.Store) *Log {
	if assertions == nil {
		assertions = assertion.NewMapStore()
	}
	return &Log{
		Rom:                r,
		Opcodes:            opcodes,
		Assertions:         assertions,
		Subroutines:        make(map[uint32]*subroutine.Subroutine),
		SubroutinesByLabel: make(map[string]uint32),
		Instructions:       make(map[instruction.ID]*instruction.Instruction),
		References:         make(map[uint32]map[uint32]struct{}),
		Visited:            make(map[instruction.ID]struct{}),
	}
}

// SeedVectors registers the six native-mode vectors as entry points,
// each under subroutine_pc == pc and p = 0b0011_0000 (M=1, X=1). Vectors
// are 16-bit and always live in bank 0, so they are read a byte at a
// time rather than through the 24-bit ReadAddress used for operands.
func (l *Log) SeedVectors() {
	entryState := state.New(true, true)
	for _, v := range vectors {
		pc := uint32(l.Rom.ReadByte(v.addr)) | uint32(l.Rom.ReadByte(v.addr+1))<<8
		l.EntryPoints = append(l.EntryPoints, EntryPoint{
			PC:           pc,
			State:        entryState,
			SubroutinePC: pc,
			Label:        v.label,
		})
	}
}

// Analyze runs a CPU from every seeded entry point to termination,
// absorbing the instructions and subroutines it discovers.
func (l *Log) Analyze() {
	for _, ep := range l.EntryPoints {
		l.registerSubroutine(ep.SubroutinePC, nil)
		l.SubroutinesByLabel[ep.Label] = ep.SubroutinePC

		cpu := &CPU{
			log:          l,
			pc:           ep.PC,
			state:        ep.State,
			registers:    register.New(),
			stack:        stack.New(),
			subroutinePC: ep.SubroutinePC,
		}
		logging.Logf("engine: analyzing entry point %q at %#06x", ep.Label, ep.PC)
		cpu.Run()
	}
}

// registerSubroutine creates the subroutine record for entryPC on first
// discovery, so repeated calls (e.g. from several call sites) are
// idempotent.
func (l *Log) registerSubroutine(entryPC uint32, trace []uint32) *subroutine.Subroutine {
	if s, ok := l.Subroutines[entryPC]; ok {
		return s
	}
	s := subroutine.New(entryPC, trace)
	l.Subroutines[entryPC] = s
	return s
}

// recordInstruction appends i to the global index, marks its ID
// visited, and inserts it into its owning subroutine. The visited set
// must be updated here — before any recursive exploration — since it is
// the engine's sole termination guarantor.
func (l *Log) recordInstruction(i *instruction.Instruction) {
	l.Instructions[i.ID] = i
	l.Visited[i.ID] = struct{}{}
	if s, ok := l.Subroutines[i.ID.SubroutinePC]; ok {
		s.AddInstruction(i)
	}
}

func (l *Log) isVisited(id instruction.ID) bool {
	_, ok := l.Visited[id]
	return ok
}

// addReference records a discovered src -> dst control-flow edge.
func (l *Log) addReference(src, dst uint32) {
	if l.References[src] == nil {
		l.References[src] = make(map[uint32]struct{})
	}
	l.References[src][dst] = struct{}{}
}

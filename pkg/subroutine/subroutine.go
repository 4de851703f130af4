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

// Package subroutine holds the Subroutine container: the instructions
// belonging to one entry point, and the set of state-changes observed
// when control leaves it.
package subroutine

import (
	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/state"
)

// Subroutine is a contiguously-entered code region reached by JSR/JSL or
// an entry vector.
type Subroutine struct {
	EntryPC uint32

	instructions map[uint32]*instruction.Instruction
	order        []uint32

	ReturnStates map[state.Change]struct{}

	CallTrace []uint32 // call-site stack trace that first discovered this subroutine

	HasStackManipulation bool
}

// New creates an empty subroutine discovered via trace.
func New(entryPC uint32, trace []uint32) *Subroutine {
	return &Subroutine{
		EntryPC:      entryPC,
		instructions: make(map[uint32]*instruction.Instruction),
		ReturnStates: make(map[state.Change]struct{}),
		CallTrace:    trace,
	}
}

// AddInstruction inserts or overwrites the instruction at its pc,
// preserving first-seen insertion order.
func (s *Subroutine) AddInstruction(i *instruction.Instruction) {
	if _, exists := s.instructions[i.ID.PC]; !exists {
		s.order = append(s.order, i.ID.PC)
	}
	s.instructions[i.ID.PC] = i
}

// Instruction looks up the instruction at pc, if any.
func (s *Subroutine) Instruction(pc uint32) (*instruction.Instruction, bool) {
	i, ok := s.instructions[pc]
	return i, ok
}

// OrderedInstructions returns the subroutine's instructions in insertion
// order.
func (s *Subroutine) OrderedInstructions() []*instruction.Instruction {
	out := make([]*instruction.Instruction, 0, len(s.order))
	for _, pc := range s.order {
		out = append(out, s.instructions[pc])
	}
	return out
}

// Len reports how many distinct instructions have been recorded.
func (s *Subroutine) Len() int { return len(s.instructions) }

// RecordReturnState notes an observed (return_pc, StateChange) pair. Only
// the change is retained in the set, per spec — pc is accepted for
// symmetry with the design notes and to let callers log both.
func (s *Subroutine) RecordReturnState(pc uint32, c state.Change) {
	_ = pc
	s.ReturnStates[c] = struct{}{}
}

// SimplifyReturnStates applies M/X inference against entry, collapsing
// redundant deltas, and reports whether any observed exit is UNKNOWN.
func (s *Subroutine) SimplifyReturnStates(entry state.State) (map[state.Change]struct{}, bool) {
	out := make(map[state.Change]struct{}, len(s.ReturnStates))
	hasUnknown := false
	for c := range s.ReturnStates {
		simplified := c.Simplify(entry)
		if simplified.Unknown {
			hasUnknown = true
		}
		out[simplified] = struct{}{}
	}
	return out, hasUnknown
}

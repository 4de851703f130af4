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

// Package stack models the symbolic call/data stack: a sparse map from
// pointer offset to the instruction that last wrote there, plus an
// optional semantic payload (used only by PHP/PLP).
package stack

import "github.com/sym816/analyzer/pkg/state"

// Producer identifies the instruction that wrote a stack slot, by value —
// never by pointer — so clones stay independent of each other's
// instruction records.
type Producer struct {
	PC     uint32
	Name   string
	Valid  bool
}

// Payload is the (State, StateChange) pair PHP pushes. Present is false
// for every other push.
type Payload struct {
	Present bool
	State   state.State
	Change  state.Change
}

// Entry is one stack slot.
type Entry struct {
	Producer Producer
	Payload  Payload
}

// Stack is the sparse symbolic stack.
type Stack struct {
	mem               map[int32]Entry
	pointer           int32
	stackChangeInstr  Producer
}

// New returns an empty stack with the pointer at 0.
func New() *Stack {
	return &Stack{mem: make(map[int32]Entry)}
}

// Pointer returns the current stack pointer.
func (s *Stack) Pointer() int32 { return s.pointer }

// Push writes size slots starting at the current pointer and descending,
// tagging each with producer, then decrements the pointer by size.
// payload is only legal when size == 1.
func (s *Stack) Push(producer Producer, payload Payload, size int) {
	if payload.Present && size != 1 {
		panic("stack: payload is only legal when size == 1")
	}
	for i := 0; i < size; i++ {
		s.mem[s.pointer] = Entry{Producer: producer, Payload: payload}
		s.pointer--
	}
}

// PopOne increments the pointer and returns the slot there. Popping never
// deletes: a slot with no record yields a synthetic entry attributed to
// the last stack-change instruction, and a previously-popped slot remains
// readable by later lookups (including in a cloned stack).
func (s *Stack) PopOne() Entry {
	s.pointer++
	if e, ok := s.mem[s.pointer]; ok {
		return e
	}
	return Entry{Producer: s.stackChangeInstr}
}

// Pop performs size successive PopOne calls, in order.
func (s *Stack) Pop(size int) []Entry {
	out := make([]Entry, size)
	for i := 0; i < size; i++ {
		out[i] = s.PopOne()
	}
	return out
}

// SetPointer records producer as the stack-change instruction and, if ptr
// is non-nil, forces the pointer to that value.
func (s *Stack) SetPointer(producer Producer, ptr *int32) {
	s.stackChangeInstr = producer
	if ptr != nil {
		s.pointer = *ptr
	}
}

// Copy deep-copies the memory map; the result shares nothing mutable with
// s, which is what lets CPU clones explore independent stack futures.
func (s *Stack) Copy() *Stack {
	mem := make(map[int32]Entry, len(s.mem))
	for k, v := range s.mem {
		mem[k] = v
	}
	return &Stack{mem: mem, pointer: s.pointer, stackChangeInstr: s.stackChangeInstr}
}

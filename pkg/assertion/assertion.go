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

// Package assertion is the user-supplied override store the CPU engine
// consults whenever it would otherwise have to declare UNKNOWN: forced
// state changes at a pc, and resolved targets for otherwise-unresolvable
// indirect jumps and calls.
package assertion

import "github.com/sym816/analyzer/pkg/state"

// Target is one resolved destination of an indirect jump or call.
type Target struct {
	Label string
	PC    uint32
}

// Store is the interface the CPU engine consumes. The engine never
// mutates a Store; only the UI/loader layer populates one.
type Store interface {
	InstructionChange(pc uint32) (state.Change, bool)
	JumpTargets(pc uint32) ([]Target, bool)
}

// MapStore is the straightforward map-backed Store implementation used
// by cmd/sym816 and by tests.
type MapStore struct {
	Instructions map[uint32]state.Change
	Jumps        map[uint32][]Target
}

// NewMapStore returns an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{
		Instructions: make(map[uint32]state.Change),
		Jumps:        make(map[uint32][]Target),
	}
}

func (s *MapStore) InstructionChange(pc uint32) (state.Change, bool) {
	c, ok := s.Instructions[pc]
	return c, ok
}

func (s *MapStore) JumpTargets(pc uint32) ([]Target, bool) {
	t, ok := s.Jumps[pc]
	return t, ok
}

// AssertInstructionChange records a forced state_change_after at pc.
func (s *MapStore) AssertInstructionChange(pc uint32, c state.Change) {
	s.Instructions[pc] = c
}

// AssertJumpTargets records the resolved targets of an indirect jump or
// call at pc, appending to any previously-asserted targets for the
// same pc so multiple assertion lines can contribute to one site.
func (s *MapStore) AssertJumpTargets(pc uint32, targets ...Target) {
	s.Jumps[pc] = append(s.Jumps[pc], targets...)
}

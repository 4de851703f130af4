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

package opcode

import "github.com/sym816/analyzer/pkg/state"

// Opcode is a decoded opcode-table entry: the static facts the CPU engine
// needs about one opcode byte, independent of any particular occurrence
// of it in a ROM.
type Opcode struct {
	Byte byte
	Name string
	Mode AddressMode

	IsReturn        bool
	IsInterrupt     bool
	IsCall          bool
	IsJump          bool
	IsBranch        bool
	IsSepRep        bool
	IsPush          bool
	IsPop           bool
	DoesChangeA     bool
	DoesChangeStack bool

	// IsJumpTable flags an opcode-table entry that should be treated as
	// an indirect jump through jump_assertions rather than taken at face
	// value — the "RTS used as a computed jump" idiom. False for every
	// opcode unless overridden via Table.MarkJumpTable.
	IsJumpTable bool
}

// SizeUnder returns this opcode's total instruction size (including the
// opcode byte) under the given processor state.
func (o Opcode) SizeUnder(s state.State) int {
	switch o.Mode {
	case ImmediateM:
		return 1 + s.ASize()
	case ImmediateX:
		return 1 + s.XSize()
	default:
		return fixedSize[o.Mode]
	}
}

var alwaysChangesA = map[string]bool{
	"LDA": true, "ADC": true, "SBC": true,
	"AND": true, "ORA": true, "EOR": true,
	"TXA": true, "TYA": true, "TSC": true, "XBA": true,
}

var accumulatorModeChangesA = map[string]bool{
	"ASL": true, "LSR": true, "ROL": true, "ROR": true, "INC": true, "DEC": true,
}

func classify(o *Opcode) {
	switch o.Name {
	case "RTS", "RTL", "RTI":
		o.IsReturn = true
	case "BRK", "COP":
		o.IsInterrupt = true
	case "JSR", "JSL":
		o.IsCall = true
	case "JMP", "JML":
		o.IsJump = true
	case "BRA", "BRL", "BPL", "BMI", "BVC", "BVS", "BCC", "BCS", "BNE", "BEQ":
		o.IsBranch = true
	case "SEP", "REP":
		o.IsSepRep = true
	case "PHA", "PHX", "PHY", "PHP", "PHB", "PHK", "PHD", "PEA", "PER", "PEI":
		o.IsPush = true
	case "PLA", "PLX", "PLY", "PLP", "PLB", "PLD":
		o.IsPop = true
	case "TCS", "TXS":
		o.DoesChangeStack = true
	}
	if alwaysChangesA[o.Name] {
		o.DoesChangeA = true
	}
	if accumulatorModeChangesA[o.Name] && o.Mode == Accumulator {
		o.DoesChangeA = true
	}
}

// Table is the opcode-byte -> Opcode lookup the CPU engine decodes
// against.
type Table struct {
	entries [256]Opcode
}

// NewTable builds the standard 65816 opcode table.
func NewTable() *Table {
	t := &Table{}
	for _, raw := range rawOpcodes {
		o := Opcode{Byte: raw.b, Name: raw.name, Mode: raw.mode}
		classify(&o)
		t.entries[raw.b] = o
	}
	return t
}

// Decode returns the Opcode record for b.
func (t *Table) Decode(b byte) Opcode {
	return t.entries[b]
}

// MarkJumpTable flags opcode byte b as a jump-table disguise, letting a
// ROM-specific convention (e.g. "this RTS is really a computed jump")
// be configured without changing the CPU engine.
func (t *Table) MarkJumpTable(b byte, v bool) {
	t.entries[b].IsJumpTable = v
}

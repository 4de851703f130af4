package instruction

import (
	"testing"

	"github.com/sym816/analyzer/pkg/opcode"
)

func TestPredicatesDelegateToOpcode(t *testing.T) {
	table := opcode.NewTable()
	inst := &Instruction{ID: ID{PC: 0x8000}, Op: table.Decode(0x20)} // JSR
	if !inst.IsCall() {
		t.Error("JSR instruction should report IsCall")
	}
	if inst.IsReturn() {
		t.Error("JSR instruction should not report IsReturn")
	}
}

func TestStackManipulationDefaultsToNone(t *testing.T) {
	inst := &Instruction{}
	if inst.StackManipulation != NoManipulation {
		t.Errorf("zero value StackManipulation = %v, want NoManipulation", inst.StackManipulation)
	}
}

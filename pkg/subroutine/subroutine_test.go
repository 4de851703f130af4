package subroutine

import (
	"testing"

	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/state"
)

func TestAddInstructionPreservesOrder(t *testing.T) {
	s := New(0x8000, nil)
	s.AddInstruction(&instruction.Instruction{ID: instruction.ID{PC: 0x8002}})
	s.AddInstruction(&instruction.Instruction{ID: instruction.ID{PC: 0x8000}})
	s.AddInstruction(&instruction.Instruction{ID: instruction.ID{PC: 0x8002}}) // overwrite, no reorder

	order := s.OrderedInstructions()
	if len(order) != 2 || order[0].ID.PC != 0x8002 || order[1].ID.PC != 0x8000 {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestSimplifyReturnStatesCollapsesToNoop(t *testing.T) {
	s := New(0x800E, nil)
	s.RecordReturnState(0x8010, state.Change{M: state.SetBit, X: state.SetBit})

	entry := state.New(true, true)
	simplified, hasUnknown := s.SimplifyReturnStates(entry)
	if hasUnknown {
		t.Fatal("unexpected UNKNOWN return state")
	}
	if len(simplified) != 1 {
		t.Fatalf("len(simplified) = %d, want 1", len(simplified))
	}
	for c := range simplified {
		if !c.IsNoop() {
			t.Errorf("simplified change = %+v, want noop", c)
		}
	}
}

package engine

import (
	"testing"

	"github.com/sym816/analyzer/pkg/assertion"
	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/opcode"
	"github.com/sym816/analyzer/pkg/register"
	"github.com/sym816/analyzer/pkg/rom"
	"github.com/sym816/analyzer/pkg/stack"
	"github.com/sym816/analyzer/pkg/state"
)

// fakeMemory is a minimal in-memory rom.Memory: addresses below 0x8000
// are RAM (mirroring the low banks of a real LoROM map), everything else
// is whatever byte was poked into it, defaulting to 0x00.
type fakeMemory struct {
	data map[uint32]byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{data: make(map[uint32]byte)}
}

func (m *fakeMemory) ReadByte(pc uint32) byte { return m.data[pc] }

func (m *fakeMemory) ReadAddress(pc uint32) uint32 {
	lo := uint32(m.ReadByte(pc))
	mid := uint32(m.ReadByte(pc + 1))
	hi := uint32(m.ReadByte(pc + 2))
	return lo | mid<<8 | hi<<16
}

func (m *fakeMemory) IsRAM(pc uint32) bool { return pc&0xFFFF < 0x8000 }

func (m *fakeMemory) setByte(pc uint32, b byte) { m.data[pc] = b }

func (m *fakeMemory) setWord(pc uint32, w uint16) {
	m.setByte(pc, byte(w))
	m.setByte(pc+1, byte(w>>8))
}

// runCPU registers subroutinePC as a fresh subroutine and runs a CPU
// seeded at (pc, st) within it, the way Log.Analyze seeds an entry
// point, without requiring a full vector table.
func runCPU(log *Log, pc uint32, st state.State, subroutinePC uint32) {
	log.registerSubroutine(subroutinePC, nil)
	cpu := &CPU{
		log:          log,
		pc:           pc,
		state:        st,
		registers:    register.New(),
		stack:        stack.New(),
		subroutinePC: subroutinePC,
	}
	cpu.Run()
}

func assertSingleNoopChange(t *testing.T, who string, states map[state.Change]struct{}) {
	t.Helper()
	if len(states) != 1 {
		t.Fatalf("%s.ReturnStates = %+v, want exactly one entry", who, states)
	}
	for c := range states {
		if !c.IsNoop() {
			t.Errorf("%s return state = %+v, want a no-op StateChange", who, c)
		}
	}
}

// checkLogInvariants verifies the cross-cutting invariants every
// analyzed log must satisfy, regardless of the program analyzed.
func checkLogInvariants(t *testing.T, log *Log) {
	t.Helper()
	for id, instr := range log.Instructions {
		if _, ok := log.Visited[id]; !ok {
			t.Errorf("instruction %+v missing from visited set", id)
		}
		sub, ok := log.Subroutines[id.SubroutinePC]
		if !ok {
			t.Errorf("instruction %+v has no owning subroutine", id)
			continue
		}
		if _, ok := sub.Instruction(id.PC); !ok {
			t.Errorf("instruction %+v not present in its subroutine's map", id)
		}
		_ = instr
	}
}

func TestEntryPointSeeding(t *testing.T) {
	mem := newFakeMemory()
	mem.setWord(rom.VectorRESET, 0x8000)
	mem.setWord(rom.VectorNMI, 0x0000)

	log := NewLog(mem, opcode.NewTable(), nil)
	log.SeedVectors()

	want := state.New(true, true)
	byLabel := make(map[string]EntryPoint)
	for _, ep := range log.EntryPoints {
		byLabel[ep.Label] = ep
	}

	reset, ok := byLabel["reset"]
	if !ok || reset.PC != 0x8000 || reset.State != want || reset.SubroutinePC != 0x8000 {
		t.Errorf("reset entry point = %+v", reset)
	}
	nmi, ok := byLabel["nmi"]
	if !ok || nmi.PC != 0x0000 || nmi.State != want || nmi.SubroutinePC != 0x0000 {
		t.Errorf("nmi entry point = %+v", nmi)
	}
}

func TestInfiniteLoop(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0x8000, 0x4C) // JMP $8000
	mem.setWord(0x8001, 0x8000)

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0x8000, state.New(true, true), 0x8000)

	if len(log.Instructions) != 1 {
		t.Fatalf("len(Instructions) = %d, want 1", len(log.Instructions))
	}
	sub := log.Subroutines[0x8000]
	if sub.Len() != 1 {
		t.Fatalf("sub.Len() = %d, want 1", sub.Len())
	}
	got := sub.OrderedInstructions()[0]
	if got.Name() != "JMP" || !got.HasAbsoluteArgument || got.AbsoluteArgument != 0x8000 {
		t.Errorf("instruction = %+v", got)
	}
	checkLogInvariants(t, log)
}

func TestStateChangeAcrossCall(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0x8000, 0xC2)
	mem.setByte(0x8001, 0x30) // REP #$30
	mem.setByte(0x8002, 0xA9)
	mem.setWord(0x8003, 0x1234) // LDA #$1234
	mem.setByte(0x8005, 0xA2)
	mem.setWord(0x8006, 0x5678) // LDX #$5678
	mem.setByte(0x8008, 0x20)
	mem.setWord(0x8009, 0x800E) // JSR $800E
	mem.setByte(0x800B, 0x4C)
	mem.setWord(0x800C, 0x800B) // JMP $800B (loop forever after the call returns)
	mem.setByte(0x800E, 0xC2)
	mem.setByte(0x800F, 0x30) // REP #$30
	mem.setByte(0x8010, 0x60) // RTS

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0x8000, state.New(true, true), 0x8000)

	if len(log.Instructions) != 7 {
		t.Fatalf("len(Instructions) = %d, want 7", len(log.Instructions))
	}

	callee := log.Subroutines[0x800E]
	if callee == nil || len(callee.ReturnStates) != 1 {
		t.Fatalf("callee.ReturnStates = %+v, want exactly one entry", callee)
	}
	for c := range callee.ReturnStates {
		if c.M != state.ClearBit || c.X != state.ClearBit || c.Unknown {
			t.Errorf("callee return state = %+v, want m=0,x=0", c)
		}
	}

	reset := log.Subroutines[0x8000]
	lda, ok := reset.Instruction(0x8002)
	if !ok || lda.Size != 3 {
		t.Errorf("lda = %+v, want 2-byte operand (size 3)", lda)
	}
	ldx, ok := reset.Instruction(0x8005)
	if !ok || ldx.Size != 3 {
		t.Errorf("ldx = %+v, want 2-byte operand (size 3)", ldx)
	}
	checkLogInvariants(t, log)
}

func TestElidableStateChange(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0x9000, 0x20)
	mem.setWord(0x9001, 0x9010) // JSR $9010
	mem.setByte(0x9003, 0x60)   // RTS
	mem.setByte(0x9010, 0xA9)
	mem.setByte(0x9011, 0x00) // LDA #$00, 8-bit operand: infers M=1 at entry
	mem.setByte(0x9012, 0xC2)
	mem.setByte(0x9013, 0x20) // REP #$20
	mem.setByte(0x9014, 0xE2)
	mem.setByte(0x9015, 0x20) // SEP #$20, collapsed by the inferred M=1
	mem.setByte(0x9016, 0x60) // RTS

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0x9000, state.New(true, true), 0x9000)

	assertSingleNoopChange(t, "caller", log.Subroutines[0x9000].ReturnStates)
	assertSingleNoopChange(t, "callee", log.Subroutines[0x9010].ReturnStates)
	checkLogInvariants(t, log)
}

func TestPHPPLPFence(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0x9100, 0x08) // PHP
	mem.setByte(0x9101, 0xE2)
	mem.setByte(0x9102, 0x20) // SEP #$20
	mem.setByte(0x9103, 0x28) // PLP
	mem.setByte(0x9104, 0x60) // RTS

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0x9100, state.New(true, true), 0x9100)

	assertSingleNoopChange(t, "callee", log.Subroutines[0x9100].ReturnStates)
	checkLogInvariants(t, log)
}

func TestJumpInsideSubroutine(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0x9200, 0xC2)
	mem.setByte(0x9201, 0x20) // REP #$20
	mem.setByte(0x9202, 0x4C)
	mem.setWord(0x9203, 0x9206) // JMP $9206
	mem.setByte(0x9206, 0x60)   // RTS

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0x9200, state.New(true, true), 0x9200)

	sub := log.Subroutines[0x9200]
	if len(sub.ReturnStates) != 1 {
		t.Fatalf("ReturnStates = %+v, want exactly one entry", sub.ReturnStates)
	}
	for c := range sub.ReturnStates {
		if c.M != state.ClearBit || c.X != state.Unchanged || c.Unknown {
			t.Errorf("return state = %+v, want m=0,x=_", c)
		}
	}
	checkLogInvariants(t, log)
}

func TestStackManipulationAcrossReturn(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0xA000, 0x20)
	mem.setWord(0xA001, 0xA010) // JSR $A010
	mem.setByte(0xA010, 0x48)   // PHA
	mem.setByte(0xA011, 0x60)   // RTS, consumes the PHA's slot instead of the call's

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0xA000, state.New(true, true), 0xA000)

	callee := log.Subroutines[0xA010]
	if !callee.HasStackManipulation {
		t.Error("callee.HasStackManipulation = false, want true")
	}
	pha, ok := callee.Instruction(0xA010)
	if !ok || pha.StackManipulation != instruction.CausesUnknownState {
		t.Errorf("pha = %+v, want StackManipulation = CausesUnknownState", pha)
	}

	sawUnknown := false
	for c := range log.Subroutines[0xA000].ReturnStates {
		if c.Unknown {
			sawUnknown = true
		}
	}
	if !sawUnknown {
		t.Error("caller did not record an UNKNOWN return state")
	}
}

func TestUnresolvedCallWithoutAssertionIsUnknown(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0xB100, 0xFC) // JSR (abs,X) -- indirection this engine never resolves on its own
	mem.setWord(0xB101, 0x0000)

	log := NewLog(mem, opcode.NewTable(), nil)
	runCPU(log, 0xB100, state.New(true, true), 0xB100)

	sub := log.Subroutines[0xB100]
	if sub.Len() != 1 {
		t.Fatalf("sub.Len() = %d, want 1", sub.Len())
	}
	for c := range sub.ReturnStates {
		if !c.Unknown {
			t.Errorf("return state = %+v, want Unknown", c)
		}
	}
}

func TestAssertionOverridesUnresolvedCall(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0xB000, 0xFC) // JSR (abs,X) -- unresolved without help
	mem.setWord(0xB001, 0x0000)
	mem.setByte(0xB003, 0x60) // only reached if the call site is asserted through

	store := assertion.NewMapStore()
	store.AssertInstructionChange(0xB000, state.Change{M: state.SetBit})

	log := NewLog(mem, opcode.NewTable(), store)
	runCPU(log, 0xB000, state.New(true, true), 0xB000)

	sub := log.Subroutines[0xB000]
	if sub.Len() != 2 {
		t.Fatalf("sub.Len() = %d, want 2 (call site continued past the asserted call)", sub.Len())
	}
	jsr, _ := sub.Instruction(0xB000)
	if jsr.ChangeAfter.M != state.SetBit {
		t.Errorf("ChangeAfter = %+v, want m=1 forced by the assertion", jsr.ChangeAfter)
	}
}

// TestAssertedStateAffectsSubsequentDecode guards against applying an
// instruction-level assertion to the bookkeeping StateChange only: the
// asserted M/X bits must also land on the CPU's actual state, since
// every later immediate-mode instruction in the same trace decodes its
// operand width from it.
func TestAssertedStateAffectsSubsequentDecode(t *testing.T) {
	mem := newFakeMemory()
	mem.setByte(0xB200, 0xFC) // JSR (abs,X) -- unresolved without help
	mem.setWord(0xB201, 0x0000)
	mem.setByte(0xB203, 0xA9) // LDA #imm
	mem.setByte(0xB204, 0x42) // 8-bit operand, read only if the asserted M=1 took effect
	mem.setByte(0xB205, 0x60) // RTS, reached only if LDA decoded as a 2-byte instruction

	store := assertion.NewMapStore()
	store.AssertInstructionChange(0xB200, state.Change{M: state.SetBit})

	log := NewLog(mem, opcode.NewTable(), store)
	// Entry state has M=0 (16-bit accumulator); the assertion forces it to
	// 8-bit at the call site, which must be reflected in CPU.state for the
	// LDA right after it to decode at the right width.
	runCPU(log, 0xB200, state.New(false, true), 0xB200)

	sub := log.Subroutines[0xB200]
	lda, ok := sub.Instruction(0xB203)
	if !ok {
		t.Fatalf("LDA at 0xB203 was not recorded")
	}
	if lda.Size != 2 {
		t.Errorf("LDA.Size = %d, want 2 (asserted m=1 forces an 8-bit immediate)", lda.Size)
	}
	if lda.Argument != 0x42 {
		t.Errorf("LDA.Argument = %#x, want 0x42", lda.Argument)
	}
	if _, ok := sub.Instruction(0xB205); !ok {
		t.Error("RTS at 0xB205 was not reached, meaning LDA decoded with the wrong (stale) operand width")
	}
}

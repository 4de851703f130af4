package stack

import "testing"

func TestPushPopRoundTrip(t *testing.T) {
	s := New()
	s.Push(Producer{PC: 0x8000, Name: "JSR", Valid: true}, Payload{}, 2)
	if s.Pointer() != -2 {
		t.Fatalf("Pointer() = %d, want -2", s.Pointer())
	}
	entries := s.Pop(2)
	for _, e := range entries {
		if !e.Producer.Valid || e.Producer.Name != "JSR" {
			t.Errorf("Pop() = %+v, want producer JSR", e)
		}
	}
}

func TestPopNeverDeletes(t *testing.T) {
	s := New()
	s.Push(Producer{PC: 0x8000, Name: "PHA", Valid: true}, Payload{}, 1)
	first := s.PopOne()
	s.SetPointer(Producer{}, ptr(-1))
	second := s.PopOne()
	if first != second {
		t.Errorf("popped slot changed after pointer reset: %+v != %+v", first, second)
	}
}

func TestPopEmptySlotAttributedToStackChangeInstruction(t *testing.T) {
	s := New()
	manip := Producer{PC: 0x9000, Name: "TCS", Valid: true}
	s.SetPointer(manip, nil)
	e := s.PopOne()
	if e.Producer != manip {
		t.Errorf("PopOne() on empty slot = %+v, want %+v", e.Producer, manip)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	s := New()
	s.Push(Producer{PC: 1, Name: "PHA", Valid: true}, Payload{}, 1)
	clone := s.Copy()
	clone.Push(Producer{PC: 2, Name: "PHX", Valid: true}, Payload{}, 1)
	if s.Pointer() == clone.Pointer() {
		t.Error("clone mutation leaked back into original")
	}
}

func ptr(v int32) *int32 { return &v }

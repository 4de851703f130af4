package state

import "testing"

func TestSizes(t *testing.T) {
	s := New(true, false)
	if s.ASize() != 1 {
		t.Errorf("ASize() = %d, want 1", s.ASize())
	}
	if s.XSize() != 2 {
		t.Errorf("XSize() = %d, want 2", s.XSize())
	}
}

func TestChangeExprRoundTrip(t *testing.T) {
	cases := []Change{
		{},
		{M: SetBit, X: ClearBit},
		{M: ClearBit, X: Unchanged},
		UnknownChange(SetBit, Unchanged),
		UnknownChange(ClearBit, SetBit),
	}
	for _, c := range cases {
		got, err := ParseExpr(c.Expr())
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", c.Expr(), err)
		}
		if got != c {
			t.Errorf("round trip %+v -> %q -> %+v", c, c.Expr(), got)
		}
	}
}

func TestUnknownDistinctHash(t *testing.T) {
	a := UnknownChange(SetBit, Unchanged)
	b := UnknownChange(ClearBit, Unchanged)
	if a == b {
		t.Fatal("two UNKNOWN changes with distinct m compared equal")
	}
	seen := map[Change]bool{a: true}
	if seen[b] {
		t.Fatal("map conflated distinct UNKNOWN changes")
	}
}

func TestSimplify(t *testing.T) {
	s := New(true, true)
	c := Change{M: SetBit, X: SetBit}
	simplified := c.Simplify(s)
	if !simplified.IsNoop() {
		t.Errorf("Simplify(%+v) against %+v = %+v, want noop", c, s, simplified)
	}

	unk := UnknownChange(SetBit, Unchanged)
	if unk.Simplify(s) != unk {
		t.Errorf("Simplify must preserve UNKNOWN verbatim")
	}
}

func TestApplyInferenceCollapsesRedundantDelta(t *testing.T) {
	c := Change{M: SetBit}
	inf := Inference{HasM: true, M: true}
	collapsed := c.ApplyInference(inf)
	if collapsed.M != Unchanged {
		t.Errorf("ApplyInference did not collapse redundant SEP, got %+v", collapsed)
	}
}

func TestStateApply(t *testing.T) {
	s := New(false, false)
	s2 := s.Apply(Change{M: SetBit, X: Unchanged})
	if !s2.M() || s2.X() {
		t.Errorf("Apply() = %+v, want M set, X clear", s2)
	}
}

package register

import "testing"

func TestSetATruncates(t *testing.T) {
	r := New()
	r.SetA(0x1234, 1)
	v, ok := r.A.Get()
	if !ok || v != 0x0034 {
		t.Errorf("SetA(0x1234, 1) = %#x, %v, want 0x34, true", v, ok)
	}
}

func TestSetAWholeBypassesTruncation(t *testing.T) {
	r := New()
	r.SetAWhole(0x1234)
	v, ok := r.A.Get()
	if !ok || v != 0x1234 {
		t.Errorf("SetAWhole(0x1234) = %#x, %v, want 0x1234, true", v, ok)
	}
}

func TestUnknownByDefault(t *testing.T) {
	r := New()
	if _, ok := r.X.Get(); ok {
		t.Error("new Registers should have unknown X")
	}
}

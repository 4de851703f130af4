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

package state

import (
	"fmt"
	"strings"
)

// Bit is a tri-valued per-field delta: a mode bit was left Unchanged since
// subroutine entry, or forced to Set/Clear.
type Bit int

const (
	Unchanged Bit = iota
	ClearBit
	SetBit
)

func (b Bit) expr() string {
	switch b {
	case SetBit:
		return "1"
	case ClearBit:
		return "0"
	default:
		return "_"
	}
}

func (b Bit) equalsBool(v bool) bool {
	switch b {
	case SetBit:
		return v
	case ClearBit:
		return !v
	default:
		return false
	}
}

// Change is the net M/X delta observed from a subroutine's entry to some
// exit point, plus an UNKNOWN flag. UNKNOWN is a distinct tag layered on
// top of (M, X), not a replacement for them: two UNKNOWN changes with
// different underlying M values must compare and hash unequal, which a
// plain Go struct gives us for free since Change is comparable and usable
// directly as a map key.
type Change struct {
	M       Bit
	X       Bit
	Unknown bool
}

// UnknownChange builds an UNKNOWN change carrying the given (m, x) tag.
func UnknownChange(m, x Bit) Change {
	return Change{M: m, X: x, Unknown: true}
}

// Set mirrors State.Set in delta space: masked bits are forced Set, bits
// outside the mask are left alone.
func (c Change) Set(mask byte) Change {
	out := c
	if mask&MaskM != 0 {
		out.M = SetBit
	}
	if mask&MaskX != 0 {
		out.X = SetBit
	}
	return out
}

// Reset mirrors State.Reset in delta space.
func (c Change) Reset(mask byte) Change {
	out := c
	if mask&MaskM != 0 {
		out.M = ClearBit
	}
	if mask&MaskX != 0 {
		out.X = ClearBit
	}
	return out
}

// Inference is a deduction about what M/X must have been at subroutine
// entry, derived from operand widths observed before any modifying
// instruction executed.
type Inference struct {
	HasM, HasX bool
	M, X       bool
}

// ApplyInference collapses fields rendered redundant by inf: a forced
// field that turns out to equal the inferred entry value produced no net
// change, so it collapses to Unchanged.
func (c Change) ApplyInference(inf Inference) Change {
	out := c
	if inf.HasM && out.M != Unchanged && out.M.equalsBool(inf.M) {
		out.M = Unchanged
	}
	if inf.HasX && out.X != Unchanged && out.X.equalsBool(inf.X) {
		out.X = Unchanged
	}
	return out
}

// Simplify collapses any field equal to s's current bit to Unchanged.
// UNKNOWN changes are preserved verbatim.
func (c Change) Simplify(s State) Change {
	if c.Unknown {
		return c
	}
	out := c
	if out.M != Unchanged && out.M.equalsBool(s.M()) {
		out.M = Unchanged
	}
	if out.X != Unchanged && out.X.equalsBool(s.X()) {
		out.X = Unchanged
	}
	return out
}

// IsNoop reports whether c represents no net change at all.
func (c Change) IsNoop() bool {
	return !c.Unknown && c.M == Unchanged && c.X == Unchanged
}

// Expr renders a canonical, parseable form of c.
func (c Change) Expr() string {
	if c.Unknown {
		return fmt.Sprintf("UNKNOWN(m=%s,x=%s)", c.M.expr(), c.X.expr())
	}
	return fmt.Sprintf("m=%s,x=%s", c.M.expr(), c.X.expr())
}

// ParseExpr parses the form produced by Expr, the inverse operation
// required for the StateChange round-trip property.
func ParseExpr(s string) (Change, error) {
	unknown := false
	body := s
	if strings.HasPrefix(s, "UNKNOWN(") && strings.HasSuffix(s, ")") {
		unknown = true
		body = strings.TrimSuffix(strings.TrimPrefix(s, "UNKNOWN("), ")")
	}
	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return Change{}, fmt.Errorf("state: malformed change expr %q", s)
	}
	m, err := parseField(parts[0], "m=")
	if err != nil {
		return Change{}, err
	}
	x, err := parseField(parts[1], "x=")
	if err != nil {
		return Change{}, err
	}
	return Change{M: m, X: x, Unknown: unknown}, nil
}

func parseField(part, prefix string) (Bit, error) {
	part = strings.TrimSpace(part)
	if !strings.HasPrefix(part, prefix) {
		return Unchanged, fmt.Errorf("state: expected %q in %q", prefix, part)
	}
	switch strings.TrimPrefix(part, prefix) {
	case "1":
		return SetBit, nil
	case "0":
		return ClearBit, nil
	case "_":
		return Unchanged, nil
	default:
		return Unchanged, fmt.Errorf("state: invalid bit in %q", part)
	}
}

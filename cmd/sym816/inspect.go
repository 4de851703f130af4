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

package main

import (
	"fmt"
	"sort"
	"strings"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/sym816/analyzer/pkg/engine"
	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/subroutine"
)

// inspector is a read-only browser over a finished Log: a scrollable list
// of discovered subroutines on the left, the selected one's instructions
// and return states on the right.
type inspector struct {
	log      *engine.Log
	pcs      []uint32
	selected int

	listPane   *widgets.List
	detailPane *widgets.Paragraph
	tipsPane   *widgets.Paragraph
}

func newInspector(log *engine.Log) *inspector {
	pcs := make([]uint32, 0, len(log.Subroutines))
	for pc := range log.Subroutines {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })
	return &inspector{log: log, pcs: pcs}
}

func (v *inspector) label(pc uint32) string {
	for label, lpc := range v.log.SubroutinesByLabel {
		if lpc == pc {
			return label
		}
	}
	return "sub"
}

func (v *inspector) initLayout() {
	v.listPane = widgets.NewList()
	v.listPane.Title = "Subroutines"
	v.listPane.SetRect(0, 0, 34, 40)
	for _, pc := range v.pcs {
		s := v.log.Subroutines[pc]
		v.listPane.Rows = append(v.listPane.Rows, fmt.Sprintf("%#06x %-12s %3d instr", pc, v.label(pc), s.Len()))
	}

	v.detailPane = widgets.NewParagraph()
	v.detailPane.Title = "Instructions"
	v.detailPane.SetRect(34, 0, 34+56, 36)

	v.tipsPane = widgets.NewParagraph()
	v.tipsPane.Title = "Tips"
	v.tipsPane.SetRect(0, 36, 34+56, 40)
	v.tipsPane.Text = "UP/DOWN or J/K = select subroutine    Q = quit"
}

func (v *inspector) renderDetail() {
	if len(v.pcs) == 0 {
		v.detailPane.Text = "(no subroutines discovered)"
		return
	}
	pc := v.pcs[v.selected]
	s := v.log.Subroutines[pc]

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%s at %#06x, trace %v\n\n", v.label(pc), pc, s.CallTrace)
	for _, instr := range s.OrderedInstructions() {
		marker := " "
		if instr.StackManipulation != instruction.NoManipulation {
			marker = "!"
		}
		fmt.Fprintf(sb, "%s %#06x  %-4s  before=%s after=%s\n", marker, instr.ID.PC, instr.Name(), instr.ChangeBefore.Expr(), instr.ChangeAfter.Expr())
	}

	fmt.Fprintln(sb)
	v.renderReturnStates(sb, s)
	v.detailPane.Text = sb.String()
}

func (v *inspector) renderReturnStates(sb *strings.Builder, s *subroutine.Subroutine) {
	if len(s.ReturnStates) == 0 {
		fmt.Fprintln(sb, "no return observed")
		return
	}
	fmt.Fprintln(sb, "raw return states:")
	for c := range s.ReturnStates {
		fmt.Fprintf(sb, "  %s\n", c.Expr())
	}
}

func (v *inspector) draw() {
	v.listPane.SelectedRow = v.selected
	v.renderDetail()
	ui.Render(v.listPane, v.detailPane, v.tipsPane)
}

func (v *inspector) move(delta int) {
	if len(v.pcs) == 0 {
		return
	}
	v.selected += delta
	if v.selected < 0 {
		v.selected = 0
	}
	if v.selected >= len(v.pcs) {
		v.selected = len(v.pcs) - 1
	}
}

// runInspector opens the interactive terminal viewer over log and blocks
// until the user quits.
func runInspector(log *engine.Log) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("sym816: termui: %w", err)
	}
	defer ui.Close()

	v := newInspector(log)
	v.initLayout()
	v.draw()

	for e := range ui.PollEvents() {
		if e.Type != ui.KeyboardEvent {
			continue
		}
		switch e.ID {
		case "q", "Q", "<C-c>":
			return nil
		case "<Up>", "k", "K":
			v.move(-1)
		case "<Down>", "j", "J":
			v.move(1)
		}
		v.draw()
	}
	return nil
}

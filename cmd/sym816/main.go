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

// Command sym816 loads a SNES ROM image, runs the symbolic analysis
// engine over it, and either dumps the resulting log as text or opens
// the interactive inspector.
package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/urfave/cli.v2"

	"github.com/sym816/analyzer/internal/logging"
	"github.com/sym816/analyzer/pkg/assertion"
	"github.com/sym816/analyzer/pkg/engine"
	"github.com/sym816/analyzer/pkg/instruction"
	"github.com/sym816/analyzer/pkg/opcode"
	"github.com/sym816/analyzer/pkg/rom"
	"github.com/sym816/analyzer/pkg/state"
)

func main() {
	app := &cli.App{
		Name:    "sym816",
		Usage:   "symbolic 65816 disassembly analyzer for SNES ROM images",
		Version: "v0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rom",
				Aliases: []string{"r"},
				Usage:   "path to the ROM image to analyze",
			},
			&cli.StringFlag{
				Name:    "assertions",
				Aliases: []string{"a"},
				Usage:   "path to an assertion file overriding ambiguous state changes and call targets",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log engine diagnostics to stdout while analyzing",
			},
			&cli.BoolFlag{
				Name:  "inspect",
				Usage: "open the interactive terminal inspector instead of dumping text",
			},
		},
		Action: runAnalyze,
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAnalyze(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		cli.ShowAppHelp(c)
		return cli.Exit("a --rom path is required", 86)
	}

	if c.Bool("verbose") {
		logging.SetLogger(logging.StdLogger{Prefix: "sym816: "})
		logging.SetEnabled(true)
	}

	log, err := analyze(romPath, c.String("assertions"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("inspect") {
		return runInspector(log)
	}
	dumpLog(log)
	return nil
}

// analyze wires the ROM loader, opcode table, and assertion store into a
// fresh Log and runs it to completion from every seeded vector.
func analyze(romPath, assertionsPath string) (*engine.Log, error) {
	f, err := os.Open(romPath)
	if err != nil {
		return nil, fmt.Errorf("sym816: %w", err)
	}
	defer f.Close()

	image, err := rom.Load(f)
	if err != nil {
		return nil, err
	}

	var store assertion.Store
	if assertionsPath != "" {
		af, err := os.Open(assertionsPath)
		if err != nil {
			return nil, fmt.Errorf("sym816: %w", err)
		}
		defer af.Close()
		loaded, err := assertion.Load(af)
		if err != nil {
			return nil, err
		}
		store = loaded
	}

	log := engine.NewLog(image, opcode.NewTable(), store)
	log.SeedVectors()
	log.Analyze()
	return log, nil
}

// dumpLog writes a flat, greppable listing of every discovered subroutine
// and the instructions it owns, in the style of a disassembly listing.
func dumpLog(log *engine.Log) {
	pcs := make([]uint32, 0, len(log.Subroutines))
	for pc := range log.Subroutines {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })

	for _, pc := range pcs {
		s := log.Subroutines[pc]
		label := labelFor(log, pc)
		fmt.Printf("subroutine %s (%#06x), %d instruction(s)\n", label, pc, s.Len())
		for _, instr := range s.OrderedInstructions() {
			fmt.Printf("  %#06x  %-4s  %s\n", instr.ID.PC, instr.Name(), operandSummary(instr))
		}
		simplified, unknown := s.SimplifyReturnStates(stateAtEntry(log, pc))
		for ch := range simplified {
			fmt.Printf("  -> %s\n", ch.Expr())
		}
		if unknown {
			fmt.Println("  -> UNKNOWN return state observed")
		}
	}
}

func labelFor(log *engine.Log, pc uint32) string {
	for label, lpc := range log.SubroutinesByLabel {
		if lpc == pc {
			return label
		}
	}
	return "sub"
}

// stateAtEntry reports the processor state the subroutine at pc was first
// entered under, defaulting to 8-bit/8-bit (M=1, X=1) if it was never
// reached as a seeded entry point (i.e. it was only ever called).
func stateAtEntry(log *engine.Log, pc uint32) state.State {
	for _, ep := range log.EntryPoints {
		if ep.SubroutinePC == pc {
			return ep.State
		}
	}
	return state.New(true, true)
}

func operandSummary(instr *instruction.Instruction) string {
	if instr.HasAbsoluteArgument {
		return fmt.Sprintf("-> %#06x", instr.AbsoluteArgument)
	}
	return ""
}

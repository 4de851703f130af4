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

package assertion

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sym816/analyzer/pkg/state"
)

// Load parses the flat assertion file format:
//
//	change <pc> m=<0|1|_> x=<0|1|_> [unknown]
//	jump   <pc> <label> <target>
//
// Blank lines and lines starting with '#' are ignored. Multiple jump
// lines for the same pc accumulate targets in file order, which is the
// order the CPU engine tries them in.
func Load(r io.Reader) (*MapStore, error) {
	store := NewMapStore()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "change":
			if err := parseChangeLine(store, fields); err != nil {
				return nil, fmt.Errorf("assertion: line %d: %w", lineNo, err)
			}
		case "jump":
			if err := parseJumpLine(store, fields); err != nil {
				return nil, fmt.Errorf("assertion: line %d: %w", lineNo, err)
			}
		default:
			return nil, fmt.Errorf("assertion: line %d: unknown directive %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("assertion: %w", err)
	}
	return store, nil
}

func parseChangeLine(store *MapStore, fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("change needs at least pc and m=/x=")
	}
	pc, err := parsePC(fields[1])
	if err != nil {
		return err
	}
	var c state.Change
	for _, f := range fields[2:] {
		switch {
		case f == "unknown":
			c.Unknown = true
		case strings.HasPrefix(f, "m="):
			c.M, err = parseBit(strings.TrimPrefix(f, "m="))
		case strings.HasPrefix(f, "x="):
			c.X, err = parseBit(strings.TrimPrefix(f, "x="))
		default:
			err = fmt.Errorf("unrecognized field %q", f)
		}
		if err != nil {
			return err
		}
	}
	store.AssertInstructionChange(pc, c)
	return nil
}

func parseJumpLine(store *MapStore, fields []string) error {
	if len(fields) != 4 {
		return fmt.Errorf("jump needs pc, label, target")
	}
	pc, err := parsePC(fields[1])
	if err != nil {
		return err
	}
	target, err := parsePC(fields[3])
	if err != nil {
		return err
	}
	store.AssertJumpTargets(pc, Target{Label: fields[2], PC: target})
	return nil
}

func parsePC(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

func parseBit(s string) (state.Bit, error) {
	switch s {
	case "1":
		return state.SetBit, nil
	case "0":
		return state.ClearBit, nil
	case "_":
		return state.Unchanged, nil
	default:
		return state.Unchanged, fmt.Errorf("invalid bit %q", s)
	}
}

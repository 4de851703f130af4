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

// Package rom is the ROM / memory-map collaborator the CPU engine
// consumes only through the Memory interface. This package also provides
// a concrete LoROM/HiROM-aware implementation so cmd/sym816 has
// something real to load.
package rom

// Memory is everything the CPU engine needs from a loaded ROM image.
// Addresses are 24-bit, bank byte in the high 8 bits.
type Memory interface {
	ReadByte(pc uint32) byte
	ReadAddress(pc uint32) uint32
	IsRAM(pc uint32) bool
}

// Canonical native-mode 65816 vector addresses.
const (
	VectorCOP   uint32 = 0x00FFE4
	VectorBRK   uint32 = 0x00FFE6
	VectorABORT uint32 = 0x00FFE8
	VectorNMI   uint32 = 0x00FFEA
	VectorRESET uint32 = 0x00FFFC
	VectorIRQ   uint32 = 0x00FFEE
)

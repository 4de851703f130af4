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

package rom

import (
	"errors"
	"fmt"
	"io"
)

// MapMode is the SNES cartridge address-bus layout.
type MapMode int

const (
	LoROM MapMode = iota
	HiROM
)

func (m MapMode) String() string {
	if m == HiROM {
		return "HiROM"
	}
	return "LoROM"
}

// ROM is a loaded SNES cartridge image implementing Memory.
type ROM struct {
	data []byte
	Mode MapMode
}

// Load reads a raw (optionally copier-headered) SNES ROM image and
// detects its memory map.
func Load(r io.Reader) (*ROM, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rom: %w", err)
	}
	if len(data) < 0x8000 {
		return nil, errors.New("rom: image too small to be a SNES ROM")
	}
	data = stripCopierHeader(data)

	return &ROM{data: data, Mode: detectMapMode(data)}, nil
}

// stripCopierHeader removes a legacy 512-byte copier header, identified
// by the image size not being a multiple of the 32KB bank size.
func stripCopierHeader(data []byte) []byte {
	if len(data)%0x8000 == 512 {
		return data[512:]
	}
	return data
}

// detectMapMode scores both candidate header locations by the standard
// checksum/complement invariant (checksum ^ complement == 0xFFFF) and
// picks whichever scores higher, defaulting to LoROM on a tie.
func detectMapMode(data []byte) MapMode {
	if headerScore(data, 0xFFB0) > headerScore(data, 0x7FB0) {
		return HiROM
	}
	return LoROM
}

func headerScore(data []byte, headerOffset int) int {
	if headerOffset+0x30 > len(data) {
		return -1
	}
	checksum := uint16(data[headerOffset+0x2C]) | uint16(data[headerOffset+0x2D])<<8
	complement := uint16(data[headerOffset+0x2E]) | uint16(data[headerOffset+0x2F])<<8
	if checksum^complement == 0xFFFF {
		return 1
	}
	return 0
}

func (r *ROM) mapToFile(addr uint32) (int, bool) {
	bank := byte(addr >> 16)
	off := uint16(addr)
	switch r.Mode {
	case HiROM:
		return hiROMFileOffset(bank, off, len(r.data))
	default:
		return loROMFileOffset(bank, off, len(r.data))
	}
}

func loROMFileOffset(bank byte, off uint16, size int) (int, bool) {
	if off < 0x8000 {
		return 0, false
	}
	b := int(bank &^ 0x80)
	fileOff := b*0x8000 + int(off&0x7FFF)
	return fileOff, fileOff < size
}

func hiROMFileOffset(bank byte, off uint16, size int) (int, bool) {
	if bank&^0x80 < 0x40 && off < 0x8000 {
		return 0, false
	}
	b := int(bank & 0x3F)
	fileOff := b*0x10000 + int(off)
	return fileOff, fileOff < size
}

// ReadByte implements Memory.
func (r *ROM) ReadByte(pc uint32) byte {
	off, ok := r.mapToFile(pc)
	if !ok {
		return 0
	}
	return r.data[off]
}

// ReadAddress implements Memory, reading 3 bytes little-endian starting
// at pc into a 24-bit value.
func (r *ROM) ReadAddress(pc uint32) uint32 {
	lo := uint32(r.ReadByte(pc))
	mid := uint32(r.ReadByte(pc + 1))
	hi := uint32(r.ReadByte(pc + 2))
	return lo | mid<<8 | hi<<16
}

// IsRAM implements Memory: true for system WRAM banks (0x7E-0x7F) and the
// low-RAM mirror ($0000-$1FFF) of banks 0x00-0x3F and 0x80-0xBF, or for any
// address this map mode does not route to cartridge ROM at all.
func (r *ROM) IsRAM(pc uint32) bool {
	bank := byte(pc >> 16)
	off := uint16(pc)
	if bank == 0x7E || bank == 0x7F {
		return true
	}
	if bank&^0x80 <= 0x3F && off < 0x2000 {
		return true
	}
	_, ok := r.mapToFile(pc)
	return !ok
}

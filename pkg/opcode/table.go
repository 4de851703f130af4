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

package opcode

type rawOpcode struct {
	b    byte
	name string
	mode AddressMode
}

// rawOpcodes is the full 65816 opcode matrix, laid out 16 columns per row
// the way the 6502/65C02 tables it descends from conventionally are.
var rawOpcodes = []rawOpcode{
	{0x00, "BRK", Signature}, {0x01, "ORA", DirectIndirectX}, {0x02, "COP", Signature}, {0x03, "ORA", StackRelative},
	{0x04, "TSB", Direct}, {0x05, "ORA", Direct}, {0x06, "ASL", Direct}, {0x07, "ORA", DirectIndirectLong},
	{0x08, "PHP", Implied}, {0x09, "ORA", ImmediateM}, {0x0A, "ASL", Accumulator}, {0x0B, "PHD", Implied},
	{0x0C, "TSB", Absolute}, {0x0D, "ORA", Absolute}, {0x0E, "ASL", Absolute}, {0x0F, "ORA", AbsoluteLong},

	{0x10, "BPL", ProgramCounterRelative}, {0x11, "ORA", DirectIndirectY}, {0x12, "ORA", DirectIndirect}, {0x13, "ORA", StackRelativeIndirectY},
	{0x14, "TRB", Direct}, {0x15, "ORA", DirectX}, {0x16, "ASL", DirectX}, {0x17, "ORA", DirectIndirectLongY},
	{0x18, "CLC", Implied}, {0x19, "ORA", AbsoluteY}, {0x1A, "INC", Accumulator}, {0x1B, "TCS", Implied},
	{0x1C, "TRB", Absolute}, {0x1D, "ORA", AbsoluteX}, {0x1E, "ASL", AbsoluteX}, {0x1F, "ORA", AbsoluteLongX},

	{0x20, "JSR", Absolute}, {0x21, "AND", DirectIndirectX}, {0x22, "JSL", AbsoluteLong}, {0x23, "AND", StackRelative},
	{0x24, "BIT", Direct}, {0x25, "AND", Direct}, {0x26, "ROL", Direct}, {0x27, "AND", DirectIndirectLong},
	{0x28, "PLP", Implied}, {0x29, "AND", ImmediateM}, {0x2A, "ROL", Accumulator}, {0x2B, "PLD", Implied},
	{0x2C, "BIT", Absolute}, {0x2D, "AND", Absolute}, {0x2E, "ROL", Absolute}, {0x2F, "AND", AbsoluteLong},

	{0x30, "BMI", ProgramCounterRelative}, {0x31, "AND", DirectIndirectY}, {0x32, "AND", DirectIndirect}, {0x33, "AND", StackRelativeIndirectY},
	{0x34, "BIT", DirectX}, {0x35, "AND", DirectX}, {0x36, "ROL", DirectX}, {0x37, "AND", DirectIndirectLongY},
	{0x38, "SEC", Implied}, {0x39, "AND", AbsoluteY}, {0x3A, "DEC", Accumulator}, {0x3B, "TSC", Implied},
	{0x3C, "BIT", AbsoluteX}, {0x3D, "AND", AbsoluteX}, {0x3E, "ROL", AbsoluteX}, {0x3F, "AND", AbsoluteLongX},

	{0x40, "RTI", Implied}, {0x41, "EOR", DirectIndirectX}, {0x42, "WDM", Signature}, {0x43, "EOR", StackRelative},
	{0x44, "MVP", BlockMove}, {0x45, "EOR", Direct}, {0x46, "LSR", Direct}, {0x47, "EOR", DirectIndirectLong},
	{0x48, "PHA", Implied}, {0x49, "EOR", ImmediateM}, {0x4A, "LSR", Accumulator}, {0x4B, "PHK", Implied},
	{0x4C, "JMP", Absolute}, {0x4D, "EOR", Absolute}, {0x4E, "LSR", Absolute}, {0x4F, "EOR", AbsoluteLong},

	{0x50, "BVC", ProgramCounterRelative}, {0x51, "EOR", DirectIndirectY}, {0x52, "EOR", DirectIndirect}, {0x53, "EOR", StackRelativeIndirectY},
	{0x54, "MVN", BlockMove}, {0x55, "EOR", DirectX}, {0x56, "LSR", DirectX}, {0x57, "EOR", DirectIndirectLongY},
	{0x58, "CLI", Implied}, {0x59, "EOR", AbsoluteY}, {0x5A, "PHY", Implied}, {0x5B, "TCD", Implied},
	{0x5C, "JML", AbsoluteLong}, {0x5D, "EOR", AbsoluteX}, {0x5E, "LSR", AbsoluteX}, {0x5F, "EOR", AbsoluteLongX},

	{0x60, "RTS", Implied}, {0x61, "ADC", DirectIndirectX}, {0x62, "PER", ProgramCounterRelativeLong}, {0x63, "ADC", StackRelative},
	{0x64, "STZ", Direct}, {0x65, "ADC", Direct}, {0x66, "ROR", Direct}, {0x67, "ADC", DirectIndirectLong},
	{0x68, "PLA", Implied}, {0x69, "ADC", ImmediateM}, {0x6A, "ROR", Accumulator}, {0x6B, "RTL", Implied},
	{0x6C, "JMP", AbsoluteIndirect}, {0x6D, "ADC", Absolute}, {0x6E, "ROR", Absolute}, {0x6F, "ADC", AbsoluteLong},

	{0x70, "BVS", ProgramCounterRelative}, {0x71, "ADC", DirectIndirectY}, {0x72, "ADC", DirectIndirect}, {0x73, "ADC", StackRelativeIndirectY},
	{0x74, "STZ", DirectX}, {0x75, "ADC", DirectX}, {0x76, "ROR", DirectX}, {0x77, "ADC", DirectIndirectLongY},
	{0x78, "SEI", Implied}, {0x79, "ADC", AbsoluteY}, {0x7A, "PLY", Implied}, {0x7B, "TDC", Implied},
	{0x7C, "JMP", AbsoluteIndirectX}, {0x7D, "ADC", AbsoluteX}, {0x7E, "ROR", AbsoluteX}, {0x7F, "ADC", AbsoluteLongX},

	{0x80, "BRA", ProgramCounterRelative}, {0x81, "STA", DirectIndirectX}, {0x82, "BRL", ProgramCounterRelativeLong}, {0x83, "STA", StackRelative},
	{0x84, "STY", Direct}, {0x85, "STA", Direct}, {0x86, "STX", Direct}, {0x87, "STA", DirectIndirectLong},
	{0x88, "DEY", Implied}, {0x89, "BIT", ImmediateM}, {0x8A, "TXA", Implied}, {0x8B, "PHB", Implied},
	{0x8C, "STY", Absolute}, {0x8D, "STA", Absolute}, {0x8E, "STX", Absolute}, {0x8F, "STA", AbsoluteLong},

	{0x90, "BCC", ProgramCounterRelative}, {0x91, "STA", DirectIndirectY}, {0x92, "STA", DirectIndirect}, {0x93, "STA", StackRelativeIndirectY},
	{0x94, "STY", DirectX}, {0x95, "STA", DirectX}, {0x96, "STX", DirectY}, {0x97, "STA", DirectIndirectLongY},
	{0x98, "TYA", Implied}, {0x99, "STA", AbsoluteY}, {0x9A, "TXS", Implied}, {0x9B, "TXY", Implied},
	{0x9C, "STZ", Absolute}, {0x9D, "STA", AbsoluteX}, {0x9E, "STZ", AbsoluteX}, {0x9F, "STA", AbsoluteLongX},

	{0xA0, "LDY", ImmediateX}, {0xA1, "LDA", DirectIndirectX}, {0xA2, "LDX", ImmediateX}, {0xA3, "LDA", StackRelative},
	{0xA4, "LDY", Direct}, {0xA5, "LDA", Direct}, {0xA6, "LDX", Direct}, {0xA7, "LDA", DirectIndirectLong},
	{0xA8, "TAY", Implied}, {0xA9, "LDA", ImmediateM}, {0xAA, "TAX", Implied}, {0xAB, "PLB", Implied},
	{0xAC, "LDY", Absolute}, {0xAD, "LDA", Absolute}, {0xAE, "LDX", Absolute}, {0xAF, "LDA", AbsoluteLong},

	{0xB0, "BCS", ProgramCounterRelative}, {0xB1, "LDA", DirectIndirectY}, {0xB2, "LDA", DirectIndirect}, {0xB3, "LDA", StackRelativeIndirectY},
	{0xB4, "LDY", DirectX}, {0xB5, "LDA", DirectX}, {0xB6, "LDX", DirectY}, {0xB7, "LDA", DirectIndirectLongY},
	{0xB8, "CLV", Implied}, {0xB9, "LDA", AbsoluteY}, {0xBA, "TSX", Implied}, {0xBB, "TYX", Implied},
	{0xBC, "LDY", AbsoluteX}, {0xBD, "LDA", AbsoluteX}, {0xBE, "LDX", AbsoluteY}, {0xBF, "LDA", AbsoluteLongX},

	{0xC0, "CPY", ImmediateX}, {0xC1, "CMP", DirectIndirectX}, {0xC2, "REP", Signature}, {0xC3, "CMP", StackRelative},
	{0xC4, "CPY", Direct}, {0xC5, "CMP", Direct}, {0xC6, "DEC", Direct}, {0xC7, "CMP", DirectIndirectLong},
	{0xC8, "INY", Implied}, {0xC9, "CMP", ImmediateM}, {0xCA, "DEX", Implied}, {0xCB, "WAI", Implied},
	{0xCC, "CPY", Absolute}, {0xCD, "CMP", Absolute}, {0xCE, "DEC", Absolute}, {0xCF, "CMP", AbsoluteLong},

	{0xD0, "BNE", ProgramCounterRelative}, {0xD1, "CMP", DirectIndirectY}, {0xD2, "CMP", DirectIndirect}, {0xD3, "CMP", StackRelativeIndirectY},
	{0xD4, "PEI", Direct}, {0xD5, "CMP", DirectX}, {0xD6, "DEC", DirectX}, {0xD7, "CMP", DirectIndirectLongY},
	{0xD8, "CLD", Implied}, {0xD9, "CMP", AbsoluteY}, {0xDA, "PHX", Implied}, {0xDB, "STP", Implied},
	{0xDC, "JML", AbsoluteIndirectLong}, {0xDD, "CMP", AbsoluteX}, {0xDE, "DEC", AbsoluteX}, {0xDF, "CMP", AbsoluteLongX},

	{0xE0, "CPX", ImmediateX}, {0xE1, "SBC", DirectIndirectX}, {0xE2, "SEP", Signature}, {0xE3, "SBC", StackRelative},
	{0xE4, "CPX", Direct}, {0xE5, "SBC", Direct}, {0xE6, "INC", Direct}, {0xE7, "SBC", DirectIndirectLong},
	{0xE8, "INX", Implied}, {0xE9, "SBC", ImmediateM}, {0xEA, "NOP", Implied}, {0xEB, "XBA", Implied},
	{0xEC, "CPX", Absolute}, {0xED, "SBC", Absolute}, {0xEE, "INC", Absolute}, {0xEF, "SBC", AbsoluteLong},

	{0xF0, "BEQ", ProgramCounterRelative}, {0xF1, "SBC", DirectIndirectY}, {0xF2, "SBC", DirectIndirect}, {0xF3, "SBC", StackRelativeIndirectY},
	{0xF4, "PEA", Absolute}, {0xF5, "SBC", DirectX}, {0xF6, "INC", DirectX}, {0xF7, "SBC", DirectIndirectLongY},
	{0xF8, "SED", Implied}, {0xF9, "SBC", AbsoluteY}, {0xFA, "PLX", Implied}, {0xFB, "XCE", Implied},
	{0xFC, "JSR", AbsoluteIndirectX}, {0xFD, "SBC", AbsoluteX}, {0xFE, "INC", AbsoluteX}, {0xFF, "SBC", AbsoluteLongX},
}

package rom

import (
	"bytes"
	"testing"
)

func makeLoROM(size int) []byte {
	data := make([]byte, size)
	// LoROM header lives at file offset 0x7FB0, complement/checksum at +0x2C.
	data[0x7FB0+0x2C] = 0x34
	data[0x7FB0+0x2D] = 0x12
	data[0x7FB0+0x2E] = 0xCB
	data[0x7FB0+0x2F] = 0xED
	return data
}

func TestLoadDetectsLoROM(t *testing.T) {
	data := makeLoROM(0x20000)
	r, err := Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Mode != LoROM {
		t.Errorf("Mode = %v, want LoROM", r.Mode)
	}
}

func TestLoadStripsCopierHeader(t *testing.T) {
	data := makeLoROM(0x20000)
	headered := append(make([]byte, 512), data...)
	r, err := Load(bytes.NewReader(headered))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Mode != LoROM {
		t.Errorf("Mode = %v, want LoROM", r.Mode)
	}
	if r.ReadByte(0x008000) != data[0] {
		t.Errorf("ReadByte after strip = %#x, want %#x", r.ReadByte(0x008000), data[0])
	}
}

func TestLoROMFileOffset(t *testing.T) {
	data := makeLoROM(0x40000)
	data[0x0000] = 0xAA // bank 0x00, offset 0x8000 -> file 0x0000
	data[0x8000] = 0xBB // bank 0x01, offset 0x8000 -> file 0x8000
	r, _ := Load(bytes.NewReader(data))

	if got := r.ReadByte(0x008000); got != 0xAA {
		t.Errorf("bank 0 ReadByte = %#x, want 0xAA", got)
	}
	if got := r.ReadByte(0x018000); got != 0xBB {
		t.Errorf("bank 1 ReadByte = %#x, want 0xBB", got)
	}
	// Mirrored in the upper bank set (0x80 high bit set).
	if got := r.ReadByte(0x808000); got != 0xAA {
		t.Errorf("mirrored bank ReadByte = %#x, want 0xAA", got)
	}
}

func TestReadAddressLittleEndian(t *testing.T) {
	data := makeLoROM(0x20000)
	data[0x0000] = 0x34 // bank 0x00, offset 0x8000 -> file 0x0000
	data[0x0001] = 0x12
	data[0x0002] = 0x7E
	r, _ := Load(bytes.NewReader(data))

	if got := r.ReadAddress(0x008000); got != 0x7E1234 {
		t.Errorf("ReadAddress = %#x, want 0x7E1234", got)
	}
}

func TestIsRAM(t *testing.T) {
	data := makeLoROM(0x20000)
	r, _ := Load(bytes.NewReader(data))

	if !r.IsRAM(0x7E0000) {
		t.Error("bank 0x7E should be RAM")
	}
	if !r.IsRAM(0x001000) {
		t.Error("low-RAM mirror in bank 0x00 should be RAM")
	}
	if r.IsRAM(0x008000) {
		t.Error("bank 0x00 offset 0x8000 should be ROM, not RAM")
	}
}

func TestLoadRejectsTinyImage(t *testing.T) {
	_, err := Load(bytes.NewReader(make([]byte, 10)))
	if err == nil {
		t.Fatal("expected error for undersized image")
	}
}

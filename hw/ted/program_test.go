package ted

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadProgram(t *testing.T) {
	ted := newTestTED(t)
	ted.WriteMemory(0x37, 0x00)
	ted.WriteMemory(0x38, 0xFD)

	prg := []byte{0x01, 0x10, 0x0B, 0x10, 0x0A, 0x00, 0x99, 0x22, 0x48, 0x49, 0x22, 0x00, 0x00, 0x00}
	if err := ted.LoadProgram(bytes.NewReader(prg)); err != nil {
		t.Fatal(err)
	}
	for i, b := range prg[2:] {
		if got := ted.ReadMemory(0x1001+uint16(i), true); got != b {
			t.Fatalf("RAM[%04X] = %02x, want %02x", 0x1001+i, got, b)
		}
	}

	end := uint16(0x1001 + len(prg) - 2)
	for _, addr := range []uint16{0x2D, 0x2F, 0x31, 0x9D} {
		if got := ted.readMemoryWord(addr); got != end {
			t.Errorf("pointer at %02X = %04X, want %04X", addr, got, end)
		}
	}
	if got := ted.readMemoryWord(0x33); got != 0xFD00 {
		t.Errorf("pointer at 33 = %04X, want FD00", got)
	}
}

func TestSaveProgram(t *testing.T) {
	ted := newTestTED(t)
	prg := []byte{0x01, 0x10, 0xAA, 0xBB, 0xCC}
	if err := ted.LoadProgram(bytes.NewReader(prg)); err != nil {
		t.Fatal(err)
	}
	ted.WriteMemory(0x2B, 0x01)
	ted.WriteMemory(0x2C, 0x10)

	var buf bytes.Buffer
	if err := ted.SaveProgram(&buf); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(prg, buf.Bytes()); diff != "" {
		t.Errorf("saved program mismatch (-want +got):\n%s", diff)
	}

	ted.WriteMemory(0x2B, 0x00)
	ted.WriteMemory(0x2C, 0x20)
	if err := ted.SaveProgram(&buf); err == nil {
		t.Error("SaveProgram with end before start succeeded")
	}
}

func TestLoadProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"address only", []byte{0x01, 0x10}},
		{"too large", []byte{0xFF, 0xFF, 0x01, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ted := newTestTED(t)
			if err := ted.LoadProgram(bytes.NewReader(tt.data)); err == nil {
				t.Fatal("LoadProgram succeeded")
			}
		})
	}

	ted := newTestTED(t)
	err := ted.LoadProgram(bytes.NewReader(append([]byte{0x00, 0xF0}, make([]byte, 0x1001)...)))
	if !errors.Is(err, ErrProgramTooLarge) {
		t.Errorf("LoadProgram() = %v, want ErrProgramTooLarge", err)
	}
}

package ted

import (
	"errors"
	"fmt"
	"io"

	"plus4/emu/log"
)

var ErrProgramTooLarge = errors.New("program too large")

// LoadProgram loads a PRG file (2-byte load address followed by data) into
// RAM and updates the BASIC pointers, as the KERNAL LOAD routine does.
func (t *TED) LoadProgram(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, 0x10002))
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	if len(data) < 2 {
		return fmt.Errorf("load program: %w", io.ErrUnexpectedEOF)
	}
	start := int(data[0]) | int(data[1])<<8
	data = data[2:]
	if len(data) == 0 {
		return errors.New("load program: empty program")
	}
	if start+len(data) > 0x10000 {
		return fmt.Errorf("load program: %w (%d bytes at $%04X)", ErrProgramTooLarge, len(data), start)
	}

	for i, b := range data {
		t.writeMemory(uint16(start+i), b)
	}
	end := uint16(start + len(data))

	t.writeMemoryWord(0x2D, end)
	t.writeMemoryWord(0x2F, end)
	t.writeMemoryWord(0x31, end)
	t.writeMemoryWord(0x33, uint16(t.ReadMemory(0x37, true))|uint16(t.ReadMemory(0x38, true))<<8)
	t.writeMemoryWord(0x9D, end)

	log.ModEmu.InfoZ("program loaded").
		Hex16("start", uint16(start)).
		Hex16("end", end).
		End()
	return nil
}

// SaveProgram writes the BASIC program area, from the start of BASIC
// ($2B/$2C) to the end of program ($2D/$2E), as a PRG file.
func (t *TED) SaveProgram(w io.Writer) error {
	start := int(t.readMemoryWord(0x2B))
	end := int(t.readMemoryWord(0x2D))
	if end < start {
		return fmt.Errorf("save program: invalid program area $%04X-$%04X", start, end)
	}

	buf := make([]byte, 0, end-start+2)
	buf = append(buf, uint8(start), uint8(start>>8))
	for addr := start; addr < end; addr++ {
		buf = append(buf, t.ReadMemory(uint16(addr), true))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("save program: %w", err)
	}
	return nil
}

func (t *TED) readMemoryWord(addr uint16) uint16 {
	return uint16(t.ReadMemory(addr, true)) | uint16(t.ReadMemory(addr+1, true))<<8
}

func (t *TED) writeMemoryWord(addr uint16, val uint16) {
	t.writeMemory(addr, uint8(val))
	t.writeMemory(addr+1, uint8(val>>8))
}

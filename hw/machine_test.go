package hw

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"plus4/hw/sid"
	"plus4/hw/snapshot"
)

func newTestMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()
	m, err := NewMachine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewMachineErrors(t *testing.T) {
	cfg := DefaultConfig
	cfg.RAMSize = 48
	if _, err := NewMachine(cfg, nil); err == nil {
		t.Error("NewMachine with 48K of RAM succeeded")
	}
}

func TestSIDCard(t *testing.T) {
	m := newTestMachine(t, DefaultConfig)
	if m.card.active {
		t.Fatal("SID card active before any write")
	}
	if got := m.SID.ChipModel(); got != sid.MOS8580 {
		t.Errorf("ChipModel() = %v, want 8580", got)
	}

	// the 8580 applies writes one cycle late
	m.TED.Write8(0xFD40, 0x34) // voice 1 frequency, low byte
	m.StepCycles(1)
	m.TED.Write8(0xFE81, 0x12) // mirror, high byte
	m.StepCycles(1)
	m.TED.Write8(0xFD58, 0x0F)
	m.StepCycles(1)

	if !m.card.active {
		t.Fatal("SID card not active after a write")
	}
	regs := m.SID.State().Registers
	if regs[0x00] != 0x34 || regs[0x01] != 0x12 || regs[0x18] != 0x0F {
		t.Errorf("registers = %02x %02x .. %02x, want 34 12 .. 0f", regs[0x00], regs[0x01], regs[0x18])
	}

	// below and above the card, the TED open bus is seen
	m.TED.WriteMemory(0x1000, 0x5A)
	for _, addr := range []uint16{0xFD20, 0xFD60, 0xFE7F, 0xFEA0} {
		m.TED.Read8(0x1000)
		if got := m.TED.Read8(addr); got != 0x5A {
			t.Errorf("Read8(%04X) = %02x, want open bus 5A", addr, got)
		}
	}
}

func TestNoSIDCard(t *testing.T) {
	cfg := DefaultConfig
	cfg.SID.Enabled = false
	m := newTestMachine(t, cfg)

	if m.SID != nil {
		t.Fatal("SID allocated without SID card")
	}
	if err := m.WriteSID(0x18, 0x0F); err == nil {
		t.Error("WriteSID succeeded without SID card")
	}
	m.TED.WriteMemory(0x1000, 0x5A)
	m.TED.Read8(0x1000)
	if got := m.TED.Read8(0xFD40); got != 0x5A {
		t.Errorf("Read8(FD40) = %02x, want open bus 5A", got)
	}
}

func TestMixSID(t *testing.T) {
	tests := []struct {
		name string
		ted  int16
		acc  int32
		want int16
	}{
		{"silence", 0, 0, 0},
		{"ted only", 1234, 0, 1234},
		{"scaled", 0, 176 * 100, 300},
		{"negative", 100, -176 * 100, -200},
		{"sid clamped", 0, 176 * 10000, 24576},
		{"sid clamped negative", 0, -176 * 10000, -24576},
		{"sum clamped", 16384, 176 * 10000, 32767},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mixSID(tt.ted, tt.acc); got != tt.want {
				t.Errorf("mixSID(%d, %d) = %d, want %d", tt.ted, tt.acc, got, tt.want)
			}
		})
	}
}

func TestRunFrame(t *testing.T) {
	m := newTestMachine(t, DefaultConfig)
	m.RunFrame()
	if got := m.Screen.Frames(); got != 1 {
		t.Fatalf("Frames() = %d, want 1", got)
	}

	samples := m.RunFrame()
	if got := m.Screen.Frames(); got != 2 {
		t.Errorf("Frames() = %d, want 2", got)
	}
	// 312 lines of 57 cycles, a sample every 4 cycles
	const want = 312 * 57 / 4 * 48000 / palSoundClock
	if n := len(samples); n < want-2 || n > want+2 {
		t.Errorf("got %d samples, want %d (+-2)", n, want)
	}
}

func TestRunFrameTEDDisabled(t *testing.T) {
	m := newTestMachine(t, DefaultConfig)
	m.TED.Write8(0xFF07, 0x20)
	m.RunFrame()
	if got := m.Screen.Frames(); got != 0 {
		t.Errorf("Frames() = %d, want 0 with the TED disabled", got)
	}
}

// busyMachine returns a machine playing a SID note over a TED square wave,
// stepped past the middle of a frame.
func busyMachine(t *testing.T) *Machine {
	t.Helper()
	cfg := DefaultConfig
	cfg.RAMPattern = 0x40_76543210
	m := newTestMachine(t, cfg)
	for _, w := range []struct {
		addr uint16
		val  uint8
	}{
		{0xFF06, 0x1B}, {0xFF11, 0x37}, {0xFF0E, 0x80}, {0xFF12, 0x01},
		{0xFD40, 0x00}, {0xFD41, 0x20}, {0xFD45, 0x11}, {0xFD46, 0xF0},
		{0xFD58, 0x0F}, {0xFD44, 0x21},
	} {
		m.TED.Write8(w.addr, w.val)
		m.StepCycles(1)
	}
	m.RunFrame()
	m.StepCycles(100 * 57)
	return m
}

func TestMachineSnapshotRoundTrip(t *testing.T) {
	src := busyMachine(t)

	var buf bytes.Buffer
	if err := src.SaveState(&buf); err != nil {
		t.Fatal(err)
	}
	dst := newTestMachine(t, DefaultConfig)
	if err := dst.LoadState(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if !dst.card.active {
		t.Error("SID card not active after load")
	}
	if dst.card.acc != src.card.acc {
		t.Errorf("SID accumulator = %d, want %d", dst.card.acc, src.card.acc)
	}

	src.StepCycles(312 * 57)
	dst.StepCycles(312 * 57)
	if diff := cmp.Diff(src.TED.State(), dst.TED.State()); diff != "" {
		t.Errorf("TED state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(src.SID.State(), dst.SID.State()); diff != "" {
		t.Errorf("SID state mismatch (-want +got):\n%s", diff)
	}
}

func TestMachineSnapshotErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := busyMachine(t).SaveState(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	badMagic := bytes.Clone(data)
	badMagic[0] = 'X'

	// the TED chunk comes first, drop it
	tedLen := int(data[8])<<24 | int(data[9])<<16 | int(data[10])<<8 | int(data[11])
	noTED := append(bytes.Clone(data[:4]), data[12+tedLen:]...)

	badSize := bytes.Clone(data)
	badSize[8] = 0x7F

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"magic", badMagic},
		{"no TED chunk", noTED},
		{"chunk size", badSize},
		{"truncated", data[:len(data)-3]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := busyMachine(t)
			err := m.LoadState(bytes.NewReader(tt.data))
			if !errors.Is(err, snapshot.ErrFormat) {
				t.Fatalf("LoadState() = %v, want ErrFormat", err)
			}
			if m.card.active {
				t.Error("SID card still active after a failed load")
			}
			if got := m.TED.VideoLine(); got != 0 {
				t.Errorf("VideoLine() = %d, want 0 after reset", got)
			}
		})
	}
}

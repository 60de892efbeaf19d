package hw

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeScript(t *testing.T) {
	const in = `{
		"comment": "ignored",
		"writes": [
			{"frame": 1, "line": 10, "column": 2, "addr": "$FF19", "val": "0x71"},
			{"frame": 0, "line": 200, "column": 50, "addr": 65300, "val": 8},
			{"frame": 0, "line": 10, "column": 100, "addr": "ff15", "val": 0}
		],
		"sid": [
			{"cycle": 5000, "reg": 24, "val": 15},
			{"cycle": 10, "reg": "04", "val": "11"}
		]
	}`

	got, err := DecodeScript(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := &Script{
		Writes: []RegWrite{
			{Frame: 0, Line: 10, Column: 100, Addr: 0xFF15, Val: 0x00},
			{Frame: 0, Line: 200, Column: 50, Addr: 0xFF14, Val: 0x08},
			{Frame: 1, Line: 10, Column: 2, Addr: 0xFF19, Val: 0x71},
		},
		SID: []SIDWrite{
			{Cycle: 10, Reg: 0x04, Val: 0x11},
			{Cycle: 5000, Reg: 24, Val: 15},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ``},
		{"not an object", `[]`},
		{"addr too large", `{"writes": [{"addr": 65536}]}`},
		{"bad hex", `{"writes": [{"addr": "FGHI"}]}`},
		{"val too large", `{"writes": [{"val": "100"}]}`},
		{"line out of range", `{"writes": [{"line": 312}]}`},
		{"negative column", `{"writes": [{"column": -1}]}`},
		{"sid reg", `{"sid": [{"reg": 32}]}`},
		{"truncated", `{"writes": [{"addr": 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeScript(strings.NewReader(tt.in)); err == nil {
				t.Error("DecodeScript succeeded")
			}
		})
	}
}

func TestScriptEncodeDecode(t *testing.T) {
	want := &Script{
		Writes: []RegWrite{
			{Frame: 0, Line: 3, Column: 4, Addr: 0xFF19, Val: 0x71},
			{Frame: 2, Line: 0, Column: 0, Addr: 0x0001, Val: 0xFF},
		},
		SID: []SIDWrite{{Cycle: 123456789, Reg: 0x18, Val: 0x0F}},
	}
	var buf bytes.Buffer
	if err := want.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"addr":"FF19"`) {
		t.Errorf("encoded script has no hexadecimal address: %s", buf.String())
	}

	got, err := DecodeScript(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptCPU(t *testing.T) {
	m := newTestMachine(t, DefaultConfig)
	cpu := NewScriptCPU(m.TED, []RegWrite{
		{Frame: 0, Line: 20, Column: 10, Addr: 0x2000, Val: 0x11},
		{Frame: 0, Line: 20, Column: 10, Addr: 0x2001, Val: 0x22},
		{Frame: 1, Line: 5, Column: 0, Addr: 0x2002, Val: 0x33},
	})
	m.SetCPU(cpu)

	m.StepCycles(19 * 114 / 2)
	if got := m.TED.ReadMemory(0x2000, true); got != 0x00 {
		t.Fatalf("write at line 20 performed at line %d", m.TED.VideoLine())
	}
	m.StepCycles(2 * 114 / 2)
	if got := m.TED.ReadMemory(0x2000, true); got != 0x11 {
		t.Errorf("$2000 = %02x, want 11", got)
	}
	if got := m.TED.ReadMemory(0x2001, true); got != 0x22 {
		t.Errorf("$2001 = %02x, want 22", got)
	}
	if cpu.Done() {
		t.Fatal("Done() = true before frame 1")
	}

	m.RunFrame()
	m.RunFrame()
	if got := m.TED.ReadMemory(0x2002, true); got != 0x33 {
		t.Errorf("$2002 = %02x, want 33", got)
	}
	if !cpu.Done() {
		t.Error("Done() = false after all writes")
	}
	if cpu.Cycles() == 0 {
		t.Error("Cycles() = 0")
	}
}

func TestPlaySIDScript(t *testing.T) {
	m := newTestMachine(t, DefaultConfig)
	err := m.PlaySIDScript([]SIDWrite{
		{Cycle: 10, Reg: 0x00, Val: 0x34},
		{Cycle: 10, Reg: 0x01, Val: 0x12},
		{Cycle: 50, Reg: 0x18, Val: 0x0F},
	})
	if err != nil {
		t.Fatal(err)
	}

	m.StepCycles(10)
	if m.card.active {
		t.Fatal("SID card active before cycle 10")
	}
	m.StepCycles(5)
	if !m.card.active {
		t.Fatal("SID card not active after cycle 10")
	}
	if m.SIDScriptDone() {
		t.Fatal("SIDScriptDone() = true before cycle 50")
	}

	m.StepCycles(50)
	if !m.SIDScriptDone() {
		t.Error("SIDScriptDone() = false after the last write")
	}
	regs := m.SID.State().Registers
	if regs[0x00] != 0x34 || regs[0x01] != 0x12 || regs[0x18] != 0x0F {
		t.Errorf("registers = %02x %02x .. %02x, want 34 12 .. 0f", regs[0x00], regs[0x01], regs[0x18])
	}
}

func TestPlaySIDScriptNoCard(t *testing.T) {
	cfg := DefaultConfig
	cfg.SID.Enabled = false
	m := newTestMachine(t, cfg)
	if err := m.PlaySIDScript([]SIDWrite{{Cycle: 1}}); err == nil {
		t.Error("PlaySIDScript succeeded without SID card")
	}
}

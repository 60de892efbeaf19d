package ted

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVideoStreamFlush(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF07, 0x08)
	ted.step(2 * CyclesPerLine)

	if len(ted.video.flushes) != 1 {
		t.Fatalf("got %d flushes, want 1", len(ted.video.flushes))
	}
	buf := ted.video.flushes[0]
	if len(buf) != 452 {
		t.Errorf("flush length = %d, want 452", len(buf))
	}
	if buf[0]&FlagHBlank == 0 {
		t.Errorf("first group flags = %02x, want horizontal blanking", buf[0])
	}
	if ted.videoBufPos != 4 {
		t.Errorf("pending bytes = %d, want 4", ted.videoBufPos)
	}
}

func TestLineCounter(t *testing.T) {
	tests := []struct {
		name   string
		ctrl2  uint8
		cycles int
		want   int
	}{
		{"first cycle", 0x08, 1, 0},
		{"line 1", 0x08, 1 + CyclesPerLine, 1},
		{"line 10", 0x08, 1 + 10*CyclesPerLine, 10},
		{"PAL last line", 0x08, 1 + (PALLines-1)*CyclesPerLine, PALLines - 1},
		{"PAL wrap", 0x08, 1 + PALLines*CyclesPerLine, 0},
		{"NTSC last line", 0x48, 1 + (NTSCLines-1)*CyclesPerLine, NTSCLines - 1},
		{"NTSC wrap", 0x48, 1 + NTSCLines*CyclesPerLine, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ted := newTestTED(t)
			ted.Write8(0xFF07, tt.ctrl2)
			ted.step(tt.cycles)
			if got := ted.VideoLine(); got != tt.want {
				t.Errorf("VideoLine() = %d, want %d", got, tt.want)
			}
			if got := ted.VideoColumn(); got != 102 {
				t.Errorf("VideoColumn() = %d, want 102", got)
			}
		})
	}
}

func TestVideoLineRegisters(t *testing.T) {
	ted := newTestTED(t)
	ted.step(1 + 10*CyclesPerLine)
	// the registers follow the counter one half-cycle later
	if got := ted.Read8(0xFF1D); got != 10 {
		t.Errorf("FF1D = %d, want 10", got)
	}
	if got := ted.Read8(0xFF1C); got != 0xFE {
		t.Errorf("FF1C = %02x, want FE", got)
	}

	ted.Write8(0xFF1C, 0x01)
	ted.Write8(0xFF1D, 0x05)
	if got := ted.VideoLine(); got != 0x105 {
		t.Errorf("VideoLine() = %d, want %d", got, 0x105)
	}
}

func TestRasterInterrupt(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF0B, 10)
	ted.Write8(0xFF0A, 0x02)

	ted.step(10 * CyclesPerLine)
	if ted.cpu.irq {
		t.Fatalf("IRQ asserted at line %d", ted.VideoLine())
	}
	ted.step(1)
	if !ted.cpu.irq {
		t.Fatalf("IRQ not asserted at line %d", ted.VideoLine())
	}
	if got := ted.Read8(0xFF09); got&0x82 != 0x82 {
		t.Errorf("FF09 = %02x, want bits 7 and 1 set", got)
	}

	ted.Write8(0xFF09, 0x02)
	if ted.cpu.irq {
		t.Errorf("IRQ still asserted after acknowledge")
	}
	if got := ted.Read8(0xFF09); got != 0x25 {
		t.Errorf("FF09 = %02x, want 25", got)
	}

	// edge triggered: no new interrupt on the same line
	ted.step(10)
	if ted.cpu.irq {
		t.Errorf("IRQ asserted twice on the same line")
	}
}

func TestTimer1(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF00, 0x10)
	ted.Write8(0xFF01, 0x00)
	ted.Write8(0xFF0A, 0x08)

	ted.step(16)
	if ted.cpu.irq {
		t.Fatal("timer 1 interrupt too early")
	}
	ted.step(1)
	if !ted.cpu.irq {
		t.Fatal("timer 1 interrupt not asserted")
	}
	// reloaded from the last written value
	if got := ted.Read8(0xFF00); got != 0x0F {
		t.Errorf("FF00 = %02x, want 0F", got)
	}
}

func TestTimer2StartsDelayed(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF02, 0x05)
	ted.Write8(0xFF03, 0x00)
	if ted.timer2Run {
		t.Fatal("timer 2 running before its start delay")
	}
	ted.step(1)
	if !ted.timer2Run {
		t.Fatal("timer 2 not running")
	}
	if got := ted.Read8(0xFF02); got != 0x04 {
		t.Errorf("FF02 = %02x, want 04", got)
	}

	ted.Write8(0xFF02, 0x00)
	if ted.timer2Run {
		t.Error("timer 2 still running after writing the low byte")
	}
}

func TestDMAHaltsCPU(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0xFF06, 0x18)
	ted.stepTo(t, 10, 20)

	var (
		armed   = true
		columns []int
	)
	ted.cpu.onRun = func() {
		if armed {
			armed = false
			ted.Write8(0xFF06, 0x1A)
			return
		}
		columns = append(columns, ted.VideoColumn())
	}
	ted.step(8)

	if len(columns) == 0 {
		t.Fatal("CPU never ran after the DMA")
	}
	if columns[0] != 26 {
		t.Errorf("CPU resumed at column %d, want 26 (columns %v)", columns[0], columns)
	}
	if !ted.dmaFetching {
		t.Error("DMA not fetching")
	}
	if ted.cpu.running {
		t.Error("CPU reported as running during DMA")
	}
}

func TestSingleClockModeInBorder(t *testing.T) {
	ted := newTestTED(t)
	ted.stepTo(t, 250, 20)

	runs := 0
	ted.cpu.onRun = func() { runs++ }
	ted.step(10)
	// display disabled: the CPU runs at double clock
	if runs != 20 {
		t.Errorf("CPU runs = %d, want 20", runs)
	}

	ted.Write8(0xFF13, 0x02)
	ted.step(1)
	runs = 0
	ted.step(10)
	if runs != 10 {
		t.Errorf("CPU runs in forced single clock mode = %d, want 10", runs)
	}
}

func TestTEDDisabled(t *testing.T) {
	ted := newTestTED(t)
	runs := 0
	ted.cpu.onRun = func() { runs++ }
	ted.Write8(0xFF07, 0x28)
	ted.step(10)

	if runs != 20 {
		t.Errorf("CPU runs = %d, want 20", runs)
	}
	if ted.videoBufPos != 40 {
		t.Errorf("pending bytes = %d, want 40", ted.videoBufPos)
	}
	for i := 0; i < ted.videoBufPos; i += 2 {
		if f := ted.videoBuf[i]; f&(FlagHBlank|FlagVBlank) != FlagHBlank|FlagVBlank {
			t.Fatalf("group %d flags = %02x, want blanking", i/2, f)
		}
	}
	if got := ted.VideoColumn(); got != 100 {
		t.Errorf("VideoColumn() = %d, want 100", got)
	}
}

func TestColumnRegister(t *testing.T) {
	ted := newTestTED(t)
	if got := ted.Read8(0xFF1E); got != 200 {
		t.Errorf("FF1E = %d, want 200", got)
	}
	ted.Write8(0xFF1E, 0x3F)
	if got := ted.VideoColumn(); got != 96 {
		t.Errorf("VideoColumn() = %d, want 96", got)
	}
}

func TestClockMultiplier(t *testing.T) {
	ted := newTestTED(t)
	ted.SetCPUClockMultiplier(4)
	ted.Write8(0xFF13, 0x02)
	ted.step(2)
	if ted.cpu.cycles != 8 {
		t.Errorf("CPU cycles = %d, want 8", ted.cpu.cycles)
	}

	ted.SetCPUClockMultiplier(0)
	if ted.clockMultiplier != 1 {
		t.Errorf("clock multiplier = %d, want 1", ted.clockMultiplier)
	}
}

func TestVerticalSync(t *testing.T) {
	type edges struct {
		VBlank, VSync, Equalization []int
	}
	tests := []struct {
		name  string
		ctrl2 uint8
		lines int
		want  edges
	}{
		{
			name: "PAL", ctrl2: 0x08, lines: PALLines,
			want: edges{
				VBlank:       []int{251, 269},
				VSync:        []int{254, 257},
				Equalization: []int{251, 260},
			},
		},
		{
			name: "NTSC", ctrl2: 0x48, lines: NTSCLines,
			want: edges{
				VBlank:       []int{226, 244},
				VSync:        []int{229, 232},
				Equalization: []int{226, 235},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ted := newTestTED(t)
			ted.Write8(0xFF07, tt.ctrl2)

			var got edges
			vblank := ted.videoOutputFlags&FlagVBlank != 0
			vsync := ted.videoOutputFlags&FlagVSync != 0
			eq := ted.vsyncFlags&0x40 != 0
			for range tt.lines * CyclesPerLine {
				ted.StepCycle()
				if v := ted.videoOutputFlags&FlagVBlank != 0; v != vblank {
					vblank = v
					got.VBlank = append(got.VBlank, ted.savedVideoLine)
				}
				if v := ted.videoOutputFlags&FlagVSync != 0; v != vsync {
					vsync = v
					got.VSync = append(got.VSync, ted.savedVideoLine)
				}
				if v := ted.vsyncFlags&0x40 != 0; v != eq {
					eq = v
					got.Equalization = append(got.Equalization, ted.savedVideoLine)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("sync edges mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

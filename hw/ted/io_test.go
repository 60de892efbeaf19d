package ted

import "testing"

func TestKeyboardLatch(t *testing.T) {
	tests := []struct {
		name   string
		keys   []int
		rowSel uint8
		latch  uint8
		want   uint8
	}{
		{"no key", nil, 0x00, 0xFF, 0xFF},
		{"A selected", []int{KeyA}, 0xFD, 0xFF, 0xFB},
		{"A not selected", []int{KeyA}, 0xFE, 0xFF, 0xFF},
		{"all rows", []int{KeyA, KeyReturn}, 0x00, 0xFF, 0xF9},
		{"joystick 2 fire", []int{KeyJoy2Fire}, 0xFF, 0xFD, 0x7F},
		{"joystick 1 up", []int{KeyJoy1Up}, 0xFF, 0xFB, 0xFE},
		{"joystick not selected", []int{KeyJoy1Up}, 0xFF, 0xFD, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ted := newTestTED(t)
			for _, k := range tt.keys {
				ted.SetKeyState(k, true)
			}
			ted.Write8(0xFD30, tt.rowSel)
			ted.Write8(0xFF08, tt.latch)
			if got := ted.Read8(0xFF08); got != tt.want {
				t.Errorf("FF08 = %02x, want %02x", got, tt.want)
			}
		})
	}
}

func TestKeyRelease(t *testing.T) {
	ted := newTestTED(t)
	ted.SetKeyState(KeySpace, true)
	ted.SetKeyState(KeySpace, false)
	ted.SetKeyState(-1, true)
	ted.SetKeyState(128, true)
	ted.Write8(0xFD30, 0x00)
	ted.Write8(0xFF08, 0x00)
	if got := ted.Read8(0xFF08); got != 0xFF {
		t.Errorf("FF08 = %02x, want FF", got)
	}
}

func TestIOPort(t *testing.T) {
	ted := newTestTED(t)
	ted.Write8(0x0000, 0x0F)
	ted.Write8(0x0001, 0x08)
	if ted.TapeMotor() {
		t.Error("tape motor on with bit 3 set")
	}

	ted.Write8(0x0001, 0x02)
	if !ted.TapeMotor() {
		t.Error("tape motor off with bit 3 clear")
	}
	if !ted.TapeOutput() {
		t.Error("tape output low with bit 1 set")
	}

	if got := ted.Read8(0x0001); got != 0xC2 {
		t.Errorf("port = %02x, want C2", got)
	}
	ted.SetTapeInput(true)
	if got := ted.Read8(0x0001); got != 0xD2 {
		t.Errorf("port = %02x, want D2", got)
	}

	ted.Write8(0x0000, 0xFF)
	if got := ted.Read8(0x0000); got != 0xDF {
		t.Errorf("DDR = %02x, want DF", got)
	}
}

func TestUserPort(t *testing.T) {
	ted := newTestTED(t)
	if got := ted.UserPort(); got != 0xFF {
		t.Errorf("UserPort() = %02x, want FF", got)
	}
	ted.Write8(0xFD10, 0x42)
	if got := ted.Read8(0xFD1F); got != 0x42 {
		t.Errorf("FD1F = %02x, want 42", got)
	}
}

func TestOpenBus(t *testing.T) {
	ted := newTestTED(t)
	ted.WriteMemory(0x1000, 0x3C)
	ted.Read8(0x1000)
	if got := ted.Read8(0xFE00); got != 0x3C {
		t.Errorf("FE00 = %02x, want 3C", got)
	}
	if got := ted.DataBus(); got != 0x3C {
		t.Errorf("DataBus() = %02x, want 3C", got)
	}
}

func TestLightPen(t *testing.T) {
	ted := newTestTED(t)
	ted.stepTo(t, 40, 60)
	ted.LatchLightPen()
	if got, want := ted.LightPen(), (LightPen{Line: 40, Column: 60}); got != want {
		t.Errorf("LightPen() = %+v, want %+v", got, want)
	}
}

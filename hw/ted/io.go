package ted

import (
	"plus4/emu/log"
	"plus4/hw/hwio"
)

// CPU I/O port at $0000-$0001.

func (t *TED) WritePORTDDR(_, val uint8) {
	t.PORTDDR.Value = val & 0xDF
	t.ioPortWrite()
}

func (t *TED) ReadPORT(val uint8) uint8 {
	in := uint8(0xCF)
	if t.tapeInput {
		in = 0xDF
	}
	ddr := t.PORTDDR.Value
	return val&ddr | ^ddr&in
}

func (t *TED) WritePORT(_, _ uint8) {
	t.ioPortWrite()
}

// ioPortWrite updates the tape motor and tape output lines. Inputs read
// back as high, bits 6 and 7 are pulled down by bits 0 and 1.
func (t *TED) ioPortWrite() {
	n := t.PORT.Value | ^t.PORTDDR.Value
	n |= (^n&0x80)>>7 | (^n&0x40)>>5
	t.tapeMotor = n&0x08 == 0
	t.tapeOutput = n&0x02 != 0
}

// TapeMotor reports whether the tape motor is on.
func (t *TED) TapeMotor() bool { return t.tapeMotor }

// TapeOutput returns the state of the tape write line.
func (t *TED) TapeOutput() bool { return t.tapeOutput }

// SetTapeInput sets the state of the tape read line.
func (t *TED) SetTapeInput(high bool) { t.tapeInput = high }

// User port (6529 at $FD10-$FD1F). With 256K or more of RAM, $FD16 is the
// memory expansion register.

func (t *TED) ReadUSERPORT(uint16) uint8 { return t.userPort }
func (t *TED) PeekUSERPORT(uint16) uint8 { return t.userPort }

func (t *TED) WriteUSERPORT(addr uint16, val uint8) {
	if t.mem.ramSegments >= 16 && addr&0x0F == 0x06 {
		t.mem.hannes = val
		t.updateMemoryMaps()
		log.ModMem.DebugZ("memory expansion bank").Hex8("val", val).End()
		return
	}
	if t.mem.ramSegments < 16 || addr&0x0F == 0 {
		t.userPort = val
	}
}

// UserPort returns the last value written to the user port.
func (t *TED) UserPort() uint8 { return t.userPort }

// Keyboard row select at $FD30-$FD3F.

func (t *TED) ReadKEYSEL(uint16) uint8 { return uint8(t.keyboardRowSelect) }
func (t *TED) PeekKEYSEL(uint16) uint8 { return uint8(t.keyboardRowSelect) }

func (t *TED) WriteKEYSEL(_ uint16, val uint8) {
	t.keyboardRowSelect = int(val) | 0xFF00
}

// ROM bank select at $FDD0-$FDDF, the address selects the banks.

func (t *TED) ReadROMBANK(uint16) uint8 { return t.dataBus }
func (t *TED) PeekROMBANK(uint16) uint8 { return t.dataBus }

func (t *TED) WriteROMBANK(addr uint16, _ uint8) {
	t.mem.romSelect = uint8(addr & 0x0F)
	t.updateMemoryMaps()
}

// ROM/RAM select at $FF3E-$FF3F, reads return memory.

func (t *TED) ReadROMSEL(addr uint16) uint8 {
	return t.readMemory(0xFF3E+addr&1, t.mem.cpuMap)
}

func (t *TED) PeekROMSEL(addr uint16) uint8 {
	return t.ReadMemory(0xFF3E+addr&1, false)
}

func (t *TED) WriteROMSEL(addr uint16, val uint8) {
	t.mem.romEnabled = addr&1 == 0
	t.updateMemoryMaps()
}

// SetKeyState sets the state of a key. Keys are numbered row*8+column, with
// rows 0-7 for the keyboard, 9 for joystick 2 and 10 for joystick 1.
func (t *TED) SetKeyState(key int, pressed bool) {
	if key < 0 || key >= 128 {
		return
	}
	row := (key & 0x78) >> 3
	log.ModInput.DebugZ("key state").Int("row", row).Int("col", key&7).Bool("pressed", pressed).End()
	hwio.SetBitIf8(&t.keyboardMatrix[row], uint(key&7), !pressed)
}

// Key numbers of the Plus/4 keyboard matrix.
const (
	KeyDelete    = 0x00
	KeyReturn    = 0x01
	KeyPound     = 0x02
	KeyHelp      = 0x03
	KeyF1        = 0x04
	KeyF2        = 0x05
	KeyF3        = 0x06
	KeyAt        = 0x07
	Key3         = 0x08
	KeyW         = 0x09
	KeyA         = 0x0A
	Key4         = 0x0B
	KeyZ         = 0x0C
	KeyS         = 0x0D
	KeyE         = 0x0E
	KeyShift     = 0x0F
	Key5         = 0x10
	KeyR         = 0x11
	KeyD         = 0x12
	Key6         = 0x13
	KeyC         = 0x14
	KeyF         = 0x15
	KeyT         = 0x16
	KeyX         = 0x17
	Key7         = 0x18
	KeyY         = 0x19
	KeyG         = 0x1A
	Key8         = 0x1B
	KeyB         = 0x1C
	KeyH         = 0x1D
	KeyU         = 0x1E
	KeyV         = 0x1F
	Key9         = 0x20
	KeyI         = 0x21
	KeyJ         = 0x22
	Key0         = 0x23
	KeyM         = 0x24
	KeyK         = 0x25
	KeyO         = 0x26
	KeyN         = 0x27
	KeyDown      = 0x28
	KeyP         = 0x29
	KeyL         = 0x2A
	KeyUp        = 0x2B
	KeyPeriod    = 0x2C
	KeyColon     = 0x2D
	KeyMinus     = 0x2E
	KeyComma     = 0x2F
	KeyLeft      = 0x30
	KeyAsterisk  = 0x31
	KeySemicolon = 0x32
	KeyRight     = 0x33
	KeyEscape    = 0x34
	KeyEquals    = 0x35
	KeyPlus      = 0x36
	KeySlash     = 0x37
	Key1         = 0x38
	KeyHome      = 0x39
	KeyControl   = 0x3A
	Key2         = 0x3B
	KeySpace     = 0x3C
	KeyCommodore = 0x3D
	KeyQ         = 0x3E
	KeyRunStop   = 0x3F
	KeyJoy2Up    = 0x48
	KeyJoy2Down  = 0x49
	KeyJoy2Left  = 0x4A
	KeyJoy2Right = 0x4B
	KeyJoy2Fire  = 0x4F
	KeyJoy1Up    = 0x50
	KeyJoy1Down  = 0x51
	KeyJoy1Left  = 0x52
	KeyJoy1Right = 0x53
	KeyJoy1Fire  = 0x56
)

// LightPen is a latched light pen position.
type LightPen struct {
	Line   int
	Column int
}

// LatchLightPen latches the current raster position.
func (t *TED) LatchLightPen() {
	t.lightPen = LightPen{Line: t.videoLine, Column: int(t.videoColumn)}
}

// LightPen returns the last latched light pen position.
func (t *TED) LightPen() LightPen { return t.lightPen }

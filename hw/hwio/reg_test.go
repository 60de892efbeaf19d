package hwio

import "testing"

func TestReg8(t *testing.T) {
	r := Reg8{Value: 0x11, RoMask: 0xF0}

	if got := r.Read8(0); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}

	r.Write8(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}

	var old, cur uint8
	r.WriteCb = func(o, v uint8) { old, cur = o, v }
	r.Write8(0xFF19, 0x88)
	if old != 0x17 || cur != 0x18 {
		t.Errorf("WriteCb(%x, %x), want (17, 18)", old, cur)
	}
}

func TestBitops(t *testing.T) {
	v := uint8(0x80)
	if !GetBit8(v, 7) || GetBit8(v, 6) {
		t.Errorf("GetBit8(%02x)", v)
	}
	SetBit8(&v, 0)
	ClearBit8(&v, 7)
	if v != 0x01 {
		t.Errorf("v = %02x, want 01", v)
	}
	FlipBit8(&v, 4)
	if v != 0x11 {
		t.Errorf("v = %02x, want 11", v)
	}
}

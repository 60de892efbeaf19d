package hwio

import "testing"

type regsBank struct {
	Timer Reg8 `hwio:"offset=0x11,reset=0x23,rwmask=0x1,wcb"`
	Mode  Reg8 `hwio:"offset=0x44,bank=1,rcb"`
	Area  Mem  `hwio:"offset=0x100,bank=1,size=0x40,vsize=0x80"`

	called bool
}

func (r *regsBank) WriteTIMER(old, val uint8) { r.called = true }
func (r *regsBank) ReadMODE(val uint8) uint8  { return val | 1 }

func TestInitRegs(t *testing.T) {
	rb := &regsBank{}
	if err := InitRegs(rb); err != nil {
		t.Fatal(err)
	}

	if rb.Timer.Name != "Timer" || rb.Mode.Name != "Mode" {
		t.Errorf("invalid names: %v %v", rb.Timer, rb.Mode)
	}
	if got := rb.Mode.Read8(0); got != 1 {
		t.Errorf("Mode.Read8 = %02x, want 01", got)
	}
	if got := rb.Timer.Read8(0); got != 0x23 {
		t.Errorf("Timer.Read8 = %02x, want 23", got)
	}

	rb.Timer.Write8(0, 0)
	if rb.Timer.Value != 0x22 {
		t.Errorf("Timer.Value = %02x after rwmask, want 22", rb.Timer.Value)
	}
	if !rb.called {
		t.Error("write callback not called")
	}
	if len(rb.Area.Data) != 0x40 || rb.Area.VSize != 0x80 {
		t.Errorf("Area: len=%#x vsize=%#x", len(rb.Area.Data), rb.Area.VSize)
	}
}

func TestBankGetRegs(t *testing.T) {
	rb := &regsBank{}
	MustInitRegs(rb)

	regs, err := bankGetRegs(rb, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 1 {
		t.Fatalf("bank 0: got %d regs, want 1", len(regs))
	}
	if regs[0].offset != 0x11 {
		t.Errorf("invalid reg offset: %x", regs[0].offset)
	}
	if p, ok := regs[0].regPtr.(*Reg8); !ok || p != &rb.Timer {
		t.Errorf("invalid reg ptr %T", regs[0].regPtr)
	}

	regs, err = bankGetRegs(rb, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 2 {
		t.Fatalf("bank 1: got %d regs, want 2", len(regs))
	}
	if regs[1].offset != 0x100 {
		t.Errorf("invalid mem offset: %x", regs[1].offset)
	}
}

func TestInitRegsErrors(t *testing.T) {
	type resetTooBig struct {
		R Reg8 `hwio:"reset=0x123"`
	}
	type maskTooBig struct {
		R Reg8 `hwio:"rwmask=0x123"`
	}
	type missingCb struct {
		R Reg8 `hwio:"wcb"`
	}
	type badOption struct {
		R Reg8 `hwio:"offest=1"`
	}
	type memNotPow2 struct {
		M Mem `hwio:"size=0x30"`
	}

	tests := []struct {
		name string
		bank any
	}{
		{"reset", &resetTooBig{}},
		{"rwmask", &maskTooBig{}},
		{"callback", &missingCb{}},
		{"option", &badOption{}},
		{"mem size", &memNotPow2{}},
		{"not a pointer", resetTooBig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitRegs(tt.bank); err == nil {
				t.Errorf("InitRegs should fail")
			}
		})
	}
}

func TestReadWriteOnly(t *testing.T) {
	type rw struct {
		RO Reg8 `hwio:"reset=0x23,readonly"`
		WO Reg8 `hwio:"writeonly"`
	}

	r := &rw{}
	MustInitRegs(r)

	r.RO.Write8(0, 0)
	if got := r.RO.Read8(0); got != 0x23 {
		t.Errorf("RO.Read8 = %02x, want 23", got)
	}

	r.WO.Write8(0, 0x23)
	if got := r.WO.Read8(0); got != 0 {
		t.Errorf("WO.Read8 = %02x, want 00", got)
	}
	if r.WO.Value != 0x23 {
		t.Errorf("WO.Value = %02x, want 23", r.WO.Value)
	}
}

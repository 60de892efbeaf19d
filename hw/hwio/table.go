package hwio

import (
	"fmt"

	"plus4/emu/log"
)

// log unmapped accesses (useful for debugging, but verbose since a few
// programs probe unconnected I/O pages)
const logUnmapped = false

type BankIO8 interface {
	Read8(addr uint16) uint8
	Peek8(addr uint16) uint8
	Write8(addr uint16, val uint8)
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr)
	hi := b.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func Write16(b BankIO8, addr uint16, val uint16) {
	b.Write8(addr, uint8(val))
	b.Write8(addr+1, uint8(val>>8))
}

// Table dispatches accesses over a 64K address space. Each 256-byte page is
// either owned by a single BankIO8, or split into per-address entries when
// it holds several devices.
type Table struct {
	Name string

	// Unmapped, if set, serves accesses to unmapped addresses (open bus).
	Unmapped BankIO8

	pages [256]BankIO8
	fine  [256]*[256]BankIO8
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.pages = [256]BankIO8{}
	t.fine = [256]*[256]BankIO8{}
}

// MapBank maps a register bank, that is a structure containing Reg8, Mem
// or Device fields. Fields must have a struct tag "hwio" containing:
//
//	offset=0x12     Byte-offset within the bank at which the register is
//	                mapped. Fields without offset are not part of any bank.
//
//	bank=NN         Ordinal bank number (default 0), so that a structure can
//	                expose several banks mapped at different addresses.
//
// MapBank panics if bank has not been initialized with InitRegs.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapRange(addr, addr, io)
}

func (t *Table) MapDevice(addr uint16, io *Device) {
	t.mapRange(addr, addr+uint16(io.Size-1), io)
}

func (t *Table) MapMem(addr uint16, mem *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(mem.VSize)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	vsize := mem.VSize
	if vsize == 0 {
		vsize = len(mem.Data)
	}
	t.mapRange(addr, addr+uint16(vsize-1), mem.BankIO8())
}

func (t *Table) MapMemorySlice(addr, end uint16, buf []uint8, readonly bool) {
	var flags MemFlags
	if readonly {
		flags |= MemFlag8ReadOnly
	}
	t.MapMem(addr, &Mem{
		Data:  buf,
		Flags: flags,
		VSize: int(end) - int(addr) + 1,
	})
}

// Map maps an arbitrary BankIO8 over [begin, end].
func (t *Table) Map(begin, end uint16, io BankIO8) {
	t.mapRange(begin, end, io)
}

func (t *Table) Unmap(begin, end uint16) {
	t.mapRange(begin, end, nil)
}

func (t *Table) mapRange(begin, end uint16, io BankIO8) {
	if end < begin {
		panic(fmt.Errorf("%s: invalid range %04x-%04x", t.Name, begin, end))
	}
	addr := int(begin)
	for addr <= int(end) {
		page := addr >> 8
		if addr&0xFF == 0 && int(end) >= addr+0xFF {
			t.pages[page] = io
			t.fine[page] = nil
			addr += 0x100
			continue
		}
		f := t.fine[page]
		if f == nil {
			f = new([256]BankIO8)
			for i := range f {
				f[i] = t.pages[page]
			}
			t.fine[page] = f
			t.pages[page] = nil
		}
		for ; addr <= int(end) && addr>>8 == page; addr++ {
			f[addr&0xFF] = io
		}
	}
}

// Lookup returns the BankIO8 mapped at addr, or nil.
func (t *Table) Lookup(addr uint16) BankIO8 {
	if f := t.fine[addr>>8]; f != nil {
		return f[addr&0xFF]
	}
	return t.pages[addr>>8]
}

// Read8 forwards the read to the device mapped at addr.
func (t *Table) Read8(addr uint16) uint8 {
	io := t.Lookup(addr)
	if io == nil {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Read8").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		if t.Unmapped != nil {
			return t.Unmapped.Read8(addr)
		}
		return 0
	}
	return io.Read8(addr)
}

// Peek8 reads without side effects (debugging, tracing).
func (t *Table) Peek8(addr uint16) uint8 {
	io := t.Lookup(addr)
	if io == nil {
		if t.Unmapped != nil {
			return t.Unmapped.Peek8(addr)
		}
		return 0
	}
	return io.Peek8(addr)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.Lookup(addr)
	if io == nil {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write8").
				String("name", t.Name).
				Hex16("addr", addr).
				Hex8("val", val).
				End()
		}
		if t.Unmapped != nil {
			t.Unmapped.Write8(addr, val)
		}
		return
	}
	io.Write8(addr, val)
}

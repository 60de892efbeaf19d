package hwio

import "plus4/emu/log"

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlag8ReadOnly MemFlags = (1 << iota) // writes are rejected (and logged)
	MemFlagNoROLog                          // writes are silently ignored
)

// Mem is a linear memory area that can be mapped into a Table. Data length
// must be a power of 2; VSize may be larger, in which case the area is
// mirrored.
type Mem struct {
	Name    string              // name of the memory area (for debugging)
	Data    []byte              // actual memory buffer
	VSize   int                 // virtual size of the memory
	Flags   MemFlags            // access flags
	WriteCb func(uint16, uint8) // optional write callback, called instead of writing
}

// BankIO8 returns the adaptor mapped into tables for this area.
func (m *Mem) BankIO8() BankIO8 {
	if len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return &mem{
		buf:  m.Data,
		mask: uint16(len(m.Data) - 1),
		wcb:  m.WriteCb,
		ro:   m.Flags,
		name: m.Name,
	}
}

type mem struct {
	buf  []byte
	mask uint16
	wcb  func(uint16, uint8)
	ro   MemFlags
	name string
}

func (m *mem) Read8(addr uint16) uint8 { return m.buf[addr&m.mask] }
func (m *mem) Peek8(addr uint16) uint8 { return m.buf[addr&m.mask] }

func (m *mem) Write8(addr uint16, val uint8) {
	if m.wcb != nil {
		m.wcb(addr, val)
		return
	}

	switch m.ro {
	case MemFlagReadWrite:
		m.buf[addr&m.mask] = val
	case MemFlag8ReadOnly:
		log.ModHwIo.ErrorZ("Write8 to readonly memory").
			String("area", m.name).
			Hex8("val", val).
			Hex16("addr", addr).
			End()
	}
}

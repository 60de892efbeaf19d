package ted

import (
	"fmt"
	"math/rand/v2"

	"plus4/emu/log"
)

const segmentSize = 0x4000

// Memory ranges of the paging table.
const (
	range1000 = iota // 1000-3FFF
	range4000        // 4000-7FFF
	range8000        // 8000-BFFF
	rangeC000        // C000-FBFF
	range0000        // 0000-0FFF
	rangeFC00        // FC00-FCFF
	rangeFD00        // FD00-FEFF
	rangeFF00        // FF00-FFFF
)

var (
	// memory range of each 256-byte page.
	pageRange [256]uint8

	rangeStart   = [8]int{0x1000, 0x4000, 0x8000, 0xC000, 0x0000, 0xFC00, 0xFD00, 0xFF00}
	rangeQuarter = [8]uint8{0, 1, 2, 3, 0, 3, 3, 3}
)

func init() {
	for p := range pageRange {
		switch {
		case p < 0x10:
			pageRange[p] = range0000
		case p < 0x40:
			pageRange[p] = range1000
		case p < 0x80:
			pageRange[p] = range4000
		case p < 0xC0:
			pageRange[p] = range8000
		case p < 0xFC:
			pageRange[p] = rangeC000
		case p == 0xFC:
			pageRange[p] = rangeFC00
		case p < 0xFF:
			pageRange[p] = rangeFD00
		default:
			pageRange[p] = rangeFF00
		}
	}
}

// memory holds the 16K segments of the address space. Segments 0-7 are ROM
// (BASIC, KERNAL, function ROM low and high, then two cartridges), the
// last ramSegments ones are RAM. Missing segments leave the data bus
// unchanged when read.
type memory struct {
	segments    [256][]byte
	ram         [][]byte
	ramSegments int
	ramPattern  uint64

	// segment number for each (map index, memory range)
	mapTable [4096 * 8]uint8

	romEnabled bool
	romSelect  uint8 // bits 0-1: low ROM bank, bits 2-3: high ROM bank
	hannes     uint8 // FD16 memory expansion register

	// offsets into mapTable
	cpuMap    int
	ramMap    int
	dmaMap    int
	bitmapMap int
}

func (m *memory) init() {
	m.romEnabled = true
}

// mapIndex returns the mapTable offset of the current paging state.
func (m *memory) mapIndex(ted, rom bool) int {
	idx := int(m.romSelect&0x0F)<<8 | int(m.hannes&0xCF)
	if ted {
		idx |= 0x20
	}
	if rom {
		idx |= 0x10
	}
	return idx * 8
}

func (m *memory) buildMapTable() {
	for idx := 0; idx < 4096; idx++ {
		for r := range 8 {
			m.mapTable[idx*8+r] = m.segmentFor(idx, r)
		}
	}
}

func (m *memory) segmentFor(idx, r int) uint8 {
	romSel := uint8(idx >> 8)
	hannes := uint8(idx & 0xCF)
	ted := idx&0x20 != 0
	rom := idx&0x10 != 0
	q := rangeQuarter[r]

	if rom && r != range1000 && r != range4000 && r != range0000 {
		switch r {
		case range8000:
			return (romSel & 3) * 2
		case rangeFC00:
			return 1
		default:
			return ((romSel>>2)&3)*2 + 1
		}
	}

	switch m.ramSegments {
	case 1:
		return 0xFF
	case 2:
		return 0xFE | q&1
	case 4:
		return 0xFC | q
	}

	var bank uint8
	start := rangeStart[r]
	expand := start >= 0x1000 && (hannes&0x80 == 0 || start >= 0x4000)
	if ted && hannes&0x40 == 0 {
		expand = false
	}
	if expand {
		bank = hannes & 0x03
		if m.ramSegments == 64 {
			bank = hannes & 0x0F
		}
	}
	return 0xFF - (bank*4 + 3 - q)
}

func (m *memory) clearRAM() {
	rnd := rand.New(rand.NewPCG(0x7360, uint64(m.ramSegments)))
	prob := int(m.ramPattern >> 40 & 0xFF)
	pageXor := uint8(m.ramPattern >> 32)

	for i, seg := range m.ram {
		for j := range seg {
			addr := uint64(i*segmentSize + j)
			var v uint8
			for b := range 8 {
				line := m.ramPattern >> (4 * b) & 7
				inv := m.ramPattern >> (4*b + 3) & 1
				v |= uint8((addr>>line&1)^inv) << b
			}
			if addr&0xFF == 0 {
				v ^= pageXor
			}
			if prob != 0 && rnd.IntN(256) < prob {
				v = uint8(rnd.Uint32())
			}
			seg[j] = v
		}
	}
}

// SetRAMSize sets the amount of RAM in kilobytes (16, 32, 64, 256 or
// 1024) and clears it using pattern. Each nibble n of bits 0-31 of pattern
// defines data bit n: bits 0-2 select the address line copied to the bit,
// bit 3 inverts it. Bits 32-39 are XORed into the first byte of each page,
// bits 40-47 give the probability (out of 256) of a byte being random.
func (t *TED) SetRAMSize(kb int, pattern uint64) error {
	n := kb / 16
	switch {
	case kb%16 != 0:
		return fmt.Errorf("invalid RAM size: %dK", kb)
	case n != 1 && n != 2 && n != 4 && n != 16 && n != 64:
		return fmt.Errorf("invalid RAM size: %dK", kb)
	}

	m := &t.mem
	for i := 0x100 - m.ramSegments; i < 0x100 && m.ramSegments > 0; i++ {
		m.segments[i] = nil
	}
	m.ram = make([][]byte, n)
	for i := range m.ram {
		m.ram[i] = make([]byte, segmentSize)
		m.segments[0x100-n+i] = m.ram[i]
	}
	m.ramSegments = n
	m.ramPattern = pattern
	m.clearRAM()
	m.buildMapTable()
	t.updateMemoryMaps()

	log.ModMem.InfoZ("RAM size changed").Int("kb", kb).Hex32("pattern", uint32(pattern)).End()
	return nil
}

// RAMSegments returns the number of 16K RAM segments.
func (t *TED) RAMSegments() int { return t.mem.ramSegments }

// LoadROM loads a 16K ROM image into segment seg (0-7). Shorter images are
// padded with $FF, a nil image removes the segment.
func (t *TED) LoadROM(seg int, data []byte) error {
	if seg < 0 || seg > 7 {
		return fmt.Errorf("invalid ROM segment %d", seg)
	}
	if len(data) > segmentSize {
		return fmt.Errorf("ROM image too large for segment %d: %d bytes", seg, len(data))
	}
	if data == nil {
		t.mem.segments[seg] = nil
		return nil
	}
	buf := make([]byte, segmentSize)
	n := copy(buf, data)
	for i := n; i < segmentSize; i++ {
		buf[i] = 0xFF
	}
	t.mem.segments[seg] = buf
	log.ModMem.DebugZ("ROM loaded").Int("segment", seg).Int("size", len(data)).End()
	return nil
}

func (t *TED) updateMemoryMaps() {
	m := &t.mem
	m.cpuMap = m.mapIndex(false, m.romEnabled)
	m.ramMap = m.mapIndex(false, false)
	m.dmaMap = m.mapIndex(true, false)
	m.bitmapMap = m.mapIndex(true, t.BMPBASE.Value&0x04 != 0)
}

func (t *TED) segment(addr uint16, mapOffs int) []byte {
	return t.mem.segments[t.mem.mapTable[mapOffs+int(pageRange[addr>>8])]]
}

// readMemory reads addr using a memory map, updating the data bus if a
// segment is present.
func (t *TED) readMemory(addr uint16, mapOffs int) uint8 {
	if seg := t.segment(addr, mapOffs); seg != nil {
		t.dataBus = seg[addr&(segmentSize-1)]
	}
	return t.dataBus
}

func (t *TED) writeMemory(addr uint16, val uint8) {
	if seg := t.segment(addr, t.mem.ramMap); seg != nil {
		seg[addr&(segmentSize-1)] = val
	}
}

// ReadMemory reads the memory seen by the CPU at addr, ignoring I/O
// registers and without side effects. If forceRAM is set, RAM is read even
// where ROM is paged in.
func (t *TED) ReadMemory(addr uint16, forceRAM bool) uint8 {
	mapOffs := t.mem.cpuMap
	if forceRAM {
		mapOffs = t.mem.ramMap
	}
	if seg := t.segment(addr, mapOffs); seg != nil {
		return seg[addr&(segmentSize-1)]
	}
	return t.dataBus
}

// WriteMemory writes RAM at addr, ignoring I/O registers.
func (t *TED) WriteMemory(addr uint16, val uint8) {
	t.writeMemory(addr, val)
}

// cpuMemory is the paged memory as seen by the CPU.
type cpuMemory struct{ t *TED }

func (m cpuMemory) Read8(addr uint16) uint8 {
	return m.t.readMemory(addr, m.t.mem.cpuMap)
}

func (m cpuMemory) Peek8(addr uint16) uint8 {
	return m.t.ReadMemory(addr, false)
}

func (m cpuMemory) Write8(addr uint16, val uint8) {
	m.t.writeMemory(addr, val)
}

// openBus serves unconnected I/O addresses.
type openBus struct{ t *TED }

func (o openBus) Read8(uint16) uint8   { return o.t.dataBus }
func (o openBus) Peek8(uint16) uint8   { return o.t.dataBus }
func (o openBus) Write8(uint16, uint8) {}

package hw

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/jx"

	"plus4/emu/log"
	"plus4/hw/ted"
)

// RegWrite is a CPU bus write performed when the raster reaches the given
// position. Frames are counted from the start of the script.
type RegWrite struct {
	Frame  int
	Line   int
	Column int
	Addr   uint16
	Val    uint8
}

func (w RegWrite) compare(frame, line, column int) int {
	return cmp.Or(
		cmp.Compare(w.Frame, frame),
		cmp.Compare(w.Line, line),
		cmp.Compare(w.Column, column),
	)
}

// SIDWrite is a write to SID register Reg, Cycle single clock cycles after
// the start of the script.
type SIDWrite struct {
	Cycle uint64
	Reg   uint8
	Val   uint8
}

// Script is a list of timed register writes, used to drive the machine
// without a CPU core. In JSON form:
//
//	{
//	  "writes": [{"frame": 0, "line": 100, "column": 20, "addr": "FF19", "val": 113}],
//	  "sid": [{"cycle": 1000, "reg": 24, "val": 15}]
//	}
//
// Addresses and values are either numbers or hexadecimal strings (with an
// optional "$" or "0x" prefix).
type Script struct {
	Writes []RegWrite
	SID    []SIDWrite
}

// DecodeScript reads a JSON script from r, writes are sorted by time.
func DecodeScript(r io.Reader) (*Script, error) {
	var s Script
	d := jx.Decode(r, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "writes":
			return d.Arr(func(d *jx.Decoder) error {
				w, err := decodeRegWrite(d)
				s.Writes = append(s.Writes, w)
				return err
			})
		case "sid":
			return d.Arr(func(d *jx.Decoder) error {
				w, err := decodeSIDWrite(d)
				s.SID = append(s.SID, w)
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	slices.SortStableFunc(s.Writes, func(a, b RegWrite) int {
		return a.compare(b.Frame, b.Line, b.Column)
	})
	slices.SortStableFunc(s.SID, func(a, b SIDWrite) int {
		return cmp.Compare(a.Cycle, b.Cycle)
	})
	return &s, nil
}

func decodeRegWrite(d *jx.Decoder) (RegWrite, error) {
	var w RegWrite
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "frame":
			w.Frame, err = d.Int()
		case "line":
			w.Line, err = d.Int()
			if err == nil && (w.Line < 0 || w.Line >= ted.PALLines) {
				err = fmt.Errorf("line %d out of range", w.Line)
			}
		case "column":
			w.Column, err = d.Int()
			if err == nil && (w.Column < 0 || w.Column >= ted.NumColumns) {
				err = fmt.Errorf("column %d out of range", w.Column)
			}
		case "addr":
			var v uint64
			v, err = decodeHex(d, 0xFFFF)
			w.Addr = uint16(v)
		case "val":
			var v uint64
			v, err = decodeHex(d, 0xFF)
			w.Val = uint8(v)
		default:
			err = d.Skip()
		}
		return err
	})
	return w, err
}

func decodeSIDWrite(d *jx.Decoder) (SIDWrite, error) {
	var w SIDWrite
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   uint64
			err error
		)
		switch key {
		case "cycle":
			w.Cycle, err = d.UInt64()
		case "reg":
			v, err = decodeHex(d, 0x1F)
			w.Reg = uint8(v)
		case "val":
			v, err = decodeHex(d, 0xFF)
			w.Val = uint8(v)
		default:
			err = d.Skip()
		}
		return err
	})
	return w, err
}

// decodeHex decodes a number or a hexadecimal string no greater than limit.
func decodeHex(d *jx.Decoder, limit uint64) (uint64, error) {
	var (
		v   uint64
		err error
	)
	switch d.Next() {
	case jx.String:
		var s string
		if s, err = d.Str(); err != nil {
			return 0, err
		}
		s = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "$"), "0x")
		v, err = strconv.ParseUint(s, 16, 64)
	default:
		v, err = d.UInt64()
	}
	if err != nil {
		return 0, err
	}
	if v > limit {
		return 0, fmt.Errorf("value %#x out of range (max %#x)", v, limit)
	}
	return v, nil
}

// Encode writes s to w as JSON, addresses as hexadecimal strings.
func (s *Script) Encode(w io.Writer) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("writes", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, rw := range s.Writes {
					e.Obj(func(e *jx.Encoder) {
						e.Field("frame", func(e *jx.Encoder) { e.Int(rw.Frame) })
						e.Field("line", func(e *jx.Encoder) { e.Int(rw.Line) })
						e.Field("column", func(e *jx.Encoder) { e.Int(rw.Column) })
						e.Field("addr", func(e *jx.Encoder) { e.Str(fmt.Sprintf("%04X", rw.Addr)) })
						e.Field("val", func(e *jx.Encoder) { e.Int(int(rw.Val)) })
					})
				}
			})
		})
		e.Field("sid", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, sw := range s.SID {
					e.Obj(func(e *jx.Encoder) {
						e.Field("cycle", func(e *jx.Encoder) { e.UInt64(sw.Cycle) })
						e.Field("reg", func(e *jx.Encoder) { e.Int(int(sw.Reg)) })
						e.Field("val", func(e *jx.Encoder) { e.Int(int(sw.Val)) })
					})
				}
			})
		})
	})
	_, err := w.Write(e.Bytes())
	return err
}

// ScriptCPU is a ted.CPU that performs the raster timed writes of a
// script instead of running code. Like a real CPU, it cannot access the
// bus while halted by the TED, so writes falling on DMA cycles are delayed.
type ScriptCPU struct {
	ted    *ted.TED
	writes []RegWrite
	next   int

	frame   int
	prvLine int

	running bool
	irq     bool
	cycles  uint64
}

// NewScriptCPU returns a CPU performing writes on the bus of t. writes
// must be sorted.
func NewScriptCPU(t *ted.TED, writes []RegWrite) *ScriptCPU {
	return &ScriptCPU{ted: t, writes: writes, running: true}
}

func (c *ScriptCPU) Run(cycles int) {
	c.cycles += uint64(cycles)

	line, col := c.ted.VideoLine(), c.ted.VideoColumn()
	if line < c.prvLine {
		c.frame++
	}
	c.prvLine = line

	for c.next < len(c.writes) {
		w := c.writes[c.next]
		if w.compare(c.frame, line, col) > 0 {
			break
		}
		log.ModCPU.DebugZ("script write").
			Int("frame", c.frame).
			Raster("raster", line, col).
			Hex16("addr", w.Addr).
			Hex8("val", w.Val).
			End()
		c.ted.Write8(w.Addr, w.Val)
		c.next++
	}
}

func (c *ScriptCPU) SetIsCPURunning(running bool) { c.running = running }
func (c *ScriptCPU) IsCPURunning() bool           { return c.running }
func (c *ScriptCPU) SetIRQ(asserted bool)         { c.irq = asserted }

// IRQ reports the state of the interrupt request line.
func (c *ScriptCPU) IRQ() bool { return c.irq }

// Cycles returns the number of CPU cycles run.
func (c *ScriptCPU) Cycles() uint64 { return c.cycles }

// Done reports whether all writes have been performed.
func (c *ScriptCPU) Done() bool { return c.next == len(c.writes) }

// sidScript performs timed SID writes from a TED callback, at most one
// write per cycle. It runs at the second half-cycle, after the SID card
// has been clocked, like CPU writes.
type sidScript struct {
	m      *Machine
	writes []SIDWrite
	next   int
	cycle  uint64
}

func (s *sidScript) OnCycle() {
	if s.next < len(s.writes) && s.writes[s.next].Cycle <= s.cycle {
		w := s.writes[s.next]
		s.m.TED.Write8(0xFD40|uint16(w.Reg&0x1F), w.Val)
		s.next++
	}
	s.cycle++
}

// PlaySIDScript schedules writes (sorted by cycle) to the SID card,
// counting cycles from now. Writes sharing a cycle are performed on
// consecutive cycles.
func (m *Machine) PlaySIDScript(writes []SIDWrite) error {
	if m.card == nil {
		return errors.New("no SID card")
	}
	if m.sidScript != nil {
		m.TED.SetCallback(m.sidScript, 0)
	}
	m.sidScript = &sidScript{m: m, writes: writes}
	m.TED.SetCallback(m.sidScript, ted.CallbackSecondHalf)
	return nil
}

// SIDScriptDone reports whether all the writes scheduled by PlaySIDScript
// have been performed.
func (m *Machine) SIDScriptDone() bool {
	return m.sidScript == nil || m.sidScript.next == len(m.sidScript.writes)
}

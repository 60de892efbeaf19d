package hw

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"plus4/emu/log"
	"plus4/hw/hwio"
	"plus4/hw/sid"
	"plus4/hw/snapshot"
	"plus4/hw/ted"
)

// ROM segments, as accepted by ted.TED.LoadROM.
const (
	ROMBasic = iota
	ROMKernal
	ROMFunctionLo
	ROMFunctionHi
	ROMCart1Lo
	ROMCart1Hi
	ROMCart2Lo
	ROMCart2Hi
)

type SIDConfig struct {
	Enabled        bool
	Model          sid.ChipModel
	Filter         bool
	ExternalFilter bool
}

type Config struct {
	RAMSize         int // in KB
	RAMPattern      uint64
	NTSC            bool
	ClockMultiplier int

	SID SIDConfig

	SampleRate uint32
	Volume     float64
}

// DefaultConfig is a PAL Plus/4 with 64K of RAM and a 8580 SID card.
var DefaultConfig = Config{
	RAMSize:         64,
	ClockMultiplier: 1,
	SID: SIDConfig{
		Enabled: true,
		Model:   sid.MOS8580,
		Filter:  true,
	},
	SampleRate: 48000,
	Volume:     0.7,
}

// Machine is a Plus/4: the TED with its memory, an optional SID card, the
// video decoder and the audio mixer. The CPU is supplied by the caller.
type Machine struct {
	TED    *ted.TED
	SID    *sid.SID // nil without SID card
	Screen *Screen
	Audio  *AudioMixer

	card      *sidCard
	sidScript *sidScript
	cpu       ted.CPU
	cfg       Config
}

// NewMachine builds a machine, onFrame is called each time the video
// decoder completes a frame. The machine runs a ScriptCPU without writes
// until SetCPU is called.
func NewMachine(cfg Config, onFrame func(*image.RGBA)) (*Machine, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultConfig.SampleRate
	}
	m := &Machine{
		Screen: NewScreen(onFrame),
		Audio:  NewAudioMixer(cfg.SampleRate, cfg.Volume),
		cfg:    cfg,
	}
	m.TED = ted.New(nil, m.Screen, m)
	m.SetCPU(NewScriptCPU(m.TED, nil))

	if err := m.TED.SetRAMSize(cfg.RAMSize, cfg.RAMPattern); err != nil {
		return nil, err
	}
	m.TED.SetCPUClockMultiplier(max(cfg.ClockMultiplier, 1))
	m.TED.SetNTSCCallback(m.Audio.SetNTSC)

	if cfg.SID.Enabled {
		m.SID = sid.New()
		m.SID.SetChipModel(cfg.SID.Model)
		m.SID.EnableFilter(cfg.SID.Filter)
		m.SID.EnableExternalFilter(cfg.SID.ExternalFilter)

		m.card = &sidCard{m: m}
		hwio.MustInitRegs(m.card)
		m.TED.Table().MapBank(0xFD00, m.card, 0)
		m.TED.Table().MapBank(0xFE40, m.card, 0)
	}

	m.Reset(true)
	if cfg.NTSC {
		// PAL/NTSC is selected by FF07 bit 6, the KERNAL sets it at boot.
		m.TED.Write8(0xFF07, 0x40)
	}
	return m, nil
}

// SetCPU replaces the processor driven by the TED.
func (m *Machine) SetCPU(cpu ted.CPU) {
	m.cpu = cpu
	m.TED.SetCPU(cpu)
}

// CPU returns the processor driven by the TED.
func (m *Machine) CPU() ted.CPU { return m.cpu }

// Reset resets the machine, a cold reset also clears the SID card.
func (m *Machine) Reset(cold bool) {
	m.TED.Reset(cold)
	if m.card != nil && cold {
		m.card.reset()
	}
	m.Audio.Reset()
}

// LoadROMs loads ROM images indexed by segment (ROMBasic...ROMCart2Hi),
// nil entries are left empty.
func (m *Machine) LoadROMs(roms [8][]byte) error {
	for seg, data := range roms {
		if data == nil {
			continue
		}
		if err := m.TED.LoadROM(seg, data); err != nil {
			return fmt.Errorf("ROM segment %d: %w", seg, err)
		}
	}
	return nil
}

// PlaySample mixes the SID card output with the TED sample and sends it to
// the audio mixer.
//
// Implements ted.AudioSink.
func (m *Machine) PlaySample(s int16) {
	if m.card != nil && m.card.active {
		s = mixSID(s, m.card.acc)
		m.card.acc = 0
	}
	m.Audio.PlaySample(s)
}

// mixSID adds the SID output accumulated over a TED sample period to s.
func mixSID(s int16, acc int32) int16 {
	v := min(max(acc*3/176, -24576), 24576)
	return int16(min(max(int32(s)+v, -32768), 32767))
}

// StepCycles runs n single clock cycles.
func (m *Machine) StepCycles(n int) {
	for range n {
		m.TED.StepCycle()
	}
}

// RunFrame runs the machine until the video decoder completes a frame, or
// for at most the duration of a PAL frame if the TED produces no vertical
// sync. It returns the audio samples produced, only valid until the next
// call.
func (m *Machine) RunFrame() []int16 {
	frames := m.Screen.Frames()
	for range ted.PALLines * ted.CyclesPerLine {
		m.TED.StepCycle()
		if m.Screen.Frames() != frames {
			break
		}
	}
	return m.Audio.EndFrame()
}

// WriteSID writes a SID register through the CPU bus, as a program would.
// Like on a real machine, consecutive writes must be at least one cycle
// apart for the 8580 to see all of them.
func (m *Machine) WriteSID(reg, val uint8) error {
	if m.card == nil {
		return errors.New("no SID card")
	}
	m.TED.Write8(0xFD40|uint16(reg&0x1F), val)
	return nil
}

// Machine snapshots are a sequence of chunks, each made of a 4 byte tag,
// a big endian uint32 length and the chunk data.
var (
	machineMagic = [4]byte{'P', '4', 'M', 'S'}
	chunkTED     = [4]byte{'T', 'E', 'D', ' '}
	chunkSID     = [4]byte{'S', 'I', 'D', ' '}
	chunkSIDCard = [4]byte{'S', 'I', 'D', 'C'}
)

func writeChunk(w *snapshot.Writer, tag [4]byte, save func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := save(&buf); err != nil {
		return err
	}
	w.Raw(tag[:])
	w.Uint32(uint32(buf.Len()))
	w.Raw(buf.Bytes())
	return nil
}

// SaveState writes a snapshot of the TED and the SID card to w.
func (m *Machine) SaveState(w io.Writer) error {
	sw := snapshot.NewWriter()
	sw.Raw(machineMagic[:])
	if err := writeChunk(sw, chunkTED, m.TED.SaveState); err != nil {
		return err
	}
	if m.card != nil {
		if err := writeChunk(sw, chunkSID, m.SID.SaveState); err != nil {
			return err
		}
		err := writeChunk(sw, chunkSIDCard, func(w io.Writer) error {
			cw := snapshot.NewWriter()
			cw.Bool(m.card.active)
			cw.Int32(m.card.acc)
			_, err := cw.WriteTo(w)
			return err
		})
		if err != nil {
			return err
		}
	}
	_, err := sw.WriteTo(w)
	return err
}

// LoadState restores a snapshot written by SaveState. Chunks of unknown
// type are skipped. On error the machine is reset.
func (m *Machine) LoadState(r io.Reader) error {
	if err := m.loadState(r); err != nil {
		log.ModSnapshot.WarnZ("cannot load machine snapshot").Error("err", err).End()
		m.Reset(true)
		return err
	}
	return nil
}

func (m *Machine) loadState(r io.Reader) error {
	sr, err := snapshot.ReadFrom("machine", r)
	if err != nil {
		return err
	}
	var tag [4]byte
	if sr.Raw(tag[:]); tag != machineMagic {
		sr.Invalid("bad magic %q", tag[:])
		return sr.Err()
	}

	hasTED := false
	for sr.Remaining() > 0 {
		sr.Raw(tag[:])
		size := sr.Uint32()
		if sr.Err() == nil && int(size) > sr.Remaining() {
			sr.Invalid("chunk %q: size %d exceeds remaining data", tag[:], size)
		}
		if sr.Err() != nil {
			return sr.Err()
		}
		data := make([]byte, size)
		sr.Raw(data)

		switch tag {
		case chunkTED:
			if err := m.TED.LoadState(bytes.NewReader(data)); err != nil {
				return err
			}
			hasTED = true
		case chunkSID:
			if m.SID == nil {
				log.ModSnapshot.WarnZ("ignoring SID chunk, no SID card").End()
				continue
			}
			if err := m.SID.LoadState(bytes.NewReader(data)); err != nil {
				return err
			}
		case chunkSIDCard:
			if m.card == nil {
				continue
			}
			cr := snapshot.NewReader("sidcard", data)
			active, acc := cr.Bool(), cr.Int32()
			if err := cr.Finish(); err != nil {
				return err
			}
			m.card.setActive(active)
			m.card.acc = acc
		default:
			log.ModSnapshot.DebugZ("skipping unknown chunk").String("tag", string(tag[:])).End()
		}
	}
	if !hasTED {
		return &snapshot.FormatError{Chunk: "machine", Msg: "missing TED chunk"}
	}
	return nil
}

// sidCard is the SID expansion card, decoded at $FD40-$FD5F and
// $FE80-$FE9F. The SID is only clocked once a register has been written.
type sidCard struct {
	SID hwio.Device `hwio:"offset=0x40,size=0x20,rcb,pcb,wcb"`

	m      *Machine
	active bool
	acc    int32
}

func (c *sidCard) reset() {
	c.m.SID.Reset()
	c.setActive(false)
	c.acc = 0
}

func (c *sidCard) setActive(active bool) {
	c.active = active
	flags := uint8(0)
	if active {
		flags = ted.CallbackFirstHalf
	}
	c.m.TED.SetCallback(c, flags)
}

func (c *sidCard) ReadSID(addr uint16) uint8 { return c.m.SID.Read(uint8(addr & 0x1F)) }
func (c *sidCard) PeekSID(addr uint16) uint8 { return c.m.SID.Peek(uint8(addr & 0x1F)) }

func (c *sidCard) WriteSID(addr uint16, val uint8) {
	if !c.active {
		log.ModSID.InfoZ("SID card enabled").Hex16("addr", addr).End()
		c.setActive(true)
	}
	c.m.SID.Write(uint8(addr&0x1F), val)
}

// OnCycle implements ted.Callback.
func (c *sidCard) OnCycle() {
	c.m.SID.ClockFast(&c.acc)
}

// Package sid emulates the MOS 6581/8580 Sound Interface Device, as found on
// the Plus/4 SID expansion cards.
package sid

import (
	"plus4/emu/log"
)

type ChipModel uint8

const (
	MOS6581 ChipModel = iota
	MOS8580
)

func (m ChipModel) String() string {
	if m == MOS8580 {
		return "8580"
	}
	return "6581"
}

// ClockFrequency is the SID clock on a PAL Plus/4, in Hz (the TED single
// clock rate).
const ClockFrequency = 886724

// SID is a cycle-based SID emulation. It can either be clocked one cycle at
// a time with ClockFast, accumulating the output, or by many cycles at once
// with Clock.
type SID struct {
	model  ChipModel
	voices [3]voice
	filter *filter
	ext    *extFilter

	busValue    uint8
	busValueTTL int32
	databusTTL  int32

	// 8580 register writes are delayed by one cycle.
	writePipeline bool
	writeAddr     uint8
}

// New returns a reset 6581.
func New() *SID {
	s := &SID{
		filter: newFilter(),
		ext:    newExtFilter(),
	}
	s.voices[0].wave.syncSource = &s.voices[2].wave
	s.voices[1].wave.syncSource = &s.voices[0].wave
	s.voices[2].wave.syncSource = &s.voices[1].wave
	s.voices[0].wave.syncDest = &s.voices[1].wave
	s.voices[1].wave.syncDest = &s.voices[2].wave
	s.voices[2].wave.syncDest = &s.voices[0].wave
	s.SetChipModel(MOS6581)
	s.Reset()
	return s
}

func (s *SID) ChipModel() ChipModel { return s.model }

func (s *SID) SetChipModel(m ChipModel) {
	s.model = m

	// Time for the data bus to fade out, measured on real C64s
	// (delayfrq0.prg) and corrected for the TED clock frequency. The raw C64
	// measurements were 0xa2000 cycles (8580) and 0x1d00 cycles (6581).
	var clk float64 = ClockFrequency
	if m == MOS8580 {
		s.databusTTL = int32(0.663552*clk + 0.5)
	} else {
		s.databusTTL = int32(0.007424*clk + 0.5)
	}

	for i := range s.voices {
		s.voices[i].setChipModel(m)
	}
	s.filter.setChipModel(m)
	s.ext.setChipModel(m)

	log.ModSID.DebugZ("chip model").Stringer("model", m).End()
}

func (s *SID) Reset() {
	for i := range s.voices {
		s.voices[i].reset()
	}
	s.filter.reset()
	s.ext.reset()
	s.busValue = 0
	s.busValueTTL = 0
	s.writePipeline = false
	s.writeAddr = 0
}

// Input feeds an external audio sample into the filter (EXT IN).
func (s *SID) Input(sample int16) { s.filter.input(sample) }

// Read returns the value of register off (0x00-0x1F). Write-only registers
// read back the last value written to the bus, which fades to zero after
// some time.
func (s *SID) Read(off uint8) uint8 {
	switch off & 0x1F {
	case 0x19, 0x1A:
		// no paddles connected
		s.busValue = 0xFF
		s.busValueTTL = s.databusTTL
	case 0x1B:
		s.busValue = s.voices[2].wave.readOSC()
		s.busValueTTL = s.databusTTL
	case 0x1C:
		s.busValue = s.voices[2].env.readENV()
		s.busValueTTL = s.databusTTL
	}
	return s.busValue
}

// Peek is like Read, without affecting the bus value.
func (s *SID) Peek(off uint8) uint8 {
	switch off & 0x1F {
	case 0x19, 0x1A:
		return 0xFF
	case 0x1B:
		return s.voices[2].wave.readOSC()
	case 0x1C:
		return s.voices[2].env.readENV()
	}
	return s.busValue
}

// Write writes val into register off (0x00-0x1F).
func (s *SID) Write(off, val uint8) {
	s.writeAddr = off & 0x1F
	s.busValue = val
	s.busValueTTL = s.databusTTL

	if s.model == MOS8580 {
		s.writePipeline = true
		return
	}
	s.write()
}

func (s *SID) write() {
	s.writeRegister(s.writeAddr, s.busValue)
	s.writePipeline = false
}

func (s *SID) writeRegister(off, val uint8) {
	if off < 0x15 {
		v := &s.voices[off/7]
		switch off % 7 {
		case 0:
			v.wave.writeFreqLo(val)
		case 1:
			v.wave.writeFreqHi(val)
		case 2:
			v.wave.writePWLo(val)
		case 3:
			v.wave.writePWHi(val)
		case 4:
			v.writeControl(val)
		case 5:
			v.env.writeAttackDecay(val)
		case 6:
			v.env.writeSustainRelease(val)
		}
		return
	}

	switch off {
	case 0x15:
		s.filter.writeFCLo(val)
	case 0x16:
		s.filter.writeFCHi(val)
	case 0x17:
		s.filter.writeResFilt(val)
	case 0x18:
		s.filter.writeModeVol(val)
	}
}

// SetVoiceMask selects the voices routed to the output, bit 3 is EXT IN.
func (s *SID) SetVoiceMask(mask uint8) { s.filter.voiceMask = mask & 0x0F }

func (s *SID) EnableFilter(enable bool) { s.filter.enabled = enable }

// AdjustFilterBias shifts the cutoff frequency curve of the 6581 filter.
// It has no effect on the 8580.
func (s *SID) AdjustFilterBias(bias float64) { s.filter.adjustBias(bias) }

func (s *SID) EnableExternalFilter(enable bool) { s.ext.enabled = enable }

func clamp16(v int) int {
	return min(max(v, -32768), 32767)
}

// Output returns the current 16-bit audio sample.
func (s *SID) Output() int16 {
	return int16(clamp16(s.ext.output() / 11))
}

// fastOutput is the sample added by ClockFast. The filter output is on the
// 16-bit scale of Output times 11; the accumulator takes samples in the
// 0x0000-0x4444 range, centered on 131072/15 (0x2222).
func (s *SID) fastOutput() int32 {
	return int32(clamp16(s.filter.output()/11)/4 + 0x2222)
}

// ClockFast runs the SID for one cycle, adding the filter output to acc.
// The external filter is not clocked.
func (s *SID) ClockFast(acc *int32) {
	for i := range s.voices {
		s.voices[i].env.clock()
	}
	for i := range s.voices {
		s.voices[i].wave.clock()
	}
	for i := range s.voices {
		s.voices[i].wave.synchronize()
	}
	for i := range s.voices {
		s.voices[i].wave.setOutput(1)
	}

	s.filter.clock(s.voices[0].output(), s.voices[1].output(), s.voices[2].output())
	*acc += s.fastOutput()*15 - 131072

	if s.writePipeline {
		s.write()
	}
	if s.busValueTTL > 0 {
		s.busValueTTL--
		if s.busValueTTL == 0 {
			s.busValue = 0
		}
	}
}

// Clock runs the SID for n cycles.
func (s *SID) Clock(n int) {
	if s.writePipeline && n > 0 {
		// run the cycle of the pending write
		s.writePipeline = false
		s.Clock(1)
		s.write()
		n--
	}
	if n <= 0 {
		return
	}

	s.busValueTTL -= int32(n)
	if s.busValueTTL <= 0 {
		s.busValue = 0
		s.busValueTTL = 0
	}

	for i := range s.voices {
		s.voices[i].env.clockDelta(n)
	}

	// Clock and synchronize the oscillators, stopping on every MSB toggle of
	// a sync source for hard sync to operate correctly.
	for rem := n; rem > 0; {
		step := rem
		for i := range s.voices {
			w := &s.voices[i].wave
			if !w.syncDest.sync || w.freq == 0 {
				continue
			}
			freq := uint32(w.freq)
			target := uint32(0x800000)
			if w.acc&0x800000 != 0 {
				target = 0x1000000
			}
			dacc := target - w.acc
			next := int(dacc / freq)
			if dacc%freq != 0 {
				next++
			}
			step = min(step, next)
		}
		for i := range s.voices {
			s.voices[i].wave.clockDelta(step)
		}
		for i := range s.voices {
			s.voices[i].wave.synchronize()
		}
		rem -= step
	}

	for i := range s.voices {
		s.voices[i].wave.setOutput(n)
	}
	s.filter.clockDelta(n, s.voices[0].output(), s.voices[1].output(), s.voices[2].output())
	s.ext.clockDelta(n, s.filter.output())
}

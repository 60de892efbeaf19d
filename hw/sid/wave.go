package sid

// waveGenerator is a 24-bit phase accumulating oscillator with a 23-bit
// noise LFSR. Voices are chained in a ring for hard sync and ring
// modulation: voice 0 is synced by voice 2, voice 1 by voice 0, voice 2 by
// voice 1.
type waveGenerator struct {
	syncSource *waveGenerator
	syncDest   *waveGenerator

	acc       uint32 // 24 bits
	shiftReg  uint32 // 23 bits
	msbRising bool

	freq uint16
	pw   uint16 // 12 bits

	waveform uint8
	test     bool
	ringMod  bool
	sync     bool

	out        uint16 // 12 bits
	floatTTL   int
	floatReset int // TTL reloaded on each waveform output
}

const noiseReset = 0x7FFFF8

func (w *waveGenerator) setChipModel(m ChipModel) {
	// cycles before a floating DAC input fades out
	if m == MOS6581 {
		w.floatReset = 182000
	} else {
		w.floatReset = 4400000
	}
}

func (w *waveGenerator) reset() {
	w.acc = 0
	w.shiftReg = noiseReset
	w.msbRising = false
	w.freq = 0
	w.pw = 0
	w.waveform = 0
	w.test = false
	w.ringMod = false
	w.sync = false
	w.out = 0
	w.floatTTL = 0
}

func (w *waveGenerator) writeFreqLo(v uint8) { w.freq = w.freq&0xFF00 | uint16(v) }
func (w *waveGenerator) writeFreqHi(v uint8) { w.freq = uint16(v)<<8 | w.freq&0x00FF }
func (w *waveGenerator) writePWLo(v uint8)   { w.pw = w.pw&0xF00 | uint16(v) }
func (w *waveGenerator) writePWHi(v uint8)   { w.pw = uint16(v&0x0F)<<8 | w.pw&0x0FF }

func (w *waveGenerator) writeControl(v uint8) {
	test := v&0x08 != 0
	w.waveform = v >> 4
	w.ringMod = v&0x04 != 0
	w.sync = v&0x02 != 0

	switch {
	case test:
		// the test bit resets and holds the accumulator and the LFSR
		w.acc = 0
		w.shiftReg = 0
	case w.test:
		w.shiftReg = noiseReset
	}
	w.test = test
}

func (w *waveGenerator) control() uint8 {
	v := w.waveform << 4
	if w.test {
		v |= 0x08
	}
	if w.ringMod {
		v |= 0x04
	}
	if w.sync {
		v |= 0x02
	}
	return v
}

func (w *waveGenerator) clockNoise() {
	bit0 := (w.shiftReg>>22 ^ w.shiftReg>>17) & 1
	w.shiftReg = (w.shiftReg<<1)&0x7FFFFF | bit0
}

// clock advances the oscillator by one cycle.
func (w *waveGenerator) clock() {
	if w.test {
		return
	}
	prev := w.acc
	w.acc = (w.acc + uint32(w.freq)) & 0xFFFFFF
	w.msbRising = prev&0x800000 == 0 && w.acc&0x800000 != 0

	// the LFSR is clocked on bit 19 rising edges
	if prev&0x080000 == 0 && w.acc&0x080000 != 0 {
		w.clockNoise()
	}
}

// clockDelta advances the oscillator by n cycles.
func (w *waveGenerator) clockDelta(n int) {
	if w.test {
		return
	}
	prev := w.acc
	delta := uint32(n) * uint32(w.freq)
	w.acc = (w.acc + delta) & 0xFFFFFF
	w.msbRising = prev&0x800000 == 0 && w.acc&0x800000 != 0

	// count bit 19 rising edges, going backwards from the current value
	period := uint32(0x100000)
	for delta != 0 {
		if delta < period {
			period = delta
			if period <= 0x080000 {
				if (w.acc-period)&0x080000 != 0 || w.acc&0x080000 == 0 {
					break
				}
			} else if (w.acc-period)&0x080000 != 0 && w.acc&0x080000 == 0 {
				break
			}
		}
		w.clockNoise()
		delta -= period
	}
}

func (w *waveGenerator) synchronize() {
	if w.msbRising && w.syncDest.sync && !(w.sync && w.syncSource.msbRising) {
		w.syncDest.acc = 0
	}
}

func (w *waveGenerator) triangle() uint16 {
	acc := w.acc
	msb := acc
	if w.ringMod {
		msb ^= w.syncSource.acc
	}
	if msb&0x800000 != 0 {
		acc = ^acc
	}
	return uint16(acc>>11) & 0xFFF
}

func (w *waveGenerator) sawtooth() uint16 { return uint16(w.acc >> 12) }

func (w *waveGenerator) pulse() uint16 {
	if w.test || uint16(w.acc>>12) >= w.pw {
		return 0xFFF
	}
	return 0
}

func (w *waveGenerator) noise() uint16 {
	sr := w.shiftReg
	return uint16(sr&0x400000>>11 |
		sr&0x100000>>10 |
		sr&0x010000>>7 |
		sr&0x002000>>5 |
		sr&0x000800>>4 |
		sr&0x000080>>1 |
		sr&0x000010<<1 |
		sr&0x000004<<2)
}

// waveOutput computes the 12-bit DAC input. Combined waveforms are
// approximated by ANDing the selected outputs.
func (w *waveGenerator) waveOutput() uint16 {
	out := uint16(0xFFF)
	if w.waveform&0x1 != 0 {
		out &= w.triangle()
	}
	if w.waveform&0x2 != 0 {
		out &= w.sawtooth()
	}
	if w.waveform&0x4 != 0 {
		out &= w.pulse()
	}
	if w.waveform&0x8 != 0 {
		out &= w.noise()
	}
	return out
}

// setOutput latches the waveform output after n cycles. With no waveform
// selected the DAC input floats and holds its last value for a while.
func (w *waveGenerator) setOutput(n int) {
	if w.waveform != 0 {
		w.out = w.waveOutput()
		w.floatTTL = w.floatReset
		return
	}
	if w.floatTTL > 0 {
		w.floatTTL -= n
		if w.floatTTL <= 0 {
			w.floatTTL = 0
			w.out = 0
		}
	}
}

// readOSC returns the upper 8 bits of the waveform output.
func (w *waveGenerator) readOSC() uint8 { return uint8(w.out >> 4) }

package sid

type voice struct {
	wave waveGenerator
	env  envelopeGenerator

	waveZero int // DAC output for a zero waveform
	voiceDC  int
}

func (v *voice) setChipModel(m ChipModel) {
	v.wave.setChipModel(m)
	if m == MOS6581 {
		// the waveform DAC output is offset, and so is the multiplying DAC
		v.waveZero = 0x380
		v.voiceDC = 0x800 * 0xFF
	} else {
		v.waveZero = 0x800
		v.voiceDC = 0
	}
}

func (v *voice) reset() {
	v.wave.reset()
	v.env.reset()
}

func (v *voice) writeControl(val uint8) {
	v.wave.writeControl(val)
	v.env.writeControl(val)
}

// output returns the amplitude modulated waveform, a 20-bit signed value.
func (v *voice) output() int {
	return (int(v.wave.out)-v.waveZero)*int(v.env.counter) + v.voiceDC
}

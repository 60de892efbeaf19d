package sid

// extFilter models the RC filters of the audio output stage: a low-pass
// filter at about 16kHz and a high-pass filter at about 16Hz.
type extFilter struct {
	enabled bool
	mixerDC int

	vlp, vhp, vo int
	w0lp, w0hp   int
}

func newExtFilter() *extFilter {
	f := &extFilter{
		enabled: true,
		// w0 = 1/RC, multiplied by 1.048576 (see filter.setW0)
		w0lp: 104858,
		w0hp: 105,
	}
	f.setChipModel(MOS6581)
	return f
}

func (f *extFilter) setChipModel(m ChipModel) {
	if m == MOS6581 {
		// maximum mixer DC output level, to be removed if the external
		// filter is turned off: ((wave DC + voice DC)*voices - mixer DC)*volume
		f.mixerDC = ((((0x800-0x380)+0x800)*0xFF*3 - 0xFFF*0xFF/18) >> 7) * 0x0F
	} else {
		f.mixerDC = 0
	}
}

func (f *extFilter) reset() {
	f.vlp, f.vhp, f.vo = 0, 0, 0
}

func (f *extFilter) clock(vi int) {
	if !f.enabled {
		f.vlp, f.vhp = 0, 0
		f.vo = vi - f.mixerDC
		return
	}
	dVlp := (f.w0lp >> 8) * (vi - f.vlp) >> 12
	dVhp := f.w0hp * (f.vlp - f.vhp) >> 20
	f.vo = f.vlp - f.vhp
	f.vlp += dVlp
	f.vhp += dVhp
}

func (f *extFilter) clockDelta(n int, vi int) {
	if !f.enabled {
		f.vlp, f.vhp = 0, 0
		f.vo = vi - f.mixerDC
		return
	}
	step := 8
	for n > 0 {
		if n < step {
			step = n
		}
		dVlp := (f.w0lp * step >> 8) * (vi - f.vlp) >> 12
		dVhp := f.w0hp * step * (f.vlp - f.vhp) >> 20
		f.vo = f.vlp - f.vhp
		f.vlp += dVlp
		f.vhp += dVhp
		n -= step
	}
}

func (f *extFilter) output() int { return f.vo }

package ted

// tone is the state of the two tone generators.
type tone struct {
	cnt1, cnt2       uint32 // 10-bit counters
	reload1, reload2 uint32
	state1, state2   bool
	prvOverflow1     bool
	prvOverflow2     bool
	decay1, decay2   uint32
	noiseState       uint8
	noiseOutput      bool
	volume           uint8
	out1, out2       uint8
	prvOutput        uint8
}

// number of sound clocks (1/8 of the single clock) after which a channel
// stuck at a constant level returns to high.
const soundDecayCycles = 120000

var soundVolumeTable = [16]uint8{0, 6, 16, 26, 36, 46, 56, 66, 75, 75, 75, 75, 75, 75, 75, 75}

// DAC output curve, indexed by the sum of the channel outputs of the
// current and previous sample (0-240).
var soundDistortionCurve = [241]uint16{
	0, 52, 108, 165, 222, 280, 339, 398, 457, 516,
	575, 635, 695, 755, 815, 875, 935, 996, 1056, 1117,
	1177, 1238, 1299, 1360, 1421, 1482, 1543, 1604, 1665, 1726,
	1787, 1849, 1910, 1972, 2033, 2095, 2156, 2218, 2280, 2341,
	2403, 2465, 2527, 2589, 2651, 2713, 2775, 2837, 2899, 2962,
	3024, 3086, 3149, 3211, 3274, 3336, 3399, 3461, 3524, 3587,
	3650, 3713, 3776, 3839, 3902, 3965, 4028, 4091, 4155, 4218,
	4281, 4345, 4408, 4472, 4536, 4600, 4663, 4727, 4791, 4855,
	4919, 4983, 5047, 5112, 5176, 5240, 5305, 5369, 5434, 5499,
	5563, 5628, 5693, 5758, 5823, 5888, 5953, 6018, 6084, 6149,
	6215, 6280, 6346, 6411, 6477, 6543, 6609, 6675, 6741, 6807,
	6873, 6940, 7006, 7073, 7139, 7206, 7273, 7339, 7406, 7473,
	7540, 7608, 7675, 7742, 7810, 7877, 7945, 8013, 8080, 8148,
	8216, 8284, 8352, 8421, 8489, 8558, 8626, 8695, 8763, 8832,
	8901, 8970, 9039, 9109, 9178, 9247, 9317, 9387, 9456, 9526,
	9596, 9666, 9736, 9806, 9877, 9947, 10018, 10089, 10159, 10230,
	10301, 10372, 10444, 10515, 10586, 10658, 10729, 10801, 10873, 10945,
	11017, 11090, 11162, 11234, 11307, 11380, 11452, 11525, 11598, 11672,
	11745, 11818, 11892, 11965, 12039, 12113, 12187, 12261, 12336, 12410,
	12484, 12559, 12634, 12709, 12784, 12859, 12934, 13010, 13085, 13161,
	13237, 13313, 13389, 13465, 13541, 13618, 13694, 13771, 13848, 13925,
	14002, 14080, 14157, 14235, 14312, 14390, 14468, 14546, 14625, 14703,
	14782, 14860, 14939, 15018, 15097, 15177, 15256, 15336, 15415, 15495,
	15575, 15655, 15736, 15816, 15897, 15978, 16059, 16140, 16221, 16302,
	16384,
}

// soundDistortion resamples soundDistortionCurve to cover the full output
// range (2 samples of 2 channels at volume 75).
var soundDistortion = func() (tbl [301]int16) {
	for i := range tbl {
		x0, frac := i*240/300, i*240%300
		v := int(soundDistortionCurve[x0])
		if frac != 0 {
			v += (int(soundDistortionCurve[x0+1]) - v) * frac / 300
		}
		tbl[i] = int16(v)
	}
	return tbl
}()

func (s *tone) reset() {
	*s = tone{
		decay1:      soundDecayCycles,
		decay2:      soundDecayCycles,
		noiseState:  0xFF,
		noiseOutput: true,
	}
}

// updateSoundReload recomputes the tone generator reload values from
// FF0E, FF0F, FF10 and FF12.
func (t *TED) updateSoundReload() {
	f1 := uint32(t.BMPBASE.Value&0x03)<<8 | uint32(t.SND1FREQ.Value)
	f2 := uint32(t.SND2HI.Value&0x03)<<8 | uint32(t.SND2FREQ.Value)
	t.snd.reload1 = ((f1+1)^0x3FF)&0x3FF + 1
	t.snd.reload2 = ((f2+1)^0x3FF)&0x3FF + 1
}

func (t *TED) updateSoundOutputs() {
	ctrl := t.SNDCTRL.Value
	s := &t.snd
	s.out1, s.out2 = 0, 0
	if ctrl&0x10 != 0 && s.state1 {
		s.out1 = s.volume
	}
	switch {
	case ctrl&0x20 != 0:
		if s.state2 {
			s.out2 = s.volume
		}
	case ctrl&0x40 != 0:
		if !s.noiseOutput {
			s.out2 = s.volume
		}
	}
}

// calculateSoundOutput clocks the tone generators and plays one sample.
func (t *TED) calculateSoundOutput() {
	s := &t.snd
	if t.SNDCTRL.Value&0x80 != 0 {
		// DAC mode
		s.cnt1 = s.reload1
		s.cnt2 = s.reload2
		if s.decay1 > 0 {
			s.decay1--
			if s.decay1 == 0 {
				s.prvOverflow1 = true
			}
		}
		if s.decay2 > 0 {
			s.decay2--
			if s.decay2 == 0 {
				s.prvOverflow2 = true
			}
		}
		s.noiseState = 0xFF
		s.noiseOutput = true
	} else {
		s.cnt1 = (s.cnt1 - 1) & 0x3FF
		overflow := s.cnt1 == 0
		if overflow {
			s.cnt1 = s.reload1
			if !s.prvOverflow1 {
				s.decay1 = soundDecayCycles
				s.state1 = !s.state1
			}
		}
		s.prvOverflow1 = overflow
		s.decay1--
		if s.decay1 == 0 {
			s.state1 = true
		}

		s.cnt2 = (s.cnt2 - 1) & 0x3FF
		overflow = s.cnt2 == 0
		if overflow {
			s.cnt2 = s.reload2
			if !s.prvOverflow2 {
				s.decay2 = soundDecayCycles
				s.state2 = !s.state2
			}
			s.clockNoise()
		}
		s.prvOverflow2 = overflow
		s.decay2--
		if s.decay2 == 0 {
			s.state2 = true
		}
	}
	t.updateSoundOutputs()

	out := s.out1 + s.out2
	t.playSample(soundDistortion[int(s.prvOutput)+int(out)])
	s.prvOutput = out
}

// clockNoise steps the 8-bit polynomial noise generator.
func (s *tone) clockNoise() {
	tmp := s.noiseState & 0xB3
	tmp ^= tmp >> 4
	tmp ^= tmp >> 2
	tmp ^= tmp >> 1
	out := tmp&1 != 0
	s.noiseOutput = s.noiseOutput != out
	b := uint8(0)
	if s.noiseOutput {
		b = 1
	}
	s.noiseState = s.noiseState<<1 | b
}
